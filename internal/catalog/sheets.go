package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Source yields raw catalog rows, header first.
type Source interface {
	Rows(ctx context.Context) ([][]string, error)
}

type SheetsConfig struct {
	ClientEmail   string
	PrivateKey    string
	ProjectID     string
	SpreadsheetID string
	Range         string
}

// SheetsSource reads the catalog from a Google spreadsheet with a service account.
type SheetsSource struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	readRange     string
}

type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`
}

func NewSheetsSource(ctx context.Context, cfg SheetsConfig) (*SheetsSource, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is empty")
	}
	creds, err := json.Marshal(serviceAccount{
		Type:        "service_account",
		ProjectID:   cfg.ProjectID,
		PrivateKey:  strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n"), // ключ из .env хранится в одну строку
		ClientEmail: cfg.ClientEmail,
		TokenURI:    "https://oauth2.googleapis.com/token",
	})
	if err != nil {
		return nil, err
	}

	srv, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	readRange := cfg.Range
	if readRange == "" {
		readRange = "A:H"
	}
	return &SheetsSource{
		values:        srv.Spreadsheets.Values,
		spreadsheetID: cfg.SpreadsheetID,
		readRange:     readRange,
	}, nil
}

func (s *SheetsSource) Rows(ctx context.Context) ([][]string, error) {
	resp, err := s.values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: get %s: %w", s.readRange, err)
	}
	return cellsToStrings(resp.Values), nil
}

func cellsToStrings(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		row := make([]string, len(v))
		for i, cell := range v {
			if cell != nil {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// StaticSource serves fixed rows. Used for local runs and tests.
type StaticSource [][]string

func (s StaticSource) Rows(context.Context) ([][]string, error) {
	rows := make([][]string, len(s))
	for i, r := range s {
		rows[i] = append([]string(nil), r...)
	}
	return rows, nil
}
