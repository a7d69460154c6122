package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"bakery/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers malformed, expired and forged tokens.
var ErrInvalidToken = errors.New("invalid session token")

const DefaultTTL = 24 * time.Hour

// Claims bind a mini-app page to the chat that opened it.
type Claims struct {
	ChatID    int64  `json:"chat_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(buyer models.Buyer) (string, error) {
	now := i.now()
	claims := &Claims{
		ChatID:    buyer.ChatID,
		Username:  buyer.Username,
		FirstName: buyer.FirstName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   strconv.FormatInt(buyer.ChatID, 10),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *Issuer) Verify(tokenString string) (models.Buyer, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return models.Buyer{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ChatID == 0 {
		return models.Buyer{}, ErrInvalidToken
	}
	return models.Buyer{
		ChatID:    claims.ChatID,
		Username:  claims.Username,
		FirstName: claims.FirstName,
	}, nil
}
