package session

import (
	"errors"
	"testing"
	"time"

	"bakery/internal/models"
)

func TestIssueVerify(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	buyer := models.Buyer{ChatID: 42, Username: "baker", FirstName: "Анна"}

	token, err := issuer.Issue(buyer)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	got, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got != buyer {
		t.Fatalf("Verify() = %+v, want %+v", got, buyer)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	token, err := NewIssuer("one", time.Hour).Issue(models.Buyer{ChatID: 1})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := NewIssuer("two", time.Hour).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsTampered(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	token, _ := issuer.Issue(models.Buyer{ChatID: 1})
	tampered := token[:len(token)-2] + "xx"
	if _, err := issuer.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
	if _, err := issuer.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute)
	start := time.Now()
	issuer.now = func() time.Time { return start }
	token, _ := issuer.Issue(models.Buyer{ChatID: 1})

	issuer.now = func() time.Time { return start.Add(2 * time.Minute) }
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsMissingChat(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	token, _ := issuer.Issue(models.Buyer{})
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}
