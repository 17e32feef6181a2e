package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	manager := NewTokenManager(strings.Repeat("k", 32))
	want := Identity{UserID: uuid.New(), Email: "buyer@example.com", Admin: true}

	token, err := manager.Issue(want)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.UserID != want.UserID || got.Email != want.Email || got.Admin != want.Admin {
		t.Fatalf("Verify() = %+v, want %+v", got, want)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := NewTokenManager(strings.Repeat("a", 32)).Issue(Identity{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = NewTokenManager(strings.Repeat("b", 32)).Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := NewTokenManager(strings.Repeat("k", 32)).Verify("not-a-token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}
