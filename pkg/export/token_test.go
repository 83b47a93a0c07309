package export

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	s := NewTokenSigner([]byte("secret"))
	token, err := s.Sign("exports/p/1/a.csv", "a.csv", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	tok, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if tok.Key != "exports/p/1/a.csv" || tok.Filename != "a.csv" {
		t.Fatalf("unexpected token contents: %+v", tok)
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	s := NewTokenSigner([]byte("secret"))
	token, err := s.Sign("exports/p/1/a.csv", "a.csv", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	other := NewTokenSigner([]byte("other"))
	if _, err := other.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected invalid for foreign key, got %v", err)
	}
	body, sig, _ := strings.Cut(token, ".")
	forged, err := s.Sign("exports/p/2/b.csv", "b.csv", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	forgedBody, _, _ := strings.Cut(forged, ".")
	if _, err := s.Verify(forgedBody + "." + sig); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected invalid for swapped body, got %v", err)
	}
	for _, bad := range []string{"", "nodot", body + ".***", "***." + sig} {
		if _, err := s.Verify(bad); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("expected invalid for %q, got %v", bad, err)
		}
	}
}

func TestTokenExpiry(t *testing.T) {
	s := NewTokenSigner([]byte("secret"))
	now := time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	token, err := s.Sign("k", "f", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := s.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}
