package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTokenCodec_IssueAndVerify(t *testing.T) {
	t.Parallel()

	codec, err := NewTokenCodec("super-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec error: %v", err)
	}

	token, err := codec.Issue(42, "a@b.com", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "a@b.com" || claims.Role != RoleAdmin {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.ID == "" {
		t.Fatalf("expected a token id claim")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatalf("expected iat and exp to be set")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Fatalf("ttl mismatch: got %v want %v", got, time.Hour)
	}
}

func TestNewTokenCodec_EmptySecret(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenCodec("", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := NewTokenCodec("   ", time.Hour); err == nil {
		t.Fatalf("expected error for blank secret")
	}
}

func TestTokenCodec_Verify_Expired(t *testing.T) {
	t.Parallel()

	codec := &TokenCodec{secret: []byte("secret"), ttl: -time.Minute}
	token, err := codec.Issue(1, "a@b.com", RoleUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = codec.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenCodec_Verify_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer, _ := NewTokenCodec("right-secret", time.Hour)
	verifier, _ := NewTokenCodec("wrong-secret", time.Hour)

	token, err := issuer.Issue(1, "a@b.com", RoleUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = verifier.Verify(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenCodec_Verify_TamperedSignature(t *testing.T) {
	t.Parallel()

	codec, _ := NewTokenCodec("super-secret", time.Hour)
	token, err := codec.Issue(1, "a@b.com", RoleUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = codec.Verify(tampered)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for tampered signature, got %v", err)
	}
}

func TestTokenCodec_Verify_Malformed(t *testing.T) {
	t.Parallel()

	codec, _ := NewTokenCodec("secret", time.Hour)

	for _, raw := range []string{"garbage", "not.a.jwt", "a.b"} {
		_, err := codec.Verify(raw)
		if !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("Verify(%q): expected ErrTokenMalformed, got %v", raw, err)
		}
	}
}

func TestExtractToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{"well formed", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"empty header", "", "", false},
		{"scheme only", "Bearer", "", false},
		{"empty token", "Bearer ", "", false},
		{"lowercase scheme", "bearer abc", "", false},
		{"wrong scheme", "Basic abc", "", false},
		{"three parts", "Bearer abc def", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			token, ok := ExtractToken(tc.header)
			if ok != tc.ok || token != tc.token {
				t.Fatalf("ExtractToken(%q) = (%q, %v), want (%q, %v)", tc.header, token, ok, tc.token, tc.ok)
			}
		})
	}
}
