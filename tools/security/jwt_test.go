package security

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndVerify(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))

	token, exp, err := Generate(opts, 42, "alice@example.com")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if token == "" {
		t.Fatal("Generate() returned empty token")
	}
	if !exp.After(time.Now()) {
		t.Errorf("expiry %v is not in the future", exp)
	}

	userID, err := Verify(opts, token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != 42 {
		t.Errorf("Verify() userID = %d, want 42", userID)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _, err := Generate(DefaultOptions([]byte("secret-a")), 7, "a@b.c")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := Verify(DefaultOptions([]byte("secret-b")), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	opts.TTL = -time.Hour

	// Generate normalizes non-positive TTLs, so sign an expired token
	// through a dedicated options value.
	token, err := signExpired(opts.Secret)
	if err != nil {
		t.Fatalf("signExpired() error = %v", err)
	}

	if _, err := Verify(opts, token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() error = %v, want ErrExpiredToken", err)
	}
}

func signExpired(secret []byte) (string, error) {
	now := time.Now()
	claims := jwtlib.MapClaims{
		"sub": "7",
		"iat": now.Add(-2 * time.Hour).Unix(),
		"nbf": now.Add(-2 * time.Hour).Unix(),
		"exp": now.Add(-time.Hour).Unix(),
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
}

func TestVerifyGarbage(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := Verify(opts, tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q) error = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !CheckPassword("hunter22", hash) {
		t.Error("CheckPassword() rejected the correct password")
	}
	if CheckPassword("hunter23", hash) {
		t.Error("CheckPassword() accepted a wrong password")
	}
}
