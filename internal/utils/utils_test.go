package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewAccessTokenClaims(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 17, "ADMIN", 5)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub != "17" {
		t.Fatalf("sub = %q, %v", sub, err)
	}
	if role := parsed.Claims.(jwt.MapClaims)["role"]; role != "ADMIN" {
		t.Fatalf("role = %v", role)
	}
}

func TestRefreshTokenHashing(t *testing.T) {
	a, err := NewRefreshToken(1)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewRefreshToken(1)
	if len(a.Raw) != 96 || a.Raw == b.Raw {
		t.Fatalf("refresh tokens should be 96 random hex chars: %q %q", a.Raw, b.Raw)
	}
	if HashRefreshRaw(a.Raw) != HashRefreshRaw(a.Raw) || HashRefreshRaw(a.Raw) == HashRefreshRaw(b.Raw) {
		t.Fatal("hash must be deterministic and distinct per token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(hash, "hunter2") || VerifyPassword(hash, "hunter3") {
		t.Fatal("bcrypt round trip failed")
	}
}
