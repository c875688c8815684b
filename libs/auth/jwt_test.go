package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testClaims(sub string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		Email: sub + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestHS256RoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := SignHS256(testClaims("user-1", time.Hour), secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	v, err := NewVerifier(VerifierConfig{HS256Secret: secret})
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	id, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if id.Subject != "user-1" || id.Email != "user-1@example.com" {
		t.Fatalf("identity mismatch: %+v", id)
	}

	other, _ := NewVerifier(VerifierConfig{HS256Secret: "wrong-secret"})
	if _, err := other.Verify(context.Background(), token); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := SignHS256(testClaims("user-1", -time.Minute), "s")
	if err != nil {
		t.Fatal(err)
	}
	v, _ := NewVerifier(VerifierConfig{HS256Secret: "s"})
	if _, err := v.Verify(context.Background(), token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestNewVerifierRequiresKey(t *testing.T) {
	if _, err := NewVerifier(VerifierConfig{}); err == nil {
		t.Fatal("expected error without keys")
	}
}

func TestRS256ViaJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(jwks{Keys: []jwk{{
			Kty: "RSA",
			Kid: "kid-1",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	defer srv.Close()

	claims := testClaims("auth0|abc", time.Hour)
	claims.Issuer = "https://idp.example.com/"
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "kid-1"
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	v, err := NewVerifier(VerifierConfig{
		JWKS:   NewJWKSClient(srv.URL, time.Minute),
		Issuer: "https://idp.example.com/",
	})
	if err != nil {
		t.Fatal(err)
	}
	id, err := v.Verify(context.Background(), signed)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if id.Subject != "auth0|abc" {
		t.Fatalf("unexpected subject %q", id.Subject)
	}

	strict, _ := NewVerifier(VerifierConfig{
		JWKS:   NewJWKSClient(srv.URL, time.Minute),
		Issuer: "https://other.example.com/",
	})
	if _, err := strict.Verify(context.Background(), signed); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
}
