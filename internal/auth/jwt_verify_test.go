package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	testIssuer = "https://test-keycloak.com/realms/test"
	testKid    = "test-key-id"
)

func TestVerifier_ParseAndVerifyToken_Success(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(Config{Issuer: testIssuer}, newMockJWKS(publicKey))

	tokenString := signToken(t, privateKey, testKid, jwt.MapClaims{
		"sub":   "user-123",
		"iss":   testIssuer,
		"email": "ops@wailsalutem.nl",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"realm_access": map[string]interface{}{
			"roles": []interface{}{"BROKER_ADMIN", "BROKER_VIEWER"},
		},
	})

	principal, err := verifier.ParseAndVerifyToken(tokenString)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if principal.UserID != "user-123" {
		t.Errorf("Expected UserID 'user-123', got '%s'", principal.UserID)
	}
	if principal.Email != "ops@wailsalutem.nl" {
		t.Errorf("Expected email claim, got '%s'", principal.Email)
	}
	if len(principal.Roles) != 2 || principal.Roles[0] != "BROKER_ADMIN" {
		t.Errorf("Expected [BROKER_ADMIN BROKER_VIEWER], got %v", principal.Roles)
	}
}

func TestVerifier_ParseAndVerifyToken_Rejections(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	otherKey, _ := generateTestKeyPair(t)
	verifier := NewVerifier(Config{Issuer: testIssuer, Audience: "rabbitmq-binding"}, newMockJWKS(publicKey))

	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": "user-123",
			"iss": testIssuer,
			"aud": "rabbitmq-binding",
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	tests := []struct {
		name   string
		key    *rsa.PrivateKey
		kid    string
		mutate func(jwt.MapClaims)
		want   error
	}{
		{"wrong issuer", privateKey, testKid, func(c jwt.MapClaims) { c["iss"] = "https://wrong-issuer.com" }, ErrInvalidIssuer},
		{"expired", privateKey, testKid, func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() }, ErrInvalidToken},
		{"missing sub", privateKey, testKid, func(c jwt.MapClaims) { delete(c, "sub") }, ErrMissingSub},
		{"missing kid", privateKey, "", func(jwt.MapClaims) {}, ErrInvalidToken},
		{"unknown kid", privateKey, "rotated-away", func(jwt.MapClaims) {}, ErrInvalidToken},
		{"wrong signing key", otherKey, testKid, func(jwt.MapClaims) {}, ErrInvalidToken},
		{"wrong audience", privateKey, testKid, func(c jwt.MapClaims) { c["aud"] = "organization-service" }, ErrInvalidAudience},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := valid()
			tt.mutate(claims)
			principal, err := verifier.ParseAndVerifyToken(signToken(t, tt.key, tt.kid, claims))
			if err != tt.want {
				t.Errorf("Expected %v, got: %v", tt.want, err)
			}
			if principal != nil {
				t.Error("Expected nil principal")
			}
		})
	}
}

func TestVerifier_ParseAndVerifyToken_EmptyToken(t *testing.T) {
	verifier := NewVerifier(Config{Issuer: testIssuer}, nil)

	if _, err := verifier.ParseAndVerifyToken("  "); err != ErrNoToken {
		t.Errorf("Expected ErrNoToken, got: %v", err)
	}
}

func TestVerifier_ParseAndVerifyToken_NoRoles(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(Config{Issuer: testIssuer}, newMockJWKS(publicKey))

	principal, err := verifier.ParseAndVerifyToken(signToken(t, privateKey, testKid, jwt.MapClaims{
		"sub": "user-123",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	}))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(principal.Roles) != 0 {
		t.Errorf("Expected 0 roles, got %d", len(principal.Roles))
	}
}

func TestJWKS_FetchesAndRefreshesOnMiss(t *testing.T) {
	_, publicKey := generateTestKeyPair(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(jwksJSON{Keys: []jwkKey{{
			Kty: "RSA",
			Kid: testKid,
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(publicKey.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(publicKey.E)).Bytes()),
		}}})
	}))
	defer srv.Close()

	jwks, err := NewJWKS(srv.URL, time.Hour)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer jwks.Close()

	got, err := jwks.Get(testKid)
	if err != nil {
		t.Fatalf("Expected key, got: %v", err)
	}
	if got.N.Cmp(publicKey.N) != 0 || got.E != publicKey.E {
		t.Error("Expected fetched key to match the published key")
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("Expected 1 fetch, got %d", n)
	}

	if _, err := jwks.Get("unknown"); err != ErrKeyNotFound {
		t.Errorf("Expected ErrKeyNotFound, got: %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("Expected a refresh on miss, got %d fetches", n)
	}
}

func TestNewJWKS_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewJWKS(srv.URL, time.Hour); err == nil {
		t.Fatal("Expected error for non-200 JWKS response")
	}
}

// generateTestKeyPair generates an RSA key pair for testing
func generateTestKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}

func newMockJWKS(publicKey *rsa.PublicKey) *JWKS {
	return StaticJWKS(map[string]*rsa.PublicKey{testKid: publicKey})
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return s
}
