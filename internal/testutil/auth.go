package testutil

import (
	"crypto/rsa"
	"testing"

	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/auth"
)

// CreateTestVerifier returns a verifier that trusts tokens signed with the
// returned private key
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)
	keys := auth.StaticJWKS(map[string]*rsa.PublicKey{TestKeyID: publicKey})

	return auth.NewVerifier(auth.Config{Issuer: TestIssuer}, keys), privateKey
}

// TestPermissions mirrors the roles in permissions.yml
func TestPermissions() auth.Permissions {
	return auth.Permissions{
		"BROKER_ADMIN": {
			auth.PermBatchView, auth.PermBatchPublish, auth.PermBatchFlush,
			auth.PermBatchReset, auth.PermFlushesView,
		},
		"BROKER_OPERATOR": {auth.PermBatchView, auth.PermBatchPublish, auth.PermBatchFlush, auth.PermFlushesView},
		"BROKER_VIEWER":   {auth.PermBatchView, auth.PermFlushesView},
	}
}
