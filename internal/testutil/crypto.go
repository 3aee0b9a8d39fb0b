package testutil

import (
	"encoding/base64"
	"testing"

	"github.com/mfarkas/mailward/internal/crypto"
)

// GetTestProtector creates a token protector with a deterministic key for testing.
// This is shared across all test packages to avoid duplication.
func GetTestProtector(t *testing.T) *crypto.Protector {
	t.Helper()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	base64Key := base64.StdEncoding.EncodeToString(key)

	protector, err := crypto.NewProtector(base64Key)
	if err != nil {
		t.Fatalf("Failed to create protector: %v", err)
	}
	return protector
}
