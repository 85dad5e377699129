package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

const (
	secretService = "perctx"
	secretAccount = "api_token"

	// TokenEnvVar overrides the stored token; useful for containers where
	// no platform secret store exists.
	TokenEnvVar = "PERCTX_API_TOKEN"
)

// GetAPIToken returns the bearer token for the management API, generating
// and persisting one on first use.
func GetAPIToken(kc keychain) (string, error) {
	if tok := os.Getenv(TokenEnvVar); tok != "" {
		return tok, nil
	}

	if tok, err := kc.Get(secretService, secretAccount); err == nil && tok != "" {
		return tok, nil
	}

	tok := uuid.New().String()
	if err := kc.Set(secretService, secretAccount, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}
