package tgtg

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Credentials is the opaque material produced by the email-link login.
// The checker only carries it; it never generates or validates it.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	Cookie       string    `json:"cookie"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func loadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no credentials at %s, run the auth command first", ErrAuthRequired, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %v", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials file %s: %v", path, err)
	}
	if creds.RefreshToken == "" {
		return nil, fmt.Errorf("%w: credentials file %s has no refresh token", ErrAuthRequired, path)
	}

	return &creds, nil
}

func saveCredentials(path string, creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %v", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %v", err)
	}

	return nil
}
