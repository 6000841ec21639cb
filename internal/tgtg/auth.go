package tgtg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	deviceType   = "ANDROID"
	pollInterval = 5 * time.Second
	pollAttempts = 24
)

// Authenticate drives the email-link login: it requests a login email
// and then polls until the operator clicks the link. The resulting
// credential material is written to credentialsFile.
func Authenticate(ctx context.Context, email, credentialsFile string) error {
	pollingID, err := requestLoginEmail(ctx, email)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}

		creds, done, err := pollLogin(ctx, email, pollingID)
		if err != nil {
			return err
		}
		if !done {
			continue
		}

		if err := saveCredentials(credentialsFile, creds); err != nil {
			return err
		}
		return nil
	}

	return fmt.Errorf("login link was not confirmed within %s", time.Duration(pollAttempts)*pollInterval)
}

func requestLoginEmail(ctx context.Context, email string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"device_type": deviceType,
		"email":       email,
	})
	if err != nil {
		return "", fmt.Errorf("marshal auth request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, defaultBaseURL+authByEmailEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build auth request: %v", err)
	}
	setAPIHeaders(req, "")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request login email: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request login email: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		State     string `json:"state"`
		PollingID string `json:"polling_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode auth response: %v", err)
	}

	if body.State == "TERMS" {
		return "", fmt.Errorf("no account exists for %s, sign up in the app first", email)
	}
	if body.PollingID == "" {
		return "", fmt.Errorf("auth response carried no polling id (state %q)", body.State)
	}

	return body.PollingID, nil
}

func pollLogin(ctx context.Context, email, pollingID string) (*Credentials, bool, error) {
	payload, err := json.Marshal(map[string]string{
		"device_type":        deviceType,
		"email":              email,
		"request_polling_id": pollingID,
	})
	if err != nil {
		return nil, false, fmt.Errorf("marshal polling request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, defaultBaseURL+authPollingEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("build polling request: %v", err)
	}
	setAPIHeaders(req, "")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("poll login: %v", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		// Link not clicked yet.
		return nil, false, nil
	case http.StatusOK:
	default:
		return nil, false, fmt.Errorf("poll login: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TTLSeconds   int64  `json:"access_token_ttl_seconds"`
		StartupData  struct {
			User struct {
				UserID flexID `json:"user_id"`
			} `json:"user"`
		} `json:"startup_data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decode polling response: %v", err)
	}
	if body.AccessToken == "" || body.RefreshToken == "" {
		return nil, false, fmt.Errorf("polling response carried no tokens")
	}

	return &Credentials{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		UserID:       string(body.StartupData.User.UserID),
		Cookie:       resp.Header.Get("Set-Cookie"),
		ExpiresAt:    time.Now().Add(time.Duration(body.TTLSeconds) * time.Second),
	}, true, nil
}
