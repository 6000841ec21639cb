package tgtg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mdemirtas/tgtg-notifier/internal/models"
	"golang.org/x/oauth2"
)

const (
	defaultBaseURL      = "https://apptoogoodtogo.com/api"
	itemsEndpoint       = "/item/v8/"
	authByEmailEndpoint = "/auth/v5/authByEmail"
	authPollingEndpoint = "/auth/v5/authByRequestPollingId"
	refreshEndpoint     = "/token/v1/refresh"

	// The API rejects anything that does not look like the Android app.
	userAgent = "TGTG/24.5.10 Dalvik/2.1.0 (Linux; U; Android 10)"
)

// ErrAuthRequired means the API rejected our credentials. Retrying does
// not help; the operator has to run the email-link flow again.
var ErrAuthRequired = errors.New("tgtg authentication required")

// Client talks to the TGTG marketplace API on behalf of one account.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	credentialsFile string
}

func NewClient(credentialsFile string) *Client {
	c := &Client{
		baseURL:         defaultBaseURL,
		credentialsFile: credentialsFile,
	}
	c.httpClient = oauth2.NewClient(context.Background(), oauth2.ReuseTokenSource(nil, &tokenSource{c: c}))
	return c
}

// tokenSource refreshes the TGTG access token through the refresh
// endpoint and persists the rotated credential material.
type tokenSource struct {
	c *Client
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	creds, err := loadCredentials(ts.c.credentialsFile)
	if err != nil {
		return nil, err
	}

	if creds.AccessToken != "" && time.Until(creds.ExpiresAt) > time.Minute {
		return &oauth2.Token{
			AccessToken:  creds.AccessToken,
			RefreshToken: creds.RefreshToken,
			Expiry:       creds.ExpiresAt,
		}, nil
	}

	refreshed, err := ts.c.refreshCredentials(creds)
	if err != nil {
		return nil, err
	}
	if err := saveCredentials(ts.c.credentialsFile, refreshed); err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken:  refreshed.AccessToken,
		RefreshToken: refreshed.RefreshToken,
		Expiry:       refreshed.ExpiresAt,
	}, nil
}

func (c *Client) refreshCredentials(creds *Credentials) (*Credentials, error) {
	payload, err := json.Marshal(map[string]string{
		"refresh_token": creds.RefreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal refresh request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+refreshEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build refresh request: %v", err)
	}
	setAPIHeaders(req, creds.Cookie)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %v", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: refresh rejected with status %d", ErrAuthRequired, resp.StatusCode)
	default:
		return nil, fmt.Errorf("refresh token: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TTLSeconds   int64  `json:"access_token_ttl_seconds"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode refresh response: %v", err)
	}

	refreshed := *creds
	refreshed.AccessToken = body.AccessToken
	if body.RefreshToken != "" {
		refreshed.RefreshToken = body.RefreshToken
	}
	refreshed.ExpiresAt = time.Now().Add(time.Duration(body.TTLSeconds) * time.Second)
	if cookie := resp.Header.Get("Set-Cookie"); cookie != "" {
		refreshed.Cookie = cookie
	}

	return &refreshed, nil
}

// ListFavoriteOffers fetches the current favorites listing and maps the
// loose upstream JSON into typed snapshots. Availability filtering is
// left to the caller.
func (c *Client) ListFavoriteOffers(ctx context.Context) ([]models.OfferSnapshot, error) {
	creds, err := loadCredentials(c.credentialsFile)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"user_id": creds.UserID,
		"origin": map[string]float64{
			"latitude":  0,
			"longitude": 0,
		},
		"radius":         21,
		"page":           1,
		"page_size":      100,
		"favorites_only": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal items request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+itemsEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build items request: %v", err)
	}
	setAPIHeaders(req, creds.Cookie)

	// The oauth2 transport surfaces token-source failures here, so the
	// wrap has to preserve ErrAuthRequired for callers.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: listing rejected with status %d", ErrAuthRequired, resp.StatusCode)
	default:
		return nil, fmt.Errorf("list favorites: unexpected status %d", resp.StatusCode)
	}

	var body listItemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode items response: %v", err)
	}

	offers := make([]models.OfferSnapshot, 0, len(body.Items))
	for i, item := range body.Items {
		offer, err := mapOffer(item)
		if err != nil {
			return nil, fmt.Errorf("map item %d: %v", i, err)
		}
		offers = append(offers, offer)
	}

	return offers, nil
}

func setAPIHeaders(req *http.Request, cookie string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
}
