// Package tokens keeps a room session's credential fresh: an HTTP client for
// the token endpoint and a background refresher that renews the short-lived
// access token while the session stays connected.
package tokens

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Pair is an access token plus the rotating refresh token used to renew it.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresInSec int    `json:"expires_in_sec"`
}

// Client calls the token endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a token endpoint client rooted at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Mint obtains the initial token pair for a room identity.
func (c *Client) Mint(ctx context.Context, roomID, identity, name string) (*Pair, error) {
	body := map[string]string{"identity": identity, "name": name}
	var pair Pair
	if err := c.post(ctx, fmt.Sprintf("%s/rooms/%s/tokens", c.baseURL, roomID), body, &pair); err != nil {
		return nil, fmt.Errorf("tokens: mint: %w", err)
	}
	return &pair, nil
}

// Refresh exchanges a refresh token for a new pair. The old refresh token is
// invalidated server-side.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var pair Pair
	if err := c.post(ctx, c.baseURL+"/tokens/refresh", body, &pair); err != nil {
		return nil, fmt.Errorf("tokens: refresh: %w", err)
	}
	return &pair, nil
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		if env.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, env.Error)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.Unmarshal(env.Data, out)
}
