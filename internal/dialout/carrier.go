package dialout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Carrier calls the upstream telephony API that places the actual call.
type Carrier struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewCarrier creates a carrier client. An empty endpoint disables dial-out.
func NewCarrier(endpoint, apiKey string) *Carrier {
	return &Carrier{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether an upstream endpoint is configured.
func (c *Carrier) Enabled() bool { return c.endpoint != "" }

// Dial asks the carrier to call phoneNumber into roomID.
func (c *Carrier) Dial(ctx context.Context, roomID, phoneNumber string) error {
	payload, err := json.Marshal(map[string]string{
		"room_id":      roomID,
		"phone_number": phoneNumber,
	})
	if err != nil {
		return fmt.Errorf("marshal dial request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create dial request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dial request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("carrier status %d", resp.StatusCode)
	}
	return nil
}
