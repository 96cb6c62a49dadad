// services/auth_service_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// AuthServiceClient validates session tokens against the auth service. Used
// where the gateway cannot forward identity headers (EventSource connections).
type AuthServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type ValidateResponse struct {
	UserID   string   `json:"user_id"`
	Email    string   `json:"email"`
	DeviceID string   `json:"device_id"`
	Roles    []string `json:"roles"`
}

func NewAuthServiceClient(baseURL, token string, client *http.Client) *AuthServiceClient {
	return &AuthServiceClient{BaseURL: baseURL, Token: token, Client: client}
}

// ValidateToken calls /auth/validate and returns the session's actor.
func (c *AuthServiceClient) ValidateToken(ctx context.Context, accessToken, deviceID string) (*Actor, error) {
	body, err := json.Marshal(map[string]string{
		"access_token": accessToken,
		"device_id":    deviceID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode validate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/auth/validate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth service unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("read auth response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: session rejected", ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("auth validation failed: %d: %s", resp.StatusCode, string(raw))
	}

	var out ValidateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	if out.UserID == "" {
		return nil, fmt.Errorf("%w: session has no user", ErrUnauthorized)
	}
	return &Actor{UserID: out.UserID, Email: out.Email, Roles: out.Roles}, nil
}
