package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/noah-isme/checkout-api/internal/common"
	"github.com/noah-isme/checkout-api/internal/resilience"
)

// Identity is the verified subject behind a bearer token.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Verifier turns a bearer token into a verified identity. Implementations
// never fall back to reading an unverified token payload.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// RemoteVerifier asks the Supabase auth API who the token belongs to.
type RemoteVerifier struct {
	BaseURL string
	APIKey  string
	Client  resilience.HTTPClient
}

type remoteUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// Verify calls GET {BaseURL}/auth/v1/user with the caller's token.
func (v RemoteVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, common.Unauthenticated("missing token", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(v.BaseURL, "/")+"/auth/v1/user", nil)
	if err != nil {
		return Identity{}, fmt.Errorf("auth: build user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := v.Client.Do(ctx, req)
	if err != nil {
		return Identity{}, common.Upstream("auth", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Identity{}, common.Unauthenticated("invalid token", fmt.Errorf("auth: user lookup returned %d", resp.StatusCode))
	default:
		return Identity{}, common.Upstream("auth", fmt.Errorf("auth: user lookup returned %d", resp.StatusCode))
	}

	var user remoteUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&user); err != nil {
		return Identity{}, common.Upstream("auth", fmt.Errorf("auth: decode user: %w", err))
	}
	if strings.TrimSpace(user.ID) == "" {
		return Identity{}, common.Unauthenticated("invalid token", errors.New("auth: user lookup returned no id"))
	}
	return Identity{Subject: user.ID, Email: user.Email, Name: metadataName(user.UserMetadata)}, nil
}
