// Package twitchapi holds the chat credential plumbing: an in-memory store
// for the bot's OAuth token pair, the code-grant config for the login
// handoff, and a background refresher that rolls the access token over before
// it expires. Tokens are opaque to the rest of the service and live only for
// the process; nothing is persisted.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Store holds the current user OAuth token pair. Safe for concurrent use; the
// chat bridge reads it on every connection attempt while the refresher and
// the OAuth callback write it.
type Store struct {
	mu      sync.RWMutex
	access  string
	refresh string
	expiry  time.Time
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{} }

// Seed installs tokens supplied via environment. A leading "oauth:" prefix
// (common in copied IRC credentials) is stripped; the bridge re-adds it.
func (s *Store) Seed(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = strings.TrimPrefix(strings.TrimSpace(access), "oauth:")
	s.refresh = strings.TrimSpace(refresh)
}

// Token returns the current access token and whether one is present.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.access != ""
}

// RefreshToken returns the current refresh token and whether one is present.
func (s *Store) RefreshToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh, s.refresh != ""
}

// Expiry returns the access token expiry; zero when unknown.
func (s *Store) Expiry() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiry
}

// Update replaces the stored pair. An empty refresh token keeps the previous
// one, since Twitch does not always rotate it.
func (s *Store) Update(access, refresh string, expiry time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = strings.TrimPrefix(strings.TrimSpace(access), "oauth:")
	if refresh != "" {
		s.refresh = strings.TrimSpace(refresh)
	}
	s.expiry = expiry
}

// ComputeExpiry converts an expires_in seconds value to an absolute time.
func ComputeExpiry(expiresIn int) time.Time {
	if expiresIn <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

// validateURL is swapped in tests.
var validateURL = "https://id.twitch.tv/oauth2/validate"

// ValidateResult is the /oauth2/validate response.
type ValidateResult struct {
	Login     string   `json:"login"`
	ClientID  string   `json:"client_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int      `json:"expires_in"`
}

// Validate checks a user token against the Twitch id service and reports its
// login and remaining lifetime. Used at startup to seed the store's expiry.
func Validate(ctx context.Context, token string, hc *http.Client) (*ValidateResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, validateURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+strings.TrimPrefix(token, "oauth:"))
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token validate failed: %s: %s", resp.Status, string(b))
	}
	var out ValidateResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode validate response: %w", err)
	}
	return &out, nil
}
