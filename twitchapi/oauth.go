package twitchapi

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"
)

// NewOAuthConfig builds the authorization-code config for the chat bot login.
// Scopes may be comma or space separated; default is the chat pair.
func NewOAuthConfig(clientID, clientSecret, redirectURI, scopes string) *oauth2.Config {
	fields := strings.Fields(strings.ReplaceAll(scopes, ",", " "))
	if len(fields) == 0 {
		fields = []string{"chat:read", "chat:edit"}
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       fields,
		Endpoint:     twitch.Endpoint,
	}
}

// StartRefresher launches a goroutine that periodically checks the stored
// token and refreshes it when the remaining lifetime falls inside window.
// interval: how often to wake up and check (default 5m).
// window: refresh when remaining lifetime <= window (default 15m).
// A zero expiry (token seeded from env) counts as inside the window so the
// first cycle learns the real expiry.
func StartRefresher(ctx context.Context, store *Store, cfg *oauth2.Config, interval, window time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		slog.Info("token refresher disabled: missing client id/secret")
		return
	}
	// Randomize initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			// Per-iteration jitter for scheduling diversity.
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}

			rt, ok := store.RefreshToken()
			if !ok {
				continue
			}
			if exp := store.Expiry(); !exp.IsZero() && time.Until(exp) > window {
				continue
			}
			rctx, cancel := context.WithTimeout(ctx, 15*time.Second)
			tok, err := cfg.TokenSource(rctx, &oauth2.Token{RefreshToken: rt}).Token()
			cancel()
			if err != nil {
				slog.Warn("twitch token refresh failed", slog.Any("err", err))
				continue
			}
			store.Update(tok.AccessToken, tok.RefreshToken, tok.Expiry)
			slog.Info("twitch token refreshed", slog.Time("expiry", tok.Expiry))
		}
	}()
}
