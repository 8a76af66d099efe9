// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// Chat credentials are only validated when the bridge is actually enabled; see ValidateChatReady.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Twitch
	TwitchChannel      string
	TwitchBotUsername  string
	TwitchOAuthToken   string
	TwitchRefreshToken string
	TwitchClientID     string
	TwitchClientSecret string
	TwitchRedirectURI  string
	TwitchScopes       string

	// Quiz
	SongsCSV        string
	Quorum          int
	RoundCloseAfter time.Duration
	Points          []int
	Shuffle         bool

	// HTTP
	HTTPAddr string

	// Database (optional answer audit; empty disables)
	DBDsn string

	// YouTube (optional catalog verification)
	YTAPIKey string
}

// Load reads environment variables and applies defaults. It does not fail
// when Twitch credentials are missing; callers that require the chat bridge
// should check ValidateChatReady. Missing optional variables disable
// features (audit store, YouTube verification).
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchChannel = os.Getenv("TWITCH_CHANNEL")
	cfg.TwitchBotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.TwitchRefreshToken = os.Getenv("TWITCH_REFRESH_TOKEN")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")
	cfg.TwitchRedirectURI = os.Getenv("TWITCH_REDIRECT_URI")
	cfg.TwitchScopes = os.Getenv("TWITCH_SCOPES")
	if cfg.TwitchScopes == "" {
		cfg.TwitchScopes = "chat:read chat:edit"
	}

	cfg.SongsCSV = os.Getenv("SONGS_CSV")
	if cfg.SongsCSV == "" {
		cfg.SongsCSV = "songs.csv"
	}

	cfg.Quorum = 3
	if v := os.Getenv("QUIZ_WINNER_QUORUM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid QUIZ_WINNER_QUORUM %q", v)
		}
		cfg.Quorum = n
	}

	cfg.RoundCloseAfter = 3 * time.Second
	if v := os.Getenv("QUIZ_ROUND_CLOSE_AFTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid QUIZ_ROUND_CLOSE_AFTER %q", v)
		}
		cfg.RoundCloseAfter = d
	}

	cfg.Points = []int{3, 2, 1}
	if v := os.Getenv("QUIZ_POINTS"); v != "" {
		points, err := parsePoints(v)
		if err != nil {
			return nil, err
		}
		cfg.Points = points
	}

	cfg.Shuffle = os.Getenv("QUIZ_SHUFFLE") == "1"

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.DBDsn = os.Getenv("DB_DSN")
	cfg.YTAPIKey = os.Getenv("YT_API_KEY")

	return cfg, nil
}

// parsePoints parses a comma-separated rank point list like "3,2,1".
func parsePoints(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	points := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid QUIZ_POINTS %q", v)
		}
		points = append(points, n)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("invalid QUIZ_POINTS %q", v)
	}
	return points, nil
}

// ValidateChatReady checks the fields the chat bridge needs: the channel to
// join, the bot account, and either a ready token or the refresh credentials
// to mint one.
func (c *Config) ValidateChatReady() error {
	if c.TwitchChannel == "" || c.TwitchBotUsername == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CHANNEL, TWITCH_BOT_USERNAME")
	}
	if c.TwitchOAuthToken == "" && (c.TwitchRefreshToken == "" || c.TwitchClientID == "" || c.TwitchClientSecret == "") {
		return fmt.Errorf("missing twitch credentials: require TWITCH_OAUTH_TOKEN or TWITCH_REFRESH_TOKEN with TWITCH_CLIENT_ID/TWITCH_CLIENT_SECRET")
	}
	return nil
}
