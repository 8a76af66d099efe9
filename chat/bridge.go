package chat

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/tunequiz/game"
	"github.com/onnwee/tunequiz/telemetry"
)

// TokenSource hands out the current chat OAuth token. The bridge only cares
// about presence; the token itself is opaque.
type TokenSource interface {
	Token() (string, bool)
}

// ircClient is the slice of the go-twitch-irc client the bridge uses; tests
// substitute a scripted fake.
type ircClient interface {
	OnConnect(func())
	OnPrivateMessage(func(message twitch.PrivateMessage))
	Join(channels ...string)
	Say(channel, text string)
	Connect() error
	Disconnect() error
}

// Status is the bridge's health snapshot for the boundary API.
type Status struct {
	Connected bool `json:"connected"`
	HasToken  bool `json:"has_token"`
}

// Bridge maintains the live chat subscription and feeds every inbound message
// into the engine's answer check. It never touches engine internals; all
// interaction goes through the engine's synchronized operations.
type Bridge struct {
	engine   *game.Engine
	channel  string
	username string
	tokens   TokenSource

	// newClient builds a fresh IRC client per connection attempt so a token
	// refreshed mid-outage is picked up on the next attempt.
	newClient func(username, token string) ircClient

	backoffBase time.Duration
	backoffMax  time.Duration
	tokenPoll   time.Duration

	mu        sync.RWMutex
	connected bool
	attempts  int
}

// New creates a bridge for one channel. Backoff knobs come from
// CHAT_BACKOFF_BASE and CHAT_BACKOFF_MAX (defaults 1s and 30s).
func New(engine *game.Engine, channel, username string, tokens TokenSource) *Bridge {
	b := &Bridge{
		engine:      engine,
		channel:     channel,
		username:    username,
		tokens:      tokens,
		backoffBase: time.Second,
		backoffMax:  30 * time.Second,
		tokenPoll:   5 * time.Second,
	}
	if v := os.Getenv("CHAT_BACKOFF_BASE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			b.backoffBase = d
		}
	}
	if v := os.Getenv("CHAT_BACKOFF_MAX"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			b.backoffMax = d
		}
	}
	b.newClient = func(username, token string) ircClient {
		return twitch.NewClient(username, token)
	}
	return b
}

// Status reports connection and credential presence. Safe to call from any
// goroutine.
func (b *Bridge) Status() Status {
	_, hasToken := b.tokens.Token()
	b.mu.RLock()
	connected := b.connected
	b.mu.RUnlock()
	return Status{Connected: connected, HasToken: hasToken}
}

// Run maintains the connection until ctx is canceled. Reconnects are unbounded
// in count but rate-limited by exponential backoff with jitter, capped at
// backoffMax and reset after each successful connect. A missing token parks
// the loop on a poll interval until the OAuth handoff supplies one.
func (b *Bridge) Run(ctx context.Context) {
	if b.channel == "" || b.username == "" {
		slog.Info("chat bridge disabled: missing channel or bot username")
		return
	}
	slog.Info("chat bridge starting", slog.String("channel", b.channel), slog.String("bot", b.username))
	for {
		if ctx.Err() != nil {
			return
		}
		token, ok := b.tokens.Token()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.tokenPoll):
			}
			continue
		}
		if !strings.HasPrefix(token, "oauth:") {
			token = "oauth:" + token
		}

		client := b.newClient(b.username, token)
		client.OnConnect(func() {
			b.setConnected(true)
			slog.Info("chat connected", slog.String("channel", b.channel))
		})
		client.OnPrivateMessage(b.onMessage(client))
		client.Join(b.channel)

		// Connect blocks until the connection drops or Disconnect is called.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				if err := client.Disconnect(); err != nil {
					slog.Debug("chat disconnect", slog.Any("err", err))
				}
			case <-done:
			}
		}()
		err := client.Connect()
		close(done)
		b.setConnected(false)
		if ctx.Err() != nil {
			return
		}

		b.mu.Lock()
		b.attempts++
		attempt := b.attempts
		b.mu.Unlock()
		telemetry.CountChatReconnect()

		wait := b.backoffFor(attempt)
		switch ClassifyConnectError(err) {
		case ErrorClassAuth:
			slog.Error("chat auth rejected; waiting for token refresh",
				slog.Any("err", err), slog.Duration("retry_in", wait))
		default:
			slog.Warn("chat connection lost",
				slog.Any("err", err), slog.Int("attempt", attempt), slog.Duration("retry_in", wait))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// onMessage turns one inbound chat message into an answer check and, for a
// fresh correct answer, an outbound confirmation. The round id from the check
// result is re-verified right before sending so a confirmation for a round
// that already advanced is dropped instead of announcing a stale title.
func (b *Bridge) onMessage(client ircClient) func(twitch.PrivateMessage) {
	return func(msg twitch.PrivateMessage) {
		telemetry.CountChatMessage()
		user := msg.User.DisplayName
		if user == "" {
			user = msg.User.Name
		}
		res := b.engine.CheckAnswer(user, msg.Message)
		if !res.Correct || res.Duplicate {
			return
		}
		if round, _ := b.engine.Round(); round != res.Round {
			slog.Debug("skipping stale confirmation", slog.String("user", user), slog.Int("round", res.Round))
			return
		}
		// The score is already committed; a failed send is log-and-forget.
		client.Say(b.channel, fmt.Sprintf("🎉 %s correct! (%s)", user, res.Title))
	}
}

func (b *Bridge) setConnected(v bool) {
	b.mu.Lock()
	b.connected = v
	if v {
		b.attempts = 0
	}
	b.mu.Unlock()
	telemetry.SetChatConnected(v)
}

// backoffFor computes the capped exponential delay for the nth consecutive
// failure, with up to one backoffBase of jitter.
func (b *Bridge) backoffFor(attempt int) time.Duration {
	wait := b.backoffBase
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= b.backoffMax {
			wait = b.backoffMax
			break
		}
	}
	//nolint:gosec // G404: math/rand is sufficient for retry jitter, not used for security
	jitter := time.Duration(rand.Int63n(int64(b.backoffBase)))
	if wait+jitter > b.backoffMax {
		return b.backoffMax
	}
	return wait + jitter
}
