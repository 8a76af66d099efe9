// Package server exposes the HTTP API handlers.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/tunequiz/chat"
	"github.com/onnwee/tunequiz/db"
	"github.com/onnwee/tunequiz/game"
	"github.com/onnwee/tunequiz/twitchapi"
)

const (
	// Maximum number of OAuth states to keep in memory
	maxOAuthStates = 10000
)

// Deps carries the wired components the handlers operate on. Bridge, OAuth,
// DB, and Store may be nil when the corresponding feature is disabled.
type Deps struct {
	Engine   *game.Engine
	Bridge   *chat.Bridge
	Tokens   *twitchapi.Store
	OAuth    *oauth2.Config
	DB       *sql.DB
	Store    *db.Store
	SongsCSV string
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	engine   *game.Engine
	bridge   *chat.Bridge
	tokens   *twitchapi.Store
	oauth    *oauth2.Config
	db       *sql.DB
	store    *db.Store
	songsCSV string

	stateStore map[string]time.Time
	stateMu    sync.RWMutex
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		engine:     deps.Engine,
		bridge:     deps.Bridge,
		tokens:     deps.Tokens,
		oauth:      deps.OAuth,
		db:         deps.DB,
		store:      deps.Store,
		songsCSV:   deps.SongsCSV,
		stateStore: make(map[string]time.Time),
	}
}

// writeJSON encodes v as the response body with the JSON content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// cleanExpiredStates removes expired OAuth states from the store.
// This should be called with stateMu locked.
func (h *Handlers) cleanExpiredStates() {
	now := time.Now()
	for state, expiry := range h.stateStore {
		if now.After(expiry) {
			delete(h.stateStore, state)
		}
	}
}

// addOAuthState adds a new OAuth state to the store with cleanup if needed.
func (h *Handlers) addOAuthState(state string, expiry time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	// Clean expired states periodically to prevent unbounded growth
	if len(h.stateStore)%100 == 0 {
		h.cleanExpiredStates()
	}

	// If we're still over the limit after cleanup, refuse to add more
	if len(h.stateStore) >= maxOAuthStates {
		// Don't add the state - this will cause the OAuth flow to fail
		// which is better than a memory exhaustion attack
		return
	}

	h.stateStore[state] = expiry
}
