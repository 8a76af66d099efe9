package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/onnwee/tunequiz/catalog"
	"github.com/onnwee/tunequiz/game"
)

type catalogReloadRequest struct {
	Path string `json:"path"`
}

// HandleAdminCatalogReload reloads the song catalog from CSV, defaulting to
// the configured file. Refused while a game is in flight so the play order
// and scores stay consistent.
func (h *Handlers) HandleAdminCatalogReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req catalogReloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	path := req.Path
	if path == "" {
		path = h.songsCSV
	}
	songs, err := catalog.Load(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.engine.ReplaceCatalog(songs); err != nil {
		if errors.Is(err, game.ErrInvalidPhase) {
			http.Error(w, "cannot reload catalog while a game is in flight", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"path":   path,
		"songs":  songs.Len(),
	})
}
