package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onnwee/tunequiz/game"
)

// gameError maps engine errors onto HTTP statuses. Phase violations and an
// empty catalog are conflicts with current server state, not bad requests.
func gameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidPhase), errors.Is(err, game.ErrEmptyCatalog):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, game.ErrNoCurrentSong):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleGameStart starts a new game over the loaded catalog.
func (h *Handlers) HandleGameStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.engine.Start(); err != nil {
		gameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "game started"})
}

// HandleGameNext advances to the next song.
func (h *Handlers) HandleGameNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, err := h.engine.Next()
	if err != nil {
		gameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"phase":         snap.Phase,
		"current_index": snap.CurrentIndex,
		"total_songs":   snap.TotalSongs,
	})
}

func (h *Handlers) HandleShowHint(w http.ResponseWriter, r *http.Request) {
	h.handleReveal(w, r, h.engine.ShowHint, "show_hint")
}

func (h *Handlers) HandleShowGenre(w http.ResponseWriter, r *http.Request) {
	h.handleReveal(w, r, h.engine.ShowGenre, "show_genre")
}

func (h *Handlers) HandleShowArtist(w http.ResponseWriter, r *http.Request) {
	h.handleReveal(w, r, h.engine.ShowArtist, "show_artist")
}

func (h *Handlers) handleReveal(w http.ResponseWriter, r *http.Request, reveal func() error, field string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := reveal(); err != nil {
		gameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{field: true})
}

type checkAnswerRequest struct {
	Username string `json:"username"`
	Answer   string `json:"answer"`
}

// HandleCheckAnswer submits an answer on behalf of a named participant. The
// chat bridge calls the engine directly; this endpoint serves the operator UI
// and manual entry.
func (h *Handlers) HandleCheckAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req checkAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	res := h.engine.CheckAnswer(req.Username, req.Answer)
	out := map[string]any{
		"is_correct": res.Correct,
		"username":   req.Username,
		"answer":     req.Answer,
	}
	if res.Correct {
		out["rank"] = res.Rank
		out["points"] = res.Points
		out["duplicate"] = res.Duplicate
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleWinner reports the current round's winners in arrival order.
func (h *Handlers) HandleWinner(w http.ResponseWriter, r *http.Request) {
	count, winners := h.engine.Winner()
	var first any
	if count > 0 {
		first = winners[0].Username
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"winner":       first,
		"winner_count": count,
		"winners":      winners,
	})
}

// HandleResults returns the scoreboard, highest score first.
func (h *Handlers) HandleResults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Results())
}

// HandleState returns the full game snapshot.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.State())
}

// HandleCurrentSong returns the playable fields of the in-flight song. Titles
// are withheld; artist, genre, and hint appear only once revealed.
func (h *Handlers) HandleCurrentSong(w http.ResponseWriter, r *http.Request) {
	song, err := h.engine.CurrentSong()
	if err != nil {
		gameError(w, err)
		return
	}
	snap := h.engine.State()
	out := map[string]any{
		"id":          song.ID,
		"youtube_url": song.YouTubeURL,
		"video_id":    song.VideoID,
		"start_time":  song.StartTime,
	}
	if snap.ShowArtist {
		out["artist"] = song.Artist
	}
	if snap.ShowGenre {
		out["genre"] = song.Genre
	}
	if snap.ShowHint {
		out["hint"] = song.Hint
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleCurrentSongAnswer reveals the answer for the in-flight song and ends
// the round, so late chat answers no longer score.
func (h *Handlers) HandleCurrentSongAnswer(w http.ResponseWriter, r *http.Request) {
	song, err := h.engine.CurrentSong()
	if err != nil {
		gameError(w, err)
		return
	}
	if err := h.engine.EndRound(); err != nil {
		gameError(w, err)
		return
	}
	_, winners := h.engine.Winner()
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          song.ID,
		"title":       song.Title(),
		"titles":      song.Titles,
		"artist":      song.Artist,
		"genre":       song.Genre,
		"hint":        song.Hint,
		"youtube_url": song.YouTubeURL,
		"winners":     winners,
	})
}

// HandleResetScores clears the scoreboard mid-game.
func (h *Handlers) HandleResetScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.engine.ResetScores()
	writeJSON(w, http.StatusOK, map[string]string{"message": "scores reset"})
}

// HandleParticipants lists everyone who has scored this game.
func (h *Handlers) HandleParticipants(w http.ResponseWriter, r *http.Request) {
	results := h.engine.Results()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_count": len(results),
		"players":     results,
	})
}

// HandleRecentRounds returns recently closed rounds from the audit store.
func (h *Handlers) HandleRecentRounds(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "audit store not configured", http.StatusNotFound)
		return
	}
	limit := parseIntQuery(r, "limit", 50)
	rounds, err := h.store.RecentRounds(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}
