package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/onnwee/tunequiz/catalog"
)

// songEntry is the operator-facing view of a catalog entry. It includes the
// answers; the player-facing view lives under /api/game/current-song.
type songEntry struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	Titles     []string `json:"titles"`
	Artist     string   `json:"artist"`
	Genre      string   `json:"genre"`
	Hint       string   `json:"hint"`
	YouTubeURL string   `json:"youtube_url"`
	VideoID    string   `json:"video_id"`
	StartTime  int      `json:"start_time"`
}

func toSongEntry(s catalog.Song) songEntry {
	return songEntry{
		ID:         s.ID,
		Title:      s.Title(),
		Titles:     s.Titles,
		Artist:     s.Artist,
		Genre:      s.Genre,
		Hint:       s.Hint,
		YouTubeURL: s.YouTubeURL,
		VideoID:    s.VideoID,
		StartTime:  s.StartTime,
	}
}

// HandleSongsList returns the full catalog.
func (h *Handlers) HandleSongsList(w http.ResponseWriter, r *http.Request) {
	songs := h.engine.Catalog().Songs()
	out := make([]songEntry, len(songs))
	for i, s := range songs {
		out[i] = toSongEntry(s)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_count": len(out),
		"songs":       out,
	})
}

// HandleSongsDispatcher routes /api/songs/{id}.
func (h *Handlers) HandleSongsDispatcher(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/songs/")
	if idStr == "" || strings.Contains(idStr, "/") {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid song id", http.StatusBadRequest)
		return
	}
	for _, s := range h.engine.Catalog().Songs() {
		if s.ID == id {
			writeJSON(w, http.StatusOK, toSongEntry(s))
			return
		}
	}
	http.NotFound(w, r)
}
