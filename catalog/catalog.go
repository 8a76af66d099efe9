// Package catalog holds the immutable song list the quiz plays through and the
// answer normalization used to compare chat submissions against accepted titles.
// Songs are loaded once from CSV at startup (or via the admin reload endpoint
// while no game is running) and never mutated afterwards.
package catalog

import (
	"fmt"
	"net/url"
	"strings"
)

// Song is one quiz entry. Titles holds every accepted answer variant in the
// order they appeared in the CSV; normTitles mirrors it with normalized forms
// precomputed at load time so matching is a plain string compare.
type Song struct {
	ID         int
	Titles     []string
	YouTubeURL string
	VideoID    string
	Artist     string
	Genre      string
	Hint       string
	StartTime  int // playback offset in seconds

	normTitles []string
}

// Title returns the primary (first) accepted answer, used for outbound
// confirmations and the answer reveal.
func (s Song) Title() string {
	if len(s.Titles) == 0 {
		return ""
	}
	return s.Titles[0]
}

// Matches reports whether the submission equals any accepted variant after
// normalization.
func (s Song) Matches(submission string) bool {
	n := Normalize(submission)
	if n == "" {
		return false
	}
	for _, t := range s.normTitles {
		if n == t {
			return true
		}
	}
	return false
}

// Catalog is an ordered, immutable-after-load list of songs.
type Catalog struct {
	songs []Song
}

// Len returns the number of songs.
func (c *Catalog) Len() int { return len(c.songs) }

// Song returns the song at index i.
func (c *Catalog) Song(i int) (Song, bool) {
	if i < 0 || i >= len(c.songs) {
		return Song{}, false
	}
	return c.songs[i], true
}

// Songs returns a copy of the song list.
func (c *Catalog) Songs() []Song {
	out := make([]Song, len(c.songs))
	copy(out, c.songs)
	return out
}

// extractVideoID pulls the 11-character video id out of the common YouTube URL
// shapes (watch?v=, youtu.be/, embed/, shorts/) or accepts a bare id.
func extractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty youtube_url")
	}
	if isVideoID(raw) {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse youtube_url %q: %w", raw, err)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.TrimPrefix(u.Path, "/embed/")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.TrimPrefix(u.Path, "/shorts/")
		case strings.HasPrefix(u.Path, "/live/"):
			id = strings.TrimPrefix(u.Path, "/live/")
		}
	}
	id = strings.Trim(id, "/")
	if !isVideoID(id) {
		return "", fmt.Errorf("unrecognized youtube_url %q", raw)
	}
	return id, nil
}

func isVideoID(s string) bool {
	if len(s) != 11 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
