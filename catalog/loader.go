package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Required and optional CSV columns. Column order does not matter; the header
// row decides.
const (
	colTitle      = "title"
	colArtist     = "artist"
	colYouTubeURL = "youtube_url"
	colGenre      = "genre"
	colHint       = "hint"
	colStartTime  = "start_time"
)

// Load reads a song catalog from a CSV file. Any malformed row fails the whole
// load; a quiz running against a silently truncated catalog is worse than a
// startup error the operator can fix.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	c, err := LoadReader(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// LoadReader parses CSV catalog data. The first record is the header; title
// and youtube_url columns are required, the rest may be absent or empty.
func LoadReader(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // validated per-row against the header
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{colTitle, colYouTubeURL} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("header missing required column %q", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var songs []Song
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		titles, err := parseTitleField(field(rec, colTitle))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		videoID, err := extractVideoID(field(rec, colYouTubeURL))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		startTime := 0
		if v := field(rec, colStartTime); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid start_time %q", row, v)
			}
			if n < 0 {
				return nil, fmt.Errorf("row %d: negative start_time %d", row, n)
			}
			startTime = n
		}

		s := Song{
			ID:         len(songs),
			Titles:     titles,
			YouTubeURL: field(rec, colYouTubeURL),
			VideoID:    videoID,
			Artist:     field(rec, colArtist),
			Genre:      field(rec, colGenre),
			Hint:       field(rec, colHint),
			StartTime:  startTime,
		}
		s.normTitles = normalizeVariants(titles)
		if len(s.normTitles) == 0 {
			return nil, fmt.Errorf("row %d: title normalizes to nothing", row)
		}
		songs = append(songs, s)
	}
	return &Catalog{songs: songs}, nil
}

// normalizeVariants normalizes every accepted title and drops duplicates and
// empties, preserving first-seen order.
func normalizeVariants(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		n := Normalize(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// parseTitleField expands the title column into accepted answer variants.
// "[Dynamite, 다이너마이트]" is a comma-separated list; a bare string is a
// single variant. A backslash escapes the next character, so "\," puts a
// literal comma inside a variant and "\[" a literal bracket.
func parseTitleField(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("missing title")
	}
	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") && len(raw) >= 2 {
		titles := splitEscapedList(raw[1 : len(raw)-1])
		if len(titles) == 0 {
			return nil, fmt.Errorf("empty title list %q", raw)
		}
		return titles, nil
	}
	return []string{unescape(raw)}, nil
}

// splitEscapedList splits on unescaped commas, trimming each item and dropping
// empties.
func splitEscapedList(content string) []string {
	var items []string
	var cur strings.Builder
	flush := func() {
		if item := strings.TrimSpace(cur.String()); item != "" {
			items = append(items, item)
		}
		cur.Reset()
	}
	for i := 0; i < len(content); i++ {
		switch {
		case content[i] == '\\' && i+1 < len(content):
			cur.WriteByte(content[i+1])
			i++
		case content[i] == ',':
			flush()
		default:
			cur.WriteByte(content[i])
		}
	}
	flush()
	return items
}

// unescape removes backslash escapes from a bare (non-list) title.
func unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
