// Package youtubeapi wraps the YouTube Data API for the single purpose of
// verifying that catalog videos are playable. Verification is advisory: a
// missing or private video means a silent stage during that round, so we warn
// at startup instead of failing mid-game.
package youtubeapi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/onnwee/tunequiz/catalog"
)

// Videos.List accepts at most 50 ids per call.
const listBatchSize = 50

// Verifier checks catalog video IDs against the Data API.
type Verifier struct {
	svc *yt.Service
}

// New creates a Verifier using an API key. No OAuth is needed for the
// read-only video lookup. Extra options let tests point at a local endpoint.
func New(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Verifier, error) {
	svc, err := yt.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Verifier{svc: svc}, nil
}

// VerifyCatalog looks up every video ID in the catalog and returns the IDs
// the API did not return (deleted, private, or malformed). Lookup errors are
// returned; a non-empty missing list is not an error.
func (v *Verifier) VerifyCatalog(ctx context.Context, songs *catalog.Catalog) ([]string, error) {
	ids := make([]string, 0, songs.Len())
	seen := make(map[string]bool)
	for _, s := range songs.Songs() {
		if s.VideoID == "" || seen[s.VideoID] {
			continue
		}
		seen[s.VideoID] = true
		ids = append(ids, s.VideoID)
	}

	found := make(map[string]bool, len(ids))
	for start := 0; start < len(ids); start += listBatchSize {
		end := start + listBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		call := v.svc.Videos.List([]string{"status"}).Id(strings.Join(ids[start:end], ",")).Context(ctx)
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("videos.list: %w", err)
		}
		for _, item := range resp.Items {
			if item.Status != nil && item.Status.PrivacyStatus == "private" {
				continue
			}
			found[item.Id] = true
		}
	}

	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// VerifyAndLog runs VerifyCatalog and reports the outcome through the
// standard logger. Used at startup where verification must never block or
// fail the service.
func VerifyAndLog(ctx context.Context, apiKey string, songs *catalog.Catalog) {
	v, err := New(ctx, apiKey)
	if err != nil {
		slog.Warn("youtube verification unavailable", slog.Any("error", err), slog.String("component", "youtubeapi"))
		return
	}
	missing, err := v.VerifyCatalog(ctx, songs)
	if err != nil {
		slog.Warn("youtube verification failed", slog.Any("error", err), slog.String("component", "youtubeapi"))
		return
	}
	if len(missing) > 0 {
		slog.Warn("catalog videos unavailable on youtube",
			slog.Int("count", len(missing)),
			slog.String("video_ids", strings.Join(missing, ",")),
			slog.String("component", "youtubeapi"))
		return
	}
	slog.Info("catalog videos verified", slog.Int("count", songs.Len()), slog.String("component", "youtubeapi"))
}
