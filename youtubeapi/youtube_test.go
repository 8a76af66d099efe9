package youtubeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"

	"github.com/onnwee/tunequiz/catalog"
)

const testCSV = `title,artist,youtube_url,genre,hint,start_time
Dynamite,BTS,https://www.youtube.com/watch?v=gdZLi9oWNZg,K-pop,disco pop,0
Butter,BTS,https://youtu.be/WMweEpGlu_U,K-pop,smooth,0
`

func TestVerifyCatalog(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query().Get("id")
		if !strings.Contains(ids, "gdZLi9oWNZg") || !strings.Contains(ids, "WMweEpGlu_U") {
			t.Errorf("unexpected id query: %q", ids)
		}
		w.Header().Set("Content-Type", "application/json")
		// WMweEpGlu_U omitted from the response: treated as unavailable
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "gdZLi9oWNZg", "status": map[string]any{"privacyStatus": "public"}},
			},
		})
	}))
	defer ts.Close()

	songs, err := catalog.LoadReader(strings.NewReader(testCSV))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	v, err := New(context.Background(), "test-key", option.WithEndpoint(ts.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	missing, err := v.VerifyCatalog(context.Background(), songs)
	if err != nil {
		t.Fatalf("VerifyCatalog: %v", err)
	}
	if len(missing) != 1 || missing[0] != "WMweEpGlu_U" {
		t.Errorf("missing = %v, want [WMweEpGlu_U]", missing)
	}
}

func TestVerifyCatalogPrivateVideo(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "gdZLi9oWNZg", "status": map[string]any{"privacyStatus": "private"}},
				{"id": "WMweEpGlu_U", "status": map[string]any{"privacyStatus": "public"}},
			},
		})
	}))
	defer ts.Close()

	songs, err := catalog.LoadReader(strings.NewReader(testCSV))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	v, err := New(context.Background(), "test-key", option.WithEndpoint(ts.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	missing, err := v.VerifyCatalog(context.Background(), songs)
	if err != nil {
		t.Fatalf("VerifyCatalog: %v", err)
	}
	if len(missing) != 1 || missing[0] != "gdZLi9oWNZg" {
		t.Errorf("missing = %v, want the private video", missing)
	}
}
