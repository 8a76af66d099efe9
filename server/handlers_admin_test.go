package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/onnwee/tunequiz/catalog"
	"github.com/onnwee/tunequiz/game"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "songs.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp csv: %v", err)
	}
	return path
}

func TestAdminCatalogReload(t *testing.T) {
	h, engine := newTestMux(t)
	path := writeTempCSV(t, "title,artist,youtube_url,genre,hint,start_time\nButter,BTS,https://youtu.be/WMweEpGlu_U,K-pop,smooth,0\n")

	rec, body := doJSON(t, h, http.MethodPost, "/admin/catalog/reload", `{"path":"`+path+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reload: status %d body %s", rec.Code, rec.Body.String())
	}
	if body["songs"] != float64(1) {
		t.Errorf("songs = %v, want 1", body["songs"])
	}
	if engine.Catalog().Len() != 1 {
		t.Errorf("catalog len = %d, want 1", engine.Catalog().Len())
	}
}

func TestAdminCatalogReloadRefusedMidGame(t *testing.T) {
	h, engine := newTestMux(t)
	if err := engine.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	path := writeTempCSV(t, "title,artist,youtube_url,genre,hint,start_time\nButter,BTS,https://youtu.be/WMweEpGlu_U,K-pop,smooth,0\n")

	rec, _ := doJSON(t, h, http.MethodPost, "/admin/catalog/reload", `{"path":"`+path+`"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("reload mid-game: status %d, want 409", rec.Code)
	}
}

func TestAdminCatalogReloadBadFile(t *testing.T) {
	h, _ := newTestMux(t)
	rec, _ := doJSON(t, h, http.MethodPost, "/admin/catalog/reload", `{"path":"/does/not/exist.csv"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reload bad file: status %d, want 400", rec.Code)
	}
}

func TestAdminAuthToken(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "0")
	t.Setenv("ADMIN_TOKEN", "sekrit")
	songs, err := catalog.LoadReader(strings.NewReader(testCSV))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	engine := game.New(songs, game.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewMux(ctx, Deps{Engine: engine})

	rec, _ := doJSON(t, h, http.MethodPost, "/admin/catalog/reload", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated admin: status %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/catalog/reload", strings.NewReader(""))
	req.Header.Set("X-Admin-Token", "sekrit")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	if rec2.Code == http.StatusUnauthorized {
		t.Fatalf("authenticated admin rejected: %d", rec2.Code)
	}
}
