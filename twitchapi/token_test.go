package twitchapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStoreSeedStripsPrefix(t *testing.T) {
	s := NewStore()
	if _, ok := s.Token(); ok {
		t.Fatal("empty store reported a token")
	}
	s.Seed("oauth:abc123", "ref456")
	tok, ok := s.Token()
	if !ok || tok != "abc123" {
		t.Fatalf("Token() = %q, %v", tok, ok)
	}
	rt, ok := s.RefreshToken()
	if !ok || rt != "ref456" {
		t.Fatalf("RefreshToken() = %q, %v", rt, ok)
	}
}

func TestStoreUpdateKeepsRefreshWhenEmpty(t *testing.T) {
	s := NewStore()
	s.Seed("a", "r1")
	exp := time.Now().Add(time.Hour)
	s.Update("b", "", exp)
	if tok, _ := s.Token(); tok != "b" {
		t.Errorf("access = %q", tok)
	}
	if rt, _ := s.RefreshToken(); rt != "r1" {
		t.Errorf("refresh = %q, want r1 kept", rt)
	}
	if !s.Expiry().Equal(exp) {
		t.Errorf("expiry = %v", s.Expiry())
	}
	s.Update("c", "r2", exp)
	if rt, _ := s.RefreshToken(); rt != "r2" {
		t.Errorf("refresh = %q, want r2", rt)
	}
}

func TestComputeExpiry(t *testing.T) {
	if !ComputeExpiry(0).IsZero() {
		t.Error("zero expires_in should give zero time")
	}
	got := ComputeExpiry(3600)
	if until := time.Until(got); until < 59*time.Minute || until > 61*time.Minute {
		t.Errorf("ComputeExpiry(3600) = %v from now", until)
	}
}

func TestValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "OAuth abc123" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"quizbot","client_id":"cid","scopes":["chat:read","chat:edit"],"expires_in":5000}`))
	}))
	defer srv.Close()

	old := validateURL
	validateURL = srv.URL
	defer func() { validateURL = old }()

	res, err := Validate(context.Background(), "oauth:abc123", srv.Client())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Login != "quizbot" || res.ExpiresIn != 5000 || len(res.Scopes) != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestValidateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":401,"message":"invalid access token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	old := validateURL
	validateURL = srv.URL
	defer func() { validateURL = old }()

	if _, err := Validate(context.Background(), "bad", srv.Client()); err == nil {
		t.Fatal("expected error for rejected token")
	}
}

func TestNewOAuthConfigScopes(t *testing.T) {
	cfg := NewOAuthConfig("id", "secret", "http://localhost/cb", "")
	if len(cfg.Scopes) != 2 || cfg.Scopes[0] != "chat:read" {
		t.Errorf("default scopes = %v", cfg.Scopes)
	}
	cfg = NewOAuthConfig("id", "secret", "", "a,b c")
	if len(cfg.Scopes) != 3 {
		t.Errorf("parsed scopes = %v", cfg.Scopes)
	}
}
