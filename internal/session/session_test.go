package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jfmyers9/wrapped/pkg/spotify"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "session.json")
	s, err := NewStore(fp)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, fp
}

func testToken(access string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}
}

func TestStore_SaveAndRestore(t *testing.T) {
	s, fp := newTestStore(t)

	if s.Get().Authenticated {
		t.Fatal("new store should not be authenticated")
	}
	if err := s.Save(testToken("abc")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(fp)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}

	restored, err := NewStore(fp)
	if err != nil {
		t.Fatalf("NewStore restore: %v", err)
	}
	st := restored.Get()
	if !st.Authenticated {
		t.Error("expected restored store to be authenticated")
	}
	if st.Token == nil || st.Token.AccessToken != "abc" {
		t.Errorf("unexpected restored token: %+v", st.Token)
	}
}

func TestStore_Clear(t *testing.T) {
	s, fp := newTestStore(t)
	if err := s.Save(testToken("abc")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(fp); !os.IsNotExist(err) {
		t.Errorf("expected session file to be removed, stat err = %v", err)
	}
	if s.Get().Authenticated {
		t.Error("expected cleared store to be unauthenticated")
	}
	// Clearing twice is fine
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestStore_CorruptFile(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(fp, []byte("{not json"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := NewStore(fp)
	if err == nil {
		t.Fatal("expected error for corrupt file")
	}
	if s == nil || s.Get().Authenticated {
		t.Error("expected usable unauthenticated store")
	}
}

func newSpotifyClient(t *testing.T, baseURL string) *spotify.Client {
	t.Helper()
	c, err := spotify.NewClient(spotify.Config{
		ClientID:    "id",
		RedirectURI: "http://127.0.0.1:8888/callback",
		BaseURL:     baseURL,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestSession_Unauthenticated(t *testing.T) {
	store, _ := newTestStore(t)
	s := New(newSpotifyClient(t, ""), store, zerolog.Nop())

	if s.Authenticated() {
		t.Fatal("expected unauthenticated session")
	}
	if _, err := s.TopArtists(context.Background(), spotify.TopItemsOptions{}); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := s.TopTracks(context.Background(), spotify.TopItemsOptions{}); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}

	var nilSession *Session
	if nilSession.Authenticated() {
		t.Error("nil session must not be authenticated")
	}
}

func TestSession_RestoresAndLogsOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer stored" {
			t.Errorf("expected stored token, got %q", auth)
		}
		_, _ = w.Write([]byte(`{"items": [{"name": "Reckoner"}]}`))
	}))
	defer server.Close()

	store, fp := newTestStore(t)
	if err := store.Save(testToken("stored")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s := New(newSpotifyClient(t, server.URL), store, zerolog.Nop())
	if !s.Authenticated() {
		t.Fatal("expected restored session to be authenticated")
	}

	page, err := s.TopTracks(context.Background(), spotify.TopItemsOptions{Limit: 5})
	if err != nil {
		t.Fatalf("TopTracks: %v", err)
	}
	if len(page.Items) != 1 {
		t.Errorf("expected 1 track, got %d", len(page.Items))
	}

	if err := s.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if s.Authenticated() {
		t.Error("expected session to be unauthenticated after logout")
	}
	if _, err := os.Stat(fp); !os.IsNotExist(err) {
		t.Error("expected session file to be removed after logout")
	}
}
