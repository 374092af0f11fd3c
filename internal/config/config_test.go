package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// useHome points the config and data directories at a temp home.
func useHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := useHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DataDir != filepath.Join(home, ".local", "share", "wrapped") {
		t.Errorf("unexpected data dir %q", cfg.DataDir)
	}
	if cfg.Ledger.ChainID != 11155111 {
		t.Errorf("expected Sepolia chain id, got %d", cfg.Ledger.ChainID)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.HTTP.Timeout)
	}
	if cfg.Card.Quality != 90 {
		t.Errorf("expected quality 90, got %d", cfg.Card.Quality)
	}
	if cfg.Pinata.Gateway != "https://gateway.pinata.cloud/ipfs/" {
		t.Errorf("unexpected gateway %q", cfg.Pinata.Gateway)
	}
	wantTemplate := filepath.Join(home, ".config", "wrapped", "assets", "template.png")
	if cfg.Card.Template != wantTemplate {
		t.Errorf("expected template %q, got %q", wantTemplate, cfg.Card.Template)
	}
	if cfg.SessionFile() != filepath.Join(cfg.DataDir, "session.json") {
		t.Errorf("unexpected session file %q", cfg.SessionFile())
	}
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	home := useHome(t)

	configDir := filepath.Join(home, ".config", "wrapped")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	file := `
spotify:
  client_id: file-client
pinata:
  jwt: file-jwt
http:
  timeout: 5s
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(file), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("WRAPPED_PINATA_JWT", "env-jwt")
	t.Setenv("WRAPPED_LEDGER_CHAIN_ID", "31337")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Spotify.ClientID != "file-client" {
		t.Errorf("expected file value, got %q", cfg.Spotify.ClientID)
	}
	if cfg.Pinata.JWT != "env-jwt" {
		t.Errorf("expected environment to override file, got %q", cfg.Pinata.JWT)
	}
	if cfg.Ledger.ChainID != 31337 {
		t.Errorf("expected chain id from environment, got %d", cfg.Ledger.ChainID)
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.HTTP.Timeout)
	}
}

func TestRequire(t *testing.T) {
	cfg := &Config{Spotify: SpotifyConfig{RedirectURI: "http://127.0.0.1:8888/callback"}}

	err := cfg.RequireSpotify()
	if err == nil || !strings.Contains(err.Error(), "spotify.client_id") {
		t.Errorf("expected missing client id, got %v", err)
	}

	cfg.Spotify.ClientID = "abc"
	if err := cfg.RequireSpotify(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err = cfg.RequireMint()
	if err == nil {
		t.Fatal("expected missing mint settings")
	}
	if !strings.Contains(err.Error(), "ledger.contract, ledger.private_key, ledger.rpc_url, pinata.jwt") {
		t.Errorf("expected sorted key list, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	useHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Ledger.Contract = "0x00000000000000000000000000000000000C0DE5"
	cfg.HTTP.Timeout = 12 * time.Second

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Ledger.Contract != cfg.Ledger.Contract {
		t.Errorf("expected contract %q, got %q", cfg.Ledger.Contract, reloaded.Ledger.Contract)
	}
	if reloaded.HTTP.Timeout != 12*time.Second {
		t.Errorf("expected 12s, got %s", reloaded.HTTP.Timeout)
	}
}
