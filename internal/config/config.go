package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Directory for the session file and the journal
	// Default: ~/.local/share/wrapped
	DataDir string

	Spotify SpotifyConfig
	Pinata  PinataConfig
	Ledger  LedgerConfig
	Card    CardConfig
	HTTP    HTTPConfig
	Guard   GuardConfig
}

// SpotifyConfig holds the OAuth client registration
type SpotifyConfig struct {
	ClientID    string
	RedirectURI string
}

// PinataConfig holds pinning service credentials
type PinataConfig struct {
	JWT     string
	BaseURL string
	Gateway string
}

// LedgerConfig locates the card contract and the minting wallet
type LedgerConfig struct {
	RPCURL     string
	Contract   string
	PrivateKey string
	ChainID    int64
}

// CardConfig locates the card template and typefaces
type CardConfig struct {
	Template   string
	FontBook   string
	FontMedium string
	FontBold   string
	Quality    int
}

// HTTPConfig bounds network calls
type HTTPConfig struct {
	Timeout time.Duration
}

// GuardConfig selects the mint lock. An empty RedisAddr keeps the lock
// in-process.
type GuardConfig struct {
	RedisAddr string
}

// Load reads configuration from .env, the config file and the environment
func Load() (*Config, error) {
	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)

	// Read config file (optional - don't fail if missing)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// WRAPPED_PINATA_JWT overrides pinata.jwt
	v.SetEnvPrefix("WRAPPED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		DataDir: v.GetString("data_dir"),
		Spotify: SpotifyConfig{
			ClientID:    v.GetString("spotify.client_id"),
			RedirectURI: v.GetString("spotify.redirect_uri"),
		},
		Pinata: PinataConfig{
			JWT:     v.GetString("pinata.jwt"),
			BaseURL: v.GetString("pinata.base_url"),
			Gateway: v.GetString("pinata.gateway"),
		},
		Ledger: LedgerConfig{
			RPCURL:     v.GetString("ledger.rpc_url"),
			Contract:   v.GetString("ledger.contract"),
			PrivateKey: v.GetString("ledger.private_key"),
			ChainID:    v.GetInt64("ledger.chain_id"),
		},
		Card: CardConfig{
			Template:   v.GetString("card.template"),
			FontBook:   v.GetString("card.font_book"),
			FontMedium: v.GetString("card.font_medium"),
			FontBold:   v.GetString("card.font_bold"),
			Quality:    v.GetInt("card.quality"),
		},
		HTTP: HTTPConfig{
			Timeout: v.GetDuration("http.timeout"),
		},
		Guard: GuardConfig{
			RedisAddr: v.GetString("guard.redis_addr"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	assetsDir := filepath.Join(configDir, "assets")

	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("spotify.redirect_uri", "http://127.0.0.1:8888/callback")
	v.SetDefault("pinata.base_url", "https://api.pinata.cloud")
	v.SetDefault("pinata.gateway", "https://gateway.pinata.cloud/ipfs/")
	v.SetDefault("ledger.rpc_url", "https://ethereum-sepolia-rpc.publicnode.com")
	v.SetDefault("ledger.chain_id", 11155111)
	v.SetDefault("card.template", filepath.Join(assetsDir, "template.png"))
	v.SetDefault("card.font_book", filepath.Join(assetsDir, "CircularStd-Book.otf"))
	v.SetDefault("card.font_medium", filepath.Join(assetsDir, "CircularStd-Medium.otf"))
	v.SetDefault("card.font_bold", filepath.Join(assetsDir, "CircularStd-Bold.otf"))
	v.SetDefault("card.quality", 90)
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("guard.redis_addr", "")
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "wrapped")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "wrapped")
}

// SessionFile is the path of the persisted streaming-service session
func (c *Config) SessionFile() string {
	return filepath.Join(c.DataDir, "session.json")
}

// JournalDB is the path of the mint journal database
func (c *Config) JournalDB() string {
	return filepath.Join(c.DataDir, "journal.db")
}

// RequireSpotify reports missing settings needed to talk to the streaming service
func (c *Config) RequireSpotify() error {
	return missing(map[string]string{
		"spotify.client_id":    c.Spotify.ClientID,
		"spotify.redirect_uri": c.Spotify.RedirectURI,
	})
}

// RequireMint reports missing settings needed to publish and mint
func (c *Config) RequireMint() error {
	return missing(map[string]string{
		"pinata.jwt":         c.Pinata.JWT,
		"ledger.rpc_url":     c.Ledger.RPCURL,
		"ledger.contract":    c.Ledger.Contract,
		"ledger.private_key": c.Ledger.PrivateKey,
	})
}

func missing(values map[string]string) error {
	var keys []string
	for k, val := range values {
		if val == "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	return fmt.Errorf("missing configuration: %s (set them in %s or as WRAPPED_* environment variables)",
		strings.Join(keys, ", "), filepath.Join(getConfigDir(), "config.yaml"))
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	configDir := getConfigDir()
	configFile := filepath.Join(configDir, "config.yaml")

	v.Set("data_dir", c.DataDir)
	v.Set("spotify.client_id", c.Spotify.ClientID)
	v.Set("spotify.redirect_uri", c.Spotify.RedirectURI)
	v.Set("pinata.jwt", c.Pinata.JWT)
	v.Set("pinata.base_url", c.Pinata.BaseURL)
	v.Set("pinata.gateway", c.Pinata.Gateway)
	v.Set("ledger.rpc_url", c.Ledger.RPCURL)
	v.Set("ledger.contract", c.Ledger.Contract)
	v.Set("ledger.private_key", c.Ledger.PrivateKey)
	v.Set("ledger.chain_id", c.Ledger.ChainID)
	v.Set("card.template", c.Card.Template)
	v.Set("card.font_book", c.Card.FontBook)
	v.Set("card.font_medium", c.Card.FontMedium)
	v.Set("card.font_bold", c.Card.FontBold)
	v.Set("card.quality", c.Card.Quality)
	v.Set("http.timeout", c.HTTP.Timeout.String())
	v.Set("guard.redis_addr", c.Guard.RedisAddr)

	return v.WriteConfigAs(configFile)
}
