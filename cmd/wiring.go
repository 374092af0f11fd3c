package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jfmyers9/wrapped/internal/card"
	"github.com/jfmyers9/wrapped/internal/config"
	"github.com/jfmyers9/wrapped/internal/journal"
	"github.com/jfmyers9/wrapped/internal/ledger"
	"github.com/jfmyers9/wrapped/internal/minter"
	"github.com/jfmyers9/wrapped/internal/publish"
	"github.com/jfmyers9/wrapped/internal/session"
	"github.com/jfmyers9/wrapped/pkg/pinata"
	"github.com/jfmyers9/wrapped/pkg/spotify"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTP.Timeout}
}

func ensureDataDir(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// openSession restores the streaming-service session from the data directory.
func openSession(cfg *config.Config, logger zerolog.Logger) (*session.Session, error) {
	if err := cfg.RequireSpotify(); err != nil {
		return nil, err
	}
	if err := ensureDataDir(cfg); err != nil {
		return nil, err
	}

	client, err := spotify.NewClient(spotify.Config{
		ClientID:    cfg.Spotify.ClientID,
		RedirectURI: cfg.Spotify.RedirectURI,
		HTTPClient:  newHTTPClient(cfg),
		Logger:      sdkLogger{logger},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify client: %w", err)
	}

	store, err := session.NewStore(cfg.SessionFile())
	if err != nil {
		logger.Warn().Err(err).Msg("Ignoring unreadable session file")
	}

	return session.New(client, store, logger), nil
}

func newCompositor(cfg *config.Config, logger zerolog.Logger) *card.Compositor {
	return card.NewCompositor(card.Assets{
		Template:   cfg.Card.Template,
		FontBook:   cfg.Card.FontBook,
		FontMedium: cfg.Card.FontMedium,
		FontBold:   cfg.Card.FontBold,
	},
		card.WithHTTPClient(newHTTPClient(cfg)),
		card.WithQuality(cfg.Card.Quality),
		card.WithLogger(logger),
	)
}

func newPublisher(cfg *config.Config, logger zerolog.Logger) (*publish.Publisher, error) {
	pins, err := pinata.NewClient(pinata.Config{
		JWT:        cfg.Pinata.JWT,
		BaseURL:    cfg.Pinata.BaseURL,
		HTTPClient: newHTTPClient(cfg),
		Logger:     sdkLogger{logger},
	})
	if err != nil {
		return nil, err
	}

	return publish.New(publish.Config{
		Pinner:     pins,
		Gateway:    cfg.Pinata.Gateway,
		HTTPClient: newHTTPClient(cfg),
		Logger:     logger,
	})
}

func dialLedger(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*ledger.Client, error) {
	return ledger.Dial(ctx, ledger.Config{
		RPCURL:     cfg.Ledger.RPCURL,
		Contract:   cfg.Ledger.Contract,
		PrivateKey: cfg.Ledger.PrivateKey,
		ChainID:    cfg.Ledger.ChainID,
		Logger:     logger,
	})
}

func openJournal(cfg *config.Config) (*journal.Journal, error) {
	if err := ensureDataDir(cfg); err != nil {
		return nil, err
	}
	j, err := journal.Open(cfg.JournalDB())
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return j, nil
}

// newGuard returns a Redis-backed guard when guard.redis_addr is set and a
// guard on the journal database otherwise, so concurrent processes sharing
// the data directory exclude each other. The returned function closes any
// connection.
func newGuard(ctx context.Context, cfg *config.Config, j *journal.Journal) (minter.Guard, func(), error) {
	if cfg.Guard.RedisAddr == "" {
		return minter.NewJournalGuard(j, 0), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Guard.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Guard.RedisAddr, err)
	}
	return minter.NewRedisGuard(client, 0), func() { _ = client.Close() }, nil
}
