// Package minter runs the mint pipeline: fetch listening statistics, render
// the card, publish it, replace any previously minted card and mint the new
// one.
//
// A Minter admits one run per wallet at a time. Every run either reaches
// StateDone or stops in StateFailed with a *StepError naming the step and
// the kind of failure; failed runs are never retried automatically.
package minter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jfmyers9/wrapped/internal/journal"
	"github.com/jfmyers9/wrapped/internal/publish"
	"github.com/jfmyers9/wrapped/internal/stats"
	"github.com/rs/zerolog"
)

// StatsSource supplies the card data.
type StatsSource interface {
	FetchTopArtists(ctx context.Context) (stats.TopArtistsSummary, error)
	FetchTopSongs(ctx context.Context) ([]string, error)
}

// Compositor renders the card.
type Compositor interface {
	Composite(ctx context.Context, artists stats.TopArtistsSummary, songs []string) ([]byte, error)
}

// Publisher stores the card and its metadata.
type Publisher interface {
	PublishImage(ctx context.Context, blob []byte) (string, error)
	PublishMetadata(ctx context.Context, imageCID string) (string, error)
	Unpin(ctx context.Context, cid string) error
	ResolveMetadata(ctx context.Context, tokenURI string) (*publish.TokenMetadata, error)
	TokenURI(metadataCID string) string
}

// Ledger is the card contract.
type Ledger interface {
	Owner() common.Address
	ChainID(ctx context.Context) (*big.Int, error)
	TokensOfOwner(ctx context.Context, owner common.Address) ([]*big.Int, error)
	TokenURI(ctx context.Context, tokenID *big.Int) (string, error)
	Mint(ctx context.Context, to common.Address, uri string) (common.Hash, error)
	Burn(ctx context.Context, tokenID *big.Int) (common.Hash, error)
}

// Journal records attempts. *journal.Journal satisfies it.
type Journal interface {
	Start(ctx context.Context, owner, state string) (string, error)
	Update(ctx context.Context, id string, p journal.Progress) error
	Finish(ctx context.Context, id, state, errMsg string) error
	ByCID(ctx context.Context, cid string) (*journal.Attempt, error)
	MarkUnpinned(ctx context.Context, id string) error
}

// Config wires a Minter.
type Config struct {
	Stats      StatsSource // Required
	Compositor Compositor  // Required
	Publisher  Publisher   // Required
	Ledger     Ledger      // Required
	Journal    Journal     // Optional
	Guard      Guard       // Optional: defaults to a LocalGuard
	ChainID    int64       // Required chain id
	Timeout    time.Duration
	Observer   Observer
	Logger     zerolog.Logger
}

// Result describes a successful mint.
type Result struct {
	AttemptID   string
	Owner       string
	ImageCID    string
	MetadataCID string
	TokenURI    string
	TxHash      string

	// Replaced is the burned token, nil when the wallet held none.
	Replaced *big.Int
	// Warnings lists cleanup steps that failed without stopping the mint.
	Warnings []string
}

// Minter runs the mint pipeline.
type Minter struct {
	cfg    Config
	guard  Guard
	logger zerolog.Logger
}

// New creates a Minter.
func New(cfg Config) (*Minter, error) {
	switch {
	case cfg.Stats == nil:
		return nil, fmt.Errorf("minter: stats source is required")
	case cfg.Compositor == nil:
		return nil, fmt.Errorf("minter: compositor is required")
	case cfg.Publisher == nil:
		return nil, fmt.Errorf("minter: publisher is required")
	case cfg.Ledger == nil:
		return nil, fmt.Errorf("minter: ledger is required")
	case cfg.ChainID <= 0:
		return nil, fmt.Errorf("minter: chain id is required")
	}

	guard := cfg.Guard
	if guard == nil {
		guard = NewLocalGuard()
	}

	return &Minter{
		cfg:    cfg,
		guard:  guard,
		logger: cfg.Logger.With().Str("component", "minter").Logger(),
	}, nil
}

// run is the state of one Mint call.
type run struct {
	m         *Minter
	state     State
	attemptID string
	result    *Result
	logger    zerolog.Logger
}

// Mint runs the pipeline once. Concurrent calls for the same wallet fail
// with ErrMintInProgress without side effects.
func (m *Minter) Mint(ctx context.Context) (*Result, error) {
	owner := m.cfg.Ledger.Owner()

	release, err := m.guard.Acquire(ctx, owner.Hex())
	if err != nil {
		return nil, err
	}
	defer release()

	r := &run{
		m:      m,
		state:  StateIdle,
		result: &Result{Owner: owner.Hex()},
		logger: m.logger.With().Str("owner", owner.Hex()).Logger(),
	}
	r.begin(ctx)

	if err := r.checkNetwork(ctx); err != nil {
		return nil, r.fail(ctx, err)
	}

	r.enter(ctx, StateFetchingStats)
	var artists stats.TopArtistsSummary
	var songs []string
	err = r.step(ctx, func(ctx context.Context) error {
		var err error
		if artists, err = m.cfg.Stats.FetchTopArtists(ctx); err != nil {
			return err
		}
		songs, err = m.cfg.Stats.FetchTopSongs(ctx)
		return err
	})
	if err != nil {
		return nil, r.fail(ctx, err)
	}

	r.enter(ctx, StateCompositing)
	var blob []byte
	err = r.step(ctx, func(ctx context.Context) error {
		var err error
		blob, err = m.cfg.Compositor.Composite(ctx, artists, songs)
		return err
	})
	if err != nil {
		return nil, r.fail(ctx, err)
	}

	r.enter(ctx, StatePublishingImage)
	err = r.step(ctx, func(ctx context.Context) error {
		var err error
		r.result.ImageCID, err = m.cfg.Publisher.PublishImage(ctx, blob)
		return err
	})
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	r.record(ctx, journal.Progress{ImageCID: r.result.ImageCID})

	r.enter(ctx, StatePublishingMetadata)
	err = r.step(ctx, func(ctx context.Context) error {
		var err error
		r.result.MetadataCID, err = m.cfg.Publisher.PublishMetadata(ctx, r.result.ImageCID)
		return err
	})
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	r.result.TokenURI = m.cfg.Publisher.TokenURI(r.result.MetadataCID)
	r.record(ctx, journal.Progress{MetadataCID: r.result.MetadataCID, TokenURI: r.result.TokenURI})

	if err := r.replaceExisting(ctx, owner); err != nil {
		return nil, err
	}

	r.enter(ctx, StateMinting)
	err = r.step(ctx, func(ctx context.Context) error {
		hash, err := m.cfg.Ledger.Mint(ctx, owner, r.result.TokenURI)
		if err != nil {
			return err
		}
		r.result.TxHash = hash.Hex()
		return nil
	})
	if err != nil {
		return nil, r.fail(ctx, err)
	}

	r.enter(ctx, StateDone)
	r.finish(ctx, "")
	r.logger.Info().
		Str("token_uri", r.result.TokenURI).
		Str("tx", r.result.TxHash).
		Msg("Card minted")
	return r.result, nil
}

// checkNetwork refuses to run against a chain other than the configured one.
func (r *run) checkNetwork(ctx context.Context) error {
	return r.step(ctx, func(ctx context.Context) error {
		id, err := r.m.cfg.Ledger.ChainID(ctx)
		if err != nil {
			return err
		}
		if id.Cmp(big.NewInt(r.m.cfg.ChainID)) != 0 {
			return fmt.Errorf("%w: expected chain %d, got %s", ErrWrongNetwork, r.m.cfg.ChainID, id)
		}
		return nil
	})
}

// replaceExisting burns the card the wallet already holds and unpins its
// assets. Without a held card it does nothing.
func (r *run) replaceExisting(ctx context.Context, owner common.Address) error {
	var tokenID *big.Int
	var oldURI string

	err := r.step(ctx, func(ctx context.Context) error {
		ids, err := r.m.cfg.Ledger.TokensOfOwner(ctx, owner)
		if err != nil || len(ids) == 0 {
			return err
		}
		tokenID = ids[0]
		// The URI is unreadable once the token is burned
		oldURI, err = r.m.cfg.Ledger.TokenURI(ctx, tokenID)
		return err
	})
	if err != nil {
		return r.failAs(ctx, KindLedger, fmt.Errorf("failed to look up held card: %w", err))
	}
	if tokenID == nil {
		return nil
	}

	r.enter(ctx, StateBurningOld)
	err = r.step(ctx, func(ctx context.Context) error {
		_, err := r.m.cfg.Ledger.Burn(ctx, tokenID)
		return err
	})
	if err != nil {
		return r.fail(ctx, err)
	}

	r.result.Replaced = tokenID
	r.record(ctx, journal.Progress{ReplacedTokenID: tokenID.String()})

	r.enter(ctx, StateUnpinning)
	r.unpinOld(ctx, oldURI)
	return nil
}

// unpinOld unpins the metadata and image of a burned card. Failures become
// warnings on the result.
func (r *run) unpinOld(ctx context.Context, tokenURI string) {
	pub := r.m.cfg.Publisher

	var md *publish.TokenMetadata
	err := r.step(ctx, func(ctx context.Context) error {
		var err error
		md, err = pub.ResolveMetadata(ctx, tokenURI)
		return err
	})
	if err != nil {
		r.warn(fmt.Sprintf("could not read old metadata at %s: %v", tokenURI, err))
	}

	assets := publish.AssetsOf(tokenURI, md)
	complete := md != nil
	for _, cid := range []string{assets.MetadataCID, assets.ImageCID} {
		if cid == "" {
			complete = false
			continue
		}
		err := r.step(ctx, func(ctx context.Context) error {
			return pub.Unpin(ctx, cid)
		})
		if err != nil {
			complete = false
			r.warn(fmt.Sprintf("could not unpin %s: %v", cid, err))
		}
	}

	if complete {
		r.markReplacedUnpinned(ctx, assets.MetadataCID)
	}
}

// markReplacedUnpinned flags the journaled attempt that minted the burned
// card once all of its assets are unpinned. Cards minted elsewhere have no
// attempt and are skipped.
func (r *run) markReplacedUnpinned(ctx context.Context, metadataCID string) {
	j := r.m.cfg.Journal
	if j == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	prior, err := j.ByCID(ctx, metadataCID)
	if errors.Is(err, journal.ErrNotFound) {
		return
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("cid", metadataCID).Msg("Failed to look up replaced attempt")
		return
	}
	if err := j.MarkUnpinned(ctx, prior.ID); err != nil {
		r.logger.Warn().Err(err).Str("attempt", prior.ID).Msg("Failed to journal unpin")
	}
}

// step runs fn under the per-step timeout.
func (r *run) step(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.m.cfg.Timeout)
		defer cancel()
	}
	return fn(ctx)
}

func (r *run) enter(ctx context.Context, s State) {
	r.state = s
	r.logger.Debug().Str("state", s.String()).Msg("State changed")
	if r.m.cfg.Observer != nil {
		r.m.cfg.Observer(s)
	}
	if !s.Terminal() {
		r.record(ctx, journal.Progress{State: s.String()})
	}
}

func (r *run) fail(ctx context.Context, err error) error {
	return r.failAs(ctx, Classify(r.state, err), err)
}

func (r *run) failAs(ctx context.Context, kind Kind, err error) error {
	stepErr := &StepError{State: r.state, Kind: kind, Err: err}
	r.enter(ctx, StateFailed)
	r.finish(ctx, stepErr.Error())
	r.logger.Warn().Err(stepErr).Msg("Mint failed")
	return stepErr
}

func (r *run) warn(msg string) {
	r.result.Warnings = append(r.result.Warnings, msg)
	r.logger.Warn().Msg(msg)
}

// begin opens the journal entry for this run.
func (r *run) begin(ctx context.Context) {
	j := r.m.cfg.Journal
	if j == nil {
		return
	}
	id, err := j.Start(context.WithoutCancel(ctx), r.result.Owner, r.state.String())
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to journal attempt")
		return
	}
	r.attemptID = id
	r.result.AttemptID = id
}

func (r *run) record(ctx context.Context, p journal.Progress) {
	if r.m.cfg.Journal == nil || r.attemptID == "" {
		return
	}
	if err := r.m.cfg.Journal.Update(context.WithoutCancel(ctx), r.attemptID, p); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to journal progress")
	}
}

func (r *run) finish(ctx context.Context, errMsg string) {
	if r.m.cfg.Journal == nil || r.attemptID == "" {
		return
	}
	if err := r.m.cfg.Journal.Finish(context.WithoutCancel(ctx), r.attemptID, r.state.String(), errMsg); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to journal result")
	}
}
