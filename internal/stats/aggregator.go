// Package stats reads a listener's top artists and tracks and reduces them to
// the summary drawn on the card.
package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/jfmyers9/wrapped/pkg/spotify"
	"github.com/rs/zerolog"
)

const (
	// TopCount is the number of artists and tracks fetched.
	TopCount = 5

	// Window is the affinity window used for both lists.
	Window = spotify.MediumTerm
)

// ErrNotAuthenticated is returned when no authenticated session is available.
var ErrNotAuthenticated = errors.New("stats: session is not authenticated")

// TopArtistsSummary is the artist half of the card data.
type TopArtistsSummary struct {
	RepresentativeImage string   // First image of the top artist; empty when absent
	ArtistNames         []string // Up to TopCount names, most listened first
	DominantGenre       string   // Most frequent genre label
	HasGenre            bool     // False when no artist carried a genre
}

// Source is the authenticated session the aggregator reads from.
type Source interface {
	Authenticated() bool
	TopArtists(ctx context.Context, opts spotify.TopItemsOptions) (*spotify.ArtistPage, error)
	TopTracks(ctx context.Context, opts spotify.TopItemsOptions) (*spotify.TrackPage, error)
}

// Aggregator builds summaries from a session.
type Aggregator struct {
	source Source
	logger zerolog.Logger
}

// NewAggregator creates an Aggregator over source.
func NewAggregator(source Source, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		source: source,
		logger: logger.With().Str("component", "stats").Logger(),
	}
}

func (a *Aggregator) options() spotify.TopItemsOptions {
	return spotify.TopItemsOptions{TimeRange: Window, Limit: TopCount}
}

func (a *Aggregator) authenticated() bool {
	return a.source != nil && a.source.Authenticated()
}

// FetchTopArtists returns the artist summary. An empty result leaves every
// field absent without an error.
func (a *Aggregator) FetchTopArtists(ctx context.Context) (TopArtistsSummary, error) {
	if !a.authenticated() {
		return TopArtistsSummary{}, ErrNotAuthenticated
	}

	page, err := a.source.TopArtists(ctx, a.options())
	if err != nil {
		return TopArtistsSummary{}, fmt.Errorf("failed to fetch top artists: %w", err)
	}

	var summary TopArtistsSummary
	if page == nil || len(page.Items) == 0 {
		a.logger.Debug().Msg("No top artists returned")
		return summary, nil
	}

	items := page.Items
	if len(items) > TopCount {
		items = items[:TopCount]
	}

	if len(items[0].Images) > 0 {
		summary.RepresentativeImage = items[0].Images[0].URL
	}

	genres := make([][]string, 0, len(items))
	summary.ArtistNames = make([]string, 0, len(items))
	for _, artist := range items {
		summary.ArtistNames = append(summary.ArtistNames, artist.Name)
		genres = append(genres, artist.Genres)
	}
	summary.DominantGenre, summary.HasGenre = DeriveDominantGenre(genres)

	a.logger.Debug().
		Int("artists", len(summary.ArtistNames)).
		Str("genre", summary.DominantGenre).
		Msg("Top artists fetched")

	return summary, nil
}

// FetchTopSongs returns up to TopCount track names.
func (a *Aggregator) FetchTopSongs(ctx context.Context) ([]string, error) {
	if !a.authenticated() {
		return nil, ErrNotAuthenticated
	}

	page, err := a.source.TopTracks(ctx, a.options())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top tracks: %w", err)
	}
	if page == nil || len(page.Items) == 0 {
		a.logger.Debug().Msg("No top tracks returned")
		return nil, nil
	}

	items := page.Items
	if len(items) > TopCount {
		items = items[:TopCount]
	}

	names := make([]string, 0, len(items))
	for _, track := range items {
		names = append(names, track.Name)
	}
	return names, nil
}
