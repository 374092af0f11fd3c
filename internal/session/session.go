// Package session holds the authenticated streaming-service session.
//
// A Session is created when a token exchange succeeds and destroyed by
// Logout. It is passed explicitly to the components that need it.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jfmyers9/wrapped/pkg/spotify"
	"github.com/rs/zerolog"
)

// ErrNotAuthenticated is returned when the session has no usable token.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// Session binds a Spotify client to its persisted token.
type Session struct {
	client *spotify.Client
	store  *Store
	logger zerolog.Logger
}

// New restores a session from store. The session is authenticated when the
// store holds a token from an earlier exchange.
func New(client *spotify.Client, store *Store, logger zerolog.Logger) *Session {
	s := &Session{
		client: client,
		store:  store,
		logger: logger.With().Str("component", "session").Logger(),
	}

	st := store.Get()
	if st.Authenticated && st.Token != nil {
		client.SetToken(st.Token)
	}

	return s
}

// Authenticated reports whether requests can be made with this session.
func (s *Session) Authenticated() bool {
	return s != nil && s.store.Get().Authenticated && s.client.HasToken()
}

// Begin starts the authorization flow, returning the URL to visit and the
// state the redirect must carry.
func (s *Session) Begin() (authURL, state string, err error) {
	return s.client.Auth().Begin()
}

// Complete exchanges the redirect code and persists the resulting token.
func (s *Session) Complete(ctx context.Context, state, code string) error {
	tok, err := s.client.Auth().Exchange(ctx, state, code)
	if err != nil {
		return err
	}
	if err := s.store.Save(tok); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.logger.Info().Msg("Session authenticated")
	return nil
}

// Logout forgets the token in memory and on disk.
func (s *Session) Logout() error {
	s.client.SetToken(nil)
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.logger.Info().Msg("Session cleared")
	return nil
}

// TopArtists fetches the user's top artists.
func (s *Session) TopArtists(ctx context.Context, opts spotify.TopItemsOptions) (*spotify.ArtistPage, error) {
	if !s.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	page, err := s.client.User().TopArtists(ctx, opts)
	s.syncToken()
	return page, err
}

// TopTracks fetches the user's top tracks.
func (s *Session) TopTracks(ctx context.Context, opts spotify.TopItemsOptions) (*spotify.TrackPage, error) {
	if !s.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	page, err := s.client.User().TopTracks(ctx, opts)
	s.syncToken()
	return page, err
}

// syncToken writes a refreshed token back to the store.
func (s *Session) syncToken() {
	tok, err := s.client.Token()
	if err != nil {
		return
	}
	stored := s.store.Get().Token
	if stored != nil && stored.AccessToken == tok.AccessToken {
		return
	}
	if err := s.store.Save(tok); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist refreshed token")
	}
}
