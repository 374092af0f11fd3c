package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// UserService provides operations on the current user's profile data.
type UserService struct {
	client *Client
}

// TopArtists returns the user's top artists for the given window.
//
// Requires a token with the user-top-read scope.
//
// Example:
//
//	page, err := client.User().TopArtists(ctx, spotify.TopItemsOptions{
//	    TimeRange: spotify.MediumTerm,
//	    Limit:     5,
//	})
func (u *UserService) TopArtists(ctx context.Context, opts TopItemsOptions) (*ArtistPage, error) {
	query, err := opts.values()
	if err != nil {
		return nil, err
	}

	var page ArtistPage
	if err := u.client.get(ctx, "/me/top/artists", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// TopTracks returns the user's top tracks for the given window.
//
// Requires a token with the user-top-read scope.
func (u *UserService) TopTracks(ctx context.Context, opts TopItemsOptions) (*TrackPage, error) {
	query, err := opts.values()
	if err != nil {
		return nil, err
	}

	var page TrackPage
	if err := u.client.get(ctx, "/me/top/tracks", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// values validates the options and encodes them as query parameters.
func (o TopItemsOptions) values() (url.Values, error) {
	timeRange := o.TimeRange
	if timeRange == "" {
		timeRange = MediumTerm
	}
	switch timeRange {
	case ShortTerm, MediumTerm, LongTerm:
	default:
		return nil, fmt.Errorf("spotify: invalid time range %q", timeRange)
	}

	limit := o.Limit
	if limit == 0 {
		limit = 20
	}
	if limit < 1 || limit > 50 {
		return nil, fmt.Errorf("spotify: limit must be between 1 and 50 (got %d)", limit)
	}

	if o.Offset < 0 {
		return nil, fmt.Errorf("spotify: offset must not be negative (got %d)", o.Offset)
	}

	q := url.Values{}
	q.Set("time_range", string(timeRange))
	q.Set("limit", strconv.Itoa(limit))
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	return q, nil
}
