package spotify

// Image is an artwork reference hosted by Spotify.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Artist is a full artist object as returned by /me/top/artists.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Images     []Image  `json:"images"`
	Popularity int      `json:"popularity"`
}

// SimpleArtist is the artist stub embedded in tracks.
type SimpleArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track is a full track object as returned by /me/top/tracks.
type Track struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Artists    []SimpleArtist `json:"artists"`
	DurationMs int            `json:"duration_ms"`
}

// ArtistPage is one page of top artists.
type ArtistPage struct {
	Items  []Artist `json:"items"`
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// TrackPage is one page of top tracks.
type TrackPage struct {
	Items  []Track `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// TimeRange selects the affinity window for top items.
type TimeRange string

const (
	ShortTerm  TimeRange = "short_term"  // ~4 weeks
	MediumTerm TimeRange = "medium_term" // ~6 months
	LongTerm   TimeRange = "long_term"   // ~1 year
)

// TopItemsOptions parameterizes the top items endpoints.
type TopItemsOptions struct {
	TimeRange TimeRange // Optional: defaults to MediumTerm
	Limit     int       // Optional: 1-50, defaults to 20
	Offset    int       // Optional: index of the first item
}

// apiErrorResponse is the error envelope of the Web API.
type apiErrorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}
