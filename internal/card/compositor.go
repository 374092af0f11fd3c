package card

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"net/http"
	"time"

	"github.com/jfmyers9/wrapped/internal/stats"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
)

// DefaultQuality is the JPEG quality of the encoded card.
const DefaultQuality = 90

// Compositor renders summary cards to encoded JPEG bytes.
type Compositor struct {
	assets    Assets
	fetcher   *fetcher
	quality   int
	newCanvas func(w, h int) (draw.Image, error)
	logger    zerolog.Logger
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithHTTPClient sets the client used for remote assets.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Compositor) {
		c.fetcher.client = client
	}
}

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) Option {
	return func(c *Compositor) {
		if q >= 1 && q <= 100 {
			c.quality = q
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Compositor) {
		c.logger = logger.With().Str("component", "card").Logger()
	}
}

// NewCompositor creates a Compositor for the given assets.
func NewCompositor(assets Assets, opts ...Option) *Compositor {
	c := &Compositor{
		assets:    assets,
		fetcher:   &fetcher{client: &http.Client{Timeout: 30 * time.Second}},
		quality:   DefaultQuality,
		newCanvas: newRGBACanvas,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newRGBACanvas(w, h int) (draw.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, ErrCanvasUnavailable
	}
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

// Composite renders the card for artists and songs and returns JPEG bytes.
//
// Both images and all three typefaces must load before anything is drawn.
// Failures are reported as *ImageLoadError, *FontLoadError,
// ErrCanvasUnavailable or *EncodeError.
func (c *Compositor) Composite(ctx context.Context, artists stats.TopArtistsSummary, songs []string) ([]byte, error) {
	canvas, err := c.newCanvas(Width, Height)
	if err != nil {
		return nil, err
	}

	images, err := c.fetcher.loadImages(ctx, c.assets.Template, artists.RepresentativeImage)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Image load failed")
		return nil, err
	}

	fonts, err := c.fetcher.loadFonts(ctx, c.assets)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Font load failed")
		return nil, err
	}

	renderer := NewRenderer(images, fonts)
	defer renderer.Close()

	cmds := Layout(artists, songs)
	if err := renderer.Render(canvas, cmds); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, &EncodeError{Err: err}
	}

	c.logger.Debug().
		Int("commands", len(cmds)).
		Int("bytes", buf.Len()).
		Msg("Card rendered")

	return buf.Bytes(), nil
}
