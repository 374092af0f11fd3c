package card

import (
	"errors"
	"fmt"
)

// ErrCanvasUnavailable is returned when no raster surface can be allocated.
var ErrCanvasUnavailable = errors.New("card: canvas unavailable")

// ErrNoArtistImage is wrapped in an ImageLoadError when the summary has no
// artist photo to load.
var ErrNoArtistImage = errors.New("no artist image")

// ImageLoadError reports an image that could not be fetched or decoded.
type ImageLoadError struct {
	URL string
	Err error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("card: failed to load image %q: %v", e.URL, e.Err)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }

// FontLoadError reports a typeface that could not be fetched or parsed.
type FontLoadError struct {
	Face Face
	Path string
	Err  error
}

func (e *FontLoadError) Error() string {
	return fmt.Sprintf("card: failed to load %s font %q: %v", e.Face, e.Path, e.Err)
}

func (e *FontLoadError) Unwrap() error { return e.Err }

// EncodeError reports a failure to encode the finished canvas.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("card: failed to encode image: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
