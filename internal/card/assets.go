package card

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/image/font/opentype"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// maxAssetBytes bounds a single downloaded asset.
const maxAssetBytes = 32 << 20

// Assets locates the static inputs of the card. Each entry is a local path,
// a file:// URL or an http(s) URL.
type Assets struct {
	Template   string
	FontBook   string
	FontMedium string
	FontBold   string
}

// fetcher reads asset bytes from disk or over HTTP.
type fetcher struct {
	client *http.Client
	// limit overrides maxAssetBytes when positive.
	limit int64
}

func (f *fetcher) maxBytes() int64 {
	if f.limit > 0 {
		return f.limit
	}
	return maxAssetBytes
}

func (f *fetcher) fetch(ctx context.Context, src string) ([]byte, error) {
	if src == "" {
		return nil, errors.New("empty source")
	}

	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return f.readBounded(resp.Body)
	}

	file, err := os.Open(strings.TrimPrefix(src, "file://"))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return f.readBounded(file)
}

// readBounded reads r in full, failing rather than truncating when it holds
// more than the asset limit.
func (f *fetcher) readBounded(r io.Reader) ([]byte, error) {
	limit := f.maxBytes()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("asset exceeds %d bytes", limit)
	}
	return data, nil
}

// loadImage fetches src and decodes it, rejecting bytes that are not an image.
func (f *fetcher) loadImage(ctx context.Context, src string) (image.Image, error) {
	data, err := f.fetch(ctx, src)
	if err != nil {
		return nil, &ImageLoadError{URL: src, Err: err}
	}

	if !filetype.IsImage(data) {
		kind, _ := filetype.Match(data)
		return nil, &ImageLoadError{URL: src, Err: fmt.Errorf("not an image (detected %s)", describeKind(kind.MIME.Value))}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ImageLoadError{URL: src, Err: fmt.Errorf("decode failed: %w", err)}
	}
	return img, nil
}

func describeKind(mime string) string {
	if mime == "" {
		return "unknown content"
	}
	return mime
}

// loadImages loads the template and the artist photo in parallel. Either
// failure aborts both.
func (f *fetcher) loadImages(ctx context.Context, template, artist string) (map[ImageSlot]image.Image, error) {
	var templateImg, artistImg image.Image

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		img, err := f.loadImage(gctx, template)
		templateImg = img
		return err
	})
	g.Go(func() error {
		if artist == "" {
			return &ImageLoadError{URL: artist, Err: ErrNoArtistImage}
		}
		img, err := f.loadImage(gctx, artist)
		artistImg = img
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return map[ImageSlot]image.Image{
		SlotTemplate: templateImg,
		SlotArtist:   artistImg,
	}, nil
}

// loadFonts loads the three typefaces in parallel. There is no fallback face.
func (f *fetcher) loadFonts(ctx context.Context, assets Assets) (map[Face]*opentype.Font, error) {
	sources := map[Face]string{
		FaceBook:   assets.FontBook,
		FaceMedium: assets.FontMedium,
		FaceBold:   assets.FontBold,
	}

	fonts := make([]*opentype.Font, 3)
	g, gctx := errgroup.WithContext(ctx)
	for face, src := range sources {
		face, src := face, src
		g.Go(func() error {
			data, err := f.fetch(gctx, src)
			if err != nil {
				return &FontLoadError{Face: face, Path: src, Err: err}
			}
			parsed, err := opentype.Parse(data)
			if err != nil {
				return &FontLoadError{Face: face, Path: src, Err: err}
			}
			fonts[face] = parsed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return map[Face]*opentype.Font{
		FaceBook:   fonts[FaceBook],
		FaceMedium: fonts[FaceMedium],
		FaceBold:   fonts[FaceBold],
	}, nil
}
