package card

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jfmyers9/wrapped/internal/stats"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

// testAssets writes a blue template and the Go fonts to a temp dir.
func testAssets(t *testing.T) Assets {
	t.Helper()
	dir := t.TempDir()

	var tpl bytes.Buffer
	if err := png.Encode(&tpl, solid(54, 96, color.RGBA{0, 0, 255, 255})); err != nil {
		t.Fatalf("encode template: %v", err)
	}

	return Assets{
		Template:   writeFile(t, dir, "template.png", tpl.Bytes()),
		FontBook:   writeFile(t, dir, "book.ttf", goregular.TTF),
		FontMedium: writeFile(t, dir, "medium.ttf", gomedium.TTF),
		FontBold:   writeFile(t, dir, "bold.ttf", gobold.TTF),
	}
}

// newPhotoServer serves a red JPEG at /photo.jpg, text at /text and 404 otherwise.
func newPhotoServer(t *testing.T) *httptest.Server {
	t.Helper()
	var photo bytes.Buffer
	if err := jpeg.Encode(&photo, solid(64, 64, color.RGBA{255, 0, 0, 255}), nil); err != nil {
		t.Fatalf("encode photo: %v", err)
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write(photo.Bytes())
		case "/text":
			_, _ = w.Write([]byte("<html>definitely not an image</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
}

func testSummary(photoURL string) stats.TopArtistsSummary {
	return stats.TopArtistsSummary{
		RepresentativeImage: photoURL,
		ArtistNames:         []string{"Radiohead", "Portishead", "Massive Attack", "Björk", "Boards of Canada"},
		DominantGenre:       "TRIP HOP",
		HasGenre:            true,
	}
}

func TestComposite(t *testing.T) {
	server := newPhotoServer(t)
	defer server.Close()

	c := NewCompositor(testAssets(t))
	out, err := c.Composite(context.Background(), testSummary(server.URL+"/photo.jpg"), []string{"Reckoner", "Roads"})
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg, got %s", format)
	}
	if cfg.Width != Width || cfg.Height != Height {
		t.Errorf("expected %dx%d, got %dx%d", Width, Height, cfg.Width, cfg.Height)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Template shows in the corner, photo in the square
	r, g, b, _ := img.At(10, 10).RGBA()
	if b>>8 < 200 || r>>8 > 60 || g>>8 > 60 {
		t.Errorf("expected blue template at (10,10), got %d,%d,%d", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = img.At(541, 503).RGBA()
	if r>>8 < 200 || g>>8 > 60 || b>>8 > 60 {
		t.Errorf("expected red artist photo at (541,503), got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestComposite_ImageLoadFailureDrawsNothing(t *testing.T) {
	server := newPhotoServer(t)
	defer server.Close()

	tests := []struct {
		name        string
		photo       string
		errContains string
	}{
		{name: "not found", photo: server.URL + "/missing.jpg", errContains: "unexpected status code: 404"},
		{name: "not an image", photo: server.URL + "/text", errContains: "not an image"},
		{name: "no photo", photo: "", errContains: "no artist image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canvas := image.NewRGBA(image.Rect(0, 0, Width, Height))
			c := NewCompositor(testAssets(t))
			c.newCanvas = func(w, h int) (draw.Image, error) { return canvas, nil }

			_, err := c.Composite(context.Background(), testSummary(tt.photo), nil)

			var loadErr *ImageLoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("expected *ImageLoadError, got %v", err)
			}
			if loadErr.URL != tt.photo {
				t.Errorf("expected failing URL %q, got %q", tt.photo, loadErr.URL)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("expected error to contain %q, got %q", tt.errContains, err.Error())
			}

			for _, p := range canvas.Pix {
				if p != 0 {
					t.Fatal("canvas was drawn on despite image load failure")
				}
			}
		})
	}
}

func TestComposite_TemplateFailure(t *testing.T) {
	server := newPhotoServer(t)
	defer server.Close()

	assets := testAssets(t)
	assets.Template = filepath.Join(t.TempDir(), "missing.png")

	_, err := NewCompositor(assets).Composite(context.Background(), testSummary(server.URL+"/photo.jpg"), nil)
	var loadErr *ImageLoadError
	if !errors.As(err, &loadErr) || loadErr.URL != assets.Template {
		t.Fatalf("expected *ImageLoadError for template, got %v", err)
	}
}

func TestComposite_FontFailure(t *testing.T) {
	server := newPhotoServer(t)
	defer server.Close()

	assets := testAssets(t)
	assets.FontMedium = writeFile(t, t.TempDir(), "broken.otf", []byte("not a font"))

	_, err := NewCompositor(assets).Composite(context.Background(), testSummary(server.URL+"/photo.jpg"), nil)
	var fontErr *FontLoadError
	if !errors.As(err, &fontErr) {
		t.Fatalf("expected *FontLoadError, got %v", err)
	}
	if fontErr.Face != FaceMedium || fontErr.Path != assets.FontMedium {
		t.Errorf("unexpected font error %+v", fontErr)
	}
}

func TestComposite_CanvasUnavailable(t *testing.T) {
	c := NewCompositor(testAssets(t))
	c.newCanvas = func(w, h int) (draw.Image, error) { return nil, ErrCanvasUnavailable }

	_, err := c.Composite(context.Background(), testSummary("http://unused"), nil)
	if !errors.Is(err, ErrCanvasUnavailable) {
		t.Errorf("expected ErrCanvasUnavailable, got %v", err)
	}
}

func TestRenderer_MissingAssets(t *testing.T) {
	r := NewRenderer(nil, nil)
	defer r.Close()

	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if err := r.Render(dst, []Command{{Op: OpImage, Slot: SlotArtist}}); err == nil {
		t.Error("expected error for missing image")
	}
	if err := r.Render(dst, []Command{{Op: OpText, Face: FaceBold, Size: 12, Text: "x"}}); err == nil {
		t.Error("expected error for missing font")
	}
}
