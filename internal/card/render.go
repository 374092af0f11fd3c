package card

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Renderer executes draw commands with a fixed set of images and fonts.
type Renderer struct {
	images map[ImageSlot]image.Image
	fonts  map[Face]*opentype.Font
	faces  map[faceKey]font.Face
}

type faceKey struct {
	face Face
	size float64
}

// NewRenderer creates a Renderer over loaded assets.
func NewRenderer(images map[ImageSlot]image.Image, fonts map[Face]*opentype.Font) *Renderer {
	return &Renderer{
		images: images,
		fonts:  fonts,
		faces:  make(map[faceKey]font.Face),
	}
}

// Render draws cmds onto dst in order.
func (r *Renderer) Render(dst draw.Image, cmds []Command) error {
	for i, cmd := range cmds {
		var err error
		switch cmd.Op {
		case OpImage:
			err = r.drawImage(dst, cmd)
		case OpText:
			err = r.drawText(dst, cmd)
		default:
			err = fmt.Errorf("unknown op %d", cmd.Op)
		}
		if err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
	}
	return nil
}

// Close releases the font faces created while rendering.
func (r *Renderer) Close() error {
	for k, f := range r.faces {
		_ = f.Close()
		delete(r.faces, k)
	}
	return nil
}

func (r *Renderer) drawImage(dst draw.Image, cmd Command) error {
	src, ok := r.images[cmd.Slot]
	if !ok || src == nil {
		return fmt.Errorf("image slot %d not loaded", cmd.Slot)
	}
	// Scale clips to the destination rectangle
	draw.CatmullRom.Scale(dst, cmd.Rect, src, src.Bounds(), draw.Over, nil)
	return nil
}

func (r *Renderer) drawText(dst draw.Image, cmd Command) error {
	face, err := r.face(cmd.Face, cmd.Size)
	if err != nil {
		return err
	}

	fill := cmd.Color
	if fill == nil {
		fill = color.White
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fill),
		Face: face,
		Dot:  fixed.P(cmd.At.X, cmd.At.Y),
	}
	d.DrawString(cmd.Text)
	return nil
}

func (r *Renderer) face(f Face, size float64) (font.Face, error) {
	key := faceKey{face: f, size: size}
	if face, ok := r.faces[key]; ok {
		return face, nil
	}

	parsed, ok := r.fonts[f]
	if !ok || parsed == nil {
		return nil, fmt.Errorf("%s font not loaded", f)
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s face: %w", f, err)
	}
	r.faces[key] = face
	return face, nil
}
