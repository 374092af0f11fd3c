// Package card lays out and renders the summary card.
//
// Layout is a pure function from the summary data to a list of draw
// commands. Renderer executes those commands against a raster image, and
// Compositor wires asset loading, rendering and encoding together.
package card

import (
	"fmt"
	"image"
	"image/color"
	"unicode/utf8"

	"github.com/jfmyers9/wrapped/internal/stats"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canvas size in pixels.
const (
	Width  = 1080
	Height = 1920
)

// MaxLabelRunes is the longest artist or song name drawn without truncation.
const MaxLabelRunes = 13

// Layout constants, in canvas pixels. Text coordinates are baselines.
const (
	photoX    = 246
	photoY    = 208
	photoSize = 590

	leftColumnX  = 75
	rightColumnX = 570
	listTopY     = 1116
	lineStride   = 66

	genreHeadingY = 1560
	genreLabelY   = 1660
	footerY       = 1846

	headingSize = 48
	listSize    = 48
	genreSize   = 82
	footerSize  = 38
)

// Heading and footer labels.
const (
	FooterText        = "SOULBOUND WRAPPED"
	TopArtistsHeading = "Top Artists"
	TopSongsHeading   = "Top Songs"
	TopGenreHeading   = "Top Genre"
)

// Op is the kind of a draw command.
type Op int

const (
	OpImage Op = iota // Draw an image scaled into Rect
	OpText            // Draw Text with its baseline origin at At
)

// ImageSlot names one of the loaded images.
type ImageSlot int

const (
	SlotTemplate ImageSlot = iota // Background template
	SlotArtist                    // Top artist photo
)

// Face names one of the loaded typefaces.
type Face int

const (
	FaceBook Face = iota
	FaceMedium
	FaceBold
)

func (f Face) String() string {
	switch f {
	case FaceBook:
		return "book"
	case FaceMedium:
		return "medium"
	case FaceBold:
		return "bold"
	default:
		return "unknown"
	}
}

// Command is a single draw instruction.
type Command struct {
	Op    Op
	Slot  ImageSlot       // OpImage
	Rect  image.Rectangle // OpImage destination
	Text  string          // OpText
	Face  Face            // OpText
	Size  float64         // OpText size in pixels
	At    image.Point     // OpText baseline origin
	Color color.Color     // OpText fill
}

var textColor = color.White

// Layout returns the draw commands for a card, in drawing order.
func Layout(artists stats.TopArtistsSummary, songs []string) []Command {
	cmds := []Command{
		{Op: OpImage, Slot: SlotTemplate, Rect: image.Rect(0, 0, Width, Height)},
		{Op: OpImage, Slot: SlotArtist, Rect: image.Rect(photoX, photoY, photoX+photoSize, photoY+photoSize)},
		text(FooterText, FaceBold, footerSize, rightColumnX, footerY),
	}

	cmds = append(cmds, rankedList(TopArtistsHeading, artists.ArtistNames, leftColumnX)...)
	cmds = append(cmds, rankedList(TopSongsHeading, songs, rightColumnX)...)

	cmds = append(cmds, text(TopGenreHeading, FaceMedium, headingSize, leftColumnX, genreHeadingY))
	if artists.HasGenre {
		cmds = append(cmds, text(FormatGenre(artists.DominantGenre), FaceBold, genreSize, leftColumnX, genreLabelY))
	}

	return cmds
}

// rankedList lays out a heading followed by up to five numbered entries.
func rankedList(heading string, names []string, x int) []Command {
	if len(names) > stats.TopCount {
		names = names[:stats.TopCount]
	}

	cmds := make([]Command, 0, len(names)+1)
	cmds = append(cmds, text(heading, FaceMedium, headingSize, x, listTopY))
	for i, name := range names {
		label := fmt.Sprintf("%d  %s", i+1, Truncate(name))
		cmds = append(cmds, text(label, FaceBold, listSize, x, listTopY+lineStride*(i+1)))
	}
	return cmds
}

func text(s string, face Face, size float64, x, y int) Command {
	return Command{Op: OpText, Text: s, Face: face, Size: size, At: image.Pt(x, y), Color: textColor}
}

// Truncate shortens s to MaxLabelRunes runes followed by "..." when longer.
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxLabelRunes {
		return s
	}
	return string([]rune(s)[:MaxLabelRunes]) + "..."
}

// FormatGenre upper-cases the first letter of genre and lower-cases the rest.
func FormatGenre(genre string) string {
	if genre == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(genre)
	return cases.Upper(language.Und).String(string(first)) + cases.Lower(language.Und).String(genre[size:])
}
