package media

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PlaceholderSize is the edge length of generated placeholder images
const PlaceholderSize = 256

// placeholderPalette holds muted background colors; the slug picks one deterministically
var placeholderPalette = []color.RGBA{
	{R: 0x45, G: 0x5A, B: 0x64, A: 0xFF},
	{R: 0x37, G: 0x47, B: 0x8F, A: 0xFF},
	{R: 0x00, G: 0x79, B: 0x6B, A: 0xFF},
	{R: 0x6A, G: 0x1B, B: 0x9A, A: 0xFF},
	{R: 0xAD, G: 0x14, B: 0x57, A: 0xFF},
	{R: 0xE6, G: 0x51, B: 0x00, A: 0xFF},
	{R: 0x2E, G: 0x7D, B: 0x32, A: 0xFF},
	{R: 0x15, G: 0x65, B: 0xC0, A: 0xFF},
}

var upperCaser = cases.Upper(language.Und)

// PlaceholderLetter returns the upper-cased first letter or digit of slug, or "?"
func PlaceholderLetter(slug string) string {
	for _, r := range slug {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return upperCaser.String(string(r))
		}
	}
	return "?"
}

func placeholderColor(slug string) color.RGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(slug))
	return placeholderPalette[h.Sum32()%uint32(len(placeholderPalette))]
}

// RenderPlaceholder draws a flat square with the first letter of slug centered on it, encoded as PNG
func RenderPlaceholder(slug string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, PlaceholderSize, PlaceholderSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: placeholderColor(slug)}, image.Point{}, draw.Src)

	parsed, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse placeholder font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    PlaceholderSize * 0.55,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create placeholder font face: %w", err)
	}
	defer face.Close()

	letter := PlaceholderLetter(slug)
	if r, _ := utf8.DecodeRuneInString(letter); !hasGlyph(face, r) {
		letter = "?"
	}

	bounds, _ := font.BoundString(face, letter)
	width := bounds.Max.X - bounds.Min.X
	height := bounds.Max.Y - bounds.Min.Y
	size := fixed.I(PlaceholderSize)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot: fixed.Point26_6{
			X: (size-width)/2 - bounds.Min.X,
			Y: (size-height)/2 - bounds.Min.Y,
		},
	}
	d.DrawString(letter)

	return encodeImage(img, FormatPNG)
}

func hasGlyph(face font.Face, r rune) bool {
	_, _, ok := face.GlyphBounds(r)
	return ok
}
