// color.go - Colour parsing, lightness tests, and fill images.
package generator

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// lightThreshold is the CIE L* above which a colour counts as light.
const lightThreshold = 0.6

// ParseHex parses "#rrggbb" or "#rgb". The leading '#' is optional.
func ParseHex(s string) (colorful.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return colorful.Color{}, fmt.Errorf("empty color")
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return c, nil
}

// ParseHexRGBA converts a hex string to color.RGBA.
// Returns white on any parse error (safe default for rendering).
func ParseHexRGBA(hex string) color.RGBA {
	c, err := ParseHex(hex)
	if err != nil {
		return color.RGBA{255, 255, 255, 255}
	}
	r, g, b := c.RGB255()
	return color.RGBA{r, g, b, 255}
}

// WithAlpha returns c at the given opacity in [0, 1].
func WithAlpha(c color.RGBA, alpha float64) color.NRGBA {
	alpha = max(0, min(alpha, 1))
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(alpha*255 + 0.5)}
}

// IsLight reports whether c reads as a light colour.
func IsLight(c color.Color) bool {
	cc, ok := colorful.MakeColor(c)
	if !ok {
		return false
	}
	l, _, _ := cc.Lab()
	return l > lightThreshold
}

// NewSolidImage creates a uniform solid-color image using draw.Draw (O(1) fill).
func NewSolidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// NewDiagonalGradient fills a w×h image with a 135° gradient running from
// the top-left corner (from) to the bottom-right corner (to).
func NewDiagonalGradient(w, h int, from, to color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if w <= 0 || h <= 0 {
		return img
	}

	c1, _ := colorful.MakeColor(from)
	c2, _ := colorful.MakeColor(to)

	// Every pixel on an anti-diagonal shares a colour.
	steps := w + h - 1
	ramp := make([]color.RGBA, steps)
	for i := range ramp {
		t := 0.0
		if steps > 1 {
			t = float64(i) / float64(steps-1)
		}
		r, g, b := c1.BlendRgb(c2, t).Clamped().RGB255()
		ramp[i] = color.RGBA{r, g, b, 255}
	}

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			c := ramp[x+y]
			row[x*4+0] = c.R
			row[x*4+1] = c.G
			row[x*4+2] = c.B
			row[x*4+3] = c.A
		}
	}
	return img
}
