// layout.go - Canvas geometry shared by every slide.
package carousel

import (
	"fmt"
	"image"
	"math"

	"github.com/taiye-kotiku/carmi-carousel/pkg/template"
)

// Canvas
const (
	Width  = 1080
	Height = 1350
	Margin = 80
)

// Text block
const (
	DefaultFontSize = 72
	MinFontSize     = 40
	MaxFontSize     = template.MaxFontSize
	fontSizeStep    = 4
	lineSpacing     = 1.3
	bottomReserve   = 120 // kept clear of text above the progress bar
	backdropPadding = 28
	backdropRadius  = 24
)

// Logo
const (
	DefaultLogoSize = 120
	MinLogoSize     = 40
	MaxLogoSize     = 260
	logoInset       = 60
)

// Progress bar and counter
const (
	trackInset      = 100
	trackBottom     = 40
	trackHeight     = 12
	trackRadius     = 6
	counterTop      = 58
	counterFontSize = 26
	counterPadX     = 20
	counterPadY     = 10
)

// PanoramaShift is the horizontal distance between neighbouring slides'
// windows onto a panorama background.
const PanoramaShift = Width / 5

// MaxBlur bounds the background blur sigma.
const MaxBlur = template.MaxBlur

// TextWidth is the width available to a wrapped line.
const TextWidth = Width - 2*Margin

// ClampLogoSize applies the default and bounds to a requested logo size.
func ClampLogoSize(size int) int {
	if size <= 0 {
		return DefaultLogoSize
	}
	return max(MinLogoSize, min(size, MaxLogoSize))
}

// ClampFontSize applies the default and bounds to a requested text size.
func ClampFontSize(size float64) float64 {
	if size <= 0 {
		return DefaultFontSize
	}
	return max(MinFontSize, min(size, MaxFontSize))
}

// LogoRect returns the square a logo of the given size occupies. Unknown
// positions fall back to top-right.
func LogoRect(pos template.LogoPosition, size int) image.Rectangle {
	top := logoInset
	bottom := Height - logoInset - size
	left := Margin
	right := Width - Margin - size
	middle := (Width - size) / 2

	var pt image.Point
	switch pos {
	case template.LogoTopLeft:
		pt = image.Pt(left, top)
	case template.LogoTopMiddle:
		pt = image.Pt(middle, top)
	case template.LogoBottomLeft:
		pt = image.Pt(left, bottom)
	case template.LogoBottomRight:
		pt = image.Pt(right, bottom)
	case template.LogoBottomMiddle:
		pt = image.Pt(middle, bottom)
	default:
		pt = image.Pt(right, top)
	}
	return image.Rectangle{Min: pt, Max: pt.Add(image.Pt(size, size))}
}

// ProgressTrack returns the full progress bar track.
func ProgressTrack() image.Rectangle {
	y := Height - trackBottom - trackHeight
	return image.Rect(trackInset, y, Width-trackInset, y+trackHeight)
}

// ProgressFill returns the filled part of the track for slide index
// (0-based) of total: (index+1)/total of the track width, from the left.
func ProgressFill(index, total int) image.Rectangle {
	track := ProgressTrack()
	if total <= 0 {
		return image.Rectangle{Min: track.Min, Max: image.Pt(track.Min.X, track.Max.Y)}
	}
	frac := float64(min(max(index+1, 0), total)) / float64(total)
	w := int(math.Round(float64(track.Dx()) * frac))
	return image.Rect(track.Min.X, track.Min.Y, track.Min.X+w, track.Max.Y)
}

// CounterText returns the "n / total" label of slide index (0-based).
func CounterText(index, total int) string {
	return fmt.Sprintf("%d / %d", index+1, total)
}

// availableHeight is the vertical room for a text block starting at anchor.
func availableHeight(anchor int) float64 {
	return float64(Height - anchor - bottomReserve)
}
