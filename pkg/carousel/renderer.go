// renderer.go - Slide compositor: draws one 1080×1350 slide.
// Layers, bottom to top: background -> overlay -> text backdrop -> text ->
// logo -> progress bar -> counter.
package carousel

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/taiye-kotiku/carmi-carousel/pkg/generator"
	"github.com/taiye-kotiku/carmi-carousel/pkg/template"
	"github.com/taiye-kotiku/carmi-carousel/pkg/text"
)

// Fallback background gradient.
var (
	gradientFrom = color.RGBA{0x1a, 0x1a, 0x2e, 0xff}
	gradientTo   = color.RGBA{0x16, 0x21, 0x3e, 0xff}
)

// RenderOptions is everything a slide needs besides its own text. Images are
// read-only once passed in and may be shared between goroutines.
type RenderOptions struct {
	Template template.Descriptor
	Style    template.Style

	// Background is already cover-fitted to Height and at least Width wide.
	// Nil selects the fallback gradient.
	Background image.Image
	// Panorama shows a different horizontal window of Background per slide.
	Panorama bool

	// Logo is already fitted inside a LogoSize square. Nil draws no logo.
	Logo         image.Image
	LogoPosition template.LogoPosition
	LogoSize     int

	HeadlineSize float64 // first slide
	BodySize     float64 // other slides
}

// Renderer draws slides for one carousel. It is safe for concurrent use.
type Renderer struct {
	fonts *FontManager
	opts  RenderOptions

	textColor color.RGBA
	highlight color.RGBA
	accent    color.RGBA
}

// NewRenderer creates a slide renderer.
func NewRenderer(fonts *FontManager, opts RenderOptions) *Renderer {
	if opts.Background == nil {
		opts.Background = generator.NewDiagonalGradient(Width, Height, gradientFrom, gradientTo)
		opts.Panorama = false
	}
	opts.HeadlineSize = ClampFontSize(opts.HeadlineSize)
	opts.BodySize = ClampFontSize(opts.BodySize)
	opts.LogoSize = ClampLogoSize(opts.LogoSize)

	return &Renderer{
		fonts:     fonts,
		opts:      opts,
		textColor: generator.ParseHexRGBA(opts.Style.TextColor),
		highlight: generator.ParseHexRGBA(opts.Style.Highlight),
		accent:    generator.ParseHexRGBA(opts.Style.Accent),
	}
}

// RenderSlide draws slide index (0-based) of total from its raw text, where
// *marked* spans are highlighted. Text that does not fit even at MinFontSize
// runs past the bottom of the block and is clipped by the canvas.
func (r *Renderer) RenderSlide(raw string, index, total int) (*image.RGBA, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, Width, Height))
	r.drawBackground(canvas, index)

	dc := gg.NewContextForRGBA(canvas)

	if r.opts.Style.Light {
		dc.SetColor(generator.WithAlpha(color.RGBA{A: 255}, 0.3))
		dc.DrawRectangle(0, 0, Width, Height)
		dc.Fill()
	}

	if err := r.drawText(dc, raw, index); err != nil {
		return nil, err
	}

	r.drawLogo(dc)
	r.drawProgress(dc, index, total)

	if err := r.drawCounter(dc, index, total); err != nil {
		return nil, err
	}

	return canvas, nil
}

// drawBackground copies this slide's window of the background.
func (r *Renderer) drawBackground(canvas *image.RGBA, index int) {
	bg := r.opts.Background
	b := bg.Bounds()

	x := b.Min.X
	if r.opts.Panorama {
		x += min(index*PanoramaShift, max(b.Dx()-Width, 0))
	}
	src := image.Rect(x, b.Min.Y, x+Width, b.Min.Y+Height).Intersect(b)
	draw.Copy(canvas, image.Point{}, bg, src, draw.Src, nil)
}

// fitText wraps runs at the slide's font size, shrinking the size until the
// block fits between the anchor and the bottom reserve or MinFontSize is
// reached. The returned face belongs to the caller.
func (r *Renderer) fitText(runs []text.Run, index int) (font.Face, []text.Line, float64, error) {
	size := r.opts.BodySize
	if index == 0 {
		size = r.opts.HeadlineSize
	}
	room := availableHeight(r.opts.Template.Anchor)

	for {
		face, err := r.fonts.Face(size)
		if err != nil {
			return nil, nil, 0, err
		}
		lines := text.Wrap(runs, TextWidth, measurer(face))
		lh := size * lineSpacing
		if float64(len(lines))*lh <= room || size-fontSizeStep < MinFontSize {
			return face, lines, lh, nil
		}
		face.Close()
		size -= fontSizeStep
	}
}

func (r *Renderer) drawText(dc *gg.Context, raw string, index int) error {
	face, lines, lh, err := r.fitText(text.Segment(raw), index)
	if err != nil {
		return err
	}
	defer face.Close()

	if len(lines) == 0 {
		return nil
	}

	anchor := float64(r.opts.Template.Anchor)

	// Backdrop
	if r.opts.Style.Light {
		dc.SetColor(generator.WithAlpha(color.RGBA{A: 255}, 0.35))
	} else {
		dc.SetColor(generator.WithAlpha(color.RGBA{255, 255, 255, 255}, 0.55))
	}
	dc.DrawRoundedRectangle(
		Margin-backdropPadding, anchor-backdropPadding,
		TextWidth+2*backdropPadding, float64(len(lines))*lh+2*backdropPadding,
		backdropRadius,
	)
	dc.Fill()

	dc.SetFontFace(face)
	measure := measurer(face)
	m := face.Metrics()
	ascent, descent := fixedToFloat(m.Ascent), fixedToFloat(m.Descent)

	for i, line := range lines {
		baseline := anchor + float64(i)*lh + (lh-(ascent+descent))/2 + ascent
		r.drawLine(dc, line, baseline, measure)
	}
	return nil
}

// drawLine paints one line flush against the right margin. Right-to-left
// words are placed from the right edge in logical order; consecutive words
// without right-to-left letters form a group kept in left-to-right order.
func (r *Renderer) drawLine(dc *gg.Context, line text.Line, baseline float64, measure text.MeasureFunc) {
	space := measure(" ")
	x := float64(Width - Margin)

	for gi, group := range groupWords(line.Words) {
		if gi > 0 {
			x -= space
		}

		if !group.rtl {
			w := measure(text.Line{Words: group.words}.Text())
			cursor := x - w
			for wi, word := range group.words {
				if wi > 0 {
					cursor += space
				}
				for _, p := range word.Pieces {
					r.drawPiece(dc, p.Text, p.Highlighted, cursor, baseline)
					cursor += measure(p.Text)
				}
			}
			x -= w
			continue
		}

		word := group.words[0]
		cursor := x
		for _, p := range word.Pieces {
			cursor -= measure(p.Text)
			r.drawPiece(dc, text.Visual(p.Text), p.Highlighted, cursor, baseline)
		}
		x = cursor
	}
}

func (r *Renderer) drawPiece(dc *gg.Context, s string, highlighted bool, x, baseline float64) {
	if highlighted {
		dc.SetColor(r.highlight)
	} else {
		dc.SetColor(r.textColor)
	}
	dc.DrawString(s, x, baseline)
}

type wordGroup struct {
	words []text.Word
	rtl   bool
}

func groupWords(words []text.Word) []wordGroup {
	var groups []wordGroup
	for _, w := range words {
		if text.IsRTL(w.Text()) {
			groups = append(groups, wordGroup{words: []text.Word{w}, rtl: true})
			continue
		}
		if n := len(groups); n > 0 && !groups[n-1].rtl {
			groups[n-1].words = append(groups[n-1].words, w)
			continue
		}
		groups = append(groups, wordGroup{words: []text.Word{w}})
	}
	return groups
}

// drawLogo centres the logo inside its square.
func (r *Renderer) drawLogo(dc *gg.Context) {
	if r.opts.Logo == nil {
		return
	}
	box := LogoRect(r.opts.LogoPosition, r.opts.LogoSize)
	b := r.opts.Logo.Bounds()
	x := box.Min.X + (box.Dx()-b.Dx())/2
	y := box.Min.Y + (box.Dy()-b.Dy())/2
	dc.DrawImage(r.opts.Logo, x-b.Min.X, y-b.Min.Y)
}

func (r *Renderer) drawProgress(dc *gg.Context, index, total int) {
	track := ProgressTrack()
	if r.opts.Style.Light {
		dc.SetColor(generator.WithAlpha(color.RGBA{200, 200, 200, 255}, 0.3))
	} else {
		dc.SetColor(generator.WithAlpha(color.RGBA{50, 50, 50, 255}, 0.2))
	}
	roundedRect(dc, track, trackRadius)
	dc.Fill()

	fill := ProgressFill(index, total)
	if fill.Dx() <= 0 {
		return
	}
	dc.SetColor(r.accent)
	roundedRect(dc, fill, trackRadius)
	dc.Fill()
}

func (r *Renderer) drawCounter(dc *gg.Context, index, total int) error {
	face, err := r.fonts.Face(counterFontSize)
	if err != nil {
		return err
	}
	defer face.Close()

	label := CounterText(index, total)
	tw := measurer(face)(label)
	m := face.Metrics()
	ascent, descent := fixedToFloat(m.Ascent), fixedToFloat(m.Descent)

	h := ascent + descent + 2*counterPadY
	w := tw + 2*counterPadX
	x := (Width - w) / 2

	dc.SetColor(generator.WithAlpha(color.RGBA{A: 255}, 0.4))
	dc.DrawRoundedRectangle(x, counterTop, w, h, h/2)
	dc.Fill()

	dc.SetFontFace(face)
	dc.SetColor(r.accent)
	dc.DrawString(label, x+counterPadX, counterTop+counterPadY+ascent)
	return nil
}

// roundedRect traces rect with the radius reduced to fit short rectangles.
func roundedRect(dc *gg.Context, rect image.Rectangle, radius float64) {
	w, h := float64(rect.Dx()), float64(rect.Dy())
	radius = min(radius, w/2, h/2)
	dc.DrawRoundedRectangle(float64(rect.Min.X), float64(rect.Min.Y), w, h, radius)
}
