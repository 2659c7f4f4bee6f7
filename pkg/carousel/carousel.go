// Package carousel renders carousels: ordered sets of 1080×1350 PNG slides
// sharing one template, logo and colour scheme.
package carousel

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/taiye-kotiku/carmi-carousel/pkg/generator"
	"github.com/taiye-kotiku/carmi-carousel/pkg/template"
)

// Request describes one carousel. Asset fields hold raw encoded images.
type Request struct {
	Slides     []string
	TemplateID string

	// CustomBackground replaces the template with the "custom" template
	// drawn over this image.
	CustomBackground []byte

	Logo         []byte
	LogoPosition template.LogoPosition
	LogoSize     int

	AccentColor string
	FontColor   string
	FontFamily  string

	HeadlineSize float64
	BodySize     float64

	Panorama bool
	Blur     float64
}

// Result is a rendered carousel. Images[i] is the PNG of Slides[i].
type Result struct {
	Images   [][]byte
	Template template.Descriptor
	Warnings []string
}

// Engine generates carousels. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	registry *template.Registry
	fonts    *FontSet
	logger   *zap.Logger
	observer Observer
	workers  int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithObserver sets the instrumentation hooks.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// WithWorkers renders up to n slides of one carousel in parallel.
// Output order never depends on n.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) { e.workers = n }
}

// NewEngine creates an engine over a template registry and font set.
func NewEngine(registry *template.Registry, fonts *FontSet, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: registry,
		fonts:    fonts,
		logger:   zap.NewNop(),
		observer: nopObserver{},
		workers:  1,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("carousel")
	return e
}

// Generate renders every slide of req, in order. The template, background,
// logo and font are loaded once. An asset that fails to load degrades the
// output (gradient background, no logo, embedded font) and is reported in
// Result.Warnings. A failure on any slide discards the whole carousel and
// returns an error matching ErrRenderFailure.
func (e *Engine) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	n := len(req.Slides)

	res, err := e.generate(ctx, req)

	status := StatusOK
	switch {
	case err == nil:
	case errors.Is(err, template.ErrNotFound):
		status = StatusNotFound
	case errors.Is(err, template.ErrInvalidSpec):
		status = StatusInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = StatusCanceled
	default:
		status = StatusFailed
	}
	e.observer.CarouselFinished(status, n, time.Since(start))

	if err != nil {
		e.logger.Warn("carousel failed",
			zap.String("template", req.TemplateID),
			zap.Int("slides", n),
			zap.String("status", status),
			zap.Error(err))
		return nil, err
	}

	e.logger.Info("carousel rendered",
		zap.String("template", res.Template.ID),
		zap.Int("slides", n),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (e *Engine) generate(ctx context.Context, req Request) (*Result, error) {
	if len(req.Slides) == 0 {
		return nil, ErrNoSlides
	}

	desc, bgData, err := e.resolveTemplate(req)
	if err != nil {
		return nil, err
	}

	res := &Result{Template: desc}
	warn := func(kind, msg string, fields ...zap.Field) {
		res.Warnings = append(res.Warnings, msg)
		if kind != "" {
			e.observer.AssetDegraded(kind)
		}
		e.logger.Warn(msg, append(fields, zap.String("template", desc.ID))...)
	}

	style, styleWarnings := template.MergeStyle(desc, req.AccentColor, req.FontColor)
	for _, w := range styleWarnings {
		warn("", w)
	}

	fm, fontWarning := e.fonts.Get(req.FontFamily)
	if fontWarning != "" {
		warn(AssetFont, fontWarning)
	}
	if missing := fm.Missing(strings.Join(req.Slides, "")); len(missing) > 0 {
		warn("", fmt.Sprintf("font %s has no glyphs for %d characters", fm.Name(), len(missing)),
			zap.String("sample", string(missing[:min(len(missing), 8)])))
	}

	opts := RenderOptions{
		Template:     desc,
		Style:        style,
		LogoPosition: req.LogoPosition,
		LogoSize:     ClampLogoSize(req.LogoSize),
		HeadlineSize: req.HeadlineSize,
		BodySize:     req.BodySize,
		Panorama:     req.Panorama,
	}

	if bgData == nil {
		bg, err := e.registry.Background(desc)
		if err != nil {
			warn(AssetBackground, "background unavailable, using gradient", zap.Error(err))
		}
		bgData = bg
	}
	if bgData != nil {
		if img, err := decodeImage(bgData); err != nil {
			warn(AssetBackground, "background could not be decoded, using gradient", zap.Error(err))
		} else {
			opts.Background = PrepareBackground(img, len(req.Slides), req.Panorama, req.Blur)
		}
	}

	if len(req.Logo) > 0 {
		if img, err := decodeImage(req.Logo); err != nil {
			warn(AssetLogo, "logo could not be decoded, omitting it", zap.Error(err))
		} else {
			opts.Logo = PrepareLogo(img, opts.LogoSize)
		}
	}

	renderer := NewRenderer(fm, opts)
	images, err := e.renderAll(ctx, renderer, req.Slides)
	if err != nil {
		return nil, err
	}
	res.Images = images
	return res, nil
}

// resolveTemplate picks the descriptor and, for a custom background, the
// background bytes.
func (e *Engine) resolveTemplate(req Request) (template.Descriptor, []byte, error) {
	if len(req.CustomBackground) > 0 {
		return template.Custom(req.FontColor, req.AccentColor), req.CustomBackground, nil
	}
	desc, err := e.registry.Resolve(req.TemplateID)
	if err != nil {
		return template.Descriptor{}, nil, err
	}
	return desc, nil, nil
}

// renderAll renders and encodes every slide. Slide i always lands at index i.
func (e *Engine) renderAll(ctx context.Context, r *Renderer, slides []string) ([][]byte, error) {
	images := make([][]byte, len(slides))

	if e.workers <= 1 {
		for i, s := range slides {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			data, err := e.renderOne(r, s, i, len(slides))
			if err != nil {
				return nil, err
			}
			images[i] = data
		}
		return images, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, s := range slides {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := e.renderOne(r, s, i, len(slides))
			if err != nil {
				return err
			}
			images[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

// renderOne draws and encodes a single slide, turning panics from the
// drawing stack into a RenderError.
func (e *Engine) renderOne(r *Renderer, raw string, index, total int) (data []byte, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			data, err = nil, &RenderError{Slide: index, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	var img *image.RGBA
	img, err = r.RenderSlide(raw, index, total)
	if err != nil {
		return nil, &RenderError{Slide: index, Err: err}
	}
	data, err = generator.EncodePNG(img)
	if err != nil {
		return nil, &RenderError{Slide: index, Err: err}
	}

	e.observer.SlideRendered(time.Since(start))
	return data, nil
}
