// errors.go - Errors returned by the carousel engine.
package carousel

import (
	"errors"
	"fmt"

	"github.com/taiye-kotiku/carmi-carousel/pkg/template"
)

var (
	// ErrNoSlides is returned for a request without slides.
	ErrNoSlides = fmt.Errorf("%w: no slides", template.ErrInvalidSpec)

	// ErrMissingGlyphs is returned when a font cannot draw required text.
	ErrMissingGlyphs = errors.New("font is missing glyphs")

	// ErrRenderFailure matches every *RenderError.
	ErrRenderFailure = errors.New("render failure")
)

// RenderError reports the slide that could not be drawn or encoded.
// Whenever it is returned the whole carousel is discarded.
type RenderError struct {
	Slide int // 0-based
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render slide %d: %v", e.Slide+1, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRenderFailure) true for any RenderError.
func (e *RenderError) Is(target error) bool { return target == ErrRenderFailure }
