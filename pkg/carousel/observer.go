// observer.go - Hooks for instrumenting carousel generation.
package carousel

import "time"

// Carousel outcomes passed to Observer.CarouselFinished.
const (
	StatusOK       = "ok"
	StatusNotFound = "template_not_found"
	StatusInvalid  = "invalid"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

// Degraded asset kinds passed to Observer.AssetDegraded.
const (
	AssetBackground = "background"
	AssetLogo       = "logo"
	AssetFont       = "font"
)

// Observer receives engine events. Implementations must be safe for
// concurrent use.
type Observer interface {
	SlideRendered(d time.Duration)
	AssetDegraded(kind string)
	CarouselFinished(status string, slides int, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) SlideRendered(time.Duration)                 {}
func (nopObserver) AssetDegraded(string)                        {}
func (nopObserver) CarouselFinished(string, int, time.Duration) {}
