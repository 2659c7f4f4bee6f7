// metrics.go - Prometheus instruments for carousel rendering.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taiye-kotiku/carmi-carousel/pkg/carousel"
)

// RenderMetrics records engine events. It implements carousel.Observer.
type RenderMetrics struct {
	slideDuration    prometheus.Histogram
	carousels        *prometheus.CounterVec
	carouselDuration *prometheus.HistogramVec
	slides           prometheus.Counter
	degraded         *prometheus.CounterVec
	assets           prometheus.Gauge
}

var _ carousel.Observer = (*RenderMetrics)(nil)

// New creates the instruments and registers them on registerer, or on the
// default registerer when nil.
func New(registerer prometheus.Registerer) *RenderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	slideDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "carousel_slide_render_seconds",
		Help:    "Time to draw and encode one slide.",
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	})

	carousels := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carousel_requests_total",
			Help: "Carousel generations by outcome.",
		},
		[]string{"status"}, // ok | template_not_found | invalid | failed | canceled
	)

	carouselDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carousel_generate_seconds",
			Help:    "Time to generate a whole carousel.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"status"},
	)

	slides := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "carousel_slides_total",
		Help: "Slides rendered successfully.",
	})

	degraded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carousel_degraded_assets_total",
			Help: "Assets that failed to load and were replaced or omitted.",
		},
		[]string{"asset"}, // background | logo | font
	)

	assets := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "carousel_uploaded_assets",
		Help: "Uploaded assets currently held in memory.",
	})

	registerer.MustRegister(slideDuration, carousels, carouselDuration, slides, degraded, assets)

	return &RenderMetrics{
		slideDuration:    slideDuration,
		carousels:        carousels,
		carouselDuration: carouselDuration,
		slides:           slides,
		degraded:         degraded,
		assets:           assets,
	}
}

func (m *RenderMetrics) SlideRendered(d time.Duration) {
	if m == nil {
		return
	}
	m.slideDuration.Observe(d.Seconds())
}

func (m *RenderMetrics) AssetDegraded(kind string) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(kind).Inc()
}

func (m *RenderMetrics) CarouselFinished(status string, slides int, d time.Duration) {
	if m == nil {
		return
	}
	m.carousels.WithLabelValues(status).Inc()
	m.carouselDuration.WithLabelValues(status).Observe(d.Seconds())
	if status == carousel.StatusOK {
		m.slides.Add(float64(slides))
	}
}

// SetAssets reports the size of the upload store.
func (m *RenderMetrics) SetAssets(n int) {
	if m == nil {
		return
	}
	m.assets.Set(float64(n))
}

// Handler serves the metrics gathered by gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
