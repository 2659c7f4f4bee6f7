package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/taiye-kotiku/carmi-carousel/pkg/carousel"
)

func TestRenderMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SlideRendered(20 * time.Millisecond)
	m.SlideRendered(30 * time.Millisecond)
	m.AssetDegraded(carousel.AssetLogo)
	m.CarouselFinished(carousel.StatusOK, 5, time.Second)
	m.CarouselFinished(carousel.StatusNotFound, 3, time.Millisecond)
	m.SetAssets(2)

	if got := testutil.ToFloat64(m.slides); got != 5 {
		t.Errorf("slides = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.carousels.WithLabelValues(carousel.StatusNotFound)); got != 1 {
		t.Errorf("not found carousels = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.degraded.WithLabelValues(carousel.AssetLogo)); got != 1 {
		t.Errorf("degraded logos = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.assets); got != 2 {
		t.Errorf("assets = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(m.slideDuration); n != 1 {
		t.Errorf("slide histogram series = %d", n)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *RenderMetrics
	m.SlideRendered(time.Second)
	m.AssetDegraded(carousel.AssetFont)
	m.CarouselFinished(carousel.StatusFailed, 1, time.Second)
	m.SetAssets(1)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.CarouselFinished(carousel.StatusOK, 1, time.Millisecond)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `carousel_requests_total{status="ok"} 1`) {
		t.Errorf("metrics output missing counter:\n%s", w.Body.String())
	}
}
