package server

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/taiye-kotiku/carmi-carousel/internal/assets"
	"github.com/taiye-kotiku/carmi-carousel/internal/config"
	"github.com/taiye-kotiku/carmi-carousel/internal/metrics"
	"github.com/taiye-kotiku/carmi-carousel/pkg/carousel"
	"github.com/taiye-kotiku/carmi-carousel/pkg/template"
)

func testPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()

	fsys := fstest.MapFS{"T_02.jpg": {Data: testPNG(t, 54, 68, color.Gray{200})}}
	reg, err := template.NewRegistry(template.WithFS(fsys))
	if err != nil {
		t.Fatal(err)
	}
	fonts, err := carousel.NewFontSet("", "", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)
	cfg := &config.Config{
		Port:             "0",
		MaxSlides:        5,
		RenderWorkers:    2,
		MaxUploadBytes:   1 << 20,
		LogoFetchTimeout: time.Second,
		ShutdownTimeout:  time.Second,
	}
	store := assets.NewStore(10, cfg.MaxUploadBytes)

	s := New(Options{
		Config:   cfg,
		Engine:   carousel.NewEngine(reg, fonts, carousel.WithObserver(m), carousel.WithWorkers(cfg.RenderWorkers)),
		Registry: reg,
		Store:    store,
		Resolver: assets.NewResolver(store, cfg.LogoFetchTimeout, cfg.MaxUploadBytes, nil),
		Metrics:  m,
		Gatherer: promReg,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, s
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func uploadLogo(t *testing.T, baseURL string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "logo.png")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()

	resp, err := http.Post(baseURL+"/api/upload/logo", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthAndTemplates(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/templates?category=office")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got struct {
		Templates []template.Descriptor `json:"templates"`
		Count     int                   `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Count != 2 || len(got.Templates) != 2 || got.Templates[0].Category != template.CategoryOffice {
		t.Errorf("office templates = %+v", got)
	}
}

func TestCarouselJSON(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/carousel", map[string]any{
		"template_id": "T_02",
		"slides":      []string{"Hello *world*", "Second slide"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var got carouselResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Template.ID != "T_02" || len(got.Slides) != 2 {
		t.Fatalf("response = template %q, %d slides", got.Template.ID, len(got.Slides))
	}
	data, err := base64.StdEncoding.DecodeString(got.Slides[1])
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != carousel.Width || cfg.Height != carousel.Height {
		t.Errorf("slide size = %dx%d", cfg.Width, cfg.Height)
	}
}

func TestCarouselErrors(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name   string
		query  string
		body   map[string]any
		status int
	}{
		{"unknown template", "", map[string]any{"template_id": "does-not-exist", "slides": []string{"a"}}, http.StatusNotFound},
		{"no slides", "", map[string]any{"template_id": "T_02", "slides": []string{}}, http.StatusBadRequest},
		{"too many slides", "", map[string]any{"template_id": "T_02", "slides": make([]string, 6)}, http.StatusBadRequest},
		{"bad logo position", "", map[string]any{"template_id": "T_02", "slides": []string{"a"}, "logo_position": "middle"}, http.StatusBadRequest},
		{"unknown format", "?format=gif", map[string]any{"template_id": "T_02", "slides": []string{"a"}}, http.StatusBadRequest},
		{"avi seconds too long", "?format=avi&seconds=5000", map[string]any{"template_id": "T_02", "slides": []string{"a"}}, http.StatusBadRequest},
		{"avi seconds not a number", "?format=avi&seconds=abc", map[string]any{"template_id": "T_02", "slides": []string{"a"}}, http.StatusBadRequest},
		{"headline size too large", "", map[string]any{"template_id": "T_02", "slides": []string{"a"}, "headline_font_size": 1000000000}, http.StatusBadRequest},
		{"blur too large", "", map[string]any{"template_id": "T_02", "slides": []string{"a"}, "blur": 2000}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/carousel"+tt.query, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var e map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e["error"] == "" {
				t.Errorf("error body = %v, %v", e, err)
			}
		})
	}

	resp, err := http.Post(ts.URL+"/api/carousel", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed JSON status = %d", resp.StatusCode)
	}
}

func TestCarouselZip(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/carousel?format=zip", map[string]any{
		"template_id": "T_02",
		"slides":      []string{"one", "two", "three"},
	})
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/zip" {
		t.Fatalf("status = %d, type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if len(zr.File) != 3 || zr.File[0].Name != "slide_01.png" || zr.File[2].Name != "slide_03.png" {
		t.Errorf("zip entries = %d", len(zr.File))
	}
}

func TestUploadedLogoLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	logo := testPNG(t, 32, 32, color.NRGBA{255, 0, 0, 255})

	resp := uploadLogo(t, ts.URL, logo)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var info assets.Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Mime != "image/png" || info.Size != len(logo) {
		t.Errorf("info = %+v", info)
	}

	render := postJSON(t, ts.URL+"/api/carousel", map[string]any{
		"template_id": "T_02",
		"slides":      []string{"logo"},
		"logo_id":     info.ID,
	})
	var got carouselResponse
	json.NewDecoder(render.Body).Decode(&got)
	if render.StatusCode != http.StatusOK {
		t.Fatalf("render status = %d", render.StatusCode)
	}
	for _, w := range got.Warnings {
		if strings.Contains(w, "logo") {
			t.Errorf("unexpected logo warning %q", w)
		}
	}

	get, err := http.Get(ts.URL + info.URL)
	if err != nil {
		t.Fatal(err)
	}
	get.Body.Close()
	if get.StatusCode != http.StatusOK || get.Header.Get("Content-Type") != "image/png" {
		t.Errorf("get asset = %d %q", get.StatusCode, get.Header.Get("Content-Type"))
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+info.URL, nil)
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	del.Body.Close()
	if del.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d", del.StatusCode)
	}

	get, err = http.Get(ts.URL + info.URL)
	if err != nil {
		t.Fatal(err)
	}
	get.Body.Close()
	if get.StatusCode != http.StatusNotFound {
		t.Errorf("deleted asset status = %d", get.StatusCode)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := uploadLogo(t, ts.URL, []byte("just some text"))
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	postJSON(t, ts.URL+"/api/carousel", map[string]any{"template_id": "does-not-exist", "slides": []string{"a"}})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), `carousel_requests_total{status="template_not_found"} 1`) {
		t.Errorf("metrics missing not-found counter:\n%s", buf.String())
	}
}
