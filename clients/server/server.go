// Package server exposes carousel rendering, template listing and logo
// uploads over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/taiye-kotiku/carmi-carousel/internal/assets"
	"github.com/taiye-kotiku/carmi-carousel/internal/config"
	"github.com/taiye-kotiku/carmi-carousel/internal/logging"
	"github.com/taiye-kotiku/carmi-carousel/internal/metrics"
	"github.com/taiye-kotiku/carmi-carousel/pkg/carousel"
	"github.com/taiye-kotiku/carmi-carousel/pkg/generator"
	"github.com/taiye-kotiku/carmi-carousel/pkg/template"
)

// Options holds the collaborators of a Server.
type Options struct {
	Config   *config.Config
	Engine   *carousel.Engine
	Registry *template.Registry
	Store    *assets.Store
	Resolver *assets.Resolver
	Metrics  *metrics.RenderMetrics // may be nil
	Gatherer prometheus.Gatherer    // serves /metrics when set
	Logger   *zap.Logger
}

// Server handles the HTTP API.
type Server struct {
	cfg      *config.Config
	engine   *carousel.Engine
	registry *template.Registry
	store    *assets.Store
	resolver *assets.Resolver
	metrics  *metrics.RenderMetrics
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// New returns a Server. Config, Engine, Registry, Store and Resolver are
// required.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      opts.Config,
		engine:   opts.Engine,
		registry: opts.Registry,
		store:    opts.Store,
		resolver: opts.Resolver,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		logger:   logger.Named("http"),
	}
}

// Handler returns the routed handler with the common middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(s.gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/carousel", s.handleCarousel)
		r.Get("/templates", s.handleTemplates)
		r.Post("/upload/logo", s.handleUploadLogo)

		r.Route("/assets", func(r chi.Router) {
			r.Get("/", s.handleListAssets)
			r.Get("/{id}", s.handleGetAsset)
			r.Delete("/{id}", s.handleDeleteAsset)
		})
	})

	return r
}

// ListenAndServe serves h on cfg.Addr() until ctx is done, then shuts down
// gracefully within cfg.ShutdownTimeout.
func ListenAndServe(ctx context.Context, cfg *config.Config, h http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			if err := srv.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}
		logger.Info("server stopped")
	}
	return nil
}

// ── Carousel ──

type carouselResponse struct {
	Template template.Descriptor `json:"template"`
	Slides   []string            `json:"slides"` // base64 PNG
	Warnings []string            `json:"warnings"`
}

func (s *Server) handleCarousel(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "json" && format != "zip" && format != "avi" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q: use json, zip or avi", format))
		return
	}
	seconds, err := parseSeconds(r.URL.Query().Get("seconds"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	spec, err := template.ParseSpec(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	warnings, err := template.ValidateSpec(spec, s.cfg.MaxSlides)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, resolveWarnings, err := s.resolver.Request(r.Context(), spec)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	warnings = append(warnings, resolveWarnings...)

	res, err := s.engine.Generate(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	warnings = append(warnings, res.Warnings...)

	switch format {
	case "zip":
		var buf bytes.Buffer
		if err := generator.WriteZip(&buf, res.Images); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAttachment(w, "application/zip", "carousel.zip", len(warnings), buf.Bytes())
	case "avi":
		var buf bytes.Buffer
		if err := generator.GenerateToWriter(&buf, ".avi", res.Images, generator.Config{SecondsPerSlide: seconds}); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, generator.ErrVideoTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			writeError(w, status, err.Error())
			return
		}
		writeAttachment(w, "video/avi", "carousel.avi", len(warnings), buf.Bytes())
	default:
		resp := carouselResponse{
			Template: res.Template,
			Slides:   make([]string, len(res.Images)),
			Warnings: warnings,
		}
		if resp.Warnings == nil {
			resp.Warnings = []string{}
		}
		for i, img := range res.Images {
			resp.Slides[i] = base64.StdEncoding.EncodeToString(img)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// parseSeconds reads the per-slide duration of an AVI. Empty means the
// generator default.
func parseSeconds(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > generator.MaxSecondsPerSlide {
		return 0, fmt.Errorf("seconds must be between 1 and %d, got %q", generator.MaxSecondsPerSlide, v)
	}
	return n, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, template.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, template.ErrInvalidSpec):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ── Templates ──

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	ds := s.registry.ListByCategory(template.Category(r.URL.Query().Get("category")))
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": ds,
		"count":     len(ds),
	})
}

// ── Upload ──

func (s *Server) handleUploadLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)

	var (
		name string
		data []byte
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
			return
		}
		file, header, ferr := r.FormFile("file")
		if ferr != nil {
			writeError(w, http.StatusBadRequest, "no file")
			return
		}
		defer file.Close()
		name = header.Filename
		data, err = io.ReadAll(file)
	} else {
		name = r.URL.Query().Get("name")
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}

	a, err := s.store.Add(name, data)
	switch {
	case errors.Is(err, assets.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, assets.ErrNotImage):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.SetAssets(s.store.Len())
	s.logger.Info("logo uploaded", zap.String("id", a.ID), zap.Int("bytes", len(data)))

	writeJSON(w, http.StatusCreated, a.Info())
}

// ── Asset serving ──

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	w.Header().Set("Content-Type", a.Mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.Write(a.Data)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.Remove(id) {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	s.metrics.SetAssets(s.store.Len())
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"templates": len(s.registry.List()),
	})
}

// ── Helpers ──

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeAttachment(w http.ResponseWriter, mime, filename string, warnings int, data []byte) {
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Carousel-Warnings", strconv.Itoa(warnings))
	w.Write(data)
}
