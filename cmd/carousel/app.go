// app.go - Wiring shared by the CLI commands.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/taiye-kotiku/carmi-carousel/internal/config"
	"github.com/taiye-kotiku/carmi-carousel/internal/logging"
	"github.com/taiye-kotiku/carmi-carousel/pkg/carousel"
	"github.com/taiye-kotiku/carmi-carousel/pkg/template"
)

type app struct {
	registry *template.Registry
	engine   *carousel.Engine
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func newRegistry(cfg *config.Config, logger *zap.Logger) (*template.Registry, error) {
	opts := []template.Option{template.WithLogger(logger.Named("templates"))}
	if cfg.TemplateDir != "" {
		if _, err := os.Stat(cfg.TemplateDir); errors.Is(err, fs.ErrNotExist) {
			logger.Warn("template directory missing, using built-in templates without backgrounds",
				zap.String("dir", cfg.TemplateDir))
		} else {
			opts = append(opts, template.WithFS(os.DirFS(cfg.TemplateDir)))
		}
	}
	reg, err := template.NewRegistry(opts...)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	return reg, nil
}

// newApp builds the registry and engine. observer may be nil. With
// requireHebrew set, a default font without Hebrew letters is an error
// instead of a warning.
func newApp(cfg *config.Config, logger *zap.Logger, observer carousel.Observer, requireHebrew bool) (*app, error) {
	reg, err := newRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}

	fonts, err := carousel.NewFontSet(cfg.FontPath, cfg.FontDir, logger.Named("fonts"))
	if err != nil {
		return nil, err
	}
	if err := fonts.Default().Require(carousel.HebrewAlphabet); err != nil {
		if requireHebrew {
			return nil, fmt.Errorf("default font: %w (set FONT_PATH or --font to a Hebrew TTF)", err)
		}
		logger.Warn("default font cannot draw Hebrew, slides will show empty boxes",
			zap.String("font", fonts.Default().Name()),
			zap.Bool("embedded", fonts.Default().Fallback()),
			zap.Error(err))
	}

	opts := []carousel.EngineOption{
		carousel.WithLogger(logger),
		carousel.WithWorkers(cfg.RenderWorkers),
	}
	if observer != nil {
		opts = append(opts, carousel.WithObserver(observer))
	}
	return &app{
		registry: reg,
		engine:   carousel.NewEngine(reg, fonts, opts...),
	}, nil
}
