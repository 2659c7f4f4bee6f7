// carousel - Hebrew carousel slide renderer.
//
// Usage:
//
//	carousel render -i <request> -o <dir|file.zip|file.avi|file.png> [options]
//	carousel video -i <request> -o <file.avi> [--seconds 3]
//	carousel templates [--category <name>]
//	carousel serve [--port 8080]
//	carousel init
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/taiye-kotiku/carmi-carousel/clients/server"
	"github.com/taiye-kotiku/carmi-carousel/internal/assets"
	"github.com/taiye-kotiku/carmi-carousel/internal/config"
	"github.com/taiye-kotiku/carmi-carousel/internal/metrics"
	"github.com/taiye-kotiku/carmi-carousel/pkg/generator"
	"github.com/taiye-kotiku/carmi-carousel/pkg/template"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(ctx, os.Args[2:], false)
	case "video":
		err = runRender(ctx, os.Args[2:], true)
	case "templates", "ls":
		err = runTemplates(os.Args[2:])
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "init":
		err = runInit(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

func runRender(ctx context.Context, args []string, video bool) error {
	name := "render"
	if video {
		name = "video"
	}
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	cfg := config.Load()
	cfg.BindFlags(fs)

	var (
		input   string
		output  string
		pack    string
		seconds int
		fps     int
		quality int
	)
	fs.StringVarP(&input, "input", "i", "", "Request file (.json or .yaml)")
	fs.StringVarP(&output, "output", "o", "", "Output directory, .zip, .avi, or .png for one slide")
	fs.StringVar(&pack, "pack", "", "Template pack (.zip) used instead of the template directory")
	fs.IntVar(&seconds, "seconds", 3, "Seconds per slide (AVI only)")
	fs.IntVar(&fps, "fps", 2, "Frames per second (AVI only)")
	fs.IntVar(&quality, "quality", 90, "JPEG quality 1-100 (AVI only)")
	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}

	if input == "" {
		return fmt.Errorf("request file is required (-i)")
	}
	if output == "" {
		if video {
			output = "carousel.avi"
		} else {
			output = "slides"
		}
	}
	if video && strings.ToLower(filepath.Ext(output)) != ".avi" {
		return fmt.Errorf("video output must end in .avi, got %s", output)
	}

	if pack != "" {
		dir, cleanup, err := template.LoadPack(pack)
		if err != nil {
			return fmt.Errorf("load pack: %w", err)
		}
		defer cleanup()
		cfg.TemplateDir = dir
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	spec, err := template.LoadSpec(input)
	if err != nil {
		return err
	}
	warnings, err := template.ValidateSpec(spec, cfg.MaxSlides)
	if err != nil {
		return err
	}

	app, err := newApp(cfg, logger, nil, false)
	if err != nil {
		return err
	}
	resolver := assets.NewResolver(nil, cfg.LogoFetchTimeout, cfg.MaxUploadBytes, logger)
	req, resolveWarnings, err := resolver.Request(ctx, spec)
	if err != nil {
		return err
	}
	warnings = append(warnings, resolveWarnings...)

	fmt.Printf("Rendering %d slides with template %s\n", len(spec.Slides), describeTemplate(spec))
	res, err := app.engine.Generate(ctx, req)
	if err != nil {
		return err
	}
	for _, w := range append(warnings, res.Warnings...) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	written, err := generator.Generate(output, res.Images, generator.Config{
		SecondsPerSlide: seconds,
		FPS:             fps,
		Quality:         quality,
	})
	if err != nil {
		return err
	}
	if len(written) == 1 {
		fmt.Printf("Done: %s\n", written[0])
	} else {
		fmt.Printf("Done: %d slides in %s\n", len(written), output)
	}
	return nil
}

func describeTemplate(spec *template.CarouselSpec) string {
	if spec.Background != "" {
		return template.CustomID
	}
	return spec.TemplateID
}

func runTemplates(args []string) error {
	fs := pflag.NewFlagSet("templates", pflag.ExitOnError)
	cfg := config.Load()
	cfg.BindFlags(fs)
	var category string
	fs.StringVarP(&category, "category", "c", "", "Only list this category")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg, err := newRegistry(cfg, logger)
	if err != nil {
		return err
	}
	fmt.Print(template.FormatTemplates(reg.ListByCategory(template.Category(category))))
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ExitOnError)
	cfg := config.Load()
	cfg.BindFlags(fs)
	cfg.BindServerFlags(fs)
	var maxAssets int
	fs.IntVar(&maxAssets, "max-assets", 100, "Uploaded assets kept in memory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	app, err := newApp(cfg, logger, m, true)
	if err != nil {
		return err
	}
	store := assets.NewStore(maxAssets, cfg.MaxUploadBytes)

	srv := server.New(server.Options{
		Config:   cfg,
		Engine:   app.engine,
		Registry: app.registry,
		Store:    store,
		Resolver: assets.NewResolver(store, cfg.LogoFetchTimeout, cfg.MaxUploadBytes, logger),
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})
	return server.ListenAndServe(ctx, cfg, srv.Handler(), logger)
}

func runInit(args []string) error {
	fs := pflag.NewFlagSet("init", pflag.ExitOnError)
	var requestOut, manifestOut string
	fs.StringVar(&requestOut, "request", "request.json", "Output path for the sample request")
	fs.StringVar(&manifestOut, "manifest", "", "Also write a sample templates.yaml to this path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, manifest := template.GetExampleSpec()
	if err := os.WriteFile(requestOut, []byte(req), 0644); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	fmt.Printf("Created: %s\n", requestOut)

	if manifestOut != "" {
		if err := os.WriteFile(manifestOut, []byte(manifest), 0644); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
		fmt.Printf("Created: %s\n", manifestOut)
	}

	fmt.Printf("Run: carousel render -i %s -o slides/ --font /path/to/hebrew-bold.ttf\n", requestOut)
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`carousel - Hebrew carousel slide renderer

USAGE:
    carousel render -i <request> -o <output> [options]
    carousel video -i <request> -o <file.avi> [options]
    carousel templates [--category <name>]
    carousel serve [--port 8080]
    carousel init [--request request.json] [--manifest templates.yaml]

RENDER:
    -i, --input <path>       Request file (.json or .yaml, or a JSON list of slides)
    -o, --output <path>      Directory, .zip, .avi, or .png (single slide)
    --pack <path>            Template pack ZIP (backgrounds + templates.yaml)
    -t, --templates <dir>    Template directory (env TEMPLATE_DIR, default: templates)
    --font <path>            Default font, must cover Hebrew (env FONT_PATH)
    --font-dir <dir>         Font families for font_family (env FONT_DIR)
    -j, --workers <n>        Slides rendered in parallel (env RENDER_WORKERS)

VIDEO:
    --seconds <n>            Seconds per slide (default: 3)
    --fps <n>                Frames per second (default: 2)
    --quality <n>            JPEG quality (default: 90)

SERVER:
    -p, --port <port>        HTTP port (env PORT, default: 8080)
    --max-upload <bytes>     Request body limit (env MAX_UPLOAD_BYTES)
    --max-assets <n>         Uploaded logos kept in memory (default: 100)

LOGGING:
    --log-level <level>      debug, info, warn, error (env LOG_LEVEL)
    --log-format <format>    json or console (env LOG_FORMAT)

EXAMPLES:
    carousel init
    carousel render -i request.json -o slides/
    carousel render -i request.json -o carousel.zip --pack brand.zip
    carousel video -i request.json -o carousel.avi --seconds 4
    carousel templates --category nature
    carousel serve --port 9000
`)
}
