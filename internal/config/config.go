// config.go - Process configuration from the environment and command-line flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultPort             = "8080"
	DefaultTemplateDir      = "templates"
	DefaultFontDir          = "fonts"
	DefaultMaxSlides        = 20
	DefaultRenderWorkers    = 4
	DefaultMaxUploadBytes   = 10 << 20
	DefaultLogoFetchTimeout = 10 * time.Second
	DefaultShutdownTimeout  = 15 * time.Second
)

// Config holds every setting of the carousel service and CLI.
type Config struct {
	Port        string
	TemplateDir string // background images and templates.yaml
	FontPath    string // default font; empty uses the embedded font
	FontDir     string // font families selectable per request

	LogLevel  string
	LogFormat string // "json" or "console"

	MaxSlides      int
	RenderWorkers  int // slides rendered in parallel per carousel; 1 is sequential
	MaxUploadBytes int64

	LogoFetchTimeout time.Duration
	ShutdownTimeout  time.Duration
}

// Load reads the configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:             getEnv("PORT", DefaultPort),
		TemplateDir:      getEnv("TEMPLATE_DIR", DefaultTemplateDir),
		FontPath:         getEnv("FONT_PATH", ""),
		FontDir:          getEnv("FONT_DIR", DefaultFontDir),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		MaxSlides:        getEnvInt("MAX_SLIDES", DefaultMaxSlides),
		RenderWorkers:    getEnvInt("RENDER_WORKERS", DefaultRenderWorkers),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
		LogoFetchTimeout: getEnvDuration("LOGO_FETCH_TIMEOUT", DefaultLogoFetchTimeout),
		ShutdownTimeout:  getEnvDuration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
	}
}

// BindFlags registers flags on fs whose defaults are the current values, so
// flags given on the command line override the environment.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.TemplateDir, "templates", "t", c.TemplateDir, "Template directory (backgrounds and templates.yaml)")
	fs.StringVar(&c.FontPath, "font", c.FontPath, "Default TTF/OTF font (must cover Hebrew)")
	fs.StringVar(&c.FontDir, "font-dir", c.FontDir, "Directory of selectable font families")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format: json or console")
	fs.IntVar(&c.MaxSlides, "max-slides", c.MaxSlides, "Maximum slides per carousel")
	fs.IntVarP(&c.RenderWorkers, "workers", "j", c.RenderWorkers, "Slides rendered in parallel")
}

// BindServerFlags registers the flags that only the HTTP server uses.
func (c *Config) BindServerFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Port, "port", "p", c.Port, "HTTP port")
	fs.Int64Var(&c.MaxUploadBytes, "max-upload", c.MaxUploadBytes, "Maximum request body in bytes")
	fs.DurationVar(&c.LogoFetchTimeout, "logo-timeout", c.LogoFetchTimeout, "Timeout for fetching logo_url")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "Graceful shutdown timeout")
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Validate checks the settings the process cannot run without.
func (c *Config) Validate() error {
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("configuration error: PORT %q is not a valid port", c.Port)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("configuration error: LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("configuration error: LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	if c.MaxSlides < 1 {
		return fmt.Errorf("configuration error: MAX_SLIDES must be positive")
	}
	if c.RenderWorkers < 1 {
		return fmt.Errorf("configuration error: RENDER_WORKERS must be positive")
	}
	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("configuration error: MAX_UPLOAD_BYTES must be positive")
	}
	if c.LogoFetchTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("configuration error: timeouts must be positive")
	}
	if c.FontPath != "" {
		if _, err := os.Stat(c.FontPath); err != nil {
			return fmt.Errorf("configuration error: FONT_PATH: %w", err)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

// getEnvDuration accepts Go durations ("30s") or plain seconds ("30").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
