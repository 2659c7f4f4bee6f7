// Package generator encodes rendered slides for delivery.
//
// Slides arrive as PNG buffers; they are written as individual PNG files,
// bundled into a ZIP archive, or decoded and containerized as an MJPEG AVI
// slideshow.
package generator

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Config holds parameters for slideshow output.
type Config struct {
	SecondsPerSlide int // AVI only (default: 3)
	FPS             int // AVI only (default: 2)
	Quality         int // JPEG quality, AVI only (default: 90)
}

// Upper bounds for Config; larger values are clamped.
const (
	MaxSecondsPerSlide = 30
	MaxFPS             = 30
)

func (c Config) withDefaults() Config {
	if c.SecondsPerSlide <= 0 {
		c.SecondsPerSlide = 3
	}
	c.SecondsPerSlide = min(c.SecondsPerSlide, MaxSecondsPerSlide)
	if c.FPS <= 0 {
		c.FPS = 2
	}
	c.FPS = min(c.FPS, MaxFPS)
	if c.Quality <= 0 || c.Quality > 100 {
		c.Quality = 90
	}
	return c
}

// Generate writes slides to output. The format is inferred from the path:
//   - ".zip" → ZIP archive of PNG files
//   - ".avi" → MJPEG AVI slideshow
//   - anything else is treated as a directory receiving one PNG per slide
//
// It returns the paths written.
func Generate(output string, slides [][]byte, cfg Config) ([]string, error) {
	switch ext := strings.ToLower(filepath.Ext(output)); ext {
	case ".zip", ".avi":
		f, err := os.Create(output)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", output, err)
		}
		defer f.Close()
		if err := GenerateToWriter(f, ext, slides, cfg); err != nil {
			return nil, err
		}
		return []string{output}, f.Sync()
	case ".png":
		if len(slides) != 1 {
			return nil, fmt.Errorf("%d slides cannot be written to a single PNG: use a directory, .zip or .avi", len(slides))
		}
		return []string{output}, writeFile(output, slides[0])
	default:
		return WriteSlides(output, slides)
	}
}

// GenerateToWriter writes slides to w. The format is specified by ext
// (".zip" or ".avi").
func GenerateToWriter(w io.Writer, ext string, slides [][]byte, cfg Config) error {
	switch strings.ToLower(ext) {
	case ".zip":
		return WriteZip(w, slides)
	case ".avi":
		frames, err := decodeAll(slides)
		if err != nil {
			return err
		}
		return writeAVI(w, frames, cfg)
	default:
		return fmt.Errorf("unsupported format %q: use .zip or .avi", ext)
	}
}

// WriteSlides writes one PNG per slide into dir, creating it if needed.
func WriteSlides(dir string, slides [][]byte) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	paths := make([]string, 0, len(slides))
	for i, data := range slides {
		p := filepath.Join(dir, SlideName(i, len(slides)))
		if err := writeFile(p, data); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func decodeAll(slides [][]byte) ([]image.Image, error) {
	frames := make([]image.Image, len(slides))
	for i, data := range slides {
		img, err := DecodePNG(data)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
		frames[i] = img
	}
	return frames, nil
}
