// fonts.go - Font management with custom TTF support and an embedded fallback.
// Uses golang.org/x/image/font/opentype. Defaults to Go Bold when no custom
// font is configured or the configured font cannot be loaded.
package carousel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// FontManager holds one parsed font. Faces are created per call because a
// font.Face is not safe for concurrent use; the parsed font is.
type FontManager struct {
	name     string
	parsed   *opentype.Font
	fallback bool
}

// NewFontManager loads the font at customPath. If customPath is empty or
// cannot be loaded, the embedded Go Bold font is used and a warning logged.
func NewFontManager(customPath string, logger *zap.Logger) (*FontManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if customPath != "" {
		fm, err := loadFont(customPath)
		if err == nil {
			return fm, nil
		}
		logger.Warn("could not load custom font, using embedded font",
			zap.String("path", customPath), zap.Error(err))
	}

	parsed, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded font: %w", err)
	}
	return &FontManager{name: "Go Bold", parsed: parsed, fallback: true}, nil
}

func loadFont(path string) (*FontManager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &FontManager{name: name, parsed: parsed}, nil
}

// Name identifies the loaded font.
func (fm *FontManager) Name() string { return fm.name }

// Fallback reports whether the embedded font is in use.
func (fm *FontManager) Fallback() bool { return fm.fallback }

// Face returns a new font.Face at the given pixel size (72 DPI).
func (fm *FontManager) Face(size float64) (font.Face, error) {
	face, err := opentype.NewFace(fm.parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// Missing returns the distinct non-space runes of s the font has no glyph for.
func (fm *FontManager) Missing(s string) []rune {
	var buf sfnt.Buffer
	seen := make(map[rune]bool)
	var missing []rune
	for _, r := range s {
		if seen[r] || r == ' ' || r == '\n' || r == '\t' || r == '*' {
			continue
		}
		seen[r] = true
		idx, err := fm.parsed.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			missing = append(missing, r)
		}
	}
	return missing
}

// HebrewAlphabet holds every Hebrew letter, final forms included.
const HebrewAlphabet = "אבגדהוזחטיכךלמםנןסעפףצץקרשת"

// Require returns an error wrapping ErrMissingGlyphs if any rune of s has no
// glyph in the font.
func (fm *FontManager) Require(s string) error {
	if missing := fm.Missing(s); len(missing) > 0 {
		return fmt.Errorf("%w: %s has no glyph for %q", ErrMissingGlyphs, fm.name, string(missing))
	}
	return nil
}

// measurer returns the advance width of s in pixels for face.
func measurer(face font.Face) func(string) float64 {
	return func(s string) float64 {
		return fixedToFloat(font.MeasureString(face, s))
	}
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// FontSet resolves font families to managers, loading each file at most once
// per process.
type FontSet struct {
	dir    string
	def    *FontManager
	logger *zap.Logger

	mu       sync.Mutex
	byFamily map[string]*FontManager
}

// NewFontSet loads the default font from defaultPath and looks families up
// in dir.
func NewFontSet(defaultPath, dir string, logger *zap.Logger) (*FontSet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	def, err := NewFontManager(defaultPath, logger)
	if err != nil {
		return nil, err
	}
	return &FontSet{
		dir:      dir,
		def:      def,
		logger:   logger,
		byFamily: make(map[string]*FontManager),
	}, nil
}

// Default returns the default font.
func (s *FontSet) Default() *FontManager { return s.def }

// Get returns the font for family. Files are searched in the font directory
// as <family>-Bold.ttf, <family>.ttf, then the .otf variants. An empty or
// unknown family returns the default font; the latter with a warning.
func (s *FontSet) Get(family string) (*FontManager, string) {
	family = strings.TrimSpace(family)
	if family == "" {
		return s.def, ""
	}
	if s.dir == "" || strings.ContainsAny(family, `/\`) || strings.Contains(family, "..") {
		return s.def, fmt.Sprintf("font family %q unavailable, using %s", family, s.def.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if fm, ok := s.byFamily[family]; ok {
		return fm, ""
	}

	for _, name := range []string{family + "-Bold.ttf", family + ".ttf", family + "-Bold.otf", family + ".otf"} {
		fm, err := loadFont(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		s.byFamily[family] = fm
		s.logger.Info("loaded font family", zap.String("family", family), zap.String("file", name))
		return fm, ""
	}
	return s.def, fmt.Sprintf("font family %q not found, using %s", family, s.def.Name())
}
