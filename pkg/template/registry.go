// registry.go - Template lookup over the built-in table, an optional
// templates.yaml manifest, and background files discovered on disk.
package template

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"go.uber.org/zap"
)

// ErrNotFound is returned when an id matches no template.
var ErrNotFound = errors.New("template not found")

// ErrNoBackground is returned when a template's background cannot be read.
var ErrNoBackground = errors.New("background unavailable")

// ManifestName is the manifest file looked up in the template directory.
const ManifestName = "templates.yaml"

// imageExts are the background extensions tried during lookup, in order.
var imageExts = []string{".jpg", ".png", ".jpeg"}

var builtin = []Descriptor{
	{ID: "b1", Name: "בניין 1", File: "b1.jpg", TextColor: TextLight, Accent: "#F8FF00", Anchor: 400, Category: CategoryAbstract},
	{ID: "b2", Name: "בניין 2", File: "b2.jpg", TextColor: TextLight, Accent: "#F8FF00", Anchor: 400, Category: CategoryAbstract},
	{ID: "b3", Name: "בניין 3", File: "b3.jpg", TextColor: TextLight, Accent: "#F8FF00", Anchor: 400, Category: CategoryAbstract},
	{ID: "b4", Name: "בניין 4", File: "b4.jpg", TextColor: TextLight, Accent: "#F8FF00", Anchor: 400, Category: CategoryAbstract},
	{ID: "b5", Name: "בניין 5", File: "b5.jpg", TextColor: TextLight, Accent: "#F8FF00", Anchor: 400, Category: CategoryAbstract},
	{ID: "b6", Name: "בניין 6", File: "b6.jpg", TextColor: TextLight, Accent: "#F8FF00", Anchor: 400, Category: CategoryAbstract},
	{ID: "T_02", Name: "Abstract Purple", File: "T_02.jpg", TextColor: TextDark, Accent: "#2563EB", Anchor: 400, Category: CategoryGradient},
	{ID: "T_04", Name: "Smooth Gradient", File: "T_04.jpg", TextColor: TextDark, Accent: "#2563EB", Anchor: 675, Category: CategoryGradient},
	{ID: "T_06", Name: "Cyber Grid", File: "T_06.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 400, Category: CategoryDark},
	{ID: "T_07", Name: "Global Data", File: "T_07.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 400, Category: CategoryDark},
	{ID: "T_10", Name: "Hardware Close-up", File: "T_10.jpg", TextColor: TextDark, Accent: "#2563EB", Anchor: 400, Category: CategoryTech},
	{ID: "T_11", Name: "Modern Office", File: "T_11.jpg", TextColor: TextDark, Accent: "#2563EB", Anchor: 400, Category: CategoryOffice},
	{ID: "T_12", Name: "Skyscraper Lines", File: "T_12.jpg", TextColor: TextDark, Accent: "#2563EB", Anchor: 400, Category: CategoryOffice},
	{ID: "T_18", Name: "Circuit Board", File: "T_18.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 400, Category: CategoryTech},
	{ID: "T_20", Name: "Vibrant Mesh", File: "T_20.jpg", TextColor: TextDark, Accent: "#2563EB", Anchor: 400, Category: CategoryGradient},
	{ID: "T_21", Name: "Dark Landscape", File: "T_21.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 400, Category: CategoryDark},
	{ID: "T_22", Name: "Urban Night", File: "T_22.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 400, Category: CategoryDark},
	{ID: "T_24", Name: "Matrix Green", File: "T_24.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 400, Category: CategoryDark},
	{ID: "T_096", Name: "Nature Bloom", File: "T_096.jpg", TextColor: TextDark, Accent: "#2563EB", Anchor: 675, Category: CategoryNature},
	{ID: "T_097", Name: "Mountain View", File: "T_097.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 675, Category: CategoryNature},
	{ID: "T_098", Name: "Forest Path", File: "T_098.jpg", TextColor: TextDark, Accent: "#2563EB", Anchor: 675, Category: CategoryNature},
	{ID: "T_099", Name: "Sunset Field", File: "T_099.jpg", TextColor: TextDark, Accent: "#2563EB", Anchor: 675, Category: CategoryNature},
	{ID: "T_101", Name: "Lake Reflection", File: "T_101.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 675, Category: CategoryNature},
	{ID: "T_102", Name: "Cloudy Peaks", File: "T_102.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 675, Category: CategoryNature},
	{ID: "T_108", Name: "Ocean Breeze", File: "T_108.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 675, Category: CategoryNature},
	{ID: "T_109", Name: "Desert Horizon", File: "T_109.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 675, Category: CategoryNature},
	{ID: "T_114", Name: "Green Valley", File: "T_114.jpg", TextColor: TextDark, Accent: "#2563EB", Anchor: 675, Category: CategoryNature},
	{ID: "T_115", Name: "Rocky Shore", File: "T_115.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 675, Category: CategoryNature},
	{ID: "T_116", Name: "Autumn Leaves", File: "T_116.jpg", TextColor: TextDark, Accent: "#2563EB", Anchor: 675, Category: CategoryNature},
	{ID: "T_117", Name: "Wildflower Meadow", File: "T_117.jpg", TextColor: TextDark, Accent: "#2563EB", Anchor: 675, Category: CategoryNature},
	{ID: "T_118", Name: "Snowy Peaks", File: "T_118.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 675, Category: CategoryNature},
	{ID: "T_120", Name: "River Canyon", File: "T_120.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 675, Category: CategoryNature},
	{ID: "T_128", Name: "Northern Lights", File: "T_128.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 675, Category: CategoryNature},
	{ID: "G_01", Name: "Indigo Dream", File: "G_01.jpg", TextColor: TextLight, Accent: "#E0E7FF", Anchor: 675, Category: CategoryGradient},
	{ID: "G_02", Name: "Pink Blaze", File: "G_02.jpg", TextColor: TextLight, Accent: "#FFF1F2", Anchor: 675, Category: CategoryGradient},
	{ID: "G_03", Name: "Cyan Wave", File: "G_03.jpg", TextColor: TextDark, Accent: "#0369A1", Anchor: 675, Category: CategoryGradient},
	{ID: "G_04", Name: "Mint Fresh", File: "G_04.jpg", TextColor: TextDark, Accent: "#065F46", Anchor: 675, Category: CategoryGradient},
	{ID: "G_05", Name: "Warm Sunset", File: "G_05.jpg", TextColor: TextDark, Accent: "#9A3412", Anchor: 675, Category: CategoryGradient},
	{ID: "G_06", Name: "Lavender Mist", File: "G_06.jpg", TextColor: TextDark, Accent: "#6D28D9", Anchor: 675, Category: CategoryPastel},
	{ID: "G_07", Name: "Peach Purple", File: "G_07.jpg", TextColor: TextDark, Accent: "#7C3AED", Anchor: 675, Category: CategoryGradient},
	{ID: "G_08", Name: "Soft Cloud", File: "G_08.jpg", TextColor: TextDark, Accent: "#4338CA", Anchor: 675, Category: CategoryPastel},
	{ID: "G_09", Name: "Fire Glow", File: "G_09.jpg", TextColor: TextLight, Accent: "#FEF3C7", Anchor: 675, Category: CategoryGradient},
	{ID: "G_10", Name: "Neon Party", File: "G_10.jpg", TextColor: TextLight, Accent: "#F5D0FE", Anchor: 675, Category: CategoryGradient},
	{ID: "G_11", Name: "Ocean Blue", File: "G_11.jpg", TextColor: TextLight, Accent: "#BFDBFE", Anchor: 675, Category: CategoryGradient},
	{ID: "G_12", Name: "Emerald Forest", File: "G_12.jpg", TextColor: TextDark, Accent: "#064E3B", Anchor: 675, Category: CategoryGradient},
	{ID: "G_13", Name: "Berry Fusion", File: "G_13.jpg", TextColor: TextLight, Accent: "#EDE9FE", Anchor: 675, Category: CategoryGradient},
	{ID: "G_14", Name: "Midnight Sky", File: "G_14.jpg", TextColor: TextLight, Accent: "#93C5FD", Anchor: 675, Category: CategoryDark},
	{ID: "G_15", Name: "Rose Water", File: "G_15.jpg", TextColor: TextDark, Accent: "#9F1239", Anchor: 675, Category: CategoryPastel},
	{ID: "G_16", Name: "Dusty Purple", File: "G_16.jpg", TextColor: TextLight, Accent: "#C4B5FD", Anchor: 675, Category: CategoryDark},
	{ID: "G_17", Name: "Lime Garden", File: "G_17.jpg", TextColor: TextDark, Accent: "#065F46", Anchor: 675, Category: CategoryGradient},
	{ID: "G_18", Name: "Calm Sea", File: "G_18.jpg", TextColor: TextDark, Accent: "#4338CA", Anchor: 675, Category: CategoryGradient},
	{ID: "G_19", Name: "Golden Sand", File: "G_19.jpg", TextColor: TextDark, Accent: "#92400E", Anchor: 675, Category: CategoryGradient},
	{ID: "G_20", Name: "Wine Night", File: "G_20.jpg", TextColor: TextLight, Accent: "#FCA5A5", Anchor: 675, Category: CategoryDark},
	{ID: "G_21", Name: "Sky Aqua", File: "G_21.jpg", TextColor: TextDark, Accent: "#0E7490", Anchor: 675, Category: CategoryGradient},
	{ID: "G_22", Name: "Plum Velvet", File: "G_22.jpg", TextColor: TextLight, Accent: "#F0ABFC", Anchor: 675, Category: CategoryDark},
	{ID: "G_23", Name: "Spring Green", File: "G_23.jpg", TextColor: TextDark, Accent: "#166534", Anchor: 675, Category: CategoryGradient},
	{ID: "G_24", Name: "Blazing Orange", File: "G_24.jpg", TextColor: TextLight, Accent: "#FEF3C7", Anchor: 675, Category: CategoryGradient},
	{ID: "G_25", Name: "Steel Blue", File: "G_25.jpg", TextColor: TextLight, Accent: "#BFDBFE", Anchor: 675, Category: CategoryGradient},
	{ID: "G_26", Name: "Crimson Dusk", File: "G_26.jpg", TextColor: TextLight, Accent: "#FECDD3", Anchor: 675, Category: CategoryDark},
	{ID: "G_27", Name: "Tricolor Bold", File: "G_27.jpg", TextColor: TextLight, Accent: "#FDE68A", Anchor: 675, Category: CategoryGradient},
	{ID: "G_28", Name: "Electric Violet", File: "G_28.jpg", TextColor: TextLight, Accent: "#E9D5FF", Anchor: 675, Category: CategoryGradient},
	{ID: "G_29", Name: "Warm Peach", File: "G_29.jpg", TextColor: TextDark, Accent: "#C2410C", Anchor: 675, Category: CategoryPastel},
	{ID: "G_30", Name: "Baby Blue", File: "G_30.jpg", TextColor: TextDark, Accent: "#1D4ED8", Anchor: 675, Category: CategoryPastel},
	{ID: "G_31", Name: "Fresh Lime", File: "G_31.jpg", TextColor: TextDark, Accent: "#15803D", Anchor: 675, Category: CategoryPastel},
	{ID: "G_32", Name: "Cotton Candy", File: "G_32.jpg", TextColor: TextDark, Accent: "#7C3AED", Anchor: 675, Category: CategoryPastel},
	{ID: "G_33", Name: "Lemon Ice", File: "G_33.jpg", TextColor: TextDark, Accent: "#A16207", Anchor: 675, Category: CategoryPastel},
	{ID: "G_34", Name: "Frost Light", File: "G_34.jpg", TextColor: TextDark, Accent: "#1E40AF", Anchor: 675, Category: CategoryPastel},
	{ID: "G_35", Name: "Deep Ocean", File: "G_35.jpg", TextColor: TextLight, Accent: "#7DD3FC", Anchor: 675, Category: CategoryDark},
	{ID: "G_36", Name: "Sage Mist", File: "G_36.jpg", TextColor: TextDark, Accent: "#166534", Anchor: 675, Category: CategoryPastel},
	{ID: "G_37", Name: "Dark Galaxy", File: "G_37.jpg", TextColor: TextLight, Accent: "#A78BFA", Anchor: 675, Category: CategoryDark},
	{ID: "G_38", Name: "Midnight Blue", File: "G_38.jpg", TextColor: TextLight, Accent: "#60A5FA", Anchor: 675, Category: CategoryDark},
	{ID: "G_39", Name: "Charcoal Noir", File: "G_39.jpg", TextColor: TextLight, Accent: "#D1D5DB", Anchor: 675, Category: CategoryDark},
	{ID: "G_40", Name: "Slate Dusk", File: "G_40.jpg", TextColor: TextLight, Accent: "#C4B5FD", Anchor: 675, Category: CategoryDark},
	{ID: "G_41", Name: "Dark Teal", File: "G_41.jpg", TextColor: TextLight, Accent: "#5EEAD4", Anchor: 675, Category: CategoryDark},
	{ID: "G_42", Name: "Deep Crimson", File: "G_42.jpg", TextColor: TextLight, Accent: "#FCA5A5", Anchor: 675, Category: CategoryDark},
	{ID: "G_43", Name: "Pastel Dream", File: "G_43.jpg", TextColor: TextDark, Accent: "#DB2777", Anchor: 675, Category: CategoryPastel},
	{ID: "G_44", Name: "Dusty Rose", File: "G_44.jpg", TextColor: TextLight, Accent: "#F9A8D4", Anchor: 675, Category: CategoryPastel},
	{ID: "G_45", Name: "Whisper Pink", File: "G_45.jpg", TextColor: TextDark, Accent: "#9F1239", Anchor: 675, Category: CategoryPastel},
	{ID: "G_46", Name: "Cream to Red", File: "G_46.jpg", TextColor: TextDark, Accent: "#B91C1C", Anchor: 675, Category: CategoryGradient},
	{ID: "G_47", Name: "Tropical", File: "G_47.jpg", TextColor: TextDark, Accent: "#B45309", Anchor: 675, Category: CategoryGradient},}

// Builtin returns a copy of the compiled-in templates in catalogue order.
func Builtin() []Descriptor {
	out := make([]Descriptor, len(builtin))
	copy(out, builtin)
	return out
}

// Registry resolves template ids. It is immutable after NewRegistry returns
// and safe for concurrent use.
type Registry struct {
	fsys   fs.FS
	rules  []Rule
	order  []string
	byID   map[string]Descriptor
	logger *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithFS sets the template directory holding background images and the
// optional manifest.
func WithFS(fsys fs.FS) Option {
	return func(r *Registry) { r.fsys = fsys }
}

// WithRules replaces the discovery rules.
func WithRules(rules []Rule) Option {
	return func(r *Registry) { r.rules = rules }
}

// WithLogger sets the logger used for discovery messages.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry builds a registry from the built-in table, then the manifest,
// then every image file found in the template directory. Manifest entries
// replace built-ins with the same id; discovered files never replace anything.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{
		rules:  DefaultRules,
		byID:   make(map[string]Descriptor, len(builtin)),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, d := range builtin {
		r.put(d)
	}

	if r.fsys == nil {
		return r, nil
	}

	m, err := LoadManifest(r.fsys, ManifestName)
	switch {
	case err == nil:
		for _, d := range m.Templates {
			r.put(d)
		}
		r.logger.Info("loaded template manifest", zap.Int("templates", len(m.Templates)))
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	entries, err := fs.ReadDir(r.fsys, ".")
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn("template directory missing, using built-in templates only")
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read template directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}

	discovered := 0
	for _, d := range discover(names, r.rules) {
		if _, ok := r.byID[d.ID]; ok {
			continue
		}
		r.put(d)
		discovered++
	}
	if discovered > 0 {
		r.logger.Info("registered templates from directory", zap.Int("templates", discovered))
	}

	return r, nil
}

func (r *Registry) put(d Descriptor) {
	if _, ok := r.byID[d.ID]; !ok {
		r.order = append(r.order, d.ID)
	}
	r.byID[d.ID] = d
}

// Resolve returns the descriptor for id. Ids unknown at construction time are
// still resolved when a matching background file has appeared since.
func (r *Registry) Resolve(id string) (Descriptor, error) {
	if d, ok := r.byID[id]; ok {
		return d, nil
	}
	if file, ok := r.findFile(id); ok {
		return Synthesize(id, file, r.rules), nil
	}
	return Descriptor{}, fmt.Errorf("%w: %q", ErrNotFound, id)
}

func (r *Registry) findFile(id string) (string, bool) {
	if r.fsys == nil || id == "" || strings.ContainsAny(id, `/\`) {
		return "", false
	}
	for _, ext := range imageExts {
		name := id + ext
		if !fs.ValidPath(name) {
			return "", false
		}
		if info, err := fs.Stat(r.fsys, name); err == nil && !info.IsDir() {
			return name, true
		}
	}
	return "", false
}

// List returns every registered template: built-ins, manifest entries, then
// discovered files.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// ListByCategory filters List. An empty category or "all" returns everything.
func (r *Registry) ListByCategory(c Category) []Descriptor {
	all := r.List()
	if c == "" || c == "all" {
		return all
	}
	out := all[:0]
	for _, d := range all {
		if d.Category == c {
			out = append(out, d)
		}
	}
	return out
}

// Background reads the background image bytes of d.
func (r *Registry) Background(d Descriptor) ([]byte, error) {
	if r.fsys == nil || d.File == "" {
		return nil, fmt.Errorf("%w: no template directory for %q", ErrNoBackground, d.ID)
	}
	name := path.Clean(d.File)
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: invalid path %q", ErrNoBackground, d.File)
	}
	data, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoBackground, err)
	}
	return data, nil
}

// Custom returns the descriptor used with an uploaded background image.
// Empty colours fall back to white text and the default accent.
func Custom(textColor, accent string) Descriptor {
	if textColor == "" {
		textColor = TextLight
	}
	if accent == "" {
		accent = DefaultAccent
	}
	return Descriptor{
		ID:        CustomID,
		Name:      "Custom",
		TextColor: textColor,
		Accent:    accent,
		Anchor:    DiscoveredAnchor,
		Category:  CategoryAbstract,
	}
}

// CustomID identifies the uploaded-background template.
const CustomID = "custom"
