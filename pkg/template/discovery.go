// discovery.go - Turn background file names into template descriptors.
package template

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Defaults for templates that have no explicit definition.
const (
	DefaultAccent    = "#2563EB"
	DarkAccent       = "#60A5FA"
	DiscoveredAnchor = 675
)

// Rule assigns a category and display name to file ids sharing a prefix.
// Numeric rules parse the rest of the id as an integer and match when it
// falls inside [Min, Max]; a zero range matches any number.
type Rule struct {
	Prefix   string
	Numeric  bool
	Min, Max int
	Category Category
	Format   string // receives n-Offset for numeric rules, the rest of the id otherwise
	Offset   int
}

// DefaultRules reproduce the naming of the stock background library.
var DefaultRules = []Rule{
	{Prefix: "T_", Numeric: true, Min: 96, Max: 144, Category: CategoryNature, Format: "Nature %d", Offset: 95},
	{Prefix: "T_", Numeric: true, Min: 20, Max: 30, Category: CategoryGradient, Format: "Gradient %d"},
	{Prefix: "T_", Numeric: true, Min: 60, Max: 80, Category: CategoryTech, Format: "Tech %d"},
	{Prefix: "T_", Numeric: true, Category: CategoryAbstract, Format: "Abstract %d"},
	{Prefix: "b", Category: CategoryAbstract, Format: "Building %s"},
}

func (r Rule) match(id string) (string, bool) {
	rest, ok := strings.CutPrefix(id, r.Prefix)
	if !ok {
		return "", false
	}
	if !r.Numeric {
		return fmt.Sprintf(r.Format, rest), true
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return "", false
	}
	if (r.Min != 0 || r.Max != 0) && (n < r.Min || n > r.Max) {
		return "", false
	}
	return fmt.Sprintf(r.Format, n-r.Offset), true
}

// Synthesize builds a descriptor for a background file that has no explicit
// definition. The first matching rule wins; ids matching no rule become
// abstract templates named after the id.
func Synthesize(id, file string, rules []Rule) Descriptor {
	d := Descriptor{
		ID:       id,
		Name:     id,
		File:     file,
		Anchor:   DiscoveredAnchor,
		Category: CategoryAbstract,
	}
	for _, r := range rules {
		if name, ok := r.match(id); ok {
			d.Name = name
			d.Category = r.Category
			break
		}
	}

	if d.Category == CategoryDark {
		d.TextColor, d.Accent = TextLight, DarkAccent
	} else {
		d.TextColor, d.Accent = TextDark, DefaultAccent
	}
	return d
}

// Discover synthesizes descriptors for every background image in names using
// DefaultRules. Non-image and hidden files are skipped; when two files share
// an id the first one wins.
func Discover(names []string) []Descriptor {
	return discover(names, DefaultRules)
}

func discover(names []string, rules []Rule) []Descriptor {
	seen := make(map[string]bool, len(names))
	var out []Descriptor
	for _, name := range names {
		if strings.HasPrefix(name, ".") || !isImage(name) {
			continue
		}
		id := strings.TrimSuffix(name, path.Ext(name))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, Synthesize(id, name, rules))
	}
	return out
}

func isImage(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range imageExts {
		if ext == e {
			return true
		}
	}
	return false
}
