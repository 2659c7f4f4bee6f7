// merge.go - Merge request colour overrides onto a template.
package template

import (
	"fmt"

	"github.com/taiye-kotiku/carmi-carousel/pkg/generator"
)

// HighlightColor marks highlighted words on light text.
const HighlightColor = "#F8FF00"

// MergeStyle resolves the colours a carousel is drawn with. Non-empty
// overrides replace the template's text colour and accent; overrides that do
// not parse are ignored with a warning. Highlighted words use HighlightColor
// on light text and the accent on dark text, where yellow would not read.
func MergeStyle(d Descriptor, accentOverride, fontColorOverride string) (Style, []string) {
	var warnings []string

	s := Style{TextColor: d.TextColor, Accent: d.Accent}
	if s.TextColor == "" {
		s.TextColor = TextDark
	}
	if s.Accent == "" {
		s.Accent = DefaultAccent
	}

	if fontColorOverride != "" {
		if _, err := generator.ParseHex(fontColorOverride); err != nil {
			warnings = append(warnings, fmt.Sprintf("font color %q ignored: %v", fontColorOverride, err))
		} else {
			s.TextColor = fontColorOverride
		}
	}
	if accentOverride != "" {
		if _, err := generator.ParseHex(accentOverride); err != nil {
			warnings = append(warnings, fmt.Sprintf("accent color %q ignored: %v", accentOverride, err))
		} else {
			s.Accent = accentOverride
		}
	}

	s.Light = generator.IsLight(generator.ParseHexRGBA(s.TextColor))
	if s.Light {
		s.Highlight = HighlightColor
	} else {
		s.Highlight = s.Accent
	}
	return s, warnings
}
