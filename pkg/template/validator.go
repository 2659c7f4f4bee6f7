// validator.go - Validate carousel requests and describe templates.
package template

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidSpec marks requests that cannot be rendered at all.
var ErrInvalidSpec = errors.New("invalid carousel request")

// ValidateSpec checks a request before any asset is loaded. Problems that
// make rendering impossible are returned as an error wrapping ErrInvalidSpec;
// anything that can be ignored is returned as a warning.
func ValidateSpec(spec *CarouselSpec, maxSlides int) ([]string, error) {
	if spec == nil || len(spec.Slides) == 0 {
		return nil, fmt.Errorf("%w: at least one slide is required", ErrInvalidSpec)
	}
	if maxSlides > 0 && len(spec.Slides) > maxSlides {
		return nil, fmt.Errorf("%w: %d slides, at most %d allowed", ErrInvalidSpec, len(spec.Slides), maxSlides)
	}
	if spec.TemplateID == "" && spec.Background == "" {
		return nil, fmt.Errorf("%w: template_id is required", ErrInvalidSpec)
	}
	if spec.LogoPosition != "" && !slices.Contains(LogoPositions, spec.LogoPosition) {
		return nil, fmt.Errorf("%w: unknown logo position %q", ErrInvalidSpec, spec.LogoPosition)
	}
	if _, err := ParseLogoSize(spec.LogoSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if spec.HeadlineSize < 0 || spec.BodySize < 0 || spec.Blur < 0 {
		return nil, fmt.Errorf("%w: sizes must not be negative", ErrInvalidSpec)
	}
	if spec.HeadlineSize > MaxFontSize || spec.BodySize > MaxFontSize {
		return nil, fmt.Errorf("%w: font size above %d", ErrInvalidSpec, MaxFontSize)
	}
	if spec.Blur > MaxBlur {
		return nil, fmt.Errorf("%w: blur above %d", ErrInvalidSpec, MaxBlur)
	}

	var warnings []string
	sources := 0
	for _, s := range []string{spec.LogoBase64, spec.LogoID, spec.LogoURL} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		warnings = append(warnings, "several logo sources given: using logo_base64, then logo_id, then logo_url")
	}
	if spec.Background != "" && spec.TemplateID != "" && spec.TemplateID != CustomID {
		warnings = append(warnings, fmt.Sprintf("custom background given: template %q ignored", spec.TemplateID))
	}
	for i, s := range spec.Slides {
		if strings.TrimSpace(strings.ReplaceAll(s, "*", "")) == "" {
			warnings = append(warnings, fmt.Sprintf("slide %d has no text", i+1))
		}
	}
	return warnings, nil
}

// FormatTemplates returns a human-readable table of templates.
func FormatTemplates(ds []Descriptor) string {
	if len(ds) == 0 {
		return "No templates.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-10s %-8s %-8s %-5s %s\n", "ID", "CATEGORY", "TEXT", "ACCENT", "Y", "STYLE")
	for _, d := range ds {
		fmt.Fprintf(&b, "%-10s %-10s %-8s %-8s %-5d %s\n",
			d.ID, d.Category, strings.TrimPrefix(d.TextColor, "#"), strings.TrimPrefix(d.Accent, "#"), d.Anchor, d.Name)
	}
	return b.String()
}
