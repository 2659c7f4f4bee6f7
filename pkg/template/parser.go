// parser.go - Carousel request parsing and example generation.
package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseSpec decodes a JSON carousel request.
func ParseSpec(data []byte) (*CarouselSpec, error) {
	if spec, ok := decodeSlidesOnly(data); ok {
		return spec, nil
	}
	var spec CarouselSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return &spec, nil
}

// ParseSpecYAML decodes a YAML carousel request.
func ParseSpecYAML(data []byte) (*CarouselSpec, error) {
	var spec CarouselSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return &spec, nil
}

// ParseLogoSize converts "small", "medium", "large" or a pixel count.
// Empty input returns zero so the caller's default applies.
func ParseLogoSize(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, nil
	}
	if px, ok := LogoSizes[s]; ok {
		return px, nil
	}
	px, err := strconv.Atoi(strings.TrimSuffix(s, "px"))
	if err != nil || px <= 0 {
		return 0, fmt.Errorf("invalid logo size %q", s)
	}
	return px, nil
}

// GetExampleSpec returns a sample request and a sample templates.yaml for
// `carousel init`.
func GetExampleSpec() (specJSON, manifestYAML string) {
	specJSON = `{
  "template_id": "T_02",
  "slides": [
    "5 טיפים ל*שיווק* ברשתות",
    "טיפ 1: תכירו את *הקהל* שלכם",
    "טיפ 2: פרסמו *בעקביות*",
    "טיפ 3: ספרו סיפור\nולא רק מוצר",
    "עקבו לעוד *טיפים*"
  ],
  "logo_position": "top-right",
  "logo_size": "medium",
  "accent_color": "#2563EB"
}
`

	manifestYAML = `# Templates declared here replace built-ins with the same id.
templates:
  - id: brand_blue
    style: Brand Blue
    file: brand_blue.png
    text_color: "#FFFFFF"
    accent: "#F8FF00"
    y_pos: 400
    category: dark
`
	return specJSON, manifestYAML
}
