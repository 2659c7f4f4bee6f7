// Package template provides the carousel template catalogue and the request
// documents that pick a template and style a carousel.
package template

// ── Descriptor types ──

// Category groups templates for browsing.
type Category string

const (
	CategoryTech     Category = "tech"
	CategoryGradient Category = "gradient"
	CategoryOffice   Category = "office"
	CategoryAbstract Category = "abstract"
	CategoryDark     Category = "dark"
	CategoryNature   Category = "nature"
	CategoryPastel   Category = "pastel"
)

// Text colours used by the built-in templates.
const (
	TextDark  = "#1A1A1A"
	TextLight = "#FFFFFF"
)

// Descriptor is the immutable definition of one template.
type Descriptor struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"style" yaml:"style"`
	File      string   `json:"file" yaml:"file"`             // background image, relative to the template directory
	TextColor string   `json:"text_color" yaml:"text_color"` // "#rrggbb"
	Accent    string   `json:"accent" yaml:"accent"`         // progress bar, counter
	Anchor    int      `json:"y_pos" yaml:"y_pos"`           // top of the text block, in pixels
	Category  Category `json:"category" yaml:"category"`
}

// Manifest is the layout of a templates.yaml file.
type Manifest struct {
	Templates []Descriptor `yaml:"templates"`
}

// ── Request types ──

// LogoPosition names one of the six logo anchors.
type LogoPosition string

const (
	LogoTopLeft      LogoPosition = "top-left"
	LogoTopRight     LogoPosition = "top-right"
	LogoTopMiddle    LogoPosition = "top-middle"
	LogoBottomLeft   LogoPosition = "bottom-left"
	LogoBottomRight  LogoPosition = "bottom-right"
	LogoBottomMiddle LogoPosition = "bottom-middle"
)

// LogoPositions lists every accepted anchor.
var LogoPositions = []LogoPosition{
	LogoTopLeft, LogoTopRight, LogoTopMiddle,
	LogoBottomLeft, LogoBottomRight, LogoBottomMiddle,
}

// LogoSizes maps named logo sizes to pixel squares.
var LogoSizes = map[string]int{
	"small":  80,
	"medium": 120,
	"large":  160,
}

// Upper bounds for the numeric request fields.
const (
	MaxFontSize = 200 // points, headline and body
	MaxBlur     = 50  // gaussian sigma in pixels
)

// CarouselSpec is the request document accepted by the HTTP API and the CLI.
type CarouselSpec struct {
	Slides       []string     `json:"slides" yaml:"slides"`
	TemplateID   string       `json:"template_id" yaml:"template_id"`
	LogoURL      string       `json:"logo_url,omitempty" yaml:"logo_url,omitempty"`
	LogoBase64   string       `json:"logo_base64,omitempty" yaml:"logo_base64,omitempty"`
	LogoID       string       `json:"logo_id,omitempty" yaml:"logo_id,omitempty"` // uploaded asset
	LogoPosition LogoPosition `json:"logo_position,omitempty" yaml:"logo_position,omitempty"`
	LogoSize     string       `json:"logo_size,omitempty" yaml:"logo_size,omitempty"` // "small", "medium", "large" or pixels
	AccentColor  string       `json:"accent_color,omitempty" yaml:"accent_color,omitempty"`
	FontColor    string       `json:"font_color,omitempty" yaml:"font_color,omitempty"`
	FontFamily   string       `json:"font_family,omitempty" yaml:"font_family,omitempty"`
	HeadlineSize float64      `json:"headline_font_size,omitempty" yaml:"headline_font_size,omitempty"`
	BodySize     float64      `json:"body_font_size,omitempty" yaml:"body_font_size,omitempty"`
	Background   string       `json:"custom_background_base64,omitempty" yaml:"custom_background_base64,omitempty"`
	Panorama     bool         `json:"panorama,omitempty" yaml:"panorama,omitempty"`
	Blur         float64      `json:"blur,omitempty" yaml:"blur,omitempty"`
}

// ── Resolved types ──

// Style is the final colour set for one carousel after request overrides.
type Style struct {
	TextColor string
	Accent    string
	Highlight string
	Light     bool // text is light, so the background gets darkened
}
