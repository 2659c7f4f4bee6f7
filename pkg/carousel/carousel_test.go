package carousel

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taiye-kotiku/carmi-carousel/pkg/generator"
	"github.com/taiye-kotiku/carmi-carousel/pkg/template"
	"github.com/taiye-kotiku/carmi-carousel/pkg/text"
)

type recorder struct {
	mu       sync.Mutex
	slides   int
	degraded []string
	statuses []string
}

func (r *recorder) SlideRendered(time.Duration) {
	r.mu.Lock()
	r.slides++
	r.mu.Unlock()
}

func (r *recorder) AssetDegraded(kind string) {
	r.mu.Lock()
	r.degraded = append(r.degraded, kind)
	r.mu.Unlock()
}

func (r *recorder) CarouselFinished(status string, _ int, _ time.Duration) {
	r.mu.Lock()
	r.statuses = append(r.statuses, status)
	r.mu.Unlock()
}

func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	data, err := generator.EncodePNG(generator.NewSolidImage(w, h, c))
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	return data
}

func newTestEngine(t *testing.T, files fstest.MapFS, opts ...EngineOption) *Engine {
	t.Helper()
	reg, err := template.NewRegistry(template.WithFS(files))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	fonts, err := NewFontSet("", "", zap.NewNop())
	if err != nil {
		t.Fatalf("NewFontSet: %v", err)
	}
	return NewEngine(reg, fonts, opts...)
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := generator.DecodePNG(data)
	if err != nil {
		t.Fatalf("DecodePNG: %v", err)
	}
	return img
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func near(a, b color.RGBA, tol int) bool {
	d := func(x, y uint8) bool {
		diff := int(x) - int(y)
		return diff <= tol && diff >= -tol
	}
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B)
}

var fiveSlides = []string{
	"5 טיפים ל*שיווק* ברשתות",
	"טיפ 1: תכירו את *הקהל* שלכם",
	"טיפ 2: פרסמו *בעקביות*",
	"טיפ 3: ספרו סיפור\nולא רק מוצר",
	"עקבו לעוד *טיפים*",
}

func TestGenerateFiveSlidesProgress(t *testing.T) {
	files := fstest.MapFS{
		"T_02.jpg": {Data: solidPNG(t, Width, Height, color.RGBA{200, 200, 220, 255})},
	}
	rec := &recorder{}
	e := newTestEngine(t, files, WithObserver(rec))

	res, err := e.Generate(context.Background(), Request{Slides: fiveSlides, TemplateID: "T_02"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Images) != 5 {
		t.Fatalf("got %d images, want 5", len(res.Images))
	}
	if res.Template.ID != "T_02" {
		t.Errorf("template = %q", res.Template.ID)
	}

	accent := generator.ParseHexRGBA(res.Template.Accent)
	track := ProgressTrack()
	row := track.Min.Y + track.Dy()/2

	for i, data := range res.Images {
		img := decode(t, data)
		if img.Bounds() != image.Rect(0, 0, Width, Height) {
			t.Fatalf("slide %d bounds = %v", i, img.Bounds())
		}

		filled := 0
		for x := track.Min.X; x < track.Max.X; x++ {
			if rgbaAt(img, x, row) == accent {
				filled++
			}
		}
		want := ProgressFill(i, 5).Dx()
		if filled < want-4 || filled > want+1 {
			t.Errorf("slide %d: %d accent pixels in progress bar, want about %d", i+1, filled, want)
		}
	}

	if rec.slides != 5 {
		t.Errorf("observer saw %d slides", rec.slides)
	}
	if len(rec.statuses) != 1 || rec.statuses[0] != StatusOK {
		t.Errorf("statuses = %v", rec.statuses)
	}
}

func TestGenerateDeterministicAndOrdered(t *testing.T) {
	files := fstest.MapFS{
		"T_02.jpg": {Data: solidPNG(t, 600, 900, color.RGBA{90, 60, 160, 255})},
	}
	req := Request{Slides: fiveSlides, TemplateID: "T_02", AccentColor: "#FF3366"}

	seq, err := newTestEngine(t, files).Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	again, err := newTestEngine(t, files).Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	par, err := newTestEngine(t, files, WithWorkers(4)).Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}

	for i := range seq.Images {
		if !bytes.Equal(seq.Images[i], again.Images[i]) {
			t.Errorf("slide %d differs between identical runs", i+1)
		}
		if !bytes.Equal(seq.Images[i], par.Images[i]) {
			t.Errorf("slide %d differs between sequential and parallel runs", i+1)
		}
		if i > 0 && bytes.Equal(seq.Images[i], seq.Images[i-1]) {
			t.Errorf("slides %d and %d are identical", i, i+1)
		}
	}
}

func TestGenerateTemplateNotFound(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(t, fstest.MapFS{}, WithObserver(rec))

	res, err := e.Generate(context.Background(), Request{Slides: []string{"x"}, TemplateID: "does-not-exist"})
	if !errors.Is(err, template.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if res != nil {
		t.Fatal("expected no result")
	}
	if rec.slides != 0 {
		t.Errorf("%d slides rendered before the lookup failed", rec.slides)
	}
	if rec.statuses[0] != StatusNotFound {
		t.Errorf("status = %q", rec.statuses[0])
	}
}

func TestGenerateNoSlides(t *testing.T) {
	e := newTestEngine(t, fstest.MapFS{})
	_, err := e.Generate(context.Background(), Request{TemplateID: "T_02"})
	if !errors.Is(err, ErrNoSlides) || !errors.Is(err, template.ErrInvalidSpec) {
		t.Fatalf("err = %v, want ErrNoSlides", err)
	}
}

func TestGenerateDegradesBrokenBackground(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rec := &recorder{}
	files := fstest.MapFS{"T_02.jpg": {Data: []byte("definitely not an image")}}
	e := newTestEngine(t, files, WithObserver(rec), WithLogger(zap.New(core)))

	res, err := e.Generate(context.Background(), Request{
		Slides:     []string{"אחת", "שתיים", "שלוש"},
		TemplateID: "T_02",
		Logo:       []byte("not a logo either"),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Images) != 3 {
		t.Fatalf("got %d images, want 3", len(res.Images))
	}

	img := decode(t, res.Images[0])
	if got := rgbaAt(img, 0, 0); !near(got, gradientFrom, 1) {
		t.Errorf("top-left pixel = %v, want fallback gradient %v", got, gradientFrom)
	}

	joined := strings.Join(res.Warnings, "\n")
	if !strings.Contains(joined, "background") || !strings.Contains(joined, "logo") {
		t.Errorf("warnings = %q", res.Warnings)
	}
	if strings.Join(rec.degraded, ",") != "background,logo" {
		t.Errorf("degraded = %v", rec.degraded)
	}
	if logs.FilterMessage("background could not be decoded, using gradient").Len() != 1 {
		t.Errorf("expected one background warning log, got %v", logs.All())
	}
}

func TestGenerateMissingBackgroundFile(t *testing.T) {
	e := newTestEngine(t, fstest.MapFS{})
	res, err := e.Generate(context.Background(), Request{Slides: []string{"a"}, TemplateID: "T_02"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Images) != 1 || len(res.Warnings) == 0 {
		t.Fatalf("images = %d, warnings = %v", len(res.Images), res.Warnings)
	}
}

func TestGenerateDrawsLogo(t *testing.T) {
	files := fstest.MapFS{"T_02.jpg": {Data: solidPNG(t, Width, Height, color.RGBA{240, 240, 240, 255})}}
	red := color.RGBA{220, 20, 20, 255}
	e := newTestEngine(t, files)

	res, err := e.Generate(context.Background(), Request{
		Slides:       []string{"לוגו"},
		TemplateID:   "T_02",
		Logo:         solidPNG(t, 50, 50, red),
		LogoPosition: template.LogoTopLeft,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	box := LogoRect(template.LogoTopLeft, DefaultLogoSize)
	center := box.Min.Add(image.Pt(box.Dx()/2, box.Dy()/2))
	img := decode(t, res.Images[0])
	if got := rgbaAt(img, center.X, center.Y); !near(got, red, 3) {
		t.Errorf("logo centre = %v, want %v", got, red)
	}
}

func TestGenerateOverlayOnLightText(t *testing.T) {
	gray := color.RGBA{128, 128, 128, 255}
	files := fstest.MapFS{
		"b1.jpg":   {Data: solidPNG(t, Width, Height, gray)},
		"T_02.jpg": {Data: solidPNG(t, Width, Height, gray)},
	}
	e := newTestEngine(t, files)

	light, err := e.Generate(context.Background(), Request{Slides: []string{"x"}, TemplateID: "b1"})
	if err != nil {
		t.Fatal(err)
	}
	dark, err := e.Generate(context.Background(), Request{Slides: []string{"x"}, TemplateID: "T_02"})
	if err != nil {
		t.Fatal(err)
	}

	// 128 × 0.7 under a 30% black overlay.
	if got := rgbaAt(decode(t, light.Images[0]), 5, 5); !near(got, color.RGBA{90, 90, 90, 255}, 2) {
		t.Errorf("light-text template pixel = %v, want darkened gray", got)
	}
	if got := rgbaAt(decode(t, dark.Images[0]), 5, 5); !near(got, gray, 1) {
		t.Errorf("dark-text template pixel = %v, want untouched gray", got)
	}
}

func TestGenerateHighlightColour(t *testing.T) {
	files := fstest.MapFS{"b1.jpg": {Data: solidPNG(t, Width, Height, color.RGBA{30, 30, 30, 255})}}
	e := newTestEngine(t, files)

	res, err := e.Generate(context.Background(), Request{Slides: []string{"HELLO *WORLD*"}, TemplateID: "b1"})
	if err != nil {
		t.Fatal(err)
	}
	img := decode(t, res.Images[0])
	yellow := generator.ParseHexRGBA(template.HighlightColor)
	white := generator.ParseHexRGBA(template.TextLight)

	var hl, plain int
	b := img.Bounds()
	for y := 380; y < 560; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := rgbaAt(img, x, y)
			switch {
			case near(c, yellow, 8):
				hl++
			case near(c, white, 8):
				plain++
			}
		}
	}
	if hl == 0 || plain == 0 {
		t.Fatalf("highlighted pixels = %d, plain pixels = %d; want both", hl, plain)
	}
}

func TestGeneratePanorama(t *testing.T) {
	wide := generator.NewDiagonalGradient(3000, Height, color.RGBA{0, 0, 0, 255}, color.RGBA{255, 255, 255, 255})
	data, err := generator.EncodePNG(wide)
	if err != nil {
		t.Fatal(err)
	}
	e := newTestEngine(t, fstest.MapFS{"T_02.jpg": {Data: data}})

	res, err := e.Generate(context.Background(), Request{Slides: []string{"a", "b"}, TemplateID: "T_02", Panorama: true})
	if err != nil {
		t.Fatal(err)
	}
	first := rgbaAt(decode(t, res.Images[0]), 5, 1000)
	second := rgbaAt(decode(t, res.Images[1]), 5, 1000)
	if first.R >= second.R {
		t.Errorf("second slide should show a brighter window: %v vs %v", first, second)
	}
}

func TestGenerateCustomBackground(t *testing.T) {
	e := newTestEngine(t, fstest.MapFS{})
	res, err := e.Generate(context.Background(), Request{
		Slides:           []string{"רקע משלי"},
		CustomBackground: solidPNG(t, 400, 500, color.RGBA{10, 120, 60, 255}),
		AccentColor:      "#FF0000",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Template.ID != template.CustomID || res.Template.Accent != "#FF0000" || res.Template.TextColor != template.TextLight {
		t.Errorf("template = %+v", res.Template)
	}
}

func TestGenerateCanceled(t *testing.T) {
	e := newTestEngine(t, fstest.MapFS{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Generate(ctx, Request{Slides: []string{"a", "b"}, TemplateID: "T_02"})
	if !errors.Is(err, context.Canceled) || res != nil {
		t.Fatalf("res = %v, err = %v", res, err)
	}
}

func TestGenerateUnknownFontFamily(t *testing.T) {
	e := newTestEngine(t, fstest.MapFS{})
	res, err := e.Generate(context.Background(), Request{Slides: []string{"a"}, TemplateID: "T_02", FontFamily: "Nope"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.Join(res.Warnings, "\n"), `font family "Nope"`) {
		t.Errorf("warnings = %q", res.Warnings)
	}
}

func TestFitTextShrinksLongText(t *testing.T) {
	fm, err := NewFontManager("", nil)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRenderer(fm, RenderOptions{
		Template: template.Descriptor{Anchor: 675},
		Style:    template.Style{TextColor: template.TextDark, Accent: template.DefaultAccent},
	})

	long := strings.Repeat("word ", 120)
	face, lines, lh, err := r.fitText([]text.Run{{Text: long}}, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer face.Close()

	if lh >= DefaultFontSize*lineSpacing {
		t.Errorf("line height %v: font did not shrink", lh)
	}
	if lh < MinFontSize*lineSpacing {
		t.Errorf("line height %v below the minimum size", lh)
	}
	if len(lines) == 0 {
		t.Fatal("no lines")
	}
}

func TestNewRendererClampsFontSizes(t *testing.T) {
	fm, err := NewFontManager("", nil)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRenderer(fm, RenderOptions{HeadlineSize: 1e9, BodySize: 1})
	if r.opts.HeadlineSize != MaxFontSize || r.opts.BodySize != MinFontSize {
		t.Errorf("sizes = %v, %v", r.opts.HeadlineSize, r.opts.BodySize)
	}
}

func TestGenerateOversizedRequestFinishes(t *testing.T) {
	e := newTestEngine(t, fstest.MapFS{"T_02.jpg": {Data: solidPNG(t, 60, 80, color.RGBA{90, 90, 90, 255})}})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := e.Generate(ctx, Request{
		Slides:       []string{"כותרת ענקית", "גוף"},
		TemplateID:   "T_02",
		HeadlineSize: 1e9,
		BodySize:     1e9,
		Blur:         1e6,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Images) != 2 {
		t.Errorf("images = %d", len(res.Images))
	}
}

func TestPrepareBackgroundClampsBlur(t *testing.T) {
	src := generator.NewDiagonalGradient(200, 250, color.RGBA{0, 0, 0, 255}, color.RGBA{255, 255, 255, 255})
	capped := PrepareBackground(src, 1, false, MaxBlur)
	huge := PrepareBackground(src, 1, false, 1e6)

	if capped.Bounds() != huge.Bounds() {
		t.Fatalf("bounds %v vs %v", capped.Bounds(), huge.Bounds())
	}
	for _, p := range []image.Point{{0, 0}, {540, 675}, {Width - 1, Height - 1}} {
		if a, b := rgbaAt(capped, p.X, p.Y), rgbaAt(huge, p.X, p.Y); a != b {
			t.Errorf("pixel %v = %v, want %v", p, b, a)
		}
	}
}

func TestRenderErrorMatches(t *testing.T) {
	cause := errors.New("boom")
	var err error = &RenderError{Slide: 2, Err: cause}
	if !errors.Is(err, ErrRenderFailure) || !errors.Is(err, cause) {
		t.Fatalf("errors.Is failed for %v", err)
	}
	if err.Error() != "render slide 3: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
}
