package generator

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func testSlides(t *testing.T, n int) [][]byte {
	t.Helper()
	slides := make([][]byte, n)
	for i := range slides {
		img := NewSolidImage(40, 50, color.RGBA{uint8(40 * i), 100, 200, 255})
		data, err := EncodePNG(img)
		if err != nil {
			t.Fatalf("EncodePNG: %v", err)
		}
		slides[i] = data
	}
	return slides
}

func TestEncodePNGDeterministic(t *testing.T) {
	img := NewDiagonalGradient(64, 80, color.RGBA{0, 0, 0, 255}, color.RGBA{255, 255, 255, 255})
	a, err := EncodePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncodePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("encoding the same image twice gave different bytes")
	}
	decoded, err := DecodePNG(a)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds() != image.Rect(0, 0, 64, 80) {
		t.Fatalf("bounds = %v", decoded.Bounds())
	}
}

func TestWriteZip(t *testing.T) {
	slides := testSlides(t, 3)
	var buf bytes.Buffer
	if err := WriteZip(&buf, slides); err != nil {
		t.Fatalf("WriteZip: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	if len(zr.File) != 3 {
		t.Fatalf("got %d entries, want 3", len(zr.File))
	}
	for i, f := range zr.File {
		if want := SlideName(i, 3); f.Name != want {
			t.Errorf("entry %d = %q, want %q", i, f.Name, want)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if !bytes.Equal(data, slides[i]) {
			t.Errorf("entry %d content differs", i)
		}
	}
}

func TestSlideName(t *testing.T) {
	if got := SlideName(0, 5); got != "slide_01.png" {
		t.Errorf("SlideName(0, 5) = %q", got)
	}
	if got := SlideName(99, 120); got != "slide_100.png" {
		t.Errorf("SlideName(99, 120) = %q", got)
	}
}

func TestGenerateAVI(t *testing.T) {
	slides := testSlides(t, 3)
	var buf bytes.Buffer
	cfg := Config{SecondsPerSlide: 2, FPS: 2}
	if err := GenerateToWriter(&buf, ".avi", slides, cfg); err != nil {
		t.Fatalf("GenerateToWriter: %v", err)
	}
	data := buf.Bytes()

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "AVI " {
		t.Fatalf("bad header %q", data[:12])
	}
	if size := binary.LittleEndian.Uint32(data[4:8]); int(size) != len(data)-8 {
		t.Errorf("RIFF size = %d, file has %d bytes after header", size, len(data)-8)
	}
	if frames := binary.LittleEndian.Uint32(data[48:52]); frames != 12 {
		t.Errorf("total frames = %d, want 12", frames)
	}
	if !bytes.Contains(data, []byte("idx1")) {
		t.Error("missing idx1 index")
	}
}

func TestGenerateAVIClampsDuration(t *testing.T) {
	slides := testSlides(t, 1)
	var buf bytes.Buffer
	if err := GenerateToWriter(&buf, ".avi", slides, Config{SecondsPerSlide: 5000, FPS: 1000}); err != nil {
		t.Fatalf("GenerateToWriter: %v", err)
	}
	want := uint32(MaxSecondsPerSlide * MaxFPS)
	if frames := binary.LittleEndian.Uint32(buf.Bytes()[48:52]); frames != want {
		t.Errorf("total frames = %d, want %d", frames, want)
	}
}

func TestAVISizes(t *testing.T) {
	frames, movi, file, err := aviSizes([]int{100, 51}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if frames != 8 {
		t.Errorf("frames = %d, want 8", frames)
	}
	if wantMovi := uint32(4 + 4*(8+100) + 4*(8+52)); movi != wantMovi {
		t.Errorf("movi = %d, want %d", movi, wantMovi)
	}
	if wantFile := 4 + (8 + hdrlListSize) + (8 + movi) + 8 + 8*16; file != wantFile {
		t.Errorf("file = %d, want %d", file, wantFile)
	}

	// 20 slides of 1 MB shown for 900 frames each pass 4 GiB.
	big := make([]int, 20)
	for i := range big {
		big[i] = 1 << 20
	}
	if _, _, _, err := aviSizes(big, MaxSecondsPerSlide*MaxFPS); !errors.Is(err, ErrVideoTooLarge) {
		t.Errorf("err = %v, want ErrVideoTooLarge", err)
	}
}

func TestGenerateAVIMismatchedSizes(t *testing.T) {
	a, _ := EncodePNG(NewSolidImage(10, 10, color.RGBA{A: 255}))
	b, _ := EncodePNG(NewSolidImage(20, 10, color.RGBA{A: 255}))
	if err := GenerateToWriter(io.Discard, ".avi", [][]byte{a, b}, Config{}); err == nil {
		t.Fatal("expected an error for slides of different sizes")
	}
}

func TestGenerateDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	slides := testSlides(t, 2)
	paths, err := Generate(dir, slides, Config{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("wrote %d files, want 2", len(paths))
	}
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(data, slides[i]) {
			t.Errorf("%s content differs", p)
		}
	}
}

func TestGenerateSinglePNGRejectsMany(t *testing.T) {
	out := filepath.Join(t.TempDir(), "one.png")
	if _, err := Generate(out, testSlides(t, 2), Config{}); err == nil {
		t.Fatal("expected an error writing two slides to one PNG")
	}
}

func TestGenerateUnsupported(t *testing.T) {
	if err := GenerateToWriter(io.Discard, ".gif", testSlides(t, 1), Config{}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
