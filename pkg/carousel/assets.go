// assets.go - Decode and prepare background and logo images once per carousel.
package carousel

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// decodeImage decodes PNG, JPEG, GIF, BMP or TIFF data, applying EXIF
// orientation.
func decodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("decode image: empty bounds %v", b)
	}
	return img, nil
}

// PrepareBackground cover-fits img to the canvas: scaled to fill and
// centre-cropped. For a panorama the target is widened so that each of the
// slides gets its own window, PanoramaShift apart. A positive blur applies a
// Gaussian blur of that sigma, at most MaxBlur.
func PrepareBackground(img image.Image, slides int, panorama bool, blur float64) image.Image {
	w := Width
	if panorama && slides > 1 {
		w += (slides - 1) * PanoramaShift
	}
	out := imaging.Fill(img, w, Height, imaging.Center, imaging.Lanczos)
	if blur > 0 {
		out = imaging.Blur(out, min(blur, MaxBlur))
	}
	return out
}

// PrepareLogo scales img to fit inside a size×size square, keeping its
// aspect ratio. Small logos are enlarged.
func PrepareLogo(img image.Image, size int) image.Image {
	b := img.Bounds()
	if b.Dx() >= size || b.Dy() >= size {
		return imaging.Fit(img, size, size, imaging.Lanczos)
	}
	if b.Dx() >= b.Dy() {
		return imaging.Resize(img, size, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, size, imaging.Lanczos)
}
