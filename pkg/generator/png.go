// png.go - PNG encoding to buffers and files.
package generator

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
)

var pngEncoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// EncodePNG encodes img into a new buffer. The output is a pure function of
// the pixels, so identical images give identical bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := pngEncoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodePNG decodes a PNG buffer.
func DecodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode PNG: %w", err)
	}
	return img, nil
}

// writeFile writes an already encoded buffer to path.
func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
