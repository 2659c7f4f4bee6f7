// zip.go - Bundle slides into a ZIP archive.
package generator

import (
	"archive/zip"
	"fmt"
	"io"
	"time"
)

// zipEpoch fixes entry timestamps so identical slides give identical archives.
var zipEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// WriteZip writes slides as slide_01.png, slide_02.png, ... in order.
func WriteZip(w io.Writer, slides [][]byte) error {
	zw := zip.NewWriter(w)
	for i, data := range slides {
		hdr := &zip.FileHeader{
			Name:     SlideName(i, len(slides)),
			Method:   zip.Store, // PNG is already compressed
			Modified: zipEpoch,
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("zip entry %d: %w", i+1, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("zip entry %d: %w", i+1, err)
		}
	}
	return zw.Close()
}

// SlideName returns the file name of slide i (0-based) out of n.
func SlideName(i, n int) string {
	width := max(len(fmt.Sprint(n)), 2)
	return fmt.Sprintf("slide_%0*d.png", width, i+1)
}
