// avi.go - MJPEG AVI slideshow writer.
// Each slide is JPEG-encoded once and its chunk repeated for as many frames
// as the slide stays on screen.
package generator

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"
)

// ErrVideoTooLarge is returned when a slideshow would not fit in one AVI file.
var ErrVideoTooLarge = errors.New("video too large")

// writeAVI writes frames as an MJPEG AVI slideshow. All frames must share
// the first frame's dimensions.
func writeAVI(w io.Writer, frames []image.Image, cfg Config) error {
	if len(frames) == 0 {
		return fmt.Errorf("slideshow needs at least one slide")
	}
	cfg = cfg.withDefaults()

	bounds := frames[0].Bounds()
	jpegs := make([][]byte, len(frames))
	var maxJPEG uint32
	for i, img := range frames {
		if img.Bounds().Size() != bounds.Size() {
			return fmt.Errorf("slide %d is %v, want %v", i+1, img.Bounds().Size(), bounds.Size())
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: cfg.Quality}); err != nil {
			return fmt.Errorf("encode slide %d as JPEG: %w", i+1, err)
		}
		jpegs[i] = buf.Bytes()
		maxJPEG = max(maxJPEG, uint32(buf.Len()))
	}

	width := uint32(bounds.Dx())
	height := uint32(bounds.Dy())
	fps := uint32(cfg.FPS)
	framesPerSlide := uint32(cfg.SecondsPerSlide) * fps

	lens := make([]int, len(jpegs))
	for i, j := range jpegs {
		lens[i] = len(j)
	}
	totalFrames, moviSize, fileSize, err := aviSizes(lens, framesPerSlide)
	if err != nil {
		return err
	}
	hdrlSize := uint32(hdrlListSize)

	var out bytes.Buffer
	out.Grow(int(fileSize) + 8)
	fourCC := func(s string) { out.WriteString(s) }
	u32 := func(v uint32) { binary.Write(&out, binary.LittleEndian, v) }
	u16 := func(v uint16) { binary.Write(&out, binary.LittleEndian, v) }

	// === RIFF Header ===
	fourCC("RIFF")
	u32(fileSize)
	fourCC("AVI ")

	// === hdrl LIST ===
	fourCC("LIST")
	u32(hdrlSize)
	fourCC("hdrl")

	// === avih (Main AVI Header) ===
	fourCC("avih")
	u32(56)
	u32(1000000 / fps) // microseconds per frame
	u32(maxJPEG * fps) // max bytes per sec
	u32(0)             // padding granularity
	u32(0x10)          // flags: AVIF_HASINDEX
	u32(totalFrames)
	u32(0) // initial frames
	u32(1) // streams
	u32(maxJPEG)
	u32(width)
	u32(height)
	u32(0)
	u32(0)
	u32(0)
	u32(0)

	// === strl LIST ===
	fourCC("LIST")
	u32(116) // strh(64) + strf(48) + 4
	fourCC("strl")

	// === strh (Stream Header) ===
	fourCC("strh")
	u32(56)
	fourCC("vids")
	fourCC("MJPG")
	u32(0) // flags
	u16(0) // priority
	u16(0) // language
	u32(0) // initial frames
	u32(1) // scale
	u32(fps)
	u32(0) // start
	u32(totalFrames)
	u32(maxJPEG)
	u32(0) // quality
	u32(0) // sample size
	u16(0)
	u16(0)
	u16(uint16(width))
	u16(uint16(height))

	// === strf (BITMAPINFOHEADER) ===
	fourCC("strf")
	u32(40)
	u32(40)
	u32(width)
	u32(height)
	u16(1)  // planes
	u16(24) // bit count
	fourCC("MJPG")
	u32(width * height * 3)
	u32(0)
	u32(0)
	u32(0)
	u32(0)

	// === movi LIST ===
	fourCC("LIST")
	u32(moviSize)
	fourCC("movi")
	for _, j := range jpegs {
		for f := uint32(0); f < framesPerSlide; f++ {
			fourCC("00dc")
			u32(uint32(len(j)))
			out.Write(j)
			if len(j)%2 != 0 {
				out.WriteByte(0)
			}
		}
	}

	// === idx1 ===
	fourCC("idx1")
	u32(totalFrames * 16)
	offset := uint32(4) // relative to the "movi" fourcc
	for _, j := range jpegs {
		size := uint32(len(j))
		for f := uint32(0); f < framesPerSlide; f++ {
			fourCC("00dc")
			u32(0x10) // AVIIF_KEYFRAME
			u32(offset)
			u32(size)
			offset += 8 + padded(size)
		}
	}

	_, err = w.Write(out.Bytes())
	return err
}

const hdrlListSize = 4 + 64 + 124 // "hdrl" + avih + strl

// aviSizes returns the frame count, movi list size and RIFF size for chunks
// of the given lengths each repeated framesPerSlide times. Sizes are summed
// in 64 bits because RIFF stores them in 32.
func aviSizes(chunkLens []int, framesPerSlide uint32) (frames, movi, file uint32, err error) {
	total := uint64(framesPerSlide) * uint64(len(chunkLens))
	moviSize := uint64(4)
	for _, n := range chunkLens {
		moviSize += uint64(framesPerSlide) * (8 + uint64(n) + uint64(n%2))
	}
	idx1Size := 8 + total*16
	fileSize := 4 + (8 + hdrlListSize) + (8 + moviSize) + idx1Size
	if fileSize+8 > math.MaxUint32 {
		return 0, 0, 0, fmt.Errorf("%w: %d bytes exceeds the 4 GiB AVI limit", ErrVideoTooLarge, fileSize+8)
	}
	return uint32(total), uint32(moviSize), uint32(fileSize), nil
}

func padded(n uint32) uint32 {
	return n + n%2
}
