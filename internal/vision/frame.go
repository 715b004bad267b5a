package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const (
	// DefaultWorkingWidth bounds detector cost: frames wider than this are
	// downsampled before scanning.
	DefaultWorkingWidth = 720

	// DefaultJPEGQuality is used for captured uploads.
	DefaultJPEGQuality = 90
)

var ErrNilImage = errors.New("vision: nil image")

// Frame is an immutable RGBA working buffer plus the resolution of the
// image it was derived from. The original image is retained so captures can
// be encoded at full resolution.
type Frame struct {
	Width        int
	Height       int
	Pix          []uint8
	SourceWidth  int
	SourceHeight int

	source image.Image
}

// NewFrame converts img into a working frame no wider than workingWidth,
// preserving aspect ratio. Images are never upscaled. A non-positive
// workingWidth disables downsampling.
func NewFrame(img image.Image, workingWidth int) (*Frame, error) {
	if img == nil {
		return nil, ErrNilImage
	}

	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()
	f := &Frame{SourceWidth: sw, SourceHeight: sh, source: img}
	if sw <= 0 || sh <= 0 {
		return f, nil
	}

	w, h := sw, sh
	if workingWidth > 0 && sw > workingWidth {
		w = workingWidth
		h = sh * workingWidth / sw
		if h < 1 {
			h = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == sw && h == sh {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	}

	f.Width = w
	f.Height = h
	f.Pix = dst.Pix
	return f, nil
}

// NewFrameFromRGBA wraps a raw RGBA buffer (4 bytes per pixel, row-major)
// that is already at working resolution.
func NewFrameFromRGBA(width, height int, pix []uint8) (*Frame, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("vision: negative frame size %dx%d", width, height)
	}
	if len(pix) < width*height*4 {
		return nil, fmt.Errorf("vision: buffer has %d bytes, need %d", len(pix), width*height*4)
	}
	img := &image.RGBA{Pix: pix, Stride: width * 4, Rect: image.Rect(0, 0, width, height)}
	return &Frame{
		Width:        width,
		Height:       height,
		Pix:          pix,
		SourceWidth:  width,
		SourceHeight: height,
		source:       img,
	}, nil
}

// Empty reports whether the frame has no pixels to scan.
func (f *Frame) Empty() bool {
	return f == nil || f.Width <= 0 || f.Height <= 0
}

func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 4
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Luminance returns the Rec. 601 luma of the pixel at (x, y) in [0,255].
func (f *Frame) Luminance(x, y int) float64 {
	r, g, b := f.RGB(x, y)
	return luma(r, g, b)
}

func luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// Source returns the image the frame was built from.
func (f *Frame) Source() image.Image {
	return f.source
}

// EncodeJPEG encodes the original, full-resolution image.
func (f *Frame) EncodeJPEG(quality int) ([]byte, error) {
	if f.source == nil {
		return nil, ErrNilImage
	}
	return EncodeJPEG(f.source, quality)
}

func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
