package vision

import (
	"image"
	"image/color"
)

func uniformImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = 255
	}
	return img
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

var (
	white = color.RGBA{255, 255, 255, 255}
	gray  = color.RGBA{128, 128, 128, 255}
	skin  = color.RGBA{200, 150, 120, 255}
	dark  = color.RGBA{20, 20, 20, 255}
)

// drawFace paints a skin square whose dark eye band and mouth line up with
// the regions windowScore reads for a window at (x,y) of the same side.
func drawFace(img *image.RGBA, x, y, side int) {
	at := func(f float64) int { return int(f * float64(side)) }

	fillRect(img, x, y, x+side, y+side, skin)
	fillRect(img, x, y+at(0.25), x+side, y+at(0.45), dark)
	fillRect(img, x+at(0.30), y+at(0.65), x+at(0.70), y+at(0.80), dark)
}

// faceImage is a white w x h canvas with one face drawn at (x,y).
func faceImage(w, h, x, y, side int) *image.RGBA {
	img := uniformImage(w, h, white)
	drawFace(img, x, y, side)
	return img
}

func mustFrame(img image.Image) *Frame {
	f, err := NewFrame(img, DefaultWorkingWidth)
	if err != nil {
		panic(err)
	}
	return f
}
