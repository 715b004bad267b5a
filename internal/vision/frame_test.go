package vision

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrame_Downsamples(t *testing.T) {
	f, err := NewFrame(uniformImage(1440, 1080, gray), DefaultWorkingWidth)
	require.NoError(t, err)

	assert.Equal(t, 720, f.Width)
	assert.Equal(t, 540, f.Height)
	assert.Equal(t, 1440, f.SourceWidth)
	assert.Equal(t, 1080, f.SourceHeight)
	assert.Len(t, f.Pix, 720*540*4)
	assert.InDelta(t, 128, f.Luminance(360, 270), 1)
}

func TestNewFrame_NeverUpscales(t *testing.T) {
	f, err := NewFrame(uniformImage(320, 240, gray), DefaultWorkingWidth)
	require.NoError(t, err)

	assert.Equal(t, 320, f.Width)
	assert.Equal(t, 240, f.Height)
}

func TestNewFrame_Empty(t *testing.T) {
	f, err := NewFrame(image.NewRGBA(image.Rect(0, 0, 0, 0)), DefaultWorkingWidth)
	require.NoError(t, err)
	assert.True(t, f.Empty())

	_, err = NewFrame(nil, DefaultWorkingWidth)
	assert.ErrorIs(t, err, ErrNilImage)
}

func TestNewFrameFromRGBA(t *testing.T) {
	img := uniformImage(4, 2, skin)

	f, err := NewFrameFromRGBA(4, 2, img.Pix)
	require.NoError(t, err)
	r, g, b := f.RGB(3, 1)
	assert.Equal(t, [3]uint8{200, 150, 120}, [3]uint8{r, g, b})

	_, err = NewFrameFromRGBA(4, 2, img.Pix[:10])
	assert.Error(t, err)
}

func TestFrame_EncodeJPEGUsesSourceResolution(t *testing.T) {
	f, err := NewFrame(uniformImage(1000, 500, gray), DefaultWorkingWidth)
	require.NoError(t, err)

	data, err := f.EncodeJPEG(DefaultJPEGQuality)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Width)
	assert.Equal(t, 500, cfg.Height)
}
