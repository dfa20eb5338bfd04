package detector

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToFrameGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	img.SetGray(1, 1, color.Gray{Y: 200})

	f := ToFrame(img)
	require.Equal(t, 3, f.Width)
	require.Equal(t, 2, f.Height)
	require.Len(t, f.Pix, 3*2*Channels)

	r, g, b := f.RGB(1, 1)
	assert.Equal(t, [3]uint8{200, 200, 200}, [3]uint8{r, g, b})
	r, g, b = f.RGB(0, 0)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b})
}

func TestToFramePaletted(t *testing.T) {
	palette := color.Palette{color.RGBA{0, 0, 0, 255}, color.RGBA{10, 20, 30, 255}}
	img := image.NewPaletted(image.Rect(0, 0, 2, 2), palette)
	img.SetColorIndex(1, 0, 1)

	f := ToFrame(img)
	r, g, b := f.RGB(1, 0)
	assert.Equal(t, [3]uint8{10, 20, 30}, [3]uint8{r, g, b})
}

func TestToFrameDropsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 250, G: 100, B: 5, A: 0})
	img.SetNRGBA(1, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 128})

	f := ToFrame(img)
	r, g, b := f.RGB(0, 0)
	assert.Equal(t, [3]uint8{250, 100, 5}, [3]uint8{r, g, b})
	r, g, b = f.RGB(1, 0)
	assert.Equal(t, [3]uint8{1, 2, 3}, [3]uint8{r, g, b})
}

func TestToFrameSubImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(2, 3, color.NRGBA{R: 9, G: 8, B: 7, A: 255})
	sub := img.SubImage(image.Rect(2, 2, 4, 4))

	f := ToFrame(sub)
	require.Equal(t, 2, f.Width)
	r, g, b := f.RGB(0, 1)
	assert.Equal(t, [3]uint8{9, 8, 7}, [3]uint8{r, g, b})
}

func TestFrameImplementsImage(t *testing.T) {
	f := NewFrame(2, 2)
	copy(f.Pix[3:6], []uint8{1, 2, 3})

	var img image.Image = f
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 255}, img.At(1, 0))
	assert.Equal(t, color.NRGBA{}, img.At(5, 5))
}
