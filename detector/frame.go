package detector

import (
	"image"
	"image/color"
)

// Channels is the number of color channels in a Frame.
const Channels = 3

// Frame is a packed 8-bit RGB image. Pixel (x, y) starts at
// Pix[(y*Width+x)*Channels].
type Frame struct {
	Pix    []uint8
	Width  int
	Height int
}

func NewFrame(width, height int) *Frame {
	return &Frame{
		Pix:    make([]uint8, width*height*Channels),
		Width:  width,
		Height: height,
	}
}

func (f *Frame) ColorModel() color.Model { return color.NRGBAModel }

func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

func (f *Frame) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(f.Bounds())) {
		return color.NRGBA{}
	}
	i := (y*f.Width + x) * Channels
	return color.NRGBA{R: f.Pix[i], G: f.Pix[i+1], B: f.Pix[i+2], A: 0xff}
}

// RGB returns the channel values of pixel (x, y).
func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * Channels
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// ToFrame converts any decoded image into three-channel RGB. Alpha is
// dropped without compositing, so transparent pixels keep their color.
func ToFrame(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	i := 0
	switch src := img.(type) {
	case *image.NRGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				copy(f.Pix[i:i+Channels], row[x*4:x*4+Channels])
				i += Channels
			}
		}
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				v := row[x]
				f.Pix[i], f.Pix[i+1], f.Pix[i+2] = v, v, v
				i += Channels
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				f.Pix[i], f.Pix[i+1], f.Pix[i+2] = c.R, c.G, c.B
				i += Channels
			}
		}
	}
	return f
}
