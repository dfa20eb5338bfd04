package detector

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

var padColor = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// letterbox records how a frame was fitted into the square model input, so
// boxes can be mapped back.
type letterbox struct {
	scale      float32
	padX, padY float32
	srcW, srcH int
}

func newLetterbox(srcW, srcH, size int) letterbox {
	scale := math.Min(float64(size)/float64(srcW), float64(size)/float64(srcH))
	w := int(math.Round(float64(srcW) * scale))
	h := int(math.Round(float64(srcH) * scale))
	return letterbox{
		scale: float32(scale),
		padX:  float32((size - w) / 2),
		padY:  float32((size - h) / 2),
		srcW:  srcW,
		srcH:  srcH,
	}
}

func (lb letterbox) resized() (int, int) {
	return int(math.Round(float64(lb.srcW) * float64(lb.scale))),
		int(math.Round(float64(lb.srcH) * float64(lb.scale)))
}

// restore maps a model-space box into source pixels, clipped to the frame.
func (lb letterbox) restore(b Box) Box {
	clamp := func(v float32, hi int) float32 {
		return float32(math.Max(0, math.Min(float64(v), float64(hi))))
	}
	return Box{
		X1: clamp((b.X1-lb.padX)/lb.scale, lb.srcW),
		Y1: clamp((b.Y1-lb.padY)/lb.scale, lb.srcH),
		X2: clamp((b.X2-lb.padX)/lb.scale, lb.srcW),
		Y2: clamp((b.Y2-lb.padY)/lb.scale, lb.srcH),
	}
}

// preprocess letterboxes the frame into a size×size square and writes it to
// dst as planar RGB scaled to [0, 1]. dst must hold 3*size*size values.
func preprocess(frame *Frame, size int, dst []float32) letterbox {
	lb := newLetterbox(frame.Width, frame.Height, size)
	w, h := lb.resized()

	canvas := imaging.New(size, size, padColor)
	var img image.Image = frame
	if w != frame.Width || h != frame.Height {
		img = imaging.Resize(frame, w, h, imaging.Linear)
	}
	canvas = imaging.Paste(canvas, img, image.Pt(int(lb.padX), int(lb.padY)))

	plane := size * size
	for y := 0; y < size; y++ {
		row := canvas.Pix[y*canvas.Stride:]
		for x := 0; x < size; x++ {
			p := row[x*4:]
			i := y*size + x
			dst[i] = float32(p[0]) / 255
			dst[plane+i] = float32(p[1]) / 255
			dst[2*plane+i] = float32(p[2]) / 255
		}
	}
	return lb
}
