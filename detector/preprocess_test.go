package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidFrame(w, h int, r, g, b uint8) *Frame {
	f := NewFrame(w, h)
	for i := 0; i < len(f.Pix); i += Channels {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
	}
	return f
}

func TestNewLetterbox(t *testing.T) {
	lb := newLetterbox(1280, 720, 640)
	assert.InDelta(t, 0.5, lb.scale, 1e-6)
	w, h := lb.resized()
	assert.Equal(t, 640, w)
	assert.Equal(t, 360, h)
	assert.Equal(t, float32(0), lb.padX)
	assert.Equal(t, float32(140), lb.padY)

	lb = newLetterbox(100, 400, 640)
	assert.InDelta(t, 1.6, lb.scale, 1e-6)
	assert.Equal(t, float32(240), lb.padX)
	assert.Equal(t, float32(0), lb.padY)
}

func TestLetterboxRestoreClips(t *testing.T) {
	lb := newLetterbox(1280, 720, 640)
	b := lb.restore(Box{X1: -10, Y1: 100, X2: 700, Y2: 600})
	assert.Equal(t, Box{X1: 0, Y1: 0, X2: 1280, Y2: 720}, b)
}

func TestPreprocessPadsAndNormalizes(t *testing.T) {
	const size = 8
	dst := make([]float32, 3*size*size)
	lb := preprocess(solidFrame(4, 2, 255, 0, 0), size, dst)

	// 4x2 scales to 8x4 and sits on rows 2..5.
	assert.Equal(t, float32(2), lb.padY)
	plane := size * size
	pad := float32(114) / 255

	for _, y := range []int{0, 1, 6, 7} {
		i := y*size + 3
		assert.InDelta(t, pad, dst[i], 1e-6, "row %d", y)
		assert.InDelta(t, pad, dst[plane+i], 1e-6, "row %d", y)
		assert.InDelta(t, pad, dst[2*plane+i], 1e-6, "row %d", y)
	}
	for _, y := range []int{2, 3, 4, 5} {
		i := y*size + 3
		assert.InDelta(t, 1.0, dst[i], 0.01, "row %d", y)
		assert.InDelta(t, 0.0, dst[plane+i], 0.01, "row %d", y)
		assert.InDelta(t, 0.0, dst[2*plane+i], 0.01, "row %d", y)
	}
}

func TestPreprocessKeepsExactSize(t *testing.T) {
	const size = 4
	dst := make([]float32, 3*size*size)
	f := solidFrame(size, size, 0, 51, 102)
	lb := preprocess(f, size, dst)

	require.Equal(t, float32(1), lb.scale)
	assert.InDelta(t, 0.0, dst[0], 1e-6)
	assert.InDelta(t, 0.2, dst[size*size], 1e-6)
	assert.InDelta(t, 0.4, dst[2*size*size], 1e-6)
}
