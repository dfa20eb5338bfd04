package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/krau/detectserver/detector"
)

// DecodeImage decodes any registered image format and normalizes it to a
// three-channel RGB frame. Images with more than maxPixels pixels are
// rejected before their pixel data is decoded; zero disables the check.
func DecodeImage(data []byte, maxPixels int) (*detector.Frame, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, format, fmt.Errorf("%w: %dx%d %s image exceeds %d pixels",
			ErrDecodeFailed, cfg.Width, cfg.Height, format, maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, format, fmt.Errorf("%w: empty %s image", ErrDecodeFailed, format)
	}
	return detector.ToFrame(img), format, nil
}

// CollectLabels maps every detection of every result to its class name and
// returns each name once, in first-seen order. An empty set becomes
// [NoObjectDetected].
func CollectLabels(results []detector.Result, names detector.Names) ([]string, error) {
	seen := make(map[string]struct{})
	labels := make([]string, 0)
	for _, r := range results {
		for _, d := range r.Detections {
			name, ok := names.Lookup(d.Class)
			if !ok {
				return nil, fmt.Errorf("%w: unknown class id %d", ErrInferenceFailed, d.Class)
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			labels = append(labels, name)
		}
	}
	if len(labels) == 0 {
		return []string{NoObjectDetected}, nil
	}
	return labels, nil
}
