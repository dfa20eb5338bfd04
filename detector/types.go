package detector

import (
	"context"
	"strconv"
)

// Box is an axis-aligned bounding box in source image pixels.
type Box struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

func (b Box) Area() float32 {
	w, h := b.X2-b.X1, b.Y2-b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Detection is one predicted object instance.
type Detection struct {
	Class      int     `json:"class"`
	Confidence float32 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Result holds the detections produced for one input frame.
type Result struct {
	Detections []Detection `json:"detections"`
}

// Names maps a class id to its human readable label.
type Names map[int]string

// Lookup returns the label for id, or false when the model does not define it.
func (n Names) Lookup(id int) (string, bool) {
	name, ok := n[id]
	return name, ok
}

func numberedNames(count int) Names {
	names := make(Names, count)
	for i := 0; i < count; i++ {
		names[i] = strconv.Itoa(i)
	}
	return names
}

// Detector runs object detection on decoded frames. Implementations must be
// safe for concurrent use.
type Detector interface {
	Detect(ctx context.Context, frame *Frame) ([]Result, error)
	Names() Names
}
