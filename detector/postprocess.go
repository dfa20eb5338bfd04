package detector

import (
	"fmt"
	"sort"
)

type layout int

const (
	// layoutChannels is [1, 4+nc, anchors]: cx, cy, w, h then one score per
	// class, no objectness (YOLOv8 and later).
	layoutChannels layout = iota
	// layoutRows is [1, anchors, 5+nc]: cx, cy, w, h, objectness, class
	// scores (YOLOv5).
	layoutRows
)

func (l layout) String() string {
	switch l {
	case layoutChannels:
		return "channels"
	case layoutRows:
		return "rows"
	default:
		return "unknown"
	}
}

// detectLayout picks the output layout from a [1, a, b] shape. classes may be
// zero when the model carries no class table, in which case the class count
// is derived from the shape.
func detectLayout(dims []int64, classes int) (layout, int, error) {
	if len(dims) != 3 || dims[0] != 1 {
		return 0, 0, fmt.Errorf("unsupported output shape %v, want [1, a, b]", dims)
	}
	a, b := int(dims[1]), int(dims[2])
	if a <= 0 || b <= 0 {
		return 0, 0, fmt.Errorf("dynamic output shape %v is not supported", dims)
	}
	if classes > 0 {
		switch {
		case a == 4+classes:
			return layoutChannels, classes, nil
		case b == 5+classes:
			return layoutRows, classes, nil
		}
		return 0, 0, fmt.Errorf("output shape %v does not match %d classes", dims, classes)
	}
	if a < b && a > 4 {
		return layoutChannels, a - 4, nil
	}
	if b > 5 {
		return layoutRows, b - 5, nil
	}
	return 0, 0, fmt.Errorf("cannot infer class count from output shape %v", dims)
}

type decoder struct {
	layout     layout
	classes    int
	anchors    int
	confidence float32
	iou        float32
	maxDet     int
}

// decode turns the raw output tensor into detections in source coordinates.
func (d decoder) decode(out []float32, lb letterbox) []Detection {
	var dets []Detection
	for i := 0; i < d.anchors; i++ {
		var cx, cy, w, h, score float32
		class := -1
		switch d.layout {
		case layoutChannels:
			n := d.anchors
			cx, cy, w, h = out[i], out[n+i], out[2*n+i], out[3*n+i]
			for c := 0; c < d.classes; c++ {
				if s := out[(4+c)*n+i]; s > score {
					score, class = s, c
				}
			}
		case layoutRows:
			row := out[i*(5+d.classes):]
			obj := row[4]
			if obj < d.confidence {
				continue
			}
			cx, cy, w, h = row[0], row[1], row[2], row[3]
			for c := 0; c < d.classes; c++ {
				if s := obj * row[5+c]; s > score {
					score, class = s, c
				}
			}
		}
		if class < 0 || score < d.confidence {
			continue
		}
		dets = append(dets, Detection{
			Class:      class,
			Confidence: score,
			Box: lb.restore(Box{
				X1: cx - w/2,
				Y1: cy - h/2,
				X2: cx + w/2,
				Y2: cy + h/2,
			}),
		})
	}
	return nms(dets, d.iou, d.maxDet)
}

// nms performs greedy per-class non-maximum suppression and keeps at most
// maxDet detections, highest confidence first.
func nms(dets []Detection, threshold float32, maxDet int) []Detection {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Confidence > dets[j].Confidence
	})
	kept := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if maxDet > 0 && len(kept) >= maxDet {
			break
		}
		suppressed := false
		for _, k := range kept {
			if k.Class == d.Class && iou(k.Box, d.Box) > threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, d)
		}
	}
	return kept
}

func iou(a, b Box) float32 {
	inter := Box{
		X1: max(a.X1, b.X1),
		Y1: max(a.Y1, b.Y1),
		X2: min(a.X2, b.X2),
		Y2: min(a.Y2, b.Y2),
	}.Area()
	if inter == 0 {
		return 0
	}
	return inter / (a.Area() + b.Area() - inter)
}
