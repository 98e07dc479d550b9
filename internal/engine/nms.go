package engine

import (
	"image"
	"sort"

	"go-object-detector/internal/detection"
)

// scored is a decoded box before suppression
type scored struct {
	box       image.Rectangle
	score     float32
	anchor    int
	detection detection.RawDetection
}

// NMS keeps the highest scoring boxes, dropping any box whose IoU with an
// already kept box exceeds iouThreshold. The result is ordered by score.
func NMS(boxes []scored, iouThreshold float32) []scored {
	if len(boxes) == 0 {
		return boxes
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].score > boxes[j].score
	})

	kept := make([]scored, 0, len(boxes))
	suppressed := make([]bool, len(boxes))
	for i := range boxes {
		if suppressed[i] {
			continue
		}
		kept = append(kept, boxes[i])
		for j := i + 1; j < len(boxes); j++ {
			if suppressed[j] {
				continue
			}
			if IoU(boxes[i].box, boxes[j].box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// IoU returns the intersection over union of two rectangles
func IoU(a, b image.Rectangle) float32 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := float32(inter.Dx() * inter.Dy())
	union := float32(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}
