package engine

import (
	"fmt"
	"image"
	"math"
	"sort"

	"go-object-detector/internal/detection"
)

// Frame maps model input coordinates back onto the source image
type Frame struct {
	Bounds image.Rectangle
	ScaleX float32
	ScaleY float32
}

// NewFrame describes a source image stretched onto a size x size input
func NewFrame(bounds image.Rectangle, size int) Frame {
	return Frame{
		Bounds: bounds,
		ScaleX: float32(bounds.Dx()) / float32(size),
		ScaleY: float32(bounds.Dy()) / float32(size),
	}
}

// DecodeYOLO turns a [1, 4+C, N] YOLO output into detections.
//
// Each of the N anchors carries cx, cy, w, h followed by C class scores. An
// anchor becomes a detection when its best class score reaches
// opts.ObjectThreshold. Its candidate labels are the classes scoring at least
// opts.ConfidenceThreshold, best first, capped at opts.MaxLabelsPerObject.
// With classification disabled detections carry no labels.
func DecodeYOLO(output []float32, channels, anchors int, frame Frame, opts detection.Options) ([]detection.RawDetection, error) {
	if channels <= 4 || anchors <= 0 {
		return nil, fmt.Errorf("unexpected output shape [1 %d %d]", channels, anchors)
	}
	if len(output) < channels*anchors {
		return nil, fmt.Errorf("output holds %d values, shape [1 %d %d] needs %d", len(output), channels, anchors, channels*anchors)
	}

	classes := channels - 4
	at := func(c, i int) float32 { return output[c*anchors+i] }

	var boxes []scored
	for i := 0; i < anchors; i++ {
		best := float32(0)
		for c := 0; c < classes; c++ {
			if s := at(4+c, i); s > best {
				best = s
			}
		}
		if best < opts.ObjectThreshold || best == 0 {
			continue
		}

		box := frame.toImage(at(0, i), at(1, i), at(2, i), at(3, i))
		if box.Empty() {
			continue
		}

		raw := detection.RawDetection{Region: detection.RegionFromRect(box)}
		if opts.Classification {
			raw.Labels = topCandidates(func(c int) float32 { return at(4+c, i) }, classes, opts)
		}
		boxes = append(boxes, scored{box: box, score: best, anchor: i, detection: raw})
	}

	kept := NMS(boxes, opts.NMSThreshold)
	if !opts.MultipleObjects && len(kept) > 1 {
		kept = kept[:1]
	}

	out := make([]detection.RawDetection, 0, len(kept))
	for _, k := range kept {
		out = append(out, k.detection)
	}
	return out, nil
}

func topCandidates(score func(int) float32, classes int, opts detection.Options) []detection.Candidate {
	var candidates []detection.Candidate
	for c := 0; c < classes; c++ {
		s := score(c)
		if s < opts.ConfidenceThreshold || s == 0 {
			continue
		}
		candidates = append(candidates, detection.Candidate{
			Text:       opts.LabelFor(c),
			Index:      c,
			Confidence: s,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if opts.MaxLabelsPerObject > 0 && len(candidates) > opts.MaxLabelsPerObject {
		candidates = candidates[:opts.MaxLabelsPerObject]
	}
	return candidates
}

// toImage converts a center box in input space into a clipped image rectangle
func (f Frame) toImage(cx, cy, w, h float32) image.Rectangle {
	x0 := float64((cx - w/2) * f.ScaleX)
	y0 := float64((cy - h/2) * f.ScaleY)
	x1 := float64((cx + w/2) * f.ScaleX)
	y1 := float64((cy + h/2) * f.ScaleY)

	r := image.Rect(
		int(math.Round(x0)), int(math.Round(y0)),
		int(math.Round(x1)), int(math.Round(y1)),
	).Add(f.Bounds.Min)
	return r.Intersect(f.Bounds)
}

// YOLOAnchors is the anchor count of a stride 8/16/32 YOLO head at the given input size
func YOLOAnchors(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		side := size / stride
		n += side * side
	}
	return n
}
