package detection

import (
	"fmt"
	"image"
)

// Region is an axis-aligned bounding rectangle in image pixels
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// RegionFromRect converts an image.Rectangle into a Region
func RegionFromRect(r image.Rectangle) Region {
	r = r.Canon()
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the region as an image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Flatten encodes the region as "left top right bottom"
func (r Region) Flatten() string {
	b := r.Rect()
	return fmt.Sprintf("%d %d %d %d", b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
}

// Candidate is one label hypothesis attached to a detection
type Candidate struct {
	Text       string
	Index      int
	Confidence float32
}

// RawDetection is one located object as reported by a Source
type RawDetection struct {
	Region     Region
	TrackingID *int // never set in single image mode
	Labels     []Candidate
}

// AnnotatedDetection is a RawDetection reduced to a single label.
// Label is nil when no candidate was selected.
type AnnotatedDetection struct {
	Label       *string
	Index       int
	Confidence  float32
	Width       int
	Height      int
	Coordinates string
	TrackingID  *int
	Outcome     SelectionOutcome
}
