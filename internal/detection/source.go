package detection

import (
	"context"
	"image"
)

// Source runs the detection model over one decoded image.
// Implementations live in the engine package.
type Source interface {
	// Detect returns the detections found in img, in model order.
	// An empty slice with a nil error means nothing was found.
	Detect(ctx context.Context, img image.Image) ([]RawDetection, error)

	// Close releases the model
	Close() error
}

// Options configures a Source. Set once at startup.
type Options struct {
	ModelPath           string
	Labels              []string
	MultipleObjects     bool
	Classification      bool
	ObjectThreshold     float32 // minimum score for a box to count as an object
	ConfidenceThreshold float32 // minimum score for a label to be attached
	MaxLabelsPerObject  int
	InputSize           int
	NMSThreshold        float32
}

// LabelFor returns the label text for a class index
func (o Options) LabelFor(index int) string {
	if index >= 0 && index < len(o.Labels) {
		return o.Labels[index]
	}
	return ""
}
