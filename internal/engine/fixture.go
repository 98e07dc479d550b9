package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"

	"go-object-detector/internal/detection"
)

// fixtureFile is the on-disk format read by FixtureSource:
//
//	{"detections": [{"box": [l, t, r, b], "labels": [{"text": "cat", "index": 0, "confidence": 0.9}]}]}
type fixtureFile struct {
	Error      string             `json:"error,omitempty"`
	Detections []fixtureDetection `json:"detections"`
}

type fixtureDetection struct {
	Box        [4]int         `json:"box"`
	TrackingID *int           `json:"tracking_id,omitempty"`
	Labels     []fixtureLabel `json:"labels"`
}

type fixtureLabel struct {
	Text       string  `json:"text"`
	Index      int     `json:"index"`
	Confidence float32 `json:"confidence"`
}

// FixtureSource replays detections from a JSON file regardless of the image.
// It stands in for a model in development and tests.
type FixtureSource struct {
	detections []detection.RawDetection
	failure    error
	opts       detection.Options
}

// NewFixtureSource loads the fixture at opts.ModelPath
func NewFixtureSource(opts detection.Options) (*FixtureSource, error) {
	data, err := os.ReadFile(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var file fixtureFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", opts.ModelPath, err)
	}

	src := &FixtureSource{opts: opts}
	if file.Error != "" {
		src.failure = errors.New(file.Error)
	}
	for _, d := range file.Detections {
		raw := detection.RawDetection{
			Region:     detection.RegionFromRect(image.Rect(d.Box[0], d.Box[1], d.Box[2], d.Box[3])),
			TrackingID: d.TrackingID,
		}
		for _, l := range d.Labels {
			text := l.Text
			if text == "" {
				text = opts.LabelFor(l.Index)
			}
			raw.Labels = append(raw.Labels, detection.Candidate{Text: text, Index: l.Index, Confidence: l.Confidence})
		}
		src.detections = append(src.detections, raw)
	}
	return src, nil
}

// Detect returns a copy of the fixture detections
func (s *FixtureSource) Detect(ctx context.Context, img image.Image) ([]detection.RawDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	if s.failure != nil {
		return nil, s.failure
	}

	detections := s.detections
	if !s.opts.MultipleObjects && len(detections) > 1 {
		detections = detections[:1]
	}

	out := make([]detection.RawDetection, 0, len(detections))
	for _, d := range detections {
		c := d
		if !s.opts.Classification {
			c.Labels = nil
		} else {
			c.Labels = append([]detection.Candidate(nil), d.Labels...)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *FixtureSource) Close() error {
	return nil
}
