//go:build !gocv
// +build !gocv

package engine

import (
	"context"
	"errors"
	"image"

	"go-object-detector/internal/detection"
)

var errGoCVDisabled = errors.New("gocv build tag is not enabled")

// GoCVSource is unavailable without the gocv build tag.
type GoCVSource struct{}

// NewGoCVSource always fails without the gocv build tag.
func NewGoCVSource(detection.Options) (*GoCVSource, error) {
	return nil, errGoCVDisabled
}

func (*GoCVSource) Detect(context.Context, image.Image) ([]detection.RawDetection, error) {
	return nil, errGoCVDisabled
}

func (*GoCVSource) Close() error {
	return nil
}
