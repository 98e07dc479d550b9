//go:build !onnx
// +build !onnx

package engine

import (
	"context"
	"errors"
	"image"

	"go-object-detector/internal/detection"
)

var errONNXDisabled = errors.New("onnx build tag is not enabled")

// ONNXSource is unavailable without the onnx build tag.
type ONNXSource struct{}

// NewONNXSource always fails without the onnx build tag.
func NewONNXSource(detection.Options, string) (*ONNXSource, error) {
	return nil, errONNXDisabled
}

func (*ONNXSource) Detect(context.Context, image.Image) ([]detection.RawDetection, error) {
	return nil, errONNXDisabled
}

func (*ONNXSource) Close() error {
	return nil
}
