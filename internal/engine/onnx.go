//go:build onnx
// +build onnx

package engine

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"go-object-detector/internal/detection"
)

// ONNXSource runs a YOLO style ONNX model through ONNX Runtime.
// The session owns fixed input and output tensors, so inference is serialized.
type ONNXSource struct {
	mu       sync.Mutex
	opts     detection.Options
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	output   *ort.Tensor[float32]
	channels int
	anchors  int
}

// NewONNXSource loads the model at opts.ModelPath. libraryPath points at the
// onnxruntime shared library; empty uses the library's default lookup.
func NewONNXSource(opts detection.Options, libraryPath string) (*ONNXSource, error) {
	if !ort.IsInitialized() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "initialize onnxruntime environment")
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read model io info %s", opts.ModelPath)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, errors.Errorf("expected one input and at least one output, got %d and %d", len(inputs), len(outputs))
	}

	channels, anchors := outputDims(outputs[0].Dimensions, len(opts.Labels), opts.InputSize)
	if channels <= 4 || anchors <= 0 {
		return nil, errors.Errorf("cannot infer output shape from %v", outputs[0].Dimensions)
	}

	size := int64(opts.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(channels), int64(anchors)))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "create session options")
	}
	defer options.Destroy()
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(err, "create session for %s", opts.ModelPath)
	}

	return &ONNXSource{
		opts:     opts,
		session:  session,
		input:    input,
		output:   output,
		channels: channels,
		anchors:  anchors,
	}, nil
}

func (s *ONNXSource) Detect(ctx context.Context, img image.Image) ([]detection.RawDetection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame, err := ToCHW(img, s.opts.InputSize, s.input.GetData())
	if err != nil {
		return nil, errors.Wrap(err, "prepare input")
	}
	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "run inference")
	}

	detections, err := DecodeYOLO(s.output.GetData(), s.channels, s.anchors, frame, s.opts)
	if err != nil {
		return nil, errors.Wrap(err, "decode output")
	}
	return detections, nil
}

func (s *ONNXSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.input.Destroy()
	s.output.Destroy()
	s.session = nil
	return err
}

// outputDims resolves [1, 4+C, N], filling dynamic axes from the label count
// and input size.
func outputDims(shape ort.Shape, labels, inputSize int) (int, int) {
	if len(shape) != 3 {
		return 0, 0
	}
	channels, anchors := int(shape[1]), int(shape[2])
	if channels <= 0 && labels > 0 {
		channels = 4 + labels
	}
	if anchors <= 0 {
		anchors = YOLOAnchors(inputSize)
	}
	return channels, anchors
}
