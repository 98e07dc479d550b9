//go:build gocv
// +build gocv

package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"go-object-detector/internal/detection"
)

// GoCVSource runs a YOLO style ONNX model through the OpenCV DNN module.
type GoCVSource struct {
	mu   sync.Mutex
	opts detection.Options
	net  gocv.Net
}

// NewGoCVSource loads the model at opts.ModelPath
func NewGoCVSource(opts detection.Options) (*GoCVSource, error) {
	net := gocv.ReadNetFromONNX(opts.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model %s", opts.ModelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target: %w", err)
	}
	return &GoCVSource{opts: opts, net: net}, nil
}

func (s *GoCVSource) Detect(ctx context.Context, img image.Image) ([]detection.RawDetection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, errors.New("nil image")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("empty image")
	}

	size := s.opts.InputSize
	// Mat is BGR; the model expects RGB scaled to [0,1].
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	if err := s.net.SetInput(blob, ""); err != nil {
		return nil, fmt.Errorf("set input: %w", err)
	}
	out := s.net.Forward("")
	defer out.Close()

	dims := out.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output dims %v", dims)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	return DecodeYOLO(data, dims[1], dims[2], NewFrame(img.Bounds(), size), s.opts)
}

func (s *GoCVSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}
