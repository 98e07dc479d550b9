package engine

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-object-detector/internal/detection"
)

func TestIoU(t *testing.T) {
	a := image.Rect(0, 0, 10, 10)

	assert.Equal(t, float32(1), IoU(a, a))
	assert.Equal(t, float32(0), IoU(a, image.Rect(20, 20, 30, 30)))
	assert.InDelta(t, 50.0/150.0, IoU(a, image.Rect(5, 0, 15, 10)), 1e-6)
}

func TestNMS(t *testing.T) {
	boxes := []scored{
		{box: image.Rect(0, 0, 10, 10), score: 0.6, anchor: 0},
		{box: image.Rect(1, 0, 11, 10), score: 0.9, anchor: 1},
		{box: image.Rect(50, 50, 60, 60), score: 0.7, anchor: 2},
	}

	kept := NMS(boxes, 0.5)

	require.Len(t, kept, 2)
	assert.Equal(t, 1, kept[0].anchor)
	assert.Equal(t, 2, kept[1].anchor)
	assert.Empty(t, NMS(nil, 0.5))
}

func TestToCHW(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	dst := make([]float32, 3*16*16)
	frame, err := ToCHW(img, 16, dst)
	require.NoError(t, err)

	assert.Equal(t, float32(4), frame.ScaleX)
	assert.Equal(t, float32(2), frame.ScaleY)
	assert.InDelta(t, 1.0, dst[0], 1e-6)
	assert.InDelta(t, 0.0, dst[16*16], 1e-6)
	assert.InDelta(t, 0.0, dst[2*16*16], 1e-6)
}

func TestToCHW_Errors(t *testing.T) {
	_, err := ToCHW(nil, 16, make([]float32, 3*16*16))
	assert.Error(t, err)

	_, err = ToCHW(image.NewRGBA(image.Rect(0, 0, 4, 4)), 16, make([]float32, 10))
	assert.Error(t, err)
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadLabels(t *testing.T) {
	labels, err := LoadLabels(writeTemp(t, "labels.txt", "person\n\n car \n\n\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"person", "", "car"}, labels)

	_, err = LoadLabels(writeTemp(t, "empty.txt", "\n\n"))
	assert.Error(t, err)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

const fixtureJSON = `{
  "detections": [
    {"box": [10, 20, 110, 220], "labels": [{"index": 0, "confidence": 0.9}, {"text": "puppy", "index": 1, "confidence": 0.95}]},
    {"box": [0, 0, 5, 5], "tracking_id": 7, "labels": []}
  ]
}`

func TestFixtureSource(t *testing.T) {
	opts := detection.Options{
		ModelPath:       writeTemp(t, "fixture.json", fixtureJSON),
		Labels:          []string{"cat", "dog"},
		MultipleObjects: true,
		Classification:  true,
	}
	src, err := NewFixtureSource(opts)
	require.NoError(t, err)
	defer src.Close()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	got, err := src.Detect(context.Background(), img)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "10 20 110 220", got[0].Region.Flatten())
	assert.Equal(t, "cat", got[0].Labels[0].Text)
	assert.Equal(t, "puppy", got[0].Labels[1].Text)
	require.NotNil(t, got[1].TrackingID)
	assert.Equal(t, 7, *got[1].TrackingID)

	// callers may not mutate the fixture
	got[0].Labels[0].Text = "changed"
	again, err := src.Detect(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "cat", again[0].Labels[0].Text)
}

func TestFixtureSource_Options(t *testing.T) {
	path := writeTemp(t, "fixture.json", fixtureJSON)
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))

	src, err := NewFixtureSource(detection.Options{ModelPath: path, Classification: false, MultipleObjects: false})
	require.NoError(t, err)

	got, err := src.Detect(context.Background(), img)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Labels)
}

func TestFixtureSource_Failures(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))

	src, err := NewFixtureSource(detection.Options{ModelPath: writeTemp(t, "f.json", `{"error": "model load failed"}`)})
	require.NoError(t, err)
	_, err = src.Detect(context.Background(), img)
	assert.EqualError(t, err, "model load failed")

	_, err = src.Detect(context.Background(), nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Detect(ctx, img)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewFixtureSource(detection.Options{ModelPath: writeTemp(t, "bad.json", `not json`)})
	assert.Error(t, err)
}
