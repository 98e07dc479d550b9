package engine

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-object-detector/internal/detection"
)

// tensor lays anchors out as [1, 4+C, N], channel-major
func tensor(anchors [][]float32) ([]float32, int, int) {
	channels := len(anchors[0])
	n := len(anchors)
	out := make([]float32, channels*n)
	for i, a := range anchors {
		for c, v := range a {
			out[c*n+i] = v
		}
	}
	return out, channels, n
}

func decodeOptions() detection.Options {
	return detection.Options{
		Labels:              []string{"cat", "dog"},
		MultipleObjects:     true,
		Classification:      true,
		ObjectThreshold:     0.25,
		ConfidenceThreshold: 0.8,
		MaxLabelsPerObject:  3,
		InputSize:           640,
		NMSThreshold:        0.7,
	}
}

var sample = [][]float32{
	{100, 100, 40, 40, 0.9, 0.85}, // cat/dog
	{102, 100, 40, 40, 0.5, 0.3},  // overlaps the first
	{300, 300, 20, 20, 0.1, 0.2},  // below the object threshold
	{400, 400, 50, 50, 0.3, 0.4},  // object without a confident label
}

func TestDecodeYOLO(t *testing.T) {
	output, channels, anchors := tensor(sample)
	frame := NewFrame(image.Rect(0, 0, 640, 640), 640)

	got, err := DecodeYOLO(output, channels, anchors, frame, decodeOptions())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "80 80 120 120", got[0].Region.Flatten())
	require.Len(t, got[0].Labels, 2)
	assert.Equal(t, "cat", got[0].Labels[0].Text)
	assert.Equal(t, float32(0.9), got[0].Labels[0].Confidence)
	assert.Equal(t, "dog", got[0].Labels[1].Text)
	assert.Equal(t, 1, got[0].Labels[1].Index)

	assert.Equal(t, "375 375 425 425", got[1].Region.Flatten())
	assert.Empty(t, got[1].Labels)
}

func TestDecodeYOLO_Options(t *testing.T) {
	output, channels, anchors := tensor(sample)
	frame := NewFrame(image.Rect(0, 0, 640, 640), 640)

	t.Run("max labels", func(t *testing.T) {
		opts := decodeOptions()
		opts.MaxLabelsPerObject = 1
		got, err := DecodeYOLO(output, channels, anchors, frame, opts)
		require.NoError(t, err)
		require.Len(t, got[0].Labels, 1)
		assert.Equal(t, "cat", got[0].Labels[0].Text)
	})

	t.Run("single object", func(t *testing.T) {
		opts := decodeOptions()
		opts.MultipleObjects = false
		got, err := DecodeYOLO(output, channels, anchors, frame, opts)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "80 80 120 120", got[0].Region.Flatten())
	})

	t.Run("classification disabled", func(t *testing.T) {
		opts := decodeOptions()
		opts.Classification = false
		got, err := DecodeYOLO(output, channels, anchors, frame, opts)
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, d := range got {
			assert.Nil(t, d.Labels)
		}
	})

	t.Run("loose nms keeps overlaps", func(t *testing.T) {
		opts := decodeOptions()
		opts.NMSThreshold = 0.95
		got, err := DecodeYOLO(output, channels, anchors, frame, opts)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})
}

func TestDecodeYOLO_ScalesAndClips(t *testing.T) {
	output, channels, anchors := tensor([][]float32{
		{630, 320, 40, 40, 0.9},
	})
	// 1280x640 image stretched onto a 640 input
	frame := NewFrame(image.Rect(0, 0, 1280, 640), 640)
	opts := decodeOptions()
	opts.Labels = []string{"person"}

	got, err := DecodeYOLO(output, channels, anchors, frame, opts)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1220 300 1280 340", got[0].Region.Flatten())
	assert.Equal(t, "person", got[0].Labels[0].Text)
}

func TestDecodeYOLO_BadShape(t *testing.T) {
	frame := NewFrame(image.Rect(0, 0, 640, 640), 640)

	_, err := DecodeYOLO(make([]float32, 8), 4, 2, frame, decodeOptions())
	assert.Error(t, err)

	_, err = DecodeYOLO(make([]float32, 5), 6, 2, frame, decodeOptions())
	assert.Error(t, err)
}

func TestYOLOAnchors(t *testing.T) {
	assert.Equal(t, 8400, YOLOAnchors(640))
	assert.Equal(t, 2100, YOLOAnchors(320))
}
