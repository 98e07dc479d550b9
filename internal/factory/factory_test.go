package factory

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-object-detector/internal/config"
	"go-object-detector/internal/repository"
	"go-object-detector/internal/storage"
)

func TestCreateSource_Fixture(t *testing.T) {
	model := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(model, []byte(`{"detections": []}`), 0o644))

	opts := SourceOptions(config.DefaultDetectorOptions(), nil)
	opts.ModelPath = model

	src, err := NewSourceFactory("").CreateSource(FixtureEngine, opts)
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.NoError(t, src.Close())
}

func TestCreateSource_Errors(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.onnx")
	require.NoError(t, os.WriteFile(model, []byte("weights"), 0o644))

	f := NewSourceFactory("")

	tests := []struct {
		name   string
		engine EngineType
		path   string
		want   string
	}{
		{"missing model", FixtureEngine, filepath.Join(dir, "absent.json"), "failed to load model"},
		{"unknown engine", EngineType("tflite"), model, "unsupported engine type"},
		{"broken fixture", FixtureEngine, model, "failed to create fixture source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := SourceOptions(config.DefaultDetectorOptions(), nil)
			opts.ModelPath = tt.path

			src, err := f.CreateSource(tt.engine, opts)
			assert.Nil(t, src)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSourceOptions(t *testing.T) {
	d := config.DefaultDetectorOptions()
	opts := SourceOptions(d, []string{"cat"})

	assert.Equal(t, d.ModelPath, opts.ModelPath)
	assert.Equal(t, d.ObjectThreshold, opts.ObjectThreshold)
	assert.Equal(t, d.ConfidenceThreshold, opts.ConfidenceThreshold)
	assert.Equal(t, d.MaxLabelsPerObject, opts.MaxLabelsPerObject)
	assert.Equal(t, "cat", opts.LabelFor(0))
}

func TestCreateStorage(t *testing.T) {
	f := NewStorageFactory(time.Second, config.StorageOptions{})

	for _, st := range []StorageType{HTTPStorage, LocalStorage} {
		fetcher, err := f.CreateStorage(st)
		assert.NoError(t, err)
		assert.NotNil(t, fetcher)
	}

	_, err := f.CreateStorage(StorageType("ftp"))
	assert.Error(t, err)
}

func TestBuildRepository(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.png")
	out, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(out, image.NewGray(image.Rect(0, 0, 3, 2))))
	require.NoError(t, out.Close())

	opts := config.StorageOptions{AllowedSchemes: []string{"", "file", "https", "azblob"}}
	cfg := &config.Config{ImageFetchTimeout: time.Second, Storage: opts}

	repo, err := NewComponentFactory(cfg).BuildRepository(opts)
	require.NoError(t, err)

	img, err := repo.FetchImage(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())

	_, err = repo.FetchImage(context.Background(), "file://"+path)
	assert.NoError(t, err)

	_, err = repo.FetchImage(context.Background(), filepath.Join(dir, "missing.png"))
	assert.True(t, errors.Is(err, storage.ErrImageNotFound))

	// no account configured, so azblob has no fetcher
	_, err = repo.FetchImage(context.Background(), "azblob://images/cat.png")
	assert.ErrorIs(t, err, repository.ErrUnsupportedScheme)
}

func TestBuildRepository_UnknownScheme(t *testing.T) {
	opts := config.StorageOptions{AllowedSchemes: []string{"ftp"}}
	cfg := &config.Config{ImageFetchTimeout: time.Second, Storage: opts}

	_, err := NewComponentFactory(cfg).BuildRepository(opts)
	assert.Error(t, err)
}

// hugePNG declares w x h grayscale pixels and carries no pixel data
func hugePNG(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8
	chunk := append([]byte("IHDR"), ihdr...)
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestBuildRepository_ImageLimits(t *testing.T) {
	dir := t.TempDir()
	huge := filepath.Join(dir, "huge.png")
	require.NoError(t, os.WriteFile(huge, hugePNG(60000, 60000), 0o644))

	opts := config.StorageOptions{AllowedSchemes: []string{""}, MaxImagePixels: 1_000_000}
	cfg := &config.Config{ImageFetchTimeout: time.Second, Storage: opts}

	repo, err := NewComponentFactory(cfg).BuildRepository(opts)
	require.NoError(t, err)

	// Rejected from the header; the file has no pixel data to decode.
	_, err = repo.FetchImage(context.Background(), huge)
	require.ErrorIs(t, err, repository.ErrImageRejected)
	assert.Contains(t, err.Error(), "too many pixels")
}

func TestBuildRepository_ByteLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 16, 16))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	opts := config.StorageOptions{AllowedSchemes: []string{""}, MaxImageBytes: 16}
	cfg := &config.Config{ImageFetchTimeout: time.Second, Storage: opts}

	repo, err := NewComponentFactory(cfg).BuildRepository(opts)
	require.NoError(t, err)

	_, err = repo.FetchImage(context.Background(), path)
	assert.ErrorIs(t, err, storage.ErrImageTooLarge)
}
