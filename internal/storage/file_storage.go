package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrImageNotFound is returned when a referenced image does not exist
var ErrImageNotFound = errors.New("image not found")

// FileImageLoader loads images from the local filesystem. It accepts plain
// paths and file:// URLs. When root is set, relative paths resolve against it.
type FileImageLoader struct {
	root    string
	decoder *Decoder
}

func NewFileImageLoader(root string) *FileImageLoader {
	return &FileImageLoader{root: root, decoder: NewDecoder(0, nil)}
}

// WithDecoder replaces the decoder and its limits
func (f *FileImageLoader) WithDecoder(d *Decoder) *FileImageLoader {
	if d != nil {
		f.decoder = d
	}
	return f
}

func (f *FileImageLoader) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := f.localPath(ref)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrImageNotFound, path)
		}
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	return f.decoder.Decode(file)
}

func (f *FileImageLoader) localPath(ref string) (string, error) {
	path := strings.TrimSpace(ref)
	if strings.HasPrefix(path, "file://") {
		u, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("invalid file URL: %w", err)
		}
		path = u.Path
	}
	if path == "" {
		return "", errors.New("empty image path")
	}
	if f.root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(f.root, path)
	}
	return filepath.Clean(path), nil
}
