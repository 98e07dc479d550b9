package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go-object-detector/pkg/validation"
)

// DefaultMaxImageBytes caps encoded image size when no limit is configured
const DefaultMaxImageBytes int64 = 32 << 20

var (
	// ErrEmptyImage is returned for images with no pixels
	ErrEmptyImage = errors.New("image has no pixels")

	// ErrImageRejected is returned for images outside the configured limits
	ErrImageRejected = errors.New("image rejected")

	// ErrImageTooLarge is returned when the encoded image exceeds the byte cap
	ErrImageTooLarge = fmt.Errorf("%w: encoded image exceeds size limit", ErrImageRejected)
)

// Decoder decodes images within byte and dimension limits. Dimensions are
// read from the image header, so oversized images are rejected before their
// pixels are allocated.
type Decoder struct {
	maxBytes int64
	images   *validation.ImageValidator
}

// NewDecoder creates a decoder. maxBytes <= 0 uses DefaultMaxImageBytes and a
// nil validator only rejects empty images.
func NewDecoder(maxBytes int64, images *validation.ImageValidator) *Decoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Decoder{maxBytes: maxBytes, images: images}
}

// MaxBytes returns the encoded size cap
func (d *Decoder) MaxBytes() int64 {
	return d.maxBytes
}

// Decode decodes any registered format
func (d *Decoder) Decode(r io.Reader) (image.Image, error) {
	body := &cappedReader{r: r, remaining: d.maxBytes}

	// Everything DecodeConfig consumes is replayed to Decode.
	var header bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(body, &header))
	if err != nil {
		return nil, decodeError(body, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrEmptyImage
	}
	if err := d.checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(io.MultiReader(&header, body))
	if err != nil {
		return nil, decodeError(body, err)
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return img, nil
}

func (d *Decoder) checkDimensions(w, h int) error {
	if d.images == nil {
		return nil
	}
	issues := d.images.ValidateDimensions(w, h)
	if !validation.HasCriticalIssues(issues) {
		return nil
	}
	var messages []string
	for _, issue := range issues {
		if issue.Severity == validation.SeverityError {
			messages = append(messages, issue.Message)
		}
	}
	return fmt.Errorf("%w: %s", ErrImageRejected, strings.Join(messages, "; "))
}

func decodeError(body *cappedReader, err error) error {
	if body.exceeded {
		return ErrImageTooLarge
	}
	return fmt.Errorf("failed to decode image: %w", err)
}

// cappedReader fails once more than remaining bytes are read
type cappedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.exceeded {
		return 0, ErrImageTooLarge
	}
	if c.remaining <= 0 {
		var one [1]byte
		n, err := c.r.Read(one[:])
		if n > 0 {
			c.exceeded = true
			return 0, ErrImageTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	return n, err
}
