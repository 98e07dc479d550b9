package repository

import (
	"context"
	"image"
)

// ImageRepository resolves an image reference into a decoded image
type ImageRepository interface {
	FetchImage(ctx context.Context, ref string) (image.Image, error)
}
