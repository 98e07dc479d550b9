package repository

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"go-object-detector/internal/logger"
	"go-object-detector/internal/storage"
	"go-object-detector/pkg/validation"
)

// SchemeRepository validates a reference and hands it to the fetcher
// registered for its scheme. https URLs on an Azure blob endpoint go to the
// azblob fetcher when one is registered.
type SchemeRepository struct {
	validator *validation.ReferenceValidator
	images    *validation.ImageValidator

	mu       sync.RWMutex
	fetchers map[string]storage.ImageFetcher
}

// NewSchemeRepository creates a repository with no fetchers registered
func NewSchemeRepository(validator *validation.ReferenceValidator) *SchemeRepository {
	if validator == nil {
		validator = validation.NewReferenceValidator()
	}
	return &SchemeRepository{
		validator: validator,
		images:    validation.NewImageValidator(),
		fetchers:  make(map[string]storage.ImageFetcher),
	}
}

// WithImageValidator replaces the checks run on decoded images
func (r *SchemeRepository) WithImageValidator(v *validation.ImageValidator) *SchemeRepository {
	if v != nil {
		r.images = v
	}
	return r
}

// Register routes references with the given scheme to fetcher
func (r *SchemeRepository) Register(scheme string, fetcher storage.ImageFetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[scheme] = fetcher
}

// FetchImage retrieves and decodes the referenced image
func (r *SchemeRepository) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	scheme, err := r.validator.ValidateReference(ref)
	if err != nil {
		return nil, err
	}

	fetcher, err := r.fetcherFor(scheme, ref)
	if err != nil {
		return nil, err
	}
	img, err := fetcher.FetchImage(ctx, ref)
	if err != nil {
		return nil, err
	}
	return r.check(ref, img)
}

func (r *SchemeRepository) check(ref string, img image.Image) (image.Image, error) {
	issues := r.images.ValidateImage(img)
	if len(issues) == 0 {
		return img, nil
	}

	messages := validation.IssueMessages(issues)
	if validation.HasCriticalIssues(issues) {
		return nil, fmt.Errorf("%w: %s", ErrImageRejected, strings.Join(messages, "; "))
	}
	logger.WithFields(logrus.Fields{
		"image_path": ref,
		"issues":     messages,
	}).Warn("Image accepted with warnings")
	return img, nil
}

func (r *SchemeRepository) fetcherFor(scheme, ref string) (storage.ImageFetcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if scheme == validation.SchemeHTTPS && storage.IsAzureBlobURL(ref) {
		if f, ok := r.fetchers[validation.SchemeAzBlob]; ok {
			return f, nil
		}
	}
	if f, ok := r.fetchers[scheme]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
}
