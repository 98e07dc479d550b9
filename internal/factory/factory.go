package factory

import (
	"fmt"
	"os"
	"time"

	"go-object-detector/internal/config"
	"go-object-detector/internal/detection"
	"go-object-detector/internal/engine"
	"go-object-detector/internal/repository"
	"go-object-detector/internal/storage"
	"go-object-detector/pkg/validation"
)

// EngineType selects a detection backend
type EngineType string

const (
	// ONNXEngine runs the model through ONNX Runtime
	ONNXEngine EngineType = config.EngineONNX
	// GoCVEngine runs the model through the OpenCV DNN module
	GoCVEngine EngineType = config.EngineGoCV
	// FixtureEngine replays detections from a JSON file
	FixtureEngine EngineType = config.EngineFixture
)

// StorageType represents different types of image storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// SourceFactory creates detection sources
type SourceFactory interface {
	CreateSource(engineType EngineType, opts detection.Options) (detection.Source, error)
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
}

type sourceFactory struct {
	runtimeLibrary string
}

// NewSourceFactory creates a source factory. runtimeLibrary is the
// onnxruntime shared library used by the ONNX engine.
func NewSourceFactory(runtimeLibrary string) SourceFactory {
	return &sourceFactory{runtimeLibrary: runtimeLibrary}
}

// CreateSource loads the model asset. A missing asset is an error, never a
// degraded source.
func (f *sourceFactory) CreateSource(engineType EngineType, opts detection.Options) (detection.Source, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", opts.ModelPath, err)
	}

	var (
		src detection.Source
		err error
	)
	switch engineType {
	case ONNXEngine:
		src, err = asSource(engine.NewONNXSource(opts, f.runtimeLibrary))
	case GoCVEngine:
		src, err = asSource(engine.NewGoCVSource(opts))
	case FixtureEngine:
		src, err = asSource(engine.NewFixtureSource(opts))
	default:
		return nil, fmt.Errorf("unsupported engine type: %s", engineType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s source: %w", engineType, err)
	}
	return src, nil
}

// asSource keeps a nil concrete pointer from becoming a non-nil interface
func asSource[S detection.Source](s S, err error) (detection.Source, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

type storageFactory struct {
	fetchTimeout time.Duration
	storage      config.StorageOptions
	decoder      *storage.Decoder
}

// NewStorageFactory creates a new storage factory. Every fetcher it creates
// shares one decoder enforcing the configured byte and dimension limits.
func NewStorageFactory(fetchTimeout time.Duration, opts config.StorageOptions) StorageFactory {
	return &storageFactory{
		fetchTimeout: fetchTimeout,
		storage:      opts,
		decoder:      storage.NewDecoder(opts.MaxImageBytes, ImageValidator(opts)),
	}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(f.fetchTimeout).WithDecoder(f.decoder), nil
	case AzureStorage:
		fetcher, err := storage.NewAzureBlobFetcher(f.storage.AzureAccountName, f.storage.AzureAccountKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", repository.ErrRepositoryUnavailable, err)
		}
		return fetcher.WithDecoder(f.decoder), nil
	case LocalStorage:
		return storage.NewFileImageLoader("").WithDecoder(f.decoder), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	SourceFactory  SourceFactory
	StorageFactory StorageFactory
}

// NewComponentFactory creates a new component factory from configuration
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		SourceFactory:  NewSourceFactory(cfg.Detector.ONNXRuntimeLibrary),
		StorageFactory: NewStorageFactory(cfg.ImageFetchTimeout, cfg.Storage),
	}
}

// BuildRepository registers a fetcher for every allowed scheme. Azure is only
// wired when an account is configured; without one azblob references fail
// with ErrUnsupportedScheme.
func (f *ComponentFactory) BuildRepository(opts config.StorageOptions) (*repository.SchemeRepository, error) {
	repo := repository.NewSchemeRepository(
		validation.NewReferenceValidatorWithOptions(opts.AllowedSchemes, nil),
	).WithImageValidator(ImageValidator(opts))

	for _, scheme := range opts.AllowedSchemes {
		var storageType StorageType
		switch scheme {
		case validation.SchemePath, validation.SchemeFile:
			storageType = LocalStorage
		case validation.SchemeHTTP, validation.SchemeHTTPS:
			storageType = HTTPStorage
		case validation.SchemeAzBlob:
			if opts.AzureAccountName == "" {
				continue
			}
			storageType = AzureStorage
		default:
			return nil, fmt.Errorf("unsupported image scheme: %q", scheme)
		}

		fetcher, err := f.StorageFactory.CreateStorage(storageType)
		if err != nil {
			return nil, err
		}
		repo.Register(scheme, fetcher)
	}
	return repo, nil
}

// ImageValidator builds the image limits from storage configuration
func ImageValidator(opts config.StorageOptions) *validation.ImageValidator {
	return validation.NewImageValidatorWithLimits(validation.ImageLimits{
		MinWidth:  opts.MinImageWidth,
		MinHeight: opts.MinImageHeight,
		MaxPixels: opts.MaxImagePixels,
	})
}

// SourceOptions converts detector configuration into engine options
func SourceOptions(d config.DetectorOptions, labels []string) detection.Options {
	return detection.Options{
		ModelPath:           d.ModelPath,
		Labels:              labels,
		MultipleObjects:     d.MultipleObjects,
		Classification:      d.Classification,
		ObjectThreshold:     d.ObjectThreshold,
		ConfidenceThreshold: d.ConfidenceThreshold,
		MaxLabelsPerObject:  d.MaxLabelsPerObject,
		InputSize:           d.InputSize,
		NMSThreshold:        d.NMSThreshold,
	}
}
