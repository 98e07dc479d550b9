package repository

import (
	"errors"

	"go-object-detector/internal/storage"
)

var (
	// ErrUnsupportedScheme indicates no resolver is registered for a reference scheme
	ErrUnsupportedScheme = errors.New("unsupported image reference scheme")

	// ErrRepositoryUnavailable indicates a resolver could not be created
	ErrRepositoryUnavailable = errors.New("image repository unavailable")

	// ErrImageRejected indicates an image failed validation, either from its
	// header inside a fetcher or after decoding here
	ErrImageRejected = storage.ErrImageRejected
)
