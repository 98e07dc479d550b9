package validation

import (
	"net/url"
	"strings"

	apperrors "go-object-detector/internal/errors"
)

// Schemes understood by the image resolvers. An empty scheme is a plain path.
const (
	SchemePath   = ""
	SchemeFile   = "file"
	SchemeHTTP   = "http"
	SchemeHTTPS  = "https"
	SchemeAzBlob = "azblob"
)

// ReferenceValidator checks image references before any resolver runs
type ReferenceValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewReferenceValidator allows every supported scheme and any host
func NewReferenceValidator() *ReferenceValidator {
	return &ReferenceValidator{
		allowedSchemes: []string{SchemePath, SchemeFile, SchemeHTTP, SchemeHTTPS, SchemeAzBlob},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewReferenceValidatorWithOptions creates a validator with custom schemes and hosts
func NewReferenceValidatorWithOptions(schemes []string, hosts []string) *ReferenceValidator {
	return &ReferenceValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateReference validates an image path or URL and returns its scheme
func (v *ReferenceValidator) ValidateReference(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", apperrors.NewValidationError("Image path cannot be empty", nil)
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return "", apperrors.NewValidationError("Invalid image reference format", err)
	}
	scheme := strings.ToLower(parsed.Scheme)

	if !v.isSchemeAllowed(scheme) {
		return "", apperrors.NewValidationError("Image reference scheme not allowed", nil)
	}

	switch scheme {
	case SchemePath, SchemeFile:
		if parsed.Path == "" {
			return "", apperrors.NewValidationError("Image path cannot be empty", nil)
		}
		if scheme == SchemeFile && parsed.Host != "" && parsed.Host != "localhost" {
			return "", apperrors.NewValidationError("File references must be local", nil)
		}
	default:
		if parsed.Host == "" {
			return "", apperrors.NewValidationError("Image URL must have a valid host", nil)
		}
		if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsed.Hostname()) {
			return "", apperrors.NewValidationError("Image URL host not allowed", nil)
		}
	}

	return scheme, nil
}

func (v *ReferenceValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed returns true if no host restrictions are set
func (v *ReferenceValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}
