package validation

import (
	"testing"

	apperrors "go-object-detector/internal/errors"
)

func TestNewReferenceValidator(t *testing.T) {
	validator := NewReferenceValidator()
	if validator == nil {
		t.Fatal("Expected non-nil reference validator")
	}

	for _, scheme := range []string{"", "file", "http", "https", "azblob"} {
		if !validator.isSchemeAllowed(scheme) {
			t.Errorf("Expected scheme %q to be allowed by default", scheme)
		}
	}
}

func TestValidateReference_Valid(t *testing.T) {
	validator := NewReferenceValidator()

	tests := []struct {
		ref    string
		scheme string
	}{
		{"/data/images/cat.jpg", ""},
		{"images/cat.jpg", ""},
		{"file:///data/images/cat.jpg", "file"},
		{"http://example.com/image.jpg", "http"},
		{"HTTPS://example.com/image.png", "https"},
		{"azblob://images/cat.jpg", "azblob"},
		{"http://192.168.1.1/image.jpg", "http"},
	}

	for _, tt := range tests {
		scheme, err := validator.ValidateReference(tt.ref)
		if err != nil {
			t.Errorf("Expected %s to pass validation, got error: %v", tt.ref, err)
			continue
		}
		if scheme != tt.scheme {
			t.Errorf("Expected scheme %q for %s, got %q", tt.scheme, tt.ref, scheme)
		}
	}
}

func TestValidateReference_Empty(t *testing.T) {
	validator := NewReferenceValidator()

	for _, ref := range []string{"", "   ", "\t\n"} {
		_, err := validator.ValidateReference(ref)
		if err == nil {
			t.Errorf("Expected empty reference %q to fail validation", ref)
			continue
		}

		appErr, ok := err.(*apperrors.AppError)
		if !ok {
			t.Errorf("Expected AppError, got: %T", err)
			continue
		}
		if appErr.Type != apperrors.ErrorTypeValidation {
			t.Errorf("Expected validation error, got: %s", appErr.Type)
		}
		if appErr.Message != "Image path cannot be empty" {
			t.Errorf("Expected 'Image path cannot be empty' error, got: %s", appErr.Message)
		}
	}
}

func TestValidateReference_NoHost(t *testing.T) {
	validator := NewReferenceValidator()

	for _, ref := range []string{"http://", "https://", "http:///path", "azblob:///cat.jpg"} {
		_, err := validator.ValidateReference(ref)
		if err == nil {
			t.Errorf("Expected URL without host '%s' to fail validation", ref)
			continue
		}
		if appErr, ok := err.(*apperrors.AppError); ok {
			if appErr.Message != "Image URL must have a valid host" {
				t.Errorf("Expected 'Image URL must have a valid host' error, got: %s", appErr.Message)
			}
		}
	}
}

func TestValidateReference_InvalidScheme(t *testing.T) {
	validator := NewReferenceValidator()

	refs := []string{
		"ftp://example.com/image.jpg",
		"data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8/5+hHgAHggJ/PchI7wAAAABJRU5ErkJggg==",
	}

	for _, ref := range refs {
		_, err := validator.ValidateReference(ref)
		if err == nil {
			t.Errorf("Expected reference with invalid scheme '%s' to fail validation", ref)
			continue
		}
		if appErr, ok := err.(*apperrors.AppError); ok {
			if appErr.Message != "Image reference scheme not allowed" {
				t.Errorf("Expected 'Image reference scheme not allowed' error, got: %s", appErr.Message)
			}
		}
	}
}

func TestValidateReference_RemoteFile(t *testing.T) {
	validator := NewReferenceValidator()

	if _, err := validator.ValidateReference("file://fileserver/share/cat.jpg"); err == nil {
		t.Error("Expected file reference with a remote host to fail validation")
	}
	if _, err := validator.ValidateReference("file://localhost/tmp/cat.jpg"); err != nil {
		t.Errorf("Expected localhost file reference to pass, got: %v", err)
	}
}

func TestValidateReference_RestrictedSchemes(t *testing.T) {
	validator := NewReferenceValidatorWithOptions([]string{"https"}, nil)

	if _, err := validator.ValidateReference("/tmp/cat.jpg"); err == nil {
		t.Error("Expected plain path to be rejected when only https is allowed")
	}
	if _, err := validator.ValidateReference("https://example.com/cat.jpg"); err != nil {
		t.Errorf("Expected https reference to pass, got: %v", err)
	}
}

func TestValidateReference_RestrictedHosts(t *testing.T) {
	validator := NewReferenceValidatorWithOptions([]string{"http", "https"}, []string{"example.com", "trusted.com"})

	for _, ref := range []string{"http://example.com/image.jpg", "https://Trusted.com:8443/image.png"} {
		if _, err := validator.ValidateReference(ref); err != nil {
			t.Errorf("Expected allowed host URL '%s' to pass validation, got error: %v", ref, err)
		}
	}

	for _, ref := range []string{"http://malicious.com/image.jpg", "https://untrusted.com/image.png"} {
		_, err := validator.ValidateReference(ref)
		if err == nil {
			t.Errorf("Expected disallowed host URL '%s' to fail validation", ref)
			continue
		}
		if appErr, ok := err.(*apperrors.AppError); ok {
			if appErr.Message != "Image URL host not allowed" {
				t.Errorf("Expected 'Image URL host not allowed' error, got: %s", appErr.Message)
			}
		}
	}
}

func TestIsHostAllowed(t *testing.T) {
	validator := NewReferenceValidator()
	if !validator.isHostAllowed("example.com") {
		t.Error("Expected any host to be allowed when no restrictions")
	}

	restricted := NewReferenceValidatorWithOptions([]string{"http", "https"}, []string{"example.com"})
	if !restricted.isHostAllowed("example.com") {
		t.Error("Expected example.com to be allowed")
	}
	if restricted.isHostAllowed("malicious.com") {
		t.Error("Expected malicious.com to be disallowed")
	}
}
