package validation

import (
	"image"
	"testing"
)

func TestNewImageValidator(t *testing.T) {
	validator := NewImageValidator()
	if validator == nil {
		t.Fatal("Expected non-nil image validator")
	}
	if validator.Limits() != DefaultImageLimits() {
		t.Errorf("Expected default limits, got %+v", validator.Limits())
	}
}

func TestNewImageValidatorWithLimits_FillsZeroes(t *testing.T) {
	validator := NewImageValidatorWithLimits(ImageLimits{MinWidth: 32})

	limits := validator.Limits()
	if limits.MinWidth != 32 {
		t.Errorf("Expected MinWidth 32, got %d", limits.MinWidth)
	}
	if limits.MaxPixels != DefaultImageLimits().MaxPixels {
		t.Errorf("Expected default MaxPixels, got %d", limits.MaxPixels)
	}
}

func TestValidateImage(t *testing.T) {
	validator := NewImageValidatorWithLimits(ImageLimits{
		MinWidth:       16,
		MinHeight:      16,
		MaxPixels:      100 * 100,
		MaxAspectRatio: 3,
	})

	tests := []struct {
		name     string
		img      image.Image
		types    []string
		critical bool
	}{
		{"acceptable", image.NewRGBA(image.Rect(0, 0, 64, 48)), nil, false},
		{"too small", image.NewRGBA(image.Rect(0, 0, 8, 64)), []string{"low_resolution"}, true},
		{"too large", image.NewRGBA(image.Rect(0, 0, 101, 100)), []string{"too_large"}, true},
		{"elongated", image.NewRGBA(image.Rect(0, 0, 80, 20)), []string{"aspect_ratio"}, false},
		{"nil", nil, []string{"missing_image"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := validator.ValidateImage(tt.img)

			if len(issues) != len(tt.types) {
				t.Fatalf("Expected %d issues, got %v", len(tt.types), issues)
			}
			for i, issue := range issues {
				if issue.Type != tt.types[i] {
					t.Errorf("Expected issue %q, got %q", tt.types[i], issue.Type)
				}
			}
			if got := HasCriticalIssues(issues); got != tt.critical {
				t.Errorf("Expected critical=%v, got %v", tt.critical, got)
			}
		})
	}
}

func TestValidateImage_OffsetBounds(t *testing.T) {
	validator := NewImageValidatorWithLimits(ImageLimits{MinWidth: 10, MinHeight: 10})

	// Sub-images keep their parent's origin
	img := image.NewRGBA(image.Rect(100, 100, 120, 120))
	if issues := validator.ValidateImage(img); len(issues) != 0 {
		t.Errorf("Expected no issues, got %v", issues)
	}
}

func TestIssueMessages(t *testing.T) {
	issues := []ImageIssue{
		{Message: "first", Severity: SeverityWarning},
		{Message: "second", Severity: SeverityWarning},
	}

	messages := IssueMessages(issues)
	if len(messages) != 2 || messages[0] != "first" || messages[1] != "second" {
		t.Errorf("Unexpected messages: %v", messages)
	}
	if HasCriticalIssues(issues) {
		t.Error("Expected warnings not to be critical")
	}
}

func TestValidateDimensions_HugeHeader(t *testing.T) {
	validator := NewImageValidatorWithLimits(ImageLimits{MaxPixels: 1_000_000})

	issues := validator.ValidateDimensions(60000, 60000)
	if !HasCriticalIssues(issues) {
		t.Fatalf("Expected critical issue for 60000x60000, got %v", issues)
	}
	if issues[0].Type != "too_large" {
		t.Errorf("Expected too_large, got %q", issues[0].Type)
	}
	if issues[0].ActualValue != 3.6e9 {
		t.Errorf("Expected 3.6e9 pixels, got %v", issues[0].ActualValue)
	}
}
