package validation

import (
	"fmt"
	"image"
)

// Issue severities
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ImageLimits bounds the images handed to the detector
type ImageLimits struct {
	MinWidth  int
	MinHeight int
	MaxPixels int

	// Inputs are stretched to a square, so very wide or tall images lose detail
	MaxAspectRatio float64
}

// DefaultImageLimits returns the default limits
func DefaultImageLimits() ImageLimits {
	return ImageLimits{
		MinWidth:       1,
		MinHeight:      1,
		MaxPixels:      64 * 1024 * 1024,
		MaxAspectRatio: 4.0,
	}
}

// ImageIssue represents an image validation issue
type ImageIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "error" or "warning"
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// ImageValidator checks decoded images before detection
type ImageValidator struct {
	limits ImageLimits
}

// NewImageValidator creates a validator with default limits
func NewImageValidator() *ImageValidator {
	return &ImageValidator{limits: DefaultImageLimits()}
}

// NewImageValidatorWithLimits creates a validator with custom limits.
// Zero fields fall back to the defaults.
func NewImageValidatorWithLimits(limits ImageLimits) *ImageValidator {
	defaults := DefaultImageLimits()
	if limits.MinWidth <= 0 {
		limits.MinWidth = defaults.MinWidth
	}
	if limits.MinHeight <= 0 {
		limits.MinHeight = defaults.MinHeight
	}
	if limits.MaxPixels <= 0 {
		limits.MaxPixels = defaults.MaxPixels
	}
	if limits.MaxAspectRatio <= 0 {
		limits.MaxAspectRatio = defaults.MaxAspectRatio
	}
	return &ImageValidator{limits: limits}
}

// Limits returns the active limits
func (v *ImageValidator) Limits() ImageLimits {
	return v.limits
}

// ValidateImage reports every issue found in img
func (v *ImageValidator) ValidateImage(img image.Image) []ImageIssue {
	if img == nil {
		return []ImageIssue{{Type: "missing_image", Message: "Image could not be decoded", Severity: SeverityError}}
	}
	return v.ValidateDimensions(img.Bounds().Dx(), img.Bounds().Dy())
}

// ValidateDimensions checks declared dimensions, so it can run on an image
// header before any pixels are decoded.
func (v *ImageValidator) ValidateDimensions(w, h int) []ImageIssue {
	var issues []ImageIssue

	if w < v.limits.MinWidth || h < v.limits.MinHeight {
		issues = append(issues, ImageIssue{
			Type:        "low_resolution",
			Message:     fmt.Sprintf("Image is %dx%d, minimum is %dx%d", w, h, v.limits.MinWidth, v.limits.MinHeight),
			Severity:    SeverityError,
			ActualValue: float64(w) * float64(h),
			Threshold:   float64(v.limits.MinWidth * v.limits.MinHeight),
		})
		return issues
	}

	if pixels := int64(w) * int64(h); pixels > int64(v.limits.MaxPixels) {
		issues = append(issues, ImageIssue{
			Type:        "too_large",
			Message:     "Image has too many pixels",
			Severity:    SeverityError,
			ActualValue: float64(pixels),
			Threshold:   float64(v.limits.MaxPixels),
		})
	}

	long, short := w, h
	if short > long {
		long, short = short, long
	}
	if ratio := float64(long) / float64(short); ratio > v.limits.MaxAspectRatio {
		issues = append(issues, ImageIssue{
			Type:        "aspect_ratio",
			Message:     "Image is very elongated, small objects may be missed",
			Severity:    SeverityWarning,
			ActualValue: ratio,
			Threshold:   v.limits.MaxAspectRatio,
		})
	}

	return issues
}

// HasCriticalIssues checks if there are any error severity issues
func HasCriticalIssues(issues []ImageIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// IssueMessages flattens issues into their messages
func IssueMessages(issues []ImageIssue) []string {
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}
