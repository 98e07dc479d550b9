package models

// DetectRequest is the inbound detect(imagePath) call
type DetectRequest struct {
	ImagePath string `json:"image_path" binding:"required"`
}

// ErrorResponse represents an error response.
// Code is the stable machine-readable error kind.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// DetectionRecord is the wire shape of one annotated detection.
// Numeric fields are string-encoded to stay compatible with existing clients.
type DetectionRecord struct {
	Label       *string `json:"label"`
	Confidence  string  `json:"confidence"`
	Width       string  `json:"width"`
	Height      string  `json:"height"`
	Coordinates string  `json:"coordinates"`
}

// DetectionResponse is the ordered result of one detect call
type DetectionResponse struct {
	RequestID        string            `json:"request_id"`
	ImagePath        string            `json:"image_path"`
	ImageWidth       int               `json:"image_width"`
	ImageHeight      int               `json:"image_height"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	Detections       []DetectionRecord `json:"detections"`
}
