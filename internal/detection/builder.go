package detection

import (
	"strconv"

	"go-object-detector/pkg/models"
)

// BuildRecords serializes annotated detections into wire records, in order
func BuildRecords(annotated []AnnotatedDetection) []models.DetectionRecord {
	records := make([]models.DetectionRecord, 0, len(annotated))
	for _, a := range annotated {
		records = append(records, models.DetectionRecord{
			Label:       a.Label,
			Confidence:  strconv.FormatFloat(float64(a.Confidence), 'f', -1, 32),
			Width:       strconv.Itoa(a.Width),
			Height:      strconv.Itoa(a.Height),
			Coordinates: a.Coordinates,
		})
	}
	return records
}
