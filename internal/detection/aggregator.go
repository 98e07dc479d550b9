package detection

// Aggregation is the per-image result of reducing every detection
type Aggregation struct {
	Annotated []AnnotatedDetection
	// AnyEmpty is set when the source returned no detections at all
	AnyEmpty bool
	// Labelled counts detections whose Label is non-nil
	Labelled int
}

// Aggregate reduces each detection independently, preserving input order
func Aggregate(detections []RawDetection, policy Policy) Aggregation {
	if len(detections) == 0 {
		return Aggregation{AnyEmpty: true}
	}

	out := Aggregation{Annotated: make([]AnnotatedDetection, 0, len(detections))}
	for _, d := range detections {
		annotated := annotate(d, policy.Select(d.Labels))
		if annotated.Label != nil {
			out.Labelled++
		}
		out.Annotated = append(out.Annotated, annotated)
	}
	return out
}

func annotate(d RawDetection, sel Selection) AnnotatedDetection {
	a := AnnotatedDetection{
		Index:       -1,
		Width:       d.Region.Width,
		Height:      d.Region.Height,
		Coordinates: d.Region.Flatten(),
		TrackingID:  d.TrackingID,
		Outcome:     sel.Outcome,
	}
	if sel.Outcome != NoCandidates {
		a.Confidence = sel.Candidate.Confidence
	}
	if label, ok := sel.Label(); ok {
		a.Label = &label
		a.Index = sel.Candidate.Index
	}
	return a
}
