package detection

// SelectionOutcome tells why a reduction did or did not produce a label
type SelectionOutcome int

const (
	// NoCandidates means the detection carried no labels at all
	NoCandidates SelectionOutcome = iota
	// BelowPolicy means candidates existed but none met the selection policy
	BelowPolicy
	// Selected means Candidate holds the chosen label
	Selected
)

func (o SelectionOutcome) String() string {
	switch o {
	case NoCandidates:
		return "no_candidates"
	case BelowPolicy:
		return "below_policy"
	case Selected:
		return "selected"
	default:
		return "unknown"
	}
}

// Selection is the result of reducing one detection's candidates.
// For BelowPolicy, Candidate is the best candidate seen, kept for diagnostics.
type Selection struct {
	Outcome   SelectionOutcome
	Candidate Candidate
}

// Label returns the selected label text, if any
func (s Selection) Label() (string, bool) {
	if s.Outcome != Selected {
		return "", false
	}
	return s.Candidate.Text, true
}

// Reduce picks the candidate with the highest confidence. A candidate must
// score strictly above floor to be selected. Comparison is strict, so the
// earliest candidate wins a tie.
func Reduce(candidates []Candidate, floor float32) Selection {
	if len(candidates) == 0 {
		return Selection{Outcome: NoCandidates}
	}

	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Confidence > candidates[best].Confidence {
			best = i
		}
	}

	if candidates[best].Confidence <= floor {
		return Selection{Outcome: BelowPolicy, Candidate: candidates[best]}
	}
	return Selection{Outcome: Selected, Candidate: candidates[best]}
}
