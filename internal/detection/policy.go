package detection

import "fmt"

// Policy names accepted by NewPolicy.
const (
	PolicyMaxConfidence = "max_confidence"
	PolicyThreshold     = "threshold"
)

// Policy decides which candidate, if any, labels a detection
type Policy interface {
	Select(candidates []Candidate) Selection
	Name() string
}

// MaxConfidencePolicy accepts the highest scoring candidate whatever its
// score, as long as it is above Floor (zero by default).
type MaxConfidencePolicy struct {
	Floor float32
}

// NewMaxConfidencePolicy creates a policy with a zero floor
func NewMaxConfidencePolicy() Policy {
	return MaxConfidencePolicy{}
}

func (p MaxConfidencePolicy) Select(candidates []Candidate) Selection {
	return Reduce(candidates, p.Floor)
}

func (p MaxConfidencePolicy) Name() string {
	return PolicyMaxConfidence
}

// ThresholdPolicy only accepts the highest scoring candidate when its
// confidence is at least Threshold.
type ThresholdPolicy struct {
	Threshold float32
}

// NewThresholdPolicy creates a policy that rejects labels scoring below threshold
func NewThresholdPolicy(threshold float32) Policy {
	return ThresholdPolicy{Threshold: threshold}
}

func (p ThresholdPolicy) Select(candidates []Candidate) Selection {
	sel := Reduce(candidates, 0)
	if sel.Outcome == Selected && sel.Candidate.Confidence < p.Threshold {
		sel.Outcome = BelowPolicy
	}
	return sel
}

func (p ThresholdPolicy) Name() string {
	return PolicyThreshold
}

// NewPolicy builds a policy by name
func NewPolicy(name string, threshold float32) (Policy, error) {
	switch name {
	case PolicyMaxConfidence, "":
		return NewMaxConfidencePolicy(), nil
	case PolicyThreshold:
		return NewThresholdPolicy(threshold), nil
	default:
		return nil, fmt.Errorf("unsupported selection policy: %s", name)
	}
}
