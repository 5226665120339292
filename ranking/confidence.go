package ranking

// Confidence labels.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
	ConfidenceSocial = "Social"
)

// ConfidenceThresholds bucket cosine distance (1 - similarity).
type ConfidenceThresholds struct {
	HighDistance   float64
	MediumDistance float64
}

// DefaultConfidenceThresholds returns the standard buckets.
func DefaultConfidenceThresholds() ConfidenceThresholds {
	return ConfidenceThresholds{HighDistance: 0.25, MediumDistance: 0.45}
}

// Label returns the bucket for a raw similarity; nil means a social result.
func (t ConfidenceThresholds) Label(similarity *float64) string {
	if similarity == nil {
		return ConfidenceSocial
	}
	d := 1 - *similarity
	switch {
	case d <= t.HighDistance:
		return ConfidenceHigh
	case d <= t.MediumDistance:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
