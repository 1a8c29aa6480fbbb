package embedding

import (
	"fmt"
	"math"
)

// Cosine computes the cosine similarity between two vectors, bounded to
// [-1, 1]. A zero-norm vector (or mismatched/empty input) carries no
// comparable signal and yields 0.0 rather than NaN or an error.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return similarity
}

// Thresholds is the calibrated accept/review threshold pair for one model
// tag. Accept must exceed Review; both are configuration, not constants.
type Thresholds struct {
	Accept float64
	Review float64
}

// Validate checks the ordering invariant Accept > Review >= 0
func (t Thresholds) Validate() error {
	if t.Review < 0 {
		return fmt.Errorf("embedding: review threshold %.4f must be >= 0", t.Review)
	}
	if t.Accept <= t.Review {
		return fmt.Errorf("embedding: accept threshold %.4f must exceed review threshold %.4f",
			t.Accept, t.Review)
	}
	return nil
}

// Decision classifies a best-match similarity score against the threshold
// pair: scores at or above Accept match outright, scores in [Review, Accept)
// match tentatively and need human review, anything lower is unmatched.
func (t Thresholds) Decision(score float64) (matched, needsReview bool) {
	switch {
	case score >= t.Accept:
		return true, false
	case score >= t.Review:
		return true, true
	default:
		return false, false
	}
}
