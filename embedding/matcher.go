package embedding

// RosterEntry pairs an enrolled student ID with their representative
// descriptor for one matching pass
type RosterEntry struct {
	StudentID  uint
	Descriptor Descriptor
}

// MatchResult is the decision record for one face against one roster
// snapshot. StudentID is nil when the face stayed unmatched.
type MatchResult struct {
	StudentID   *uint
	Confidence  float64
	NeedsReview bool
}

// Match scans the roster for the entry most similar to the face descriptor
// and classifies the best score against the thresholds. The scan is linear
// and tie-breaks by first-encountered roster order (strict > on the running
// maximum), so results are deterministic for a given roster snapshot. An
// empty roster is an automatic unmatched result, not an error.
//
// Match is read-only over the roster and safe to call concurrently for
// different faces against the same snapshot.
func Match(desc Descriptor, roster []RosterEntry, th Thresholds) MatchResult {
	if len(roster) == 0 {
		return MatchResult{}
	}

	var bestID uint
	var bestScore float64
	found := false
	for _, entry := range roster {
		if entry.Descriptor.Model != desc.Model {
			// descriptors from different models are not comparable
			continue
		}
		score := Cosine(desc.Vector, entry.Descriptor.Vector)
		if !found || score > bestScore {
			found = true
			bestScore = score
			bestID = entry.StudentID
		}
	}
	if !found {
		return MatchResult{}
	}

	matched, needsReview := th.Decision(bestScore)
	if !matched {
		return MatchResult{Confidence: bestScore}
	}
	id := bestID
	return MatchResult{StudentID: &id, Confidence: bestScore, NeedsReview: needsReview}
}
