package service

import (
	"fmt"
	"math"
)

// Outcome messages. The three bands partition [0,100] exactly: a score of 0
// is no-match, anything in (0,threshold) is a completed below-threshold
// comparison, threshold and above is a match.
const (
	msgNoMatch = "No face matches found"
)

// classify maps a successful oracle score onto its outcome message. A
// below-threshold score is still a succeeded comparison; the pipeline did
// its job even though the people did not match.
func classify(similarity, threshold float64) string {
	switch {
	case similarity >= threshold:
		return fmt.Sprintf("Face comparison successful with %.2f%% similarity", similarity)
	case similarity > 0:
		return fmt.Sprintf("Face similarity of %.2f%% is below the required threshold", similarity)
	default:
		return msgNoMatch
	}
}

// roundScore normalizes oracle scores to two decimal places.
func roundScore(similarity float64) float64 {
	return math.Round(similarity*100) / 100
}
