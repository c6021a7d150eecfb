// Package oracle abstracts the external face-similarity capability. The
// orchestrator only ever sees a score or a categorized failure; the scoring
// model itself is a black box.
package oracle

import (
	"context"
	"errors"

	"idproof/pkg/platform/sentinel"
)

// Oracle scores the similarity between an identity document photo and a
// selfie on a 0-100 scale. A score of 0 means no face match was found.
type Oracle interface {
	Compare(ctx context.Context, identity, selfie []byte) (float64, error)
}

// ErrRejected reports that the oracle refused the images themselves
// (malformed, too large, unsupported encoding).
var ErrRejected = errors.New("images rejected by similarity service")

// FailureMessage summarizes an oracle error for the verification record.
// The message is caller-visible; it names the failure category, never
// transport details or storage keys.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, sentinel.ErrTimeout):
		return "Face comparison timed out"
	case errors.Is(err, ErrRejected):
		return "Face comparison rejected the provided images"
	default:
		return "Face comparison service unavailable"
	}
}
