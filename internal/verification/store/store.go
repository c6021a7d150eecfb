// Package store persists verification records keyed by verification ID.
package store

import (
	"context"
	"time"

	"idproof/internal/verification/models"
	"idproof/pkg/platform/sentinel"
)

// ErrNotFound keeps storage-specific 404s consistent across implementations.
var ErrNotFound = sentinel.ErrNotFound

// RecordStore is the durable key-value home of verification records.
//
// Implementations must enforce the outcome invariant: UpdateOutcome succeeds
// only while the record is pending, so terminal statuses can never revert.
type RecordStore interface {
	// Create stores a new record; sentinel.ErrConflict if the ID exists.
	Create(ctx context.Context, rec models.VerificationRecord) error
	// Get returns the record, or ErrNotFound.
	Get(ctx context.Context, verificationID string) (models.VerificationRecord, error)
	// UpdateOutcome moves a pending record to its terminal status.
	// Returns sentinel.ErrConflict when the record is already terminal.
	UpdateOutcome(ctx context.Context, verificationID string, status models.Status, similarity float64, message string, at time.Time) error
	// UpdateDerivedRefs attaches the optimizer's derived image keys. The
	// field is single-writer and independent of Status. Non-empty fields of
	// refs overwrite; empty fields preserve existing values, so per-image
	// updates never clobber each other.
	UpdateDerivedRefs(ctx context.Context, verificationID string, refs models.ImageRefs) error
	// Delete removes the record, or ErrNotFound.
	Delete(ctx context.Context, verificationID string) error
	// Health reports whether the store is usable.
	Health(ctx context.Context) error
}
