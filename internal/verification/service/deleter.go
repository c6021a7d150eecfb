package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"idproof/internal/audit"
	"idproof/internal/blobstore"
	"idproof/internal/verification/metrics"
	"idproof/internal/verification/store"
	dErrors "idproof/pkg/domain-errors"
)

// Deleter is the deletion coordinator. It owns destruction of a
// verification record and every blob it references.
type Deleter struct {
	records store.RecordStore
	blobs   blobstore.Store
	audit   audit.Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewDeleter constructs the deletion coordinator.
func NewDeleter(records store.RecordStore, blobs blobstore.Store, pub audit.Publisher, logger *slog.Logger, m *metrics.Metrics) *Deleter {
	if pub == nil {
		pub = audit.Noop{}
	}
	return &Deleter{
		records: records,
		blobs:   blobs,
		audit:   pub,
		logger:  logger,
		metrics: m,
	}
}

// Delete removes all blob objects first and the record last, so a record
// that still exists always points at findable blobs. Any blob-delete
// failure aborts before the record is touched and the caller is told to
// retry. A second call for the same ID reports NotFound, which callers
// treat as an idempotent success.
func (d *Deleter) Delete(ctx context.Context, verificationID string) (string, error) {
	ctx, span := tracer.Start(ctx, "verification.delete")
	span.SetAttributes(attribute.String("verification.id", verificationID))
	defer span.End()

	rec, err := d.records.Get(ctx, verificationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			d.metrics.RecordDeletion("not_found")
			return "", dErrors.New(dErrors.CodeNotFound, "no verification found for the given ID")
		}
		d.metrics.RecordDeletion("error")
		return "", dErrors.Wrap(dErrors.CodeInternal, "record lookup failed", err)
	}

	// Blobs before record. The store treats missing objects as already
	// deleted; lifecycle rules may have reclaimed them first.
	keys := []string{rec.OriginalImageRefs.Identity, rec.OriginalImageRefs.Selfie}
	if rec.DerivedImageRefs.Identity != "" {
		keys = append(keys, rec.DerivedImageRefs.Identity)
	}
	if rec.DerivedImageRefs.Selfie != "" {
		keys = append(keys, rec.DerivedImageRefs.Selfie)
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := d.blobs.Delete(ctx, key); err != nil {
			d.metrics.RecordDeletion("partial_failure")
			d.logger.ErrorContext(ctx, "blob delete failed, record left intact",
				"verification_id", verificationID,
				"error", err,
			)
			return "", dErrors.Wrap(dErrors.CodeUnavailable, "failed to delete stored images, please retry", err)
		}
	}

	if err := d.records.Delete(ctx, verificationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Lost a race with another delete; the outcome is the same.
			d.metrics.RecordDeletion("not_found")
			return "", dErrors.New(dErrors.CodeNotFound, "no verification found for the given ID")
		}
		d.metrics.RecordDeletion("error")
		return "", dErrors.Wrap(dErrors.CodeInternal, "record delete failed", err)
	}

	d.metrics.RecordDeletion("deleted")
	d.audit.Publish(ctx, audit.Event{
		Type:           audit.EventDeleted,
		VerificationID: verificationID,
		At:             time.Now().UTC(),
	})
	d.logger.InfoContext(ctx, "verification deleted", "verification_id", verificationID)

	return fmt.Sprintf("Verification with ID %s deleted successfully", verificationID), nil
}
