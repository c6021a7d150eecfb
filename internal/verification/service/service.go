// Package service implements the verification workflow: the orchestrator
// that drives one comparison from ingest to terminal status, and the
// deletion coordinator that unwinds a verification and its artifacts.
package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif" // register decoders for input validation
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"idproof/internal/audit"
	"idproof/internal/blobstore"
	"idproof/internal/oracle"
	"idproof/internal/verification/metrics"
	"idproof/internal/verification/models"
	"idproof/internal/verification/store"
	dErrors "idproof/pkg/domain-errors"
)

var tracer = otel.Tracer("idproof/verification")

// SubmitRequest carries the two decoded (from base64) image payloads.
type SubmitRequest struct {
	Identity []byte
	Selfie   []byte
}

// SubmitResult is the caller-visible outcome. It never contains image bytes
// or storage keys.
type SubmitResult struct {
	VerificationID string
	Status         models.Status
	Similarity     float64
	Message        string
	CreatedAt      time.Time
}

// Service is the verification orchestrator.
type Service struct {
	records store.RecordStore
	blobs   blobstore.Store
	oracle  oracle.Oracle
	audit   audit.Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics

	threshold     float64
	oracleTimeout time.Duration

	// now is a clock hook for tests.
	now func() time.Time
}

// New constructs the orchestrator. threshold is the fixed pass/fail policy
// boundary; oracleTimeout bounds the single blocking point per request.
func New(records store.RecordStore, blobs blobstore.Store, orc oracle.Oracle, pub audit.Publisher, logger *slog.Logger, m *metrics.Metrics, threshold float64, oracleTimeout time.Duration) *Service {
	if pub == nil {
		pub = audit.Noop{}
	}
	if threshold <= 0 {
		threshold = 80
	}
	if oracleTimeout <= 0 {
		oracleTimeout = 10 * time.Second
	}
	return &Service{
		records:       records,
		blobs:         blobs,
		oracle:        orc,
		audit:         pub,
		logger:        logger,
		metrics:       m,
		threshold:     threshold,
		oracleTimeout: oracleTimeout,
		now:           time.Now,
	}
}

// Submit runs one verification end to end: store originals, create the
// pending record, score the originals, persist the terminal outcome.
// Every call issues a fresh verification ID; submissions are deliberately
// not idempotent so the audit trail keeps distinguishable events.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	// Step 1: validation, before any side effect.
	if err := validateImage("dl", req.Identity); err != nil {
		s.metrics.RecordSubmission("invalid_input")
		return SubmitResult{}, err
	}
	if err := validateImage("selfie", req.Selfie); err != nil {
		s.metrics.RecordSubmission("invalid_input")
		return SubmitResult{}, err
	}

	// Step 2: fresh, unpredictable audit key.
	verificationID := uuid.New().String()

	ctx, span := tracer.Start(ctx, "verification.submit")
	span.SetAttributes(attribute.String("verification.id", verificationID))
	defer span.End()

	// Step 3: originals first. The blob writes fire the optimizer's
	// created-object events as a side effect we do not wait on.
	originals := models.ImageRefs{
		Identity: blobstore.OriginalKey(verificationID, blobstore.RoleIdentity),
		Selfie:   blobstore.OriginalKey(verificationID, blobstore.RoleSelfie),
	}
	if err := s.blobs.Put(ctx, originals.Identity, req.Identity); err != nil {
		return SubmitResult{}, s.storageFailure(ctx, verificationID, "identity image write failed", err)
	}
	if err := s.blobs.Put(ctx, originals.Selfie, req.Selfie); err != nil {
		return SubmitResult{}, s.storageFailure(ctx, verificationID, "selfie image write failed", err)
	}

	// Step 4: the pending record exists before the oracle call, so a crash
	// here leaves a discoverable record rather than silent loss.
	createdAt := s.now().UTC()
	rec := models.VerificationRecord{
		VerificationID:    verificationID,
		Status:            models.StatusPending,
		Message:           "Face comparison in progress",
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
		OriginalImageRefs: originals,
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return SubmitResult{}, s.storageFailure(ctx, verificationID, "record create failed", err)
	}
	s.audit.Publish(ctx, audit.Event{
		Type:           audit.EventSubmitted,
		VerificationID: verificationID,
		Status:         string(models.StatusPending),
		At:             createdAt,
	})

	// Steps 5-6: score the originals. The call runs on a context detached
	// from the caller: once a pending record exists, a client disconnect
	// must not strand it, so the only bound is the oracle timeout.
	detached := context.WithoutCancel(ctx)
	oracleCtx, cancel := context.WithTimeout(detached, s.oracleTimeout)
	defer cancel()

	oracleStart := time.Now()
	similarity, oracleErr := s.oracle.Compare(oracleCtx, req.Identity, req.Selfie)
	s.metrics.ObserveOracleDuration(time.Since(oracleStart).Seconds())

	var status models.Status
	var message string
	if oracleErr != nil {
		status = models.StatusFailed
		similarity = 0
		message = oracle.FailureMessage(oracleErr)
		s.logger.Error("similarity oracle call failed",
			"verification_id", verificationID,
			"error", oracleErr,
		)
	} else {
		status = models.StatusSucceeded
		similarity = roundScore(similarity)
		message = classify(similarity, s.threshold)
		s.metrics.ObserveSimilarity(similarity)
	}

	// Step 7: persist the terminal status. A record-write failure here is a
	// server error even when the comparison itself completed.
	updatedAt := s.now().UTC()
	if err := s.records.UpdateOutcome(detached, verificationID, status, similarity, message, updatedAt); err != nil {
		return SubmitResult{}, s.storageFailure(ctx, verificationID, "record outcome write failed", err)
	}

	s.metrics.RecordSubmission(string(status))
	s.audit.Publish(ctx, audit.Event{
		Type:           audit.EventCompleted,
		VerificationID: verificationID,
		Status:         string(status),
		At:             updatedAt,
	})
	s.logger.Info("verification completed",
		"verification_id", verificationID,
		"status", status,
		"similarity", similarity,
	)

	return SubmitResult{
		VerificationID: verificationID,
		Status:         status,
		Similarity:     similarity,
		Message:        message,
		CreatedAt:      createdAt,
	}, nil
}

// Get returns the stored record for status lookups.
func (s *Service) Get(ctx context.Context, verificationID string) (models.VerificationRecord, error) {
	rec, err := s.records.Get(ctx, verificationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.VerificationRecord{}, dErrors.New(dErrors.CodeNotFound, "no verification found for the given ID")
		}
		return models.VerificationRecord{}, dErrors.Wrap(dErrors.CodeInternal, "record lookup failed", err)
	}
	return rec, nil
}

func (s *Service) storageFailure(ctx context.Context, verificationID, what string, err error) error {
	s.metrics.RecordSubmission("storage_error")
	s.logger.ErrorContext(ctx, "verification storage failure",
		"verification_id", verificationID,
		"stage", what,
		"error", err,
	)
	return dErrors.Wrap(dErrors.CodeInternal, what, err)
}

// validateImage enforces the only input contract the core owns: a non-empty,
// decodable image. Anything subtler is the oracle's concern.
func validateImage(field string, data []byte) error {
	if len(data) == 0 {
		return dErrors.New(dErrors.CodeValidation, field+" image is required")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return dErrors.New(dErrors.CodeValidation, field+" image could not be decoded")
	}
	return nil
}
