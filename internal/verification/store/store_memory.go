package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"idproof/internal/verification/models"
	"idproof/pkg/platform/sentinel"
)

// Memory is an in-process RecordStore for tests and single-instance
// deployments. For distributed deployments use the Redis store instead.
type Memory struct {
	mu      sync.RWMutex
	records map[string]models.VerificationRecord
}

// NewMemory creates an empty in-memory record store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]models.VerificationRecord)}
}

func (m *Memory) Create(ctx context.Context, rec models.VerificationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.VerificationID]; exists {
		return fmt.Errorf("verification %s already exists: %w", rec.VerificationID, sentinel.ErrConflict)
	}
	m.records[rec.VerificationID] = rec
	return nil
}

func (m *Memory) Get(ctx context.Context, verificationID string) (models.VerificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.VerificationRecord{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[verificationID]
	if !ok {
		return models.VerificationRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) UpdateOutcome(ctx context.Context, verificationID string, status models.Status, similarity float64, message string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !status.Terminal() {
		return fmt.Errorf("outcome %q is not terminal: %w", status, sentinel.ErrConflict)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[verificationID]
	if !ok {
		return ErrNotFound
	}
	if rec.Status.Terminal() {
		return fmt.Errorf("verification %s already %s: %w", verificationID, rec.Status, sentinel.ErrConflict)
	}
	rec.Status = status
	rec.Similarity = similarity
	rec.Message = message
	rec.UpdatedAt = at
	m.records[verificationID] = rec
	return nil
}

func (m *Memory) UpdateDerivedRefs(ctx context.Context, verificationID string, refs models.ImageRefs) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[verificationID]
	if !ok {
		return ErrNotFound
	}
	if refs.Identity != "" {
		rec.DerivedImageRefs.Identity = refs.Identity
	}
	if refs.Selfie != "" {
		rec.DerivedImageRefs.Selfie = refs.Selfie
	}
	m.records[verificationID] = rec
	return nil
}

func (m *Memory) Delete(ctx context.Context, verificationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[verificationID]; !ok {
		return ErrNotFound
	}
	delete(m.records, verificationID)
	return nil
}

func (m *Memory) Health(ctx context.Context) error {
	return ctx.Err()
}

// Len reports the number of stored records. Test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
