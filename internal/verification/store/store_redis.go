package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"idproof/internal/verification/models"
	"idproof/pkg/platform/sentinel"
)

// Redis key prefix for verification records.
const recordKeyPrefix = "verification:"

// Redis is the production RecordStore. Records are stored as JSON under
// verification:<id>; the two mutation paths run under WATCH so the terminal
// outcome can never be written twice and a derived-refs update observes a
// concurrent delete instead of resurrecting the record.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed record store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func recordKey(verificationID string) string {
	return recordKeyPrefix + verificationID
}

func (r *Redis) Create(ctx context.Context, rec models.VerificationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, recordKey(rec.VerificationID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create verification record: %w", err)
	}
	if !ok {
		return fmt.Errorf("verification %s already exists: %w", rec.VerificationID, sentinel.ErrConflict)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, verificationID string) (models.VerificationRecord, error) {
	data, err := r.client.Get(ctx, recordKey(verificationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.VerificationRecord{}, ErrNotFound
	}
	if err != nil {
		return models.VerificationRecord{}, fmt.Errorf("get verification record: %w", err)
	}
	var rec models.VerificationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.VerificationRecord{}, fmt.Errorf("decode verification record: %w", err)
	}
	return rec, nil
}

func (r *Redis) UpdateOutcome(ctx context.Context, verificationID string, status models.Status, similarity float64, message string, at time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("outcome %q is not terminal: %w", status, sentinel.ErrConflict)
	}
	return r.mutate(ctx, verificationID, func(rec *models.VerificationRecord) error {
		if rec.Status.Terminal() {
			return fmt.Errorf("verification %s already %s: %w", verificationID, rec.Status, sentinel.ErrConflict)
		}
		rec.Status = status
		rec.Similarity = similarity
		rec.Message = message
		rec.UpdatedAt = at
		return nil
	})
}

func (r *Redis) UpdateDerivedRefs(ctx context.Context, verificationID string, refs models.ImageRefs) error {
	return r.mutate(ctx, verificationID, func(rec *models.VerificationRecord) error {
		if refs.Identity != "" {
			rec.DerivedImageRefs.Identity = refs.Identity
		}
		if refs.Selfie != "" {
			rec.DerivedImageRefs.Selfie = refs.Selfie
		}
		return nil
	})
}

func (r *Redis) Delete(ctx context.Context, verificationID string) error {
	n, err := r.client.Del(ctx, recordKey(verificationID)).Result()
	if err != nil {
		return fmt.Errorf("delete verification record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// mutate runs a read-modify-write under WATCH.
func (r *Redis) mutate(ctx context.Context, verificationID string, apply func(*models.VerificationRecord) error) error {
	key := recordKey(verificationID)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var rec models.VerificationRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode verification record: %w", err)
		}
		if err := apply(&rec); err != nil {
			return err
		}
		updated, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// The record changed (or vanished) mid-flight; report it as a
		// conflict and let the caller decide whether to retry.
		return fmt.Errorf("verification %s modified concurrently: %w", verificationID, sentinel.ErrConflict)
	}
	return err
}
