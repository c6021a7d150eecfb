// Package optimizer consumes created-object events from the blob store and
// produces resized derived copies. It runs fully decoupled from the ingest
// path; a missed or failed optimization degrades storage cost, never a
// verification outcome.
package optimizer

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif" // register decoders for uploaded formats
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/image/draw"

	"idproof/internal/blobstore"
	"idproof/internal/platform/config"
	"idproof/internal/verification/models"
	"idproof/internal/verification/store"
	"idproof/pkg/platform/sentinel"
)

// Derived copies are re-encoded as JPEG at this quality, at half the
// original dimensions.
const derivedJPEGQuality = 70

var (
	optimizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idproof_optimizer_objects_total",
		Help: "Created-object events by processing result",
	}, []string{"result"})
)

// Optimizer resizes uploaded originals and records the derived keys.
type Optimizer struct {
	blobs   blobstore.Store
	records store.RecordStore
	logger  *slog.Logger

	refTries int
	refDelay time.Duration
}

// New constructs an optimizer. The config bounds the derived-reference
// update retry loop.
func New(blobs blobstore.Store, records store.RecordStore, logger *slog.Logger, cfg config.OptimizerConfig) *Optimizer {
	tries := cfg.RefUpdateTries
	if tries <= 0 {
		tries = 5
	}
	delay := cfg.RefUpdateDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &Optimizer{
		blobs:    blobs,
		records:  records,
		logger:   logger,
		refTries: tries,
		refDelay: delay,
	}
}

// Run consumes events until the context is cancelled or the channel closes.
func (o *Optimizer) Run(ctx context.Context, events <-chan blobstore.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			o.Handle(ctx, evt)
		}
	}
}

// Handle processes one created-object event. Re-delivery for the same key is
// safe: the derived key is deterministic and the write is an overwrite.
func (o *Optimizer) Handle(ctx context.Context, evt blobstore.Event) {
	info, err := blobstore.ParseKey(evt.Key)
	if err != nil {
		o.logger.Warn("ignoring event with malformed key", "key", evt.Key, "error", err)
		optimizedTotal.WithLabelValues("malformed_key").Inc()
		return
	}
	if !info.IsOriginal() {
		// Derived writes also trigger events; never optimize twice.
		return
	}

	original, err := o.blobs.Get(ctx, evt.Key)
	if err != nil {
		o.logger.Warn("original vanished before optimization",
			"verification_id", info.VerificationID,
			"role", info.Role,
			"error", err,
		)
		optimizedTotal.WithLabelValues("missing_original").Inc()
		return
	}

	derived, err := resizeJPEG(original)
	if err != nil {
		o.logger.Error("failed to optimize image",
			"verification_id", info.VerificationID,
			"role", info.Role,
			"error", err,
		)
		optimizedTotal.WithLabelValues("decode_failed").Inc()
		return
	}

	derivedKey := blobstore.DerivedKey(info.VerificationID, info.Role)
	if err := o.blobs.Put(ctx, derivedKey, derived); err != nil {
		o.logger.Error("failed to write derived image",
			"verification_id", info.VerificationID,
			"role", info.Role,
			"error", err,
		)
		optimizedTotal.WithLabelValues("write_failed").Inc()
		return
	}

	if !o.updateDerivedRef(ctx, info, derivedKey) {
		optimizedTotal.WithLabelValues("ref_abandoned").Inc()
		return
	}
	optimizedTotal.WithLabelValues("ok").Inc()
}

// updateDerivedRef attaches the derived key to the owning record, retrying a
// bounded number of times: the event can outrun record creation, and the
// record can be deleted mid-flight. In the latter case the update is
// abandoned; the record is never recreated.
func (o *Optimizer) updateDerivedRef(ctx context.Context, info blobstore.KeyInfo, derivedKey string) bool {
	refs := models.ImageRefs{}
	switch info.Role {
	case blobstore.RoleIdentity:
		refs.Identity = derivedKey
	case blobstore.RoleSelfie:
		refs.Selfie = derivedKey
	}

	for attempt := 1; attempt <= o.refTries; attempt++ {
		err := o.records.UpdateDerivedRefs(ctx, info.VerificationID, refs)
		if err == nil {
			return true
		}
		if !errors.Is(err, sentinel.ErrNotFound) && !errors.Is(err, sentinel.ErrConflict) {
			o.logger.Error("derived reference update failed",
				"verification_id", info.VerificationID,
				"role", info.Role,
				"error", err,
			)
			return false
		}
		if attempt < o.refTries {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(o.refDelay):
			}
		}
	}

	o.logger.Warn("abandoning derived reference update",
		"verification_id", info.VerificationID,
		"role", info.Role,
		"attempts", o.refTries,
	)
	return false
}

// resizeJPEG halves the image dimensions and re-encodes as JPEG. The scaler
// and encoder are deterministic, so repeated runs converge on identical
// derived bytes.
func resizeJPEG(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := b.Dx()/2, b.Dy()/2
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: derivedJPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
