// Package models defines the durable verification entity and its status
// state machine.
package models

import "time"

// Status is the comparison outcome state. pending is the only non-terminal
// state; succeeded and failed never revert.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the comparison outcome is fixed.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// ImageRefs holds the storage keys for one identity/selfie pair.
type ImageRefs struct {
	Identity string `json:"identity"`
	Selfie   string `json:"selfie"`
}

// Empty reports whether no keys are set.
func (r ImageRefs) Empty() bool {
	return r.Identity == "" && r.Selfie == ""
}

// VerificationRecord is the auditable outcome of one comparison attempt.
//
// Field ownership: the orchestrator creates the record and writes the
// terminal outcome exactly once; the optimizer alone writes
// DerivedImageRefs; the deletion coordinator alone destroys the record.
type VerificationRecord struct {
	VerificationID string    `json:"verification_id"`
	Status         Status    `json:"status"`
	// Similarity is meaningful only when Status is succeeded.
	Similarity float64   `json:"similarity"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	OriginalImageRefs ImageRefs `json:"original_image_refs"`
	DerivedImageRefs  ImageRefs `json:"derived_image_refs"`
}
