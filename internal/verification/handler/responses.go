package handler

import (
	"time"

	"idproof/internal/verification/models"
	"idproof/internal/verification/service"
)

// CompareFacesResponse is the HTTP response for POST /compare-faces.
type CompareFacesResponse struct {
	VerificationID string        `json:"verificationId"`
	Result         ResultPayload `json:"result"`
}

// ResultPayload is the comparison outcome portion of the response.
type ResultPayload struct {
	Similarity float64 `json:"similarity"`
	Message    string  `json:"message"`
	Timestamp  string  `json:"timestamp"`
}

// FromSubmitResult converts an orchestrator result to an HTTP response.
func FromSubmitResult(result service.SubmitResult) CompareFacesResponse {
	return CompareFacesResponse{
		VerificationID: result.VerificationID,
		Result: ResultPayload{
			Similarity: result.Similarity,
			Message:    result.Message,
			Timestamp:  result.CreatedAt.Format(time.RFC3339),
		},
	}
}

// RecordResponse is the HTTP view of a stored record for status lookups.
// Storage keys are internal and never exposed.
type RecordResponse struct {
	VerificationID string   `json:"verificationId"`
	Status         string   `json:"status"`
	Similarity     *float64 `json:"similarity,omitempty"`
	Message        string   `json:"message"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

// FromRecord converts a record to its HTTP view. Similarity is present only
// for succeeded comparisons.
func FromRecord(rec models.VerificationRecord) RecordResponse {
	resp := RecordResponse{
		VerificationID: rec.VerificationID,
		Status:         string(rec.Status),
		Message:        rec.Message,
		CreatedAt:      rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      rec.UpdatedAt.Format(time.RFC3339),
	}
	if rec.Status == models.StatusSucceeded {
		similarity := rec.Similarity
		resp.Similarity = &similarity
	}
	return resp
}

// DeleteResponse is the HTTP response for DELETE /compare-faces-delete.
type DeleteResponse struct {
	Message string `json:"message"`
}
