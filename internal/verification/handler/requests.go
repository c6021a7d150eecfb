package handler

import (
	"encoding/base64"

	dErrors "idproof/pkg/domain-errors"
)

// CompareFacesRequest is the HTTP request body for POST /compare-faces.
// Images travel as base64 strings; "dl" is the identity document photo.
type CompareFacesRequest struct {
	DL     string `json:"dl"`
	Selfie string `json:"selfie"`

	// Parsed values (populated by Validate)
	identityBytes []byte
	selfieBytes   []byte
}

// Validate validates and decodes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CompareFacesRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.DL == "" {
		return dErrors.New(dErrors.CodeValidation, "dl image is required")
	}
	if r.Selfie == "" {
		return dErrors.New(dErrors.CodeValidation, "selfie image is required")
	}

	identity, err := base64.StdEncoding.DecodeString(r.DL)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "dl is not valid base64")
	}
	selfie, err := base64.StdEncoding.DecodeString(r.Selfie)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "selfie is not valid base64")
	}

	r.identityBytes = identity
	r.selfieBytes = selfie
	return nil
}

// IdentityBytes returns the decoded identity document image.
func (r *CompareFacesRequest) IdentityBytes() []byte {
	return r.identityBytes
}

// SelfieBytes returns the decoded selfie image.
func (r *CompareFacesRequest) SelfieBytes() []byte {
	return r.selfieBytes
}
