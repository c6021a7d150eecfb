package blobstore

import (
	"fmt"
	"strings"
)

// Storage classes. The class prefix selects the retention window applied by
// lifecycle rules: originals are short-lived, derived copies are kept for
// audit review.
const (
	ClassOriginal = "originals"
	ClassDerived  = "derived"
)

// Image roles within one verification.
const (
	RoleIdentity = "identity"
	RoleSelfie   = "selfie"
)

// Key builds the canonical object key for one stored image.
func Key(class, verificationID, role string) string {
	return class + "/" + verificationID + "/" + role + ".jpg"
}

// OriginalKey returns the key for an uploaded original.
func OriginalKey(verificationID, role string) string {
	return Key(ClassOriginal, verificationID, role)
}

// DerivedKey returns the key for the optimized copy of an original.
func DerivedKey(verificationID, role string) string {
	return Key(ClassDerived, verificationID, role)
}

// KeyInfo is the decomposed form of an object key.
type KeyInfo struct {
	Class          string
	VerificationID string
	Role           string
}

// IsOriginal reports whether the key belongs to the originals class.
func (k KeyInfo) IsOriginal() bool {
	return k.Class == ClassOriginal
}

// ParseKey recovers class, verification ID, and role from an object key.
func ParseKey(key string) (KeyInfo, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 {
		return KeyInfo{}, fmt.Errorf("malformed object key %q", key)
	}
	class, id, file := parts[0], parts[1], parts[2]
	if class != ClassOriginal && class != ClassDerived {
		return KeyInfo{}, fmt.Errorf("unknown storage class in key %q", key)
	}
	if id == "" {
		return KeyInfo{}, fmt.Errorf("missing verification id in key %q", key)
	}
	role, ok := strings.CutSuffix(file, ".jpg")
	if !ok || (role != RoleIdentity && role != RoleSelfie) {
		return KeyInfo{}, fmt.Errorf("unknown role in key %q", key)
	}
	return KeyInfo{Class: class, VerificationID: id, Role: role}, nil
}
