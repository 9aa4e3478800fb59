// Package auth provides credential management and access control for
// the documentation index. A file-backed registry validates API keys
// and the Guard wraps the vector store, stamping documents with their
// owning organization and confining every search to it.
package auth

import "errors"

// Permission is a capability granted to a credential.
type Permission string

const (
	// PermRead allows searching the index and reading collection info.
	PermRead Permission = "read"

	// PermWrite allows adding documents to the index.
	PermWrite Permission = "write"

	// PermAdmin allows loading documentation from external sources.
	PermAdmin Permission = "admin"
)

// Sentinel errors for authentication and authorization failures.
var (
	// ErrCredentialInvalid indicates an unknown or malformed API key.
	ErrCredentialInvalid = errors.New("invalid credential")

	// ErrCredentialExpired indicates the credential passed its expiry.
	ErrCredentialExpired = errors.New("credential expired")

	// ErrCredentialDeactivated indicates the credential was revoked.
	ErrCredentialDeactivated = errors.New("credential deactivated")

	// ErrPermissionDenied indicates the identity lacks a required
	// permission.
	ErrPermissionDenied = errors.New("permission denied")
)

// Identity is an authenticated caller. It carries the organization the
// credential belongs to; every store operation is scoped to it.
type Identity struct {
	CredentialID string
	OrgID        string
	Permissions  []Permission
}

// Has reports whether the identity holds the permission. Permissions
// are granted explicitly; admin does not imply read or write.
func (id Identity) Has(p Permission) bool {
	for _, held := range id.Permissions {
		if held == p {
			return true
		}
	}
	return false
}
