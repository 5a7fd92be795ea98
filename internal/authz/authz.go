// Package authz decides whether an authenticated actor may act on a
// resource.  Handlers build a Resource from the row they loaded and ask
// Authorize before reading or mutating it.
package authz

import "errors"

// ErrDenied is returned by Check when Authorize denies.
var ErrDenied = errors.New("forbidden")

// Actor is the caller as identified by the access token.
type Actor struct {
	UserID uint64
	Admin  bool
}

// Resource describes what is being accessed.  OwnerID zero means the
// resource has no owner.
type Resource struct {
	Kind      string
	OwnerID   uint64
	AdminOnly bool
}

// Owned is a resource belonging to ownerID.
func Owned(kind string, ownerID uint64) Resource {
	return Resource{Kind: kind, OwnerID: ownerID}
}

// AdminOnly is a resource only administrators may touch.
func AdminOnly(kind string) Resource {
	return Resource{Kind: kind, AdminOnly: true}
}

type Decision int

const (
	Denied Decision = iota
	Allowed
)

// Authorize applies the access rules: admins may act on anything, customers
// only on resources they own.
func Authorize(a Actor, r Resource) Decision {
	if a.Admin {
		return Allowed
	}
	if r.AdminOnly || a.UserID == 0 {
		return Denied
	}
	if r.OwnerID != 0 && r.OwnerID == a.UserID {
		return Allowed
	}
	return Denied
}

// Check is Authorize as an error.
func Check(a Actor, r Resource) error {
	if Authorize(a, r) == Allowed {
		return nil
	}
	return ErrDenied
}
