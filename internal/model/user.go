// Package model defines domain entities for the application.
package model

import "time"

// User is a catalog account. Every user can log in; admins may mutate the catalog.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPatch lists the fields a partial update may change.
// A nil field is left untouched.
type UserPatch struct {
	Email        *string
	PasswordHash *string
	IsAdmin      *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.PasswordHash == nil && p.IsAdmin == nil
}

// Apply returns a copy of u with the patch applied. u itself is not modified.
func (p UserPatch) Apply(u User) User {
	next := u
	if p.Email != nil {
		next.Email = *p.Email
	}
	if p.PasswordHash != nil {
		next.PasswordHash = *p.PasswordHash
	}
	if p.IsAdmin != nil {
		next.IsAdmin = *p.IsAdmin
	}
	return next
}
