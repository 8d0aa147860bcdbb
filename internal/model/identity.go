package model

// Identity is the authenticated caller resolved from a bearer token.
// A nil *Identity in the request context means the caller is anonymous.
type Identity struct {
	UserID  int64
	Email   string
	IsAdmin bool
}
