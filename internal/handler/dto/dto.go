// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// DeletedResponse acknowledges a delete by echoing the id.
type DeletedResponse struct {
	ID int64 `json:"id"`
}

// TokenResponse is returned by POST /token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// HelloResponse is the body of GET /.
type HelloResponse struct {
	Hello string `json:"Hello"`
}
