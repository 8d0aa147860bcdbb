package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/productcatalog/catalog/internal/auth"
	"github.com/productcatalog/catalog/internal/handler/dto"
)

// TokenIssuer exchanges credentials for an access token.
type TokenIssuer interface {
	IssueToken(ctx context.Context, email, password string) (string, error)
}

// TokenHandler handles the password grant.
type TokenHandler struct {
	auth   TokenIssuer
	logger *slog.Logger
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(issuer TokenIssuer, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		auth:   issuer,
		logger: logger,
	}
}

// Issue handles POST /token.
// Credentials arrive as form fields username (the email) and password.
func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Form fields username and password are required")
		return
	}

	token, err := h.auth.IssueToken(r.Context(), username, password)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenResponse{
		AccessToken: token,
		TokenType:   auth.TokenType,
	})
}
