package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/yamdb/internal/service"
)

// AuthHandler serves the two public authentication endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignup → register (or re-register) and mail a confirmation code
//   - HandleToken  → exchange username + confirmation code for a JWT
//
// Both routes are open to anonymous callers.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type tokenRequest struct {
	Username         string `json:"username"`
	ConfirmationCode string `json:"confirmation_code"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// HandleSignup registers a user and sends a confirmation code.
//
// HTTP: POST /api/v1/auth/signup/
// REQUEST BODY:  {"username": "critic", "email": "critic@example.com"}
// RESPONSE BODY: the same two fields, echoed back
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.auth.Signup(r.Context(), req.Username, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, signupRequest{Username: user.Username, Email: user.Email})
}

// HandleToken issues an access token.
//
// HTTP: POST /api/v1/auth/token/
// REQUEST BODY:  {"username": "critic", "confirmation_code": "..."}
// RESPONSE BODY: {"token": "<jwt>"}
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.auth.IssueToken(r.Context(), req.Username, req.ConfirmationCode)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("token issued", slog.String("username", req.Username))
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}
