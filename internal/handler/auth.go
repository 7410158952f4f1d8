package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/studyai/studyai-go/internal/middleware"
	"github.com/studyai/studyai-go/internal/model"
	"github.com/studyai/studyai-go/internal/service"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// HandleRegister handles POST /register requests.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse(verr.Error()))
		case errors.Is(err, service.ErrEmailTaken):
			writeJSON(w, http.StatusBadRequest, errorResponse("Email already registered"))
		default:
			slog.ErrorContext(r.Context(), "register failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleLogin handles POST /login requests. Credentials arrive as an
// OAuth2 password form: username (the email) and password.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse(errBodyTooLarge.Error()))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid form body"))
		return
	}

	req := model.LoginRequest{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse(verr.Error()))
		case errors.Is(err, service.ErrInvalidCredentials):
			middleware.Unauthorized(w, "Incorrect email or password")
		default:
			slog.ErrorContext(r.Context(), "login failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleMe handles GET /me requests.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.Unauthorized(w, "Could not validate credentials")
		return
	}

	resp, err := h.service.GetUser(r.Context(), id.User.ID)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			middleware.Unauthorized(w, "Could not validate credentials")
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleLogout handles POST /logout requests by revoking the presented token.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.Unauthorized(w, "Could not validate credentials")
		return
	}

	if err := h.service.Logout(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "logout failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
