package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/redmonkez12/go-auth-api/internal/httputil"
	"github.com/redmonkez12/go-auth-api/internal/logging"
)

const maxBodyBytes = 1 << 20

// Auth event outcomes reported to the EventRecorder.
const (
	outcomeSuccess  = "success"
	outcomeDenied   = "denied"
	outcomeConflict = "conflict"
	outcomeInvalid  = "invalid"
	outcomeError    = "error"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service  *Service
	validate *validator.Validate
	events   EventRecorder
}

// NewHandler creates a handler. events may be nil.
func NewHandler(service *Service, events EventRecorder) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		events:   events,
	}
}

// CredentialsRequest is the signup and signin request body
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// MeResponse describes the authenticated caller
type MeResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// Signup handles account creation
// @Summary      Sign up
// @Description  Create an account and start a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body CredentialsRequest true "Credentials"
// @Success      201 {object} TokenPair
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body or validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	req, ok := h.decodeCredentials(w, r, "signup")
	if !ok {
		return
	}

	pair, err := h.service.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			logger.Warn("signup rejected: email already exists")
			h.record("signup", outcomeConflict)
			httputil.RespondErrorWithCode(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusConflict)
			return
		}
		logger.Error("signup failed: internal error", "error", err.Error())
		h.record("signup", outcomeError)
		respondInternal(w)
		return
	}

	h.record("signup", outcomeSuccess)
	httputil.RespondJSON(w, pair, http.StatusCreated)
}

// Signin handles password authentication
// @Summary      Sign in
// @Description  Authenticate with email and password and receive a new token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body CredentialsRequest true "Credentials"
// @Success      200 {object} TokenPair
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body or validation error"
// @Failure      403 {object} httputil.ErrorResponse "Access denied"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/signin [post]
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	req, ok := h.decodeCredentials(w, r, "signin")
	if !ok {
		return
	}

	pair, err := h.service.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrAccessDenied) {
			logger.Warn("signin rejected")
			h.record("signin", outcomeDenied)
			respondAccessDenied(w)
			return
		}
		logger.Error("signin failed: internal error", "error", err.Error())
		h.record("signin", outcomeError)
		respondInternal(w)
		return
	}

	h.record("signin", outcomeSuccess)
	httputil.RespondJSON(w, pair, http.StatusOK)
}

// Logout ends the caller's session
// @Summary      Log out
// @Description  Invalidate the caller's refresh token. Logging out twice is not an error.
// @Tags         auth
// @Security     BearerAuth
// @Success      200 "Session cleared"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	if err := h.service.Logout(r.Context(), principal.UserID); err != nil {
		logger.Error("logout failed", "user_id", principal.UserID, "error", err.Error())
		h.record("logout", outcomeError)
		respondInternal(w)
		return
	}

	h.record("logout", outcomeSuccess)
	httputil.RespondJSON(w, nil, http.StatusOK)
}

// Refresh rotates the caller's session
// @Summary      Refresh tokens
// @Description  Exchange the current refresh token (sent as the bearer token) for a new pair. The old refresh token stops working.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} TokenPair
// @Failure      401 {object} httputil.ErrorResponse "Missing or invalid refresh token"
// @Failure      403 {object} httputil.ErrorResponse "Access denied"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}
	refreshToken, ok := RefreshTokenFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	pair, err := h.service.Refresh(r.Context(), principal.UserID, refreshToken)
	if err != nil {
		if errors.Is(err, ErrAccessDenied) {
			logger.Warn("refresh rejected", "user_id", principal.UserID)
			h.record("refresh", outcomeDenied)
			respondAccessDenied(w)
			return
		}
		logger.Error("refresh failed: internal error", "user_id", principal.UserID, "error", err.Error())
		h.record("refresh", outcomeError)
		respondInternal(w)
		return
	}

	h.record("refresh", outcomeSuccess)
	httputil.RespondJSON(w, pair, http.StatusOK)
}

// Me returns the identity in the caller's access token
// @Summary      Current user
// @Description  Return the id and email carried by the access token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} MeResponse
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	httputil.RespondJSON(w, MeResponse{ID: principal.UserID, Email: principal.Email}, http.StatusOK)
}

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request, operation string) (*CredentialsRequest, bool) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req CredentialsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logger.Warn("invalid request body", "operation", operation, "error", err.Error())
		h.record(operation, outcomeInvalid)
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return nil, false
	}

	if err := h.validate.Struct(&req); err != nil {
		var fields []string
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+":"+fe.Tag())
			}
		}
		logger.Warn("request validation failed", "operation", operation, "fields", fields)
		h.record(operation, outcomeInvalid)
		httputil.RespondErrorWithCode(w, "email and password are required and the email must be valid", httputil.CodeValidationFailed, http.StatusBadRequest)
		return nil, false
	}

	return &req, true
}

func (h *Handler) record(operation, outcome string) {
	if h.events != nil {
		h.events.AuthEvent(operation, outcome)
	}
}

func respondAccessDenied(w http.ResponseWriter) {
	httputil.RespondErrorWithCode(w, "access denied", httputil.CodeAccessDenied, http.StatusForbidden)
}

func respondInternal(w http.ResponseWriter) {
	httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
}
