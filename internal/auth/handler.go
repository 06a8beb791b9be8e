package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/getsentry/sentry-go"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r.Method)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, "validation_error", "request body must be valid JSON", nil)
		return
	}

	if details := validateLoginRequest(body); len(details) > 0 {
		writeFailure(w, http.StatusBadRequest, "validation_error", "validation failed", details)
		return
	}

	meta := RequestMeta{IP: clientIP(r), UserAgent: r.UserAgent()}
	resp, err := h.service.Login(r.Context(), body.Email, body.Password, meta)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeFailure(w, http.StatusUnauthorized, "authentication_failed", "email or password is incorrect", nil)
			return
		}
		sentry.CaptureException(err)
		writeFailure(w, http.StatusInternalServerError, "internal_server_error", "an internal server error occurred", nil)
		return
	}

	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r.Method)
		return
	}

	token, ok := ExtractToken(r.Header.Get("Authorization"))
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "missing_token", "authentication token is required", nil)
		return
	}

	meta := RequestMeta{IP: clientIP(r), UserAgent: r.UserAgent()}
	h.service.Logout(r.Context(), token, meta)

	writeSuccess(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) UserInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r.Method)
		return
	}

	token, ok := ExtractToken(r.Header.Get("Authorization"))
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "missing_token", "authentication token is required", nil)
		return
	}

	meta := RequestMeta{IP: clientIP(r), UserAgent: r.UserAgent()}
	resp, err := h.service.UserInfo(r.Context(), token, meta)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenMalformed):
			writeFailure(w, http.StatusUnauthorized, "invalid_token", "authentication token is invalid", nil)
		case errors.Is(err, ErrUserNotFound):
			writeFailure(w, http.StatusNotFound, "user_not_found", "user not found", nil)
		default:
			sentry.CaptureException(err)
			writeFailure(w, http.StatusInternalServerError, "internal_server_error", "an internal server error occurred", nil)
		}
		return
	}

	writeSuccess(w, http.StatusOK, resp)
}

// validateLoginRequest checks the request shape before any store lookup and
// reports every violated field, not just the first.
func validateLoginRequest(body loginRequest) []string {
	var details []string

	if body.Email == "" {
		details = append(details, "email is required")
	} else if !emailRegex.MatchString(body.Email) {
		details = append(details, "email must be a valid email address")
	}

	if body.Password == "" {
		details = append(details, "password is required")
	} else {
		details = append(details, ValidatePasswordStrength(body.Password)...)
	}

	return details
}

// clientIP resolves the client address for audit entries. Forwarded-for wins
// over real-ip, which wins over the remote-address header.
func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if remote := strings.TrimSpace(r.Header.Get("X-Remote-Address")); remote != "" {
		return remote
	}

	return "unknown"
}

type errorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, code, message string, details []string) {
	writeJSON(w, status, envelope{Success: false, Error: &errorBody{Error: code, Message: message, Details: details}})
}

func writeMethodNotAllowed(w http.ResponseWriter, method string) {
	writeFailure(w, http.StatusMethodNotAllowed, "method_not_allowed", method+" method is not allowed for this endpoint", nil)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
