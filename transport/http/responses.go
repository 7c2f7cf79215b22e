package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/ridegate/core"
)

// Stable reason codes returned to clients alongside the HTTP status.
const (
	CodeNoToken            = "no_token"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeTokenRevoked       = "token_revoked"
	CodeAccountInactive    = "account_inactive"
	CodeInsufficientRole   = "insufficient_role"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidPayload     = "invalid_payload"
	CodeConflict           = "conflict"
	CodeNotFound           = "not_found"
	CodeRateLimited        = "rate_limited"
	CodeBackendUnavailable = "backend_unavailable"
	CodeStoreUnavailable   = "store_unavailable"
	CodeInternal           = "internal_server_error"
)

// errorBody is the structured JSON shape for every failure.
type errorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{Success: false, Code: code, Message: message})
}

// respondServiceError maps domain sentinels onto HTTP status and reason
// codes. Internal detail never reaches the client.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrNoToken):
		respondError(c, http.StatusUnauthorized, CodeNoToken, "Access token is required")
	case errors.Is(err, core.ErrTokenExpired):
		respondError(c, http.StatusUnauthorized, CodeTokenExpired, "Token expired")
	case errors.Is(err, core.ErrTokenRevoked):
		respondError(c, http.StatusUnauthorized, CodeTokenRevoked, "Token has been revoked")
	case errors.Is(err, core.ErrInvalidToken):
		respondError(c, http.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	case errors.Is(err, core.ErrInsufficientRole):
		respondError(c, http.StatusForbidden, CodeInsufficientRole, "Access denied. Insufficient permissions")
	case errors.Is(err, core.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid credentials")
	case errors.Is(err, core.ErrAccountInactive):
		respondError(c, http.StatusForbidden, CodeAccountInactive, "Account is deactivated")
	case errors.Is(err, core.ErrAccountNotFound):
		respondError(c, http.StatusNotFound, CodeNotFound, "Account not found")
	case errors.Is(err, core.ErrEmailTaken):
		respondError(c, http.StatusConflict, CodeConflict, "Email already registered")
	case errors.Is(err, core.ErrPhoneTaken):
		respondError(c, http.StatusConflict, CodeConflict, "Phone number already registered")
	case errors.Is(err, core.ErrAdminRegistration), errors.Is(err, core.ErrInvalidRole):
		respondError(c, http.StatusBadRequest, CodeInvalidPayload, "Invalid role")
	case errors.Is(err, core.ErrStoreOperationFailed):
		// Fail closed: a revocation check that cannot run never passes.
		respondError(c, http.StatusServiceUnavailable, CodeStoreUnavailable, "Service temporarily unavailable")
	default:
		respondError(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}
