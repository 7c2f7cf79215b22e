package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/ridegate/core"
	"github.com/layer-3/ridegate/service"
)

// AuthHandlers contains HTTP handlers for the identity endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

type accountResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Role       string `json:"role"`
	IsActive   bool   `json:"isActive"`
	IsVerified bool   `json:"isVerified"`
}

type tokensResponse struct {
	AccessToken       string `json:"accessToken"`
	RefreshToken      string `json:"refreshToken"`
	AccessTokenExpiry string `json:"accessTokenExpiry"`
}

func toAccountResponse(a *core.Account) accountResponse {
	return accountResponse{
		ID:         a.ID,
		Email:      a.Email,
		Phone:      a.Phone,
		Role:       string(a.Role),
		IsActive:   a.IsActive,
		IsVerified: a.IsVerified,
	}
}

func toTokensResponse(pair *service.TokenPair) tokensResponse {
	return tokensResponse{
		AccessToken:       pair.AccessToken,
		RefreshToken:      pair.RefreshToken,
		AccessTokenExpiry: pair.AccessExpiry.String(),
	}
}

// Register handles account registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Phone    string `json:"phone"`
		Password string `json:"password" binding:"required,min=8"`
		Role     string `json:"role" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidPayload, "Invalid request")
		return
	}

	role, err := core.ParseRole(req.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	account, pair, err := h.authService.Register(c.Request.Context(), service.RegisterParams{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"user":    toAccountResponse(account),
		"tokens":  toTokensResponse(pair),
	})
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidPayload, "Invalid request")
		return
	}

	account, pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    toAccountResponse(account),
		"tokens":  toTokensResponse(pair),
	})
}

// Refresh handles refresh token rotation
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidPayload, "Invalid request")
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tokens":  toTokensResponse(pair),
	})
}

// Logout revokes the presented tokens
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	// The body is optional: an access token alone can be revoked.
	_ = c.ShouldBindJSON(&req)

	accessToken, err := bearerToken(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), accessToken, req.RefreshToken); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// Deactivate marks the authenticated account inactive and revokes the
// presented access token
func (h *AuthHandlers) Deactivate(c *gin.Context) {
	identity := Identity(c)
	if identity == nil {
		respondServiceError(c, core.ErrNoToken)
		return
	}

	accessToken, err := bearerToken(c)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := h.authService.Deactivate(c.Request.Context(), identity.AccountID, accessToken); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Account deactivated successfully"})
}

// Profile returns the authenticated account
func (h *AuthHandlers) Profile(c *gin.Context) {
	identity := Identity(c)
	if identity == nil {
		respondServiceError(c, core.ErrNoToken)
		return
	}

	account, err := h.authService.Profile(c.Request.Context(), identity.AccountID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": toAccountResponse(account)})
}

// UpdateProfile updates mutable profile fields
func (h *AuthHandlers) UpdateProfile(c *gin.Context) {
	identity := Identity(c)
	if identity == nil {
		respondServiceError(c, core.ErrNoToken)
		return
	}

	var req struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidPayload, "Invalid request")
		return
	}

	account, err := h.authService.UpdateProfile(c.Request.Context(), identity.AccountID, req.Phone)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": toAccountResponse(account)})
}

// ChangePassword verifies the current password before setting a new one
func (h *AuthHandlers) ChangePassword(c *gin.Context) {
	identity := Identity(c)
	if identity == nil {
		respondServiceError(c, core.ErrNoToken)
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidPayload, "Invalid request")
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), identity.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated successfully"})
}
