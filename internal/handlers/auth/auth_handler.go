// internal/handlers/auth/auth_handler.go
package auth

import (
	"fmt"
	"net/http"

	"storelinker-service/internal/domain/auth"
	"storelinker-service/internal/middleware"
	"storelinker-service/internal/pkg/response"
	authUsecase "storelinker-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// ========== Registration ==========

// Register handles account registration (public endpoint)
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("registration failed",
			zap.String("email", req.Email),
			zap.String("user_type", string(req.UserType)),
			zap.Error(err),
		)
		response.Fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "registration successful", resp)
}

// ========== Login ==========

// Login handles login (public endpoint)
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("email", req.Email),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		response.Fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, "login successful", resp)
}

// ========== Logout ==========

// Logout ends the session the token is bound to (requires auth)
func (h *AuthHandler) Logout(c *gin.Context) {
	ident := middleware.MustGetIdentity(c)

	if err := h.authService.Logout(c.Request.Context(), ident); err != nil {
		h.logger.Error("logout failed",
			zap.String("user_id", ident.UserID.Hex()),
			zap.String("session_id", ident.SessionID),
			zap.Error(err),
		)
		response.Fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, "logout successful", nil)
}

// LogoutAll ends every session of the caller (requires auth)
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	ident := middleware.MustGetIdentity(c)

	n, err := h.authService.LogoutAll(c.Request.Context(), ident)
	if err != nil {
		h.logger.Error("logout all failed",
			zap.String("user_id", ident.UserID.Hex()),
			zap.Error(err),
		)
		response.Fail(c, err)
		return
	}

	response.Success(c, http.StatusOK,
		fmt.Sprintf("Logged out from all devices. %d sessions ended", n),
		gin.H{"sessionsEnded": n},
	)
}

// ========== Sessions ==========

// Sessions lists recent logins from the embedded history
func (h *AuthHandler) Sessions(c *gin.Context) {
	ident := middleware.MustGetIdentity(c)
	response.Success(c, http.StatusOK, "sessions retrieved", gin.H{
		"sessions": h.authService.ListSessions(ident),
	})
}

// AllSessions lists the caller's session documents
func (h *AuthHandler) AllSessions(c *gin.Context) {
	ident := middleware.MustGetIdentity(c)

	sessions, err := h.authService.AllSessions(c.Request.Context(), ident)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, "sessions retrieved", gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// ActiveSessions lists the caller's session documents that are still active
func (h *AuthHandler) ActiveSessions(c *gin.Context) {
	ident := middleware.MustGetIdentity(c)

	sessions, err := h.authService.ActiveSessions(c.Request.Context(), ident)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, "active sessions retrieved", gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// SessionStats summarises the caller's sessions
func (h *AuthHandler) SessionStats(c *gin.Context) {
	ident := middleware.MustGetIdentity(c)

	stats, err := h.authService.SessionStats(c.Request.Context(), ident)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, "session stats retrieved", stats)
}

// ========== Profile ==========

// Me returns the caller's profile
func (h *AuthHandler) Me(c *gin.Context) {
	ident := middleware.MustGetIdentity(c)
	response.Success(c, http.StatusOK, "profile retrieved", h.authService.GetMe(ident))
}

// UpdateProfile applies the fields present in the body
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	ident := middleware.MustGetIdentity(c)

	var req auth.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	info, err := h.authService.UpdateProfile(c.Request.Context(), ident, &req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, "profile updated", info)
}

// ChangePassword changes the password and ends every session
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	ident := middleware.MustGetIdentity(c)

	var req auth.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	n, err := h.authService.ChangePassword(c.Request.Context(), ident, &req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, "password changed successfully, please log in again", gin.H{
		"sessionsEnded": n,
	})
}

// ========== Recovery (admin) ==========

// RecoverUserSessions reconciles one user's session stores
func (h *AuthHandler) RecoverUserSessions(c *gin.Context) {
	var req auth.RecoverSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.authService.RecoverUserSessions(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	h.logger.Info("user sessions recovered",
		zap.String("by", c.GetString(middleware.KeyUserID)),
		zap.String("user_id", result.UserID),
		zap.Int("added", result.AddedSessions),
		zap.Int("ended", result.EndedSessions),
	)
	response.Success(c, http.StatusOK, "sessions recovered", result)
}

// RecoverAllSessions reconciles every user with an active session document
func (h *AuthHandler) RecoverAllSessions(c *gin.Context) {
	report, err := h.authService.RecoverAllSessions(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}

	h.logger.Info("all sessions recovered",
		zap.String("by", c.GetString(middleware.KeyUserID)),
		zap.Int("users", report.Users),
		zap.Int("added", report.SessionsAdded),
	)
	response.Success(c, http.StatusOK, "sessions recovered", report)
}
