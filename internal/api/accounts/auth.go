// auth.go implements HTTP handlers for account registration, password login,
// OIDC login, token refresh, and logout.
package accounts

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clawhub/clawhub/internal/auth"
	"github.com/clawhub/clawhub/internal/auth/oidc"
	"github.com/clawhub/clawhub/internal/config"
	"github.com/clawhub/clawhub/internal/db/models"
	"github.com/clawhub/clawhub/internal/db/repositories"
)

// AuthHandlers handles authentication-related endpoints
type AuthHandlers struct {
	cfg          *config.Config
	userRepo     *repositories.UserRepository
	oidcProvider *oidc.OIDCProvider

	mu           sync.Mutex
	sessionStore map[string]*SessionState // In-memory for MVP; use Redis in production
}

// SessionState represents OAuth state during authentication flow
type SessionState struct {
	State     string
	CreatedAt time.Time
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(cfg *config.Config, db *sql.DB) (*AuthHandlers, error) {
	h := &AuthHandlers{
		cfg:          cfg,
		userRepo:     repositories.NewUserRepository(db),
		sessionStore: make(map[string]*SessionState),
	}

	// Initialize OIDC provider if enabled
	if cfg.Auth.OIDC.Enabled {
		oidcProv, err := oidc.NewOIDCProvider(&cfg.Auth.OIDC)
		if err != nil {
			return nil, err
		}
		h.oidcProvider = oidcProv
	}

	return h, nil
}

// tokenExpiry returns the configured JWT lifetime, defaulting to 24h.
func (h *AuthHandlers) tokenExpiry() time.Duration {
	if h.cfg.Auth.TokenExpiry > 0 {
		return h.cfg.Auth.TokenExpiry
	}
	return 24 * time.Hour
}

// generateState generates a random state string for OAuth
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// registerRequest is the JSON body for account registration.
type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// @Summary      Register an account
// @Description  Creates a password-based account and returns a JWT.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        account  body  registerRequest  true  "email, name, password"
// @Success      201  {object}  map[string]interface{}  "token, user"
// @Failure      400  {object}  map[string]interface{}  "Validation error"
// @Failure      409  {object}  map[string]interface{}  "Email already registered"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/register [post]
// RegisterHandler creates a new password-based account
// POST /api/v1/auth/register
func (h *AuthHandlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		req.Name = strings.TrimSpace(req.Name)
		if req.Email == "" || !strings.Contains(req.Email, "@") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A valid email address is required"})
			return
		}
		if req.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user := &models.User{
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: &hash,
		}
		if err := h.userRepo.CreateUser(c.Request.Context(), user); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
			return
		}

		token, err := auth.GenerateJWT(user.ID, user.Email, user.Role, h.tokenExpiry())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"token": token,
			"user":  user,
		})
	}
}

// loginRequest is the JSON body for password login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// @Summary      Password login
// @Description  Verifies email and password and returns a JWT. Unknown accounts, wrong passwords, and OIDC-only accounts all fail identically.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        credentials  body  loginRequest  true  "email, password"
// @Success      200  {object}  map[string]interface{}  "token, user"
// @Failure      401  {object}  map[string]interface{}  "Invalid email or password"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/login [post]
// LoginHandler authenticates a password-based account
// POST /api/v1/auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		email := strings.TrimSpace(strings.ToLower(req.Email))
		user, err := h.userRepo.GetUserByEmail(c.Request.Context(), email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up account"})
			return
		}

		// OIDC-only accounts have no password hash; they fail the same way as
		// unknown emails so login probing cannot distinguish account types.
		if user == nil || !user.IsActive || user.PasswordHash == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}

		match, err := auth.CheckPassword(req.Password, *user.PasswordHash)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
			return
		}
		if !match {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}

		if err := h.userRepo.TouchLastLogin(c.Request.Context(), user.ID); err != nil {
			// Login still succeeds; the timestamp is best-effort.
			_ = err
		}

		token, err := auth.GenerateJWT(user.ID, user.Email, user.Role, h.tokenExpiry())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user":  user,
		})
	}
}

// @Summary      Current account
// @Description  Returns the authenticated user's profile.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "user"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/auth/me [get]
// MeHandler returns the authenticated user
// GET /api/v1/auth/me
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userVal, exists := c.Get("user")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}
		user, ok := userVal.(*models.User)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user format"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// @Summary      Refresh JWT token
// @Description  Exchange existing JWT token for a fresh one with extended expiration
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "token, expires_in"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized - invalid or missing token"
// @Failure      500  {object}  map[string]interface{}  "Internal error during token generation"
// @Router       /api/v1/auth/refresh [post]
// RefreshHandler refreshes an existing JWT token
// POST /api/v1/auth/refresh
func (h *AuthHandlers) RefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}
		userID, ok := userVal.(string)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
			return
		}

		user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil || user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		expiry := h.tokenExpiry()
		newToken, err := auth.GenerateJWT(user.ID, user.Email, user.Role, expiry)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate new token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      newToken,
			"expires_in": int64(expiry.Seconds()),
		})
	}
}

// @Summary      Initiate OIDC login
// @Description  Redirects the browser to the identity provider to begin the authorization code flow.
// @Tags         Authentication
// @Produce      json
// @Success      302  {object}  string  "Redirects to the provider authorization URL"
// @Failure      400  {object}  map[string]interface{}  "OIDC not configured"
// @Failure      500  {object}  map[string]interface{}  "Failed to generate state"
// @Router       /api/v1/auth/oidc/login [get]
// OIDCLoginHandler initiates the OIDC login flow
// GET /api/v1/auth/oidc/login
func (h *AuthHandlers) OIDCLoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.oidcProvider == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "OIDC provider not configured"})
			return
		}

		// Generate state for CSRF protection
		state, err := generateState()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate state"})
			return
		}

		h.mu.Lock()
		h.sessionStore[state] = &SessionState{State: state, CreatedAt: time.Now()}
		h.mu.Unlock()

		c.Redirect(http.StatusFound, h.oidcProvider.GetAuthURL(state))
	}
}

// @Summary      OIDC callback handler
// @Description  Handles the provider callback, exchanges the authorization code for a verified ID token, provisions or links the account, and redirects the browser to the frontend /auth/callback page with a JWT.
// @Tags         Authentication
// @Produce      json
// @Param        code   query  string  true  "Authorization code from the provider"
// @Param        state  query  string  true  "State parameter for CSRF validation"
// @Success      302  {object}  string  "Redirects to frontend /auth/callback?token=<jwt>"
// @Failure      400  {object}  map[string]interface{}  "Invalid state or authorization code"
// @Router       /api/v1/auth/oidc/callback [get]
// OIDCCallbackHandler handles the OIDC callback
// GET /api/v1/auth/oidc/callback?code=...&state=...
func (h *AuthHandlers) OIDCCallbackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Derive the frontend base URL once; used for both the success redirect and all
		// error redirects so the user always lands on the frontend callback page.
		frontendBase := deriveFrontendURL(h.cfg)

		callbackError := func(errCode, description string) {
			if frontendBase == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": description})
				return
			}
			target := fmt.Sprintf(
				"%s/auth/callback?error=%s&error_description=%s",
				frontendBase,
				url.QueryEscape(errCode),
				url.QueryEscape(description),
			)
			c.Redirect(http.StatusFound, target)
		}

		code := c.Query("code")
		state := c.Query("state")

		// Validate state
		h.mu.Lock()
		sessionState, exists := h.sessionStore[state]
		if exists {
			// Delete state to prevent reuse
			delete(h.sessionStore, state)
		}
		h.mu.Unlock()

		if !exists {
			callbackError("invalid_state", "Invalid state parameter. Please try logging in again.")
			return
		}

		// Check state expiration (5 minutes)
		if time.Since(sessionState.CreatedAt) > 5*time.Minute {
			callbackError("state_expired", "Login session expired. Please try logging in again.")
			return
		}

		if h.oidcProvider == nil {
			callbackError("provider_not_configured", "OIDC provider is not configured.")
			return
		}

		ctx := c.Request.Context()

		// Exchange code for token
		token, err := h.oidcProvider.ExchangeCode(ctx, code)
		if err != nil {
			callbackError("token_exchange_failed", "Failed to exchange authorization code for token.")
			return
		}

		// Extract and verify ID token
		rawIDToken, ok := token.Extra("id_token").(string)
		if !ok {
			callbackError("no_id_token", "The identity provider did not return an ID token.")
			return
		}
		idToken, err := h.oidcProvider.VerifyIDToken(ctx, rawIDToken)
		if err != nil {
			callbackError("id_token_invalid", "The ID token could not be verified.")
			return
		}

		sub, email, name, err := h.oidcProvider.ExtractUserInfo(idToken)
		if err != nil {
			callbackError("user_info_failed", "Failed to extract user information from the ID token.")
			return
		}

		// Get or create user, linking an existing password account by email
		user, err := h.userRepo.GetOrCreateUserFromOIDC(ctx, sub, email, name)
		if err != nil {
			callbackError("user_creation_failed", "Failed to look up or create your account.")
			return
		}

		// Avatar is provider-supplied profile decoration; its absence is fine.
		if avatarURL := h.oidcProvider.ExtractAvatarURL(idToken); avatarURL != "" && (user.AvatarURL == nil || *user.AvatarURL != avatarURL) {
			user.AvatarURL = &avatarURL
			if err := h.userRepo.UpdateUser(ctx, user); err != nil {
				user.AvatarURL = nil
			}
		}

		if err := h.userRepo.TouchLastLogin(ctx, user.ID); err != nil {
			_ = err
		}

		jwtToken, err := auth.GenerateJWT(user.ID, user.Email, user.Role, h.tokenExpiry())
		if err != nil {
			callbackError("jwt_failed", "Failed to generate an authentication token.")
			return
		}

		// Redirect the browser to the frontend callback page with the JWT in the
		// query string so the SPA can store the token.
		redirectTarget := fmt.Sprintf("%s/auth/callback?token=%s", frontendBase, url.QueryEscape(jwtToken))
		c.Redirect(http.StatusFound, redirectTarget)
	}
}

// @Summary      OIDC logout
// @Description  Redirects the browser to the provider's end_session_endpoint when one is advertised, so the SSO session is also terminated. Falls back to a plain redirect to the frontend.
// @Tags         Authentication
// @Produce      json
// @Success      302  {object}  string  "Redirects to the provider logout URL or the frontend"
// @Router       /api/v1/auth/logout [get]
// LogoutHandler terminates the OIDC SSO session when possible
// GET /api/v1/auth/logout
func (h *AuthHandlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		frontendBase := deriveFrontendURL(h.cfg)
		postLogoutRedirect := frontendBase + "/"

		// Without the end_session redirect, clicking "Login with Google" after
		// logout silently re-authenticates via the still-active IdP session.
		if h.oidcProvider != nil {
			if endSessionURL := h.oidcProvider.GetEndSessionEndpoint(); endSessionURL != "" {
				logoutURL, err := url.Parse(endSessionURL)
				if err == nil {
					q := logoutURL.Query()
					q.Set("post_logout_redirect_uri", postLogoutRedirect)
					q.Set("client_id", h.cfg.Auth.OIDC.ClientID)
					logoutURL.RawQuery = q.Encode()
					c.Redirect(http.StatusFound, logoutURL.String())
					return
				}
			}
		}

		c.Redirect(http.StatusFound, postLogoutRedirect)
	}
}

// deriveFrontendURL returns the browser-facing base URL of the frontend SPA.
// It tries (in order):
//  1. cfg.Server.PublicURL — set explicitly to the frontend's public address
//  2. The origin (scheme + host) of cfg.Auth.OIDC.RedirectURL — the registered callback URL
//     already points to the frontend's public address so stripping its path gives the base.
//  3. cfg.Server.BaseURL — internal backend address, last resort.
func deriveFrontendURL(cfg *config.Config) string {
	if cfg.Server.PublicURL != "" {
		return strings.TrimRight(cfg.Server.PublicURL, "/")
	}
	if cfg.Auth.OIDC.RedirectURL != "" {
		if u, err := url.Parse(cfg.Auth.OIDC.RedirectURL); err == nil {
			return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
		}
	}
	return strings.TrimRight(cfg.Server.BaseURL, "/")
}
