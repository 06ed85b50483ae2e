package handler

import (
	"context"

	identityapp "github.com/fruitstand/backend/internal/application/identity"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/infrastructure/auth"
	"github.com/fruitstand/backend/internal/interfaces/http/dto"
	"github.com/fruitstand/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthService is the sign-in surface the handler needs
type AuthService interface {
	Register(ctx context.Context, req identityapp.RegisterRequest) (*identityapp.AuthResponse, error)
	Login(ctx context.Context, req identityapp.LoginRequest) (*identityapp.AuthResponse, error)
	Refresh(ctx context.Context, req identityapp.RefreshRequest) (*identityapp.AuthResponse, error)
	Logout(ctx context.Context, claims *auth.Claims) error
}

// UserService is the account surface the handler needs
type UserService interface {
	Me(ctx context.Context, userID uuid.UUID) (*identityapp.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req identityapp.UpdateProfileRequest) (*identityapp.UserResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req identityapp.ChangePasswordRequest) error
	List(ctx context.Context, q identityapp.ListUsersQuery) (shared.Paginated[identityapp.UserResponse], error)
	SetRole(ctx context.Context, actorID, userID uuid.UUID, req identityapp.SetRoleRequest) (*identityapp.UserResponse, error)
	Disable(ctx context.Context, actorID, userID uuid.UUID) (*identityapp.UserResponse, error)
	Enable(ctx context.Context, userID uuid.UUID) (*identityapp.UserResponse, error)
}

// AuthHandler handles registration, sign-in and the caller's own account
type AuthHandler struct {
	BaseHandler
	auth  AuthService
	users UserService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService AuthService, users UserService) *AuthHandler {
	return &AuthHandler{auth: authService, users: users}
}

// Register handles POST /auth/register. A guest cart in the session is
// merged into the new account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req identityapp.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	req.SessionToken = middleware.GetSessionToken(c)

	resp, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req identityapp.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	req.SessionToken = middleware.GetSessionToken(c)

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req identityapp.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.auth.Refresh(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Logout handles POST /auth/logout by revoking the presented access token
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Me handles GET /me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	user, err := h.users.Me(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// UpdateProfile handles PATCH /me
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req identityapp.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ChangePassword handles POST /me/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req identityapp.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.users.ChangePassword(c.Request.Context(), userID, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// UserAdminHandler lets staff manage customer accounts
type UserAdminHandler struct {
	BaseHandler
	users UserService
}

// NewUserAdminHandler creates a new UserAdminHandler
func NewUserAdminHandler(users UserService) *UserAdminHandler {
	return &UserAdminHandler{users: users}
}

// List handles GET /admin/users
func (h *UserAdminHandler) List(c *gin.Context) {
	var q identityapp.ListUsersQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.users.List(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessPage(c, dto.NewPageResponse(page))
}

// SetRole handles PUT /admin/users/:id/role
func (h *UserAdminHandler) SetRole(c *gin.Context) {
	actorID, ok := h.currentUser(c)
	if !ok {
		return
	}
	userID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req identityapp.SetRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.SetRole(c.Request.Context(), actorID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Disable handles POST /admin/users/:id/disable. The user's sessions are
// revoked.
func (h *UserAdminHandler) Disable(c *gin.Context) {
	actorID, ok := h.currentUser(c)
	if !ok {
		return
	}
	userID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Disable(c.Request.Context(), actorID, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Enable handles POST /admin/users/:id/enable
func (h *UserAdminHandler) Enable(c *gin.Context) {
	userID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Enable(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}
