// Package identity handles sign-up, sign-in and account administration.
package identity

import (
	"context"
	"errors"

	cartapp "github.com/fruitstand/backend/internal/application/cart"
	"github.com/fruitstand/backend/internal/domain/identity"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const invalidCredentials = "Invalid email or password"

// GuestCartMerger folds a guest session cart into the user's cart
type GuestCartMerger interface {
	MergeGuestCart(ctx context.Context, userID uuid.UUID, sessionToken string) (cartapp.MergeResult, error)
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo       identity.UserRepository
	jwtService     *auth.JWTService
	blacklist      auth.TokenBlacklist
	carts          GuestCartMerger
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	carts GuestCartMerger,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		carts:      carts,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *AuthService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Register creates a customer account and signs it in
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := identity.NormalizeEmail(req.Email)
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "An account with this email already exists")
	}

	user, err := identity.NewUser(email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	user.RecordLogin()
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	publishUserEvents(ctx, s.eventPublisher, s.logger, user)

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	return s.signIn(ctx, user, req.SessionToken)
}

// Login verifies credentials and issues a token pair. An unknown email and
// a wrong password fail with the same message and the same bcrypt cost.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, identity.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			identity.RejectPassword(req.Password)
			s.logger.Warn("Login attempt for unknown email")
			return nil, shared.NewDomainError("UNAUTHORIZED", invalidCredentials)
		}
		return nil, err
	}

	if !user.VerifyPassword(req.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("UNAUTHORIZED", invalidCredentials)
	}
	if !user.IsActive() {
		s.logger.Warn("Login attempt for disabled account", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("FORBIDDEN", "Account has been disabled")
	}

	user.RecordLogin()
	if err := s.userRepo.Save(ctx, user); err != nil {
		// Don't fail the login - just log the error
		s.logger.Error("Failed to record login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	return s.signIn(ctx, user, req.SessionToken)
}

// Refresh issues a new pair for a valid refresh token. Role and status are
// reloaded so demotions take effect on the next refresh.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, shared.NewDomainError("UNAUTHORIZED", "Refresh token has expired")
		}
		return nil, shared.NewDomainError("UNAUTHORIZED", "Invalid refresh token")
	}

	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("UNAUTHORIZED", "Invalid refresh token")
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, shared.NewDomainError("FORBIDDEN", "Account has been disabled")
	}

	// one refresh token, one use
	if s.blacklist != nil {
		if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
			s.logger.Warn("Failed to revoke used refresh token", zap.Error(err))
		}
	}
	return s.issue(user)
}

// Logout revokes the access token until it would have expired anyway
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.blacklist == nil || claims == nil {
		return nil
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		s.logger.Error("Failed to revoke token", zap.String("user_id", claims.Subject), zap.Error(err))
		return shared.NewUpstreamError("token store", err)
	}
	s.logger.Info("User logged out", zap.String("user_id", claims.Subject))
	return nil
}

func (s *AuthService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	if s.blacklist == nil {
		return nil
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return shared.NewUpstreamError("token store", err)
	}
	if !revoked {
		revoked, err = s.blacklist.IsUserRevoked(ctx, claims.Subject, claims.IssuedAtTime())
		if err != nil {
			return shared.NewUpstreamError("token store", err)
		}
	}
	if revoked {
		return shared.NewDomainError("UNAUTHORIZED", "Token has been revoked")
	}
	return nil
}

func (s *AuthService) signIn(ctx context.Context, user *identity.User, sessionToken string) (*AuthResponse, error) {
	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if s.carts != nil && sessionToken != "" {
		res, err := s.carts.MergeGuestCart(ctx, user.ID, sessionToken)
		if err != nil {
			s.logger.Warn("Failed to merge guest cart",
				zap.String("user_id", user.ID.String()),
				zap.Error(err))
		} else {
			resp.CartMerge = &MergeSummary{Merged: res.Merged, Skipped: res.Skipped}
		}
	}
	return resp, nil
}

func (s *AuthService) issue(user *identity.User) (*AuthResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(auth.Subject{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}
	return &AuthResponse{TokenPair: pair, User: toUserResponse(user)}, nil
}

func publishUserEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, user *identity.User) {
	if publisher != nil {
		if err := publisher.Publish(ctx, user.GetDomainEvents()...); err != nil {
			logger.Warn("Failed to publish user events",
				zap.String("user_id", user.ID.String()),
				zap.Error(err))
		}
	}
	user.ClearDomainEvents()
}
