package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fruitstand/backend/internal/domain/identity"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxPageSize caps user list pages
const MaxPageSize = 100

// UserService manages profiles and, for admins, accounts
type UserService struct {
	userRepo       identity.UserRepository
	blacklist      auth.TokenBlacklist
	sessionTTL     time.Duration
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewUserService creates a new UserService. sessionTTL is the longest a
// token can live, so user-wide revocations are kept at least that long.
func NewUserService(
	userRepo identity.UserRepository,
	blacklist auth.TokenBlacklist,
	sessionTTL time.Duration,
	logger *zap.Logger,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		userRepo:   userRepo,
		blacklist:  blacklist,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *UserService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Me returns the caller's profile
func (s *UserService) Me(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// UpdateProfile changes the caller's names and phone
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserResponse, error) {
	return s.mutate(ctx, userID, func(u *identity.User) error {
		return u.UpdateProfile(req.FirstName, req.LastName, req.Phone)
	})
}

// ChangePassword verifies the current password before replacing it
func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	_, err := s.mutate(ctx, userID, func(u *identity.User) error {
		return u.ChangePassword(req.OldPassword, req.NewPassword)
	})
	if err == nil {
		s.logger.Info("Password changed", zap.String("user_id", userID.String()))
	}
	return err
}

// List returns users matching the admin query
func (s *UserService) List(ctx context.Context, q ListUsersQuery) (shared.Paginated[UserResponse], error) {
	filter := shared.Filter{Page: q.Page, PageSize: q.PageSize, Search: strings.TrimSpace(q.Search)}
	filter.Normalize(MaxPageSize)
	if q.Role != "" {
		if !identity.Role(q.Role).IsValid() {
			return shared.Paginated[UserResponse]{}, shared.NewDomainError("INVALID_INPUT", "Unknown role: "+q.Role)
		}
		filter.Filters["role"] = q.Role
	}
	if q.Status != "" {
		status := identity.UserStatus(q.Status)
		if status != identity.UserStatusActive && status != identity.UserStatusDisabled {
			return shared.Paginated[UserResponse]{}, shared.NewDomainError("INVALID_INPUT", "Unknown status: "+q.Status)
		}
		filter.Filters["status"] = q.Status
	}

	users, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[UserResponse]{}, err
	}
	total, err := s.userRepo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[UserResponse]{}, err
	}
	items := make([]UserResponse, len(users))
	for i := range users {
		items[i] = *toUserResponse(&users[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// SetRole changes a user's role. Admins cannot demote themselves.
func (s *UserService) SetRole(ctx context.Context, actorID, userID uuid.UUID, req SetRoleRequest) (*UserResponse, error) {
	if actorID == userID && identity.Role(req.Role) != identity.RoleAdmin {
		return nil, shared.NewDomainError("INVALID_STATE", "You cannot remove your own admin role")
	}
	resp, err := s.mutate(ctx, userID, func(u *identity.User) error {
		return u.SetRole(identity.Role(req.Role))
	})
	if err != nil {
		return nil, err
	}
	// existing tokens carry the old role
	s.revokeSessions(ctx, userID)
	s.logger.Info("User role changed",
		zap.String("user_id", userID.String()),
		zap.String("role", req.Role),
		zap.String("by", actorID.String()))
	return resp, nil
}

// Disable blocks sign-in and revokes every outstanding token
func (s *UserService) Disable(ctx context.Context, actorID, userID uuid.UUID) (*UserResponse, error) {
	if actorID == userID {
		return nil, shared.NewDomainError("INVALID_STATE", "You cannot disable your own account")
	}
	resp, err := s.mutate(ctx, userID, func(u *identity.User) error {
		return u.Disable()
	})
	if err != nil {
		return nil, err
	}
	s.revokeSessions(ctx, userID)
	s.logger.Info("User disabled", zap.String("user_id", userID.String()), zap.String("by", actorID.String()))
	return resp, nil
}

// Enable restores sign-in for a disabled user
func (s *UserService) Enable(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	return s.mutate(ctx, userID, func(u *identity.User) error {
		return u.Enable()
	})
}

func (s *UserService) revokeSessions(ctx context.Context, userID uuid.UUID) {
	if s.blacklist == nil {
		return
	}
	if err := s.blacklist.RevokeUser(ctx, userID.String(), s.sessionTTL); err != nil {
		s.logger.Error("Failed to revoke user tokens", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (s *UserService) find(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("user")
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) mutate(ctx context.Context, id uuid.UUID, fn func(*identity.User) error) (*UserResponse, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(user); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}
	publishUserEvents(ctx, s.eventPublisher, s.logger, user)
	return toUserResponse(user), nil
}
