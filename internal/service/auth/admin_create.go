package auth

import (
	"context"
	"errors"
	"fmt"

	"storelinker-service/internal/domain/auth"
	xerrors "storelinker-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// EnsureAdminExists creates the bootstrap admin account on startup. Nothing
// happens when no credentials are configured; there is no default password.
func (s *AuthService) EnsureAdminExists(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		s.logger.Info("no bootstrap admin configured, skipping")
		return nil
	}

	existing, err := s.users.FindByEmailInsensitive(ctx, email)
	if err == nil {
		if existing.EffectiveRole() != auth.RoleAdmin {
			s.logger.Warn("bootstrap admin email belongs to a non-admin account", zap.String("user_id", existing.ID.Hex()))
		} else {
			s.logger.Info("admin already exists, skipping creation")
		}
		return nil
	}
	if !errors.Is(err, xerrors.ErrNotFound) {
		return fmt.Errorf("failed to check admin existence: %w", err)
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	now := s.now()
	admin := &auth.User{
		Email:        email,
		Password:     hashed,
		UserType:     auth.UserTypeAdmin,
		Role:         auth.RoleAdmin,
		FirstName:    "Admin",
		IsActive:     true,
		LoginHistory: []auth.LoginEntry{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Info("admin account created", zap.String("user_id", admin.ID.Hex()))
	return nil
}
