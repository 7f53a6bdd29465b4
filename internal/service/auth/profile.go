package auth

import (
	"context"
	"fmt"
	"strings"

	"storelinker-service/internal/domain/auth"
	xerrors "storelinker-service/internal/pkg/errors"

	"go.uber.org/zap"
)

func (s *AuthService) GetMe(ident *auth.Identity) auth.UserInfo {
	return auth.NewUserInfo(ident.User)
}

// UpdateProfile applies the present fields. Store fields are dropped for
// anyone who is not a vendor.
func (s *AuthService) UpdateProfile(ctx context.Context, ident *auth.Identity, req *auth.UpdateProfileRequest) (*auth.UserInfo, error) {
	user := ident.User

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		user.Address = req.Address
	}

	if user.IsVendor() {
		if req.StoreName != nil {
			name := strings.TrimSpace(*req.StoreName)
			if name == "" {
				return nil, xerrors.Field("storeName", "store name cannot be empty")
			}
			user.StoreName = name
		}
		if req.StoreDescription != nil {
			user.StoreDescription = strings.TrimSpace(*req.StoreDescription)
		}
	} else {
		user.StoreName = ""
		user.StoreDescription = ""
	}

	user.UpdatedAt = s.now()
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	info := auth.NewUserInfo(user)
	return &info, nil
}

// ChangePassword replaces the password and ends every session of the user.
func (s *AuthService) ChangePassword(ctx context.Context, ident *auth.Identity, req *auth.ChangePasswordRequest) (int, error) {
	if !s.hasher.Verify(req.CurrentPassword, ident.User.Password).OK {
		return 0, xerrors.Field("currentPassword", "current password is incorrect")
	}
	if len(req.NewPassword) < 5 {
		return 0, xerrors.Field("newPassword", "password must be at least 5 characters")
	}

	hashed, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return 0, err
	}
	if err := s.users.UpdatePassword(ctx, ident.UserID, hashed); err != nil {
		return 0, fmt.Errorf("failed to update password: %w", err)
	}
	ident.User.Password = hashed

	n, err := s.sessions.EndAllSessions(ctx, ident.User, auth.LogoutForced)
	if err != nil {
		return 0, err
	}
	s.logger.Info("password changed", zap.String("user_id", ident.UserID.Hex()), zap.Int("sessions_ended", n))
	if s.notifier != nil {
		s.notifier.AllSessionsEnded(ident.UserID.Hex(), n)
	}
	return n, nil
}
