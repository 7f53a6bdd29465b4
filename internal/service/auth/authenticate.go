package auth

import (
	"context"
	"errors"
	"fmt"

	"storelinker-service/internal/domain/auth"
	xerrors "storelinker-service/internal/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Authenticate runs the bearer token through each check in order and stops
// at the first failure:
//
//	no token        -> ErrMissingToken
//	bad signature   -> ErrInvalidToken
//	no session id   -> ErrMissingSessionClaim
//	unknown user    -> ErrUnknownUser
//	ended session   -> ErrSessionRevoked
//
// On success the session's activity is refreshed in the background.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Identity, error) {
	if token == "" {
		return nil, xerrors.ErrMissingToken
	}

	claims, err := s.jwtManager.Verifier.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidToken, err)
	}

	if !claims.HasSession() {
		return nil, xerrors.ErrMissingSessionClaim
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, xerrors.ErrUnknownUser
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrUnknownUser
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !s.sessions.IsActive(user, claims.SessionID) {
		return nil, xerrors.ErrSessionRevoked
	}

	s.sessions.Touch(user.ID, claims.SessionID)

	ident := &auth.Identity{
		UserID:    user.ID,
		Email:     user.Email,
		UserType:  user.UserType,
		Role:      user.EffectiveRole(),
		SessionID: claims.SessionID,
		User:      user,
	}
	if user.IsVendor() {
		ident.StoreName = user.StoreName
	}
	return ident, nil
}
