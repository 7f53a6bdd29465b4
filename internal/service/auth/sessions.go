package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"storelinker-service/internal/domain/auth"
	xerrors "storelinker-service/internal/pkg/errors"
	"storelinker-service/internal/pkg/session"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// sessionListWindow limits ListSessions to recent logins.
const sessionListWindow = 30 * 24 * time.Hour

// Logout ends the caller's current session.
func (s *AuthService) Logout(ctx context.Context, ident *auth.Identity) error {
	ended, err := s.sessions.EndSession(ctx, ident.User, ident.SessionID, auth.LogoutManual)
	if err != nil {
		return err
	}
	if !ended {
		return xerrors.ErrSessionNotFound
	}

	s.logger.Info("user logged out",
		zap.String("user_id", ident.UserID.Hex()),
		zap.String("session_id", ident.SessionID),
	)
	if s.notifier != nil {
		s.notifier.SessionEnded(ident.UserID.Hex(), ident.SessionID, "logout")
	}
	return nil
}

// LogoutAll ends every session of the caller and returns how many ended.
func (s *AuthService) LogoutAll(ctx context.Context, ident *auth.Identity) (int, error) {
	n, err := s.sessions.EndAllSessions(ctx, ident.User, auth.LogoutManual)
	if err != nil {
		return 0, err
	}

	s.logger.Info("user logged out everywhere",
		zap.String("user_id", ident.UserID.Hex()),
		zap.Int("sessions", n),
	)
	if s.notifier != nil {
		s.notifier.AllSessionsEnded(ident.UserID.Hex(), n)
	}
	return n, nil
}

// ListSessions returns successful, session-bearing logins from the last 30
// days, newest first.
func (s *AuthService) ListSessions(ident *auth.Identity) []auth.SessionSummary {
	cutoff := s.now().Add(-sessionListWindow)

	out := []auth.SessionSummary{}
	for _, e := range ident.User.LoginHistory {
		if !e.Success || e.SessionID == "" || e.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, auth.SessionSummary{
			SessionID:   e.SessionID,
			Timestamp:   e.Timestamp,
			IPAddress:   e.IPAddress,
			Device:      e.Device,
			Browser:     e.Browser,
			OS:          e.OS,
			Active:      e.Active,
			LastUpdated: e.LastUpdated,
			EndedAt:     e.EndedAt,
			Current:     e.SessionID == ident.SessionID,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (s *AuthService) AllSessions(ctx context.Context, ident *auth.Identity) ([]auth.UserSession, error) {
	sessions, err := s.sessions.UserSessions(ctx, ident.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	if sessions == nil {
		sessions = []auth.UserSession{}
	}
	return sessions, nil
}

// ActiveSessions returns the caller's UserSession rows that are still active.
func (s *AuthService) ActiveSessions(ctx context.Context, ident *auth.Identity) ([]auth.UserSession, error) {
	sessions, err := s.sessions.ActiveSessions(ctx, ident.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active sessions: %w", err)
	}
	if sessions == nil {
		sessions = []auth.UserSession{}
	}
	auth.SortNewestFirst(sessions)
	return sessions, nil
}

func (s *AuthService) SessionStats(ctx context.Context, ident *auth.Identity) (auth.SessionStats, error) {
	stats, err := s.sessions.Stats(ctx, ident.UserID)
	if err != nil {
		return auth.SessionStats{}, fmt.Errorf("failed to load session stats: %w", err)
	}
	return stats, nil
}

// ========== Recovery ==========

// RecoverUserSessions reconciles one user selected by id or email.
func (s *AuthService) RecoverUserSessions(ctx context.Context, req *auth.RecoverSessionsRequest) (*auth.RecoverResult, error) {
	var (
		user *auth.User
		err  error
	)
	switch {
	case req.UserID != "":
		id, perr := primitive.ObjectIDFromHex(req.UserID)
		if perr != nil {
			return nil, xerrors.Field("userId", "invalid user id")
		}
		user, err = s.users.FindByID(ctx, id)
	case strings.TrimSpace(req.Email) != "":
		user, err = s.users.FindByEmailInsensitive(ctx, strings.TrimSpace(req.Email))
	default:
		return nil, xerrors.Field("userId", "userId or email is required")
	}
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	res, err := s.sessions.Reconcile(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("recovered user sessions",
		zap.String("user_id", user.ID.Hex()),
		zap.Int("added", res.Added),
		zap.Int("ended", res.Ended),
	)
	return &auth.RecoverResult{
		UserID:        user.ID.Hex(),
		Email:         user.Email,
		AddedSessions: res.Added,
		EndedSessions: res.Ended,
	}, nil
}

func (s *AuthService) RecoverAllSessions(ctx context.Context) (*session.ReconcileReport, error) {
	report, err := s.sessions.ReconcileAll(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("recovered all sessions",
		zap.Int("users", report.Users),
		zap.Int("added", report.SessionsAdded),
		zap.Int("ended", report.SessionsEnded),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
