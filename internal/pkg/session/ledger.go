// internal/pkg/session/ledger.go
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"storelinker-service/internal/domain/auth"
	xerrors "storelinker-service/internal/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultTouchTimeout = 5 * time.Second

	// maxHistoryAttempts bounds the reload-and-retry loop on version
	// conflicts. Each conflict means another writer succeeded.
	maxHistoryAttempts = 10
)

// Ledger writes every session event to the user's loginHistory and to the
// usersessions collection. With a TxRunner both writes share a transaction;
// without one the loginHistory write is authoritative and a failed mirror
// write is logged and dropped.
type Ledger struct {
	users    UserRepository
	sessions SessionRepository
	tx       TxRunner
	logger   *zap.Logger

	touchTimeout time.Duration
	now          func() time.Time
	wg           sync.WaitGroup
}

var _ SessionStore = (*Ledger)(nil)

// NewLedger builds a Ledger. tx may be nil.
func NewLedger(users UserRepository, sessions SessionRepository, tx TxRunner, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		users:        users,
		sessions:     sessions,
		tx:           tx,
		logger:       logger,
		touchTimeout: defaultTouchTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RecordLogin adds or updates the loginHistory entry for the event's session
// and upserts the matching UserSession. Failed attempts get a history entry
// without a session.
func (l *Ledger) RecordLogin(ctx context.Context, user *auth.User, ev LoginEvent) (*LoginRecord, error) {
	at := ev.At
	if at.IsZero() {
		at = l.now()
	}

	sid := ev.SessionID
	if sid == "" && ev.Success {
		var err error
		if sid, err = NewSessionID(); err != nil {
			return nil, err
		}
	}
	if !ev.Success {
		sid = ""
	}

	browser, os := ParseUserAgent(ev.Device)

	var mirror func(ctx context.Context) error
	if sid != "" {
		mirror = func(ctx context.Context) error {
			return l.sessions.Upsert(ctx, &auth.UserSession{
				SessionID:    sid,
				UserID:       user.ID,
				UserEmail:    user.Email,
				UserType:     user.UserType,
				Device:       ev.Device,
				Browser:      browser,
				OS:           os,
				IPAddress:    ev.IPAddress,
				StartTime:    at,
				LastActivity: at,
				Active:       true,
			})
		}
	}

	err := l.updateHistory(ctx, "record_login", user, func(history []auth.LoginEntry) ([]auth.LoginEntry, func(ctx context.Context) error) {
		if idx := indexOf(history, sid); idx >= 0 {
			e := &history[idx]
			e.IPAddress = ev.IPAddress
			e.Device = ev.Device
			e.Browser = browser
			e.OS = os
			e.Success = true
			e.Active = true
			e.LastUpdated = at
			e.EndedAt = nil
		} else {
			history = append(history, auth.LoginEntry{
				Timestamp:   at,
				IPAddress:   ev.IPAddress,
				Device:      ev.Device,
				Browser:     browser,
				OS:          os,
				Success:     ev.Success,
				SessionID:   sid,
				Active:      ev.Success,
				LastUpdated: at,
			})
		}
		return truncate(history), mirror
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	return &LoginRecord{SessionID: sid, Success: ev.Success}, nil
}

// EndSession ends one session. The result is true only when an active
// loginHistory entry was found; the mirror update does not change it.
func (l *Ledger) EndSession(ctx context.Context, user *auth.User, sessionID string, method auth.LogoutMethod) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	at := l.now()
	mirror := func(ctx context.Context) error {
		_, err := l.sessions.End(ctx, sessionID, method, at)
		return err
	}

	found := false
	err := l.updateHistory(ctx, "end_session", user, func(history []auth.LoginEntry) ([]auth.LoginEntry, func(ctx context.Context) error) {
		found = false
		for i := range history {
			if history[i].SessionID == sessionID && history[i].Active {
				endEntry(&history[i], at)
				found = true
			}
		}
		if !found {
			return nil, mirror
		}
		return history, mirror
	})
	if err != nil {
		return false, fmt.Errorf("failed to end session: %w", err)
	}
	return found, nil
}

// EndAllSessions ends every active loginHistory entry and every active
// UserSession row of the user. The count is of loginHistory entries ended.
func (l *Ledger) EndAllSessions(ctx context.Context, user *auth.User, method auth.LogoutMethod) (int, error) {
	at := l.now()
	mirror := func(ctx context.Context) error {
		_, err := l.sessions.EndAllForUser(ctx, user.ID, method, at)
		return err
	}

	ended := 0
	err := l.updateHistory(ctx, "end_all_sessions", user, func(history []auth.LoginEntry) ([]auth.LoginEntry, func(ctx context.Context) error) {
		ended = 0
		for i := range history {
			if history[i].Active {
				endEntry(&history[i], at)
				ended++
			}
		}
		if ended == 0 {
			return nil, mirror
		}
		return history, mirror
	})
	if err != nil {
		return 0, fmt.Errorf("failed to end sessions: %w", err)
	}
	return ended, nil
}

// Reconcile repairs the user's active UserSession rows against the history.
// A row with no history entry is copied into the history as active. A row
// whose history entry already ended is ended too, so a logged-out session
// never comes back. The added count is of entries that survived the
// history bound.
func (l *Ledger) Reconcile(ctx context.Context, user *auth.User) (ReconcileResult, error) {
	var res ReconcileResult

	active, err := l.sessions.FindActiveByUser(ctx, user.ID)
	if err != nil {
		return res, fmt.Errorf("failed to load active sessions: %w", err)
	}
	if len(active) == 0 {
		return res, nil
	}

	err = l.updateHistory(ctx, "reconcile", user, func(history []auth.LoginEntry) ([]auth.LoginEntry, func(ctx context.Context) error) {
		res.Added = 0

		known := make(map[string]struct{}, len(history))
		for _, e := range history {
			if e.SessionID != "" {
				known[e.SessionID] = struct{}{}
			}
		}

		added := make(map[string]struct{})
		for _, s := range active {
			if _, ok := known[s.SessionID]; ok {
				continue
			}
			if _, ok := added[s.SessionID]; ok {
				continue
			}
			history = append(history, auth.LoginEntry{
				Timestamp:   s.StartTime,
				IPAddress:   s.IPAddress,
				Device:      s.Device,
				Browser:     s.Browser,
				OS:          s.OS,
				Success:     true,
				SessionID:   s.SessionID,
				Active:      true,
				LastUpdated: s.LastActivity,
			})
			added[s.SessionID] = struct{}{}
		}
		if len(added) == 0 {
			return nil, nil
		}

		sort.SliceStable(history, func(i, j int) bool {
			return history[i].Timestamp.Before(history[j].Timestamp)
		})
		history = truncate(history)

		for _, e := range history {
			if _, ok := added[e.SessionID]; ok {
				res.Added++
			}
		}
		return history, nil
	})
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("failed to save reconciled history: %w", err)
	}

	for _, s := range active {
		entry, ok := lastEntry(user.LoginHistory, s.SessionID)
		if !ok || entry.Active {
			continue
		}
		at := l.now()
		if entry.EndedAt != nil {
			at = *entry.EndedAt
		}
		ended, err := l.sessions.End(ctx, s.SessionID, auth.LogoutSystem, at)
		if err != nil {
			return res, fmt.Errorf("failed to end stale session: %w", err)
		}
		if ended {
			res.Ended++
		}
	}

	if res.Added > 0 || res.Ended > 0 {
		l.logger.Info("reconciled sessions",
			zap.String("user_id", user.ID.Hex()),
			zap.Int("added", res.Added),
			zap.Int("ended", res.Ended),
		)
	}
	return res, nil
}

// ReconcileAll runs Reconcile for every user owning an active UserSession.
func (l *Ledger) ReconcileAll(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{StartedAt: l.now()}

	ids, err := l.sessions.ActiveUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with active sessions: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		user, err := l.users.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				report.Orphaned++
				continue
			}
			report.Failed++
			l.logger.Warn("reconcile: failed to load user", zap.String("user_id", id.Hex()), zap.Error(err))
			continue
		}

		res, err := l.Reconcile(ctx, user)
		if err != nil {
			report.Failed++
			l.logger.Warn("reconcile: failed", zap.String("user_id", id.Hex()), zap.Error(err))
			continue
		}
		report.Users++
		report.SessionsAdded += res.Added
		report.SessionsEnded += res.Ended
	}

	report.FinishedAt = l.now()
	return report, nil
}

// Touch refreshes the activity timestamps of a session in the background.
// It never blocks the caller and only logs failures.
func (l *Ledger) Touch(userID primitive.ObjectID, sessionID string) {
	at := l.now()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), l.touchTimeout)
		defer cancel()

		if err := l.users.TouchLoginEntry(ctx, userID, sessionID, at); err != nil {
			l.logger.Warn("failed to touch login entry",
				zap.String("user_id", userID.Hex()),
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
		if err := l.sessions.Touch(ctx, sessionID, at); err != nil {
			l.logger.Warn("failed to touch user session",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until pending Touch goroutines finish.
func (l *Ledger) Wait() {
	l.wg.Wait()
}

func (l *Ledger) IsActive(user *auth.User, sessionID string) bool {
	return HasActiveEntry(user.LoginHistory, sessionID)
}

func (l *Ledger) ActiveSessions(ctx context.Context, userID primitive.ObjectID) ([]auth.UserSession, error) {
	return l.sessions.FindActiveByUser(ctx, userID)
}

// UserSessions returns every UserSession row of the user, newest first.
func (l *Ledger) UserSessions(ctx context.Context, userID primitive.ObjectID) ([]auth.UserSession, error) {
	sessions, err := l.sessions.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	auth.SortNewestFirst(sessions)
	return sessions, nil
}

func (l *Ledger) Stats(ctx context.Context, userID primitive.ObjectID) (auth.SessionStats, error) {
	sessions, err := l.sessions.FindByUser(ctx, userID)
	if err != nil {
		return auth.SessionStats{}, err
	}
	return auth.NewSessionStats(sessions), nil
}

// historyChange edits a private copy of the history. It returns the history
// to save, or nil to leave it as is, and the mirror write to run with it.
type historyChange func(history []auth.LoginEntry) ([]auth.LoginEntry, func(ctx context.Context) error)

// updateHistory applies change to the user's history and saves it under a
// version check. On a conflict the user is reloaded and change runs again on
// the fresh history. user is left holding what was saved.
func (l *Ledger) updateHistory(ctx context.Context, op string, user *auth.User, change historyChange) error {
	current := user
	for attempt := 1; ; attempt++ {
		version := current.HistoryVersion
		next, mirror := change(cloneHistory(current.LoginHistory))

		var primary func(ctx context.Context) error
		if next != nil {
			id := current.ID
			primary = func(ctx context.Context) error {
				return l.users.SaveLoginHistory(ctx, id, version, next)
			}
		}

		err := l.dualWrite(ctx, op, primary, mirror)
		if err == nil {
			if next != nil {
				user.LoginHistory = next
				user.HistoryVersion = version + 1
			} else if current != user {
				user.LoginHistory = current.LoginHistory
				user.HistoryVersion = current.HistoryVersion
			}
			return nil
		}
		if !errors.Is(err, xerrors.ErrWriteConflict) || attempt >= maxHistoryAttempts {
			return err
		}

		fresh, err := l.users.FindByID(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to reload user: %w", err)
		}
		current = fresh
	}
}

func (l *Ledger) dualWrite(ctx context.Context, op string, primary, secondary func(ctx context.Context) error) error {
	if l.tx != nil {
		return l.tx.WithTransaction(ctx, func(ctx context.Context) error {
			if primary != nil {
				if err := primary(ctx); err != nil {
					return err
				}
			}
			if secondary != nil {
				return secondary(ctx)
			}
			return nil
		})
	}

	if primary != nil {
		if err := primary(ctx); err != nil {
			return err
		}
	}
	if secondary != nil {
		if err := secondary(ctx); err != nil {
			l.logger.Warn("session mirror write failed",
				zap.String("op", op),
				zap.Error(err),
			)
		}
	}
	return nil
}

// HasActiveEntry reports whether history holds an active entry for sessionID.
func HasActiveEntry(history []auth.LoginEntry, sessionID string) bool {
	if sessionID == "" {
		return false
	}
	for _, e := range history {
		if e.SessionID == sessionID && e.Active {
			return true
		}
	}
	return false
}

func indexOf(history []auth.LoginEntry, sessionID string) int {
	if sessionID == "" {
		return -1
	}
	for i := range history {
		if history[i].SessionID == sessionID {
			return i
		}
	}
	return -1
}

func endEntry(e *auth.LoginEntry, at time.Time) {
	ended := at
	e.Active = false
	e.EndedAt = &ended
	e.LastUpdated = at
}

func lastEntry(history []auth.LoginEntry, sessionID string) (auth.LoginEntry, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].SessionID == sessionID {
			return history[i], true
		}
	}
	return auth.LoginEntry{}, false
}

// truncate bounds history to MaxLoginHistory, keeping order. Failed and
// ended entries are evicted oldest first; active entries only go when
// nothing else is left to evict.
func truncate(history []auth.LoginEntry) []auth.LoginEntry {
	excess := len(history) - MaxLoginHistory
	if excess <= 0 {
		return history
	}

	drop := make([]bool, len(history))
	for i := range history {
		if excess == 0 {
			break
		}
		if !history[i].Active {
			drop[i] = true
			excess--
		}
	}
	for i := range history {
		if excess == 0 {
			break
		}
		if !drop[i] {
			drop[i] = true
			excess--
		}
	}

	out := make([]auth.LoginEntry, 0, MaxLoginHistory)
	for i, e := range history {
		if !drop[i] {
			out = append(out, e)
		}
	}
	return out
}

func cloneHistory(history []auth.LoginEntry) []auth.LoginEntry {
	out := make([]auth.LoginEntry, len(history))
	copy(out, history)
	return out
}
