// internal/pkg/session/types.go
package session

import (
	"context"
	"time"

	"storelinker-service/internal/domain/auth"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxLoginHistory bounds the embedded login history. The oldest inactive
// entries are evicted first.
const MaxLoginHistory = 30

// LoginEvent describes one login attempt to record.
type LoginEvent struct {
	IPAddress string
	Device    string
	Success   bool
	// SessionID is reused when set, which makes recording idempotent.
	SessionID string
	At        time.Time
}

// LoginRecord is the outcome of RecordLogin.
type LoginRecord struct {
	SessionID string
	Success   bool
}

// ReconcileResult is the outcome of reconciling one user. Added counts
// history entries restored from active rows; Ended counts active rows whose
// history entry had already ended.
type ReconcileResult struct {
	Added int `json:"added"`
	Ended int `json:"ended"`
}

// ReconcileReport summarises a ReconcileAll run. Partial failures are counted.
type ReconcileReport struct {
	Users         int       `json:"users"`
	SessionsAdded int       `json:"sessionsAdded"`
	SessionsEnded int       `json:"sessionsEnded"`
	Orphaned      int       `json:"orphaned"`
	Failed        int       `json:"failed"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
}

// UserRepository is the ledger side: the loginHistory array on the user document.
// SaveLoginHistory only writes when the stored historyVersion still equals
// version, and returns xerrors.ErrWriteConflict otherwise. TouchLoginEntry
// only touches active entries.
type UserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*auth.User, error)
	SaveLoginHistory(ctx context.Context, id primitive.ObjectID, version int64, history []auth.LoginEntry) error
	TouchLoginEntry(ctx context.Context, id primitive.ObjectID, sessionID string, at time.Time) error
}

// SessionRepository is the mirrored side: the usersessions collection.
type SessionRepository interface {
	Upsert(ctx context.Context, s *auth.UserSession) error
	End(ctx context.Context, sessionID string, method auth.LogoutMethod, at time.Time) (bool, error)
	EndAllForUser(ctx context.Context, userID primitive.ObjectID, method auth.LogoutMethod, at time.Time) (int, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	FindActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]auth.UserSession, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]auth.UserSession, error)
	ActiveUserIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

// TxRunner runs fn inside a multi-document transaction.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SessionStore is the single entry point for session state. Callers never
// write either collection directly.
type SessionStore interface {
	RecordLogin(ctx context.Context, user *auth.User, ev LoginEvent) (*LoginRecord, error)
	EndSession(ctx context.Context, user *auth.User, sessionID string, method auth.LogoutMethod) (bool, error)
	EndAllSessions(ctx context.Context, user *auth.User, method auth.LogoutMethod) (int, error)
	Reconcile(ctx context.Context, user *auth.User) (ReconcileResult, error)
	ReconcileAll(ctx context.Context) (*ReconcileReport, error)
	Touch(userID primitive.ObjectID, sessionID string)
	IsActive(user *auth.User, sessionID string) bool
	ActiveSessions(ctx context.Context, userID primitive.ObjectID) ([]auth.UserSession, error)
	UserSessions(ctx context.Context, userID primitive.ObjectID) ([]auth.UserSession, error)
	Stats(ctx context.Context, userID primitive.ObjectID) (auth.SessionStats, error)
}
