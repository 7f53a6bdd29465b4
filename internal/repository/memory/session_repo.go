package memory

import (
	"context"
	"sort"
	"time"

	"storelinker-service/internal/domain/auth"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SessionRepository struct {
	s *Store
}

// Upsert inserts the session or refreshes it, keeping the original start time.
func (r *SessionRepository) Upsert(ctx context.Context, sess *auth.UserSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.SessionWriteErr != nil {
		return r.s.SessionWriteErr
	}

	c := cloneSession(sess)
	if existing, ok := r.s.sessions[sess.SessionID]; ok {
		c.ID = existing.ID
		c.StartTime = existing.StartTime
	} else if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.EndTime = nil
	c.LogoutMethod = nil
	r.s.sessions[sess.SessionID] = c
	return nil
}

func (r *SessionRepository) End(ctx context.Context, sessionID string, method auth.LogoutMethod, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.SessionWriteErr != nil {
		return false, r.s.SessionWriteErr
	}
	sess, ok := r.s.sessions[sessionID]
	if !ok || !sess.Active {
		return false, nil
	}
	endSession(sess, method, at)
	return true, nil
}

func (r *SessionRepository) EndAllForUser(ctx context.Context, userID primitive.ObjectID, method auth.LogoutMethod, at time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.SessionWriteErr != nil {
		return 0, r.s.SessionWriteErr
	}
	n := 0
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && sess.Active {
			endSession(sess, method, at)
			n++
		}
	}
	return n, nil
}

func (r *SessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.SessionWriteErr != nil {
		return r.s.SessionWriteErr
	}
	if sess, ok := r.s.sessions[sessionID]; ok && sess.Active {
		sess.LastActivity = at
	}
	return nil
}

func (r *SessionRepository) FindActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]auth.UserSession, error) {
	return r.find(func(s *auth.UserSession) bool { return s.UserID == userID && s.Active }), nil
}

func (r *SessionRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]auth.UserSession, error) {
	return r.find(func(s *auth.UserSession) bool { return s.UserID == userID }), nil
}

// FindBySessionID is used by tests to inspect the mirrored row.
func (r *SessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*auth.UserSession, bool) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sess, ok := r.s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return cloneSession(sess), true
}

// Insert stores a row as-is, bypassing upsert rules. Used to seed divergence.
func (r *SessionRepository) Insert(sess *auth.UserSession) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[sess.SessionID] = cloneSession(sess)
}

func (r *SessionRepository) ActiveUserIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	for _, sess := range r.s.sessions {
		if !sess.Active {
			continue
		}
		if _, ok := seen[sess.UserID]; ok {
			continue
		}
		seen[sess.UserID] = struct{}{}
		ids = append(ids, sess.UserID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	return ids, nil
}

func (r *SessionRepository) find(match func(s *auth.UserSession) bool) []auth.UserSession {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []auth.UserSession
	for _, sess := range r.s.sessions {
		if match(sess) {
			out = append(out, *cloneSession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func endSession(sess *auth.UserSession, method auth.LogoutMethod, at time.Time) {
	end := at
	m := method
	sess.Active = false
	sess.EndTime = &end
	sess.LogoutMethod = &m
}
