// Package memory holds in-process repositories with the same contracts as
// the MongoDB ones. Every read and write deep-copies documents.
package memory

import (
	"context"
	"sync"

	"storelinker-service/internal/domain/auth"
	"storelinker-service/internal/domain/product"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu       sync.RWMutex
	txMu     sync.Mutex
	users    map[primitive.ObjectID]*auth.User
	sessions map[string]*auth.UserSession
	products map[primitive.ObjectID]*product.Product

	// SessionWriteErr, when set, fails every usersessions write.
	SessionWriteErr error
	// HistoryWriteErr, when set, fails every loginHistory write.
	HistoryWriteErr error
}

func NewStore() *Store {
	return &Store{
		users:    make(map[primitive.ObjectID]*auth.User),
		sessions: make(map[string]*auth.UserSession),
		products: make(map[primitive.ObjectID]*product.Product),
	}
}

// Users returns the users repository view of the store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{s: s}
}

func (s *Store) Products() *ProductRepository {
	return &ProductRepository{s: s}
}

// WithTransaction snapshots the store and restores it when fn fails.
// Transactions run one at a time.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	users    map[primitive.ObjectID]*auth.User
	sessions map[string]*auth.UserSession
	products map[primitive.ObjectID]*product.Product
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		users:    make(map[primitive.ObjectID]*auth.User, len(s.users)),
		sessions: make(map[string]*auth.UserSession, len(s.sessions)),
		products: make(map[primitive.ObjectID]*product.Product, len(s.products)),
	}
	for k, v := range s.users {
		snap.users[k] = cloneUser(v)
	}
	for k, v := range s.sessions {
		snap.sessions[k] = cloneSession(v)
	}
	for k, v := range s.products {
		p := *v
		snap.products[k] = &p
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.sessions = snap.sessions
	s.products = snap.products
}

func cloneUser(u *auth.User) *auth.User {
	c := *u
	if u.Address != nil {
		a := *u.Address
		c.Address = &a
	}
	c.LoginHistory = make([]auth.LoginEntry, len(u.LoginHistory))
	for i, e := range u.LoginHistory {
		if e.EndedAt != nil {
			t := *e.EndedAt
			e.EndedAt = &t
		}
		c.LoginHistory[i] = e
	}
	return &c
}

func cloneSession(s *auth.UserSession) *auth.UserSession {
	c := *s
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	if s.LogoutMethod != nil {
		m := *s.LogoutMethod
		c.LogoutMethod = &m
	}
	return &c
}
