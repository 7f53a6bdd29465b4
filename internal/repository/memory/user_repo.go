package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"storelinker-service/internal/domain/auth"
	xerrors "storelinker-service/internal/pkg/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return xerrors.ErrDuplicateAccount
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*auth.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(func(u *auth.User) bool { return u.Email == email })
}

func (r *UserRepository) FindByEmailAndType(ctx context.Context, email string, userType auth.UserType) (*auth.User, error) {
	return r.findOne(func(u *auth.User) bool { return u.Email == email && u.UserType == userType })
}

func (r *UserRepository) FindByEmailInsensitive(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(func(u *auth.User) bool { return strings.EqualFold(u.Email, email) })
}

// FindByEmailPrefix returns at most limit users whose email starts with prefix, ignoring case.
func (r *UserRepository) FindByEmailPrefix(ctx context.Context, prefix string, limit int) ([]auth.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	prefix = strings.ToLower(prefix)
	var out []auth.User
	for _, u := range r.s.sortedUsers() {
		if strings.HasPrefix(strings.ToLower(u.Email), prefix) {
			out = append(out, *cloneUser(u))
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, u *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[u.ID]
	if !ok {
		return xerrors.ErrNotFound
	}
	existing.FirstName = u.FirstName
	existing.LastName = u.LastName
	existing.Phone = u.Phone
	existing.Address = nil
	if u.Address != nil {
		a := *u.Address
		existing.Address = &a
	}
	existing.StoreName = ""
	existing.StoreDescription = ""
	if existing.UserType == auth.UserTypeVendor {
		existing.StoreName = u.StoreName
		existing.StoreDescription = u.StoreDescription
	}
	existing.UpdatedAt = u.UpdatedAt
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	u.Password = hash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// SaveLoginHistory writes history only when version matches the stored one.
func (r *UserRepository) SaveLoginHistory(ctx context.Context, id primitive.ObjectID, version int64, history []auth.LoginEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.HistoryWriteErr != nil {
		return r.s.HistoryWriteErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	if u.HistoryVersion != version {
		return xerrors.ErrWriteConflict
	}
	tmp := cloneUser(&auth.User{LoginHistory: history})
	u.LoginHistory = tmp.LoginHistory
	u.HistoryVersion++
	return nil
}

func (r *UserRepository) TouchLoginEntry(ctx context.Context, id primitive.ObjectID, sessionID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.HistoryWriteErr != nil {
		return r.s.HistoryWriteErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	for i := range u.LoginHistory {
		if u.LoginHistory[i].SessionID == sessionID && u.LoginHistory[i].Active {
			u.LoginHistory[i].LastUpdated = at
		}
	}
	return nil
}

// ListVendors returns vendors that have a store name.
func (r *UserRepository) ListVendors(ctx context.Context) ([]auth.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []auth.User
	for _, u := range r.s.sortedUsers() {
		if u.UserType == auth.UserTypeVendor && u.StoreName != "" && u.IsActive {
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

func (r *UserRepository) findOne(match func(u *auth.User) bool) (*auth.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.sortedUsers() {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, xerrors.ErrNotFound
}

// sortedUsers gives lookups a stable order. Callers hold the lock.
func (s *Store) sortedUsers() []*auth.User {
	out := make([]*auth.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out
}
