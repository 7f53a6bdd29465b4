// internal/repository/mongo/user_repo.go
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"storelinker-service/internal/domain/auth"
	xerrors "storelinker-service/internal/pkg/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	coll *mongo.Collection
}

func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.LoginHistory == nil {
		u.LoginHistory = []auth.LoginEntry{}
	}
	if _, err := r.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return xerrors.ErrDuplicateAccount
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByEmailAndType(ctx context.Context, email string, userType auth.UserType) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"email": email, "userType": userType})
}

// FindByEmailInsensitive matches the whole address ignoring case.
func (r *UserRepository) FindByEmailInsensitive(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(ctx, bson.M{"email": primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(email) + "$",
		Options: "i",
	}})
}

func (r *UserRepository) FindByEmailPrefix(ctx context.Context, prefix string, limit int) ([]auth.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	filter := bson.M{"email": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix), Options: "i"}}
	return r.find(ctx, filter, opts)
}

// UpdateProfile writes the profile fields. Store fields only persist on vendors.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *auth.User) error {
	set := bson.M{
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"phone":     u.Phone,
		"address":   u.Address,
		"updatedAt": u.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if u.UserType == auth.UserTypeVendor {
		set["storeName"] = u.StoreName
		set["storeDescription"] = u.StoreDescription
	} else {
		update["$unset"] = bson.M{"storeName": "", "storeDescription": ""}
	}
	return r.updateOne(ctx, bson.M{"_id": u.ID}, update)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password":  hash,
		"updatedAt": time.Now().UTC(),
	}})
}

// SaveLoginHistory replaces the embedded history when the stored version
// still matches, and bumps it. Documents written before the version field
// existed count as version 0.
func (r *UserRepository) SaveLoginHistory(ctx context.Context, id primitive.ObjectID, version int64, history []auth.LoginEntry) error {
	if history == nil {
		history = []auth.LoginEntry{}
	}

	filter := bson.M{"_id": id, "historyVersion": version}
	if version == 0 {
		filter["historyVersion"] = bson.M{"$in": bson.A{int64(0), nil}}
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"loginHistory": history},
		"$inc": bson.M{"historyVersion": 1},
	})
	if err != nil {
		return fmt.Errorf("failed to save login history: %w", err)
	}
	if res.MatchedCount == 0 {
		return xerrors.ErrWriteConflict
	}
	return nil
}

// TouchLoginEntry refreshes lastUpdated on the active entry for sessionID.
// Ended entries are left alone.
func (r *UserRepository) TouchLoginEntry(ctx context.Context, id primitive.ObjectID, sessionID string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{
			"_id":          id,
			"loginHistory": bson.M{"$elemMatch": bson.M{"sessionId": sessionID, "active": true}},
		},
		bson.M{"$set": bson.M{"loginHistory.$.lastUpdated": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to touch login entry: %w", err)
	}
	return nil
}

func (r *UserRepository) ListVendors(ctx context.Context) ([]auth.User, error) {
	filter := bson.M{
		"userType":  auth.UserTypeVendor,
		"isActive":  true,
		"storeName": bson.M{"$exists": true, "$ne": ""},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "storeName", Value: 1}}).
		SetProjection(bson.M{"password": 0, "loginHistory": 0})
	return r.find(ctx, filter, opts)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*auth.User, error) {
	var u auth.User
	err := r.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]auth.User, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	var users []auth.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
