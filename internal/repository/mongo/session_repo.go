// internal/repository/mongo/session_repo.go
package mongo

import (
	"context"
	"fmt"
	"time"

	"storelinker-service/internal/domain/auth"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionRepository struct {
	coll *mongo.Collection
}

// Upsert creates the row for a session id or reactivates it. startTime is
// only written on insert.
func (r *SessionRepository) Upsert(ctx context.Context, s *auth.UserSession) error {
	update := bson.M{
		"$set": bson.M{
			"userId":       s.UserID,
			"userEmail":    s.UserEmail,
			"userType":     s.UserType,
			"device":       s.Device,
			"browser":      s.Browser,
			"os":           s.OS,
			"ipAddress":    s.IPAddress,
			"lastActivity": s.LastActivity,
			"active":       true,
			"logoutMethod": nil,
		},
		"$unset":       bson.M{"endTime": ""},
		"$setOnInsert": bson.M{"startTime": s.StartTime},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"sessionId": s.SessionID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert user session: %w", err)
	}
	return nil
}

func (r *SessionRepository) End(ctx context.Context, sessionID string, method auth.LogoutMethod, at time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"sessionId": sessionID, "active": true},
		bson.M{"$set": bson.M{"active": false, "endTime": at, "logoutMethod": method}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to end user session: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *SessionRepository) EndAllForUser(ctx context.Context, userID primitive.ObjectID, method auth.LogoutMethod, at time.Time) (int, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"userId": userID, "active": true},
		bson.M{"$set": bson.M{"active": false, "endTime": at, "logoutMethod": method}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to end user sessions: %w", err)
	}
	return int(res.ModifiedCount), nil
}

func (r *SessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"sessionId": sessionID, "active": true},
		bson.M{"$set": bson.M{"lastActivity": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to touch user session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]auth.UserSession, error) {
	return r.find(ctx, bson.M{"userId": userID, "active": true})
}

func (r *SessionRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]auth.UserSession, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *SessionRepository) ActiveUserIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	raw, err := r.coll.Distinct(ctx, "userId", bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list active session owners: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *SessionRepository) find(ctx context.Context, filter bson.M) ([]auth.UserSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query user sessions: %w", err)
	}
	var out []auth.UserSession
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode user sessions: %w", err)
	}
	return out, nil
}
