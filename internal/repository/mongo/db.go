// internal/repository/mongo/db.go
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	sessionsCollection = "usersessions"
	productsCollection = "products"
)

// Connect opens a client and pings the server.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewDB(client *mongo.Client, name string) *DB {
	return &DB{client: client, db: client.Database(name)}
}

func (d *DB) Users() *UserRepository {
	return &UserRepository{coll: d.db.Collection(usersCollection)}
}

func (d *DB) Sessions() *SessionRepository {
	return &SessionRepository{coll: d.db.Collection(sessionsCollection)}
}

func (d *DB) Products() *ProductRepository {
	return &ProductRepository{coll: d.db.Collection(productsCollection)}
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userType", Value: 1}}},
		},
		sessionsCollection: {
			{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "active", Value: 1}}},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "vendorId", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "isActive", Value: 1}}},
		},
	}
	for name, models := range specs {
		if _, err := d.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// WithTransaction runs fn in a multi-document transaction. It needs a
// replica set or sharded cluster.
func (d *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := d.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (d *DB) Disconnect(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}
