package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/darasa/core"
)

const (
	userCollection  = "users"
	classCollection = "classes"
)

func Open(conf *core.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Mongo.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Mongo.URI))
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(ctx, client); err != nil {
		return nil, errors.Wrap(err, "pinging database")
	}

	db := client.Database(conf.Mongo.Name)
	if err = ensureIndexes(ctx, db); err != nil {
		return nil, errors.Wrap(err, "ensuring indexes")
	}
	return db, nil
}

func Close(ctx context.Context, db *mongo.Database) error {
	return db.Client().Disconnect(ctx)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, client *mongo.Client) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = client.Ping(ctx, readpref.Primary())
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := true
	sparse := true

	_, err := db.Collection(userCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: &options.IndexOptions{Unique: &unique},
		},
		{
			Keys:    bson.D{{Key: "google_id", Value: 1}},
			Options: &options.IndexOptions{Unique: &unique, Sparse: &sparse},
		},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(classCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "google_course_id", Value: 1}}},
	})
	return err
}
