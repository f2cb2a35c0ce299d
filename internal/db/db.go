package db

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	log "github.com/sirupsen/logrus"
)

func ConnectToDB() (*mongo.Database, context.CancelFunc, error) {
	mongoURI := os.Getenv("MONGODB_URI")

	uri, err := url.Parse(mongoURI)
	if err != nil {
		log.Fatalf("Error parsing MongoDB URI: %v", err)
		return nil, nil, err
	}

	dbName := strings.TrimPrefix(uri.Path, "/")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Error connecting to MongoDB: %v", err)
		cancel()
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("Error pinging MongoDB: %v", err)
		cancel()
		return nil, nil, err
	}

	db := client.Database(dbName)

	return db, cancel, nil
}

// EnsureIndexes creates the indexes the stores rely on. The compound
// unique index on guests enforces name uniqueness per owner at the
// storage level.
func EnsureIndexes(db *mongo.Database) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	create := func(coll string, indexes []mongo.IndexModel) {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, indexes); err != nil {
			log.Fatalf("Error creating indexes for %s: %v", coll, err)
		}
	}

	create("users", []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})

	create("guests", []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}, {Key: "created_by", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "created_by", Value: 1}, {Key: "synced_with", Value: 1}}},
	})

	create("matches", []mongo.IndexModel{
		{Keys: bson.D{{Key: "players.user", Value: 1}}},
		{Keys: bson.D{{Key: "players.guest", Value: 1}}},
		{Keys: bson.D{{Key: "players.guest_name", Value: 1}}},
		{Keys: bson.D{{Key: "game.bgg_id", Value: 1}, {Key: "date", Value: -1}}},
	})

	create("notifications", []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "is_read", Value: 1}}},
	})
}
