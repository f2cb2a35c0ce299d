package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tavolo/tabletop-services/internal/apisvc/models"
)

type NotificationStore struct {
	coll *mongo.Collection
}

func NewNotificationStore(db *mongo.Database) *NotificationStore {
	return &NotificationStore{coll: db.Collection("notifications")}
}

func (s *NotificationStore) Insert(ctx context.Context, n *models.Notification) error {
	res, err := s.coll.InsertOne(ctx, n)
	if err != nil {
		return storageErr("insert notification", err)
	}
	n.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *NotificationStore) ListByRecipient(ctx context.Context, recipient primitive.ObjectID, page, limit int64) ([]models.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cursor, err := s.coll.Find(ctx, bson.M{"recipient": recipient}, opts)
	if err != nil {
		return nil, storageErr("list notifications", err)
	}
	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, storageErr("decode notifications", err)
	}
	return notifications, nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"recipient": recipient, "is_read": false})
	if err != nil {
		return 0, storageErr("count unread notifications", err)
	}
	return count, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, id, recipient primitive.ObjectID) (*models.Notification, error) {
	n := &models.Notification{}
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "recipient": recipient},
		bson.M{"$set": bson.M{"is_read": true, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "notification"}
		}
		return nil, storageErr("mark notification read", err)
	}
	return n, nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"recipient": recipient, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "updated_at": time.Now()}},
	)
	if err != nil {
		return 0, storageErr("mark all notifications read", err)
	}
	return res.ModifiedCount, nil
}
