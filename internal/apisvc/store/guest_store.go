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
	"github.com/tavolo/tabletop-services/internal/apisvc/service"
)

type GuestStore struct {
	coll *mongo.Collection
}

func NewGuestStore(db *mongo.Database) *GuestStore {
	return &GuestStore{coll: db.Collection("guests")}
}

func (s *GuestStore) Insert(ctx context.Context, guest *models.Guest) error {
	res, err := s.coll.InsertOne(ctx, guest)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &models.DuplicateError{Field: "guest name"}
		}
		return storageErr("insert guest", err)
	}
	guest.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *GuestStore) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Guest, error) {
	cursor, err := s.coll.Find(ctx,
		bson.M{"created_by": owner},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}),
	)
	if err != nil {
		return nil, storageErr("list guests", err)
	}
	var guests []models.Guest
	if err := cursor.All(ctx, &guests); err != nil {
		return nil, storageErr("decode guests", err)
	}
	return guests, nil
}

// SearchUnsynced matches guests by name substring, skipping guests that
// have already been reconciled with a user.
func (s *GuestStore) SearchUnsynced(ctx context.Context, owner primitive.ObjectID, query string, limit int64) ([]models.Guest, error) {
	filter := bson.M{
		"created_by":  owner,
		"name":        ciContains(query),
		"synced_with": nil,
	}
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, storageErr("search guests", err)
	}
	var guests []models.Guest
	if err := cursor.All(ctx, &guests); err != nil {
		return nil, storageErr("decode guests", err)
	}
	return guests, nil
}

func (s *GuestStore) GetByOwner(ctx context.Context, id, owner primitive.ObjectID) (*models.Guest, error) {
	guest := &models.Guest{}
	err := s.coll.FindOne(ctx, bson.M{"_id": id, "created_by": owner}).Decode(guest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "guest"}
		}
		return nil, storageErr("get guest", err)
	}
	return guest, nil
}

func (s *GuestStore) Update(ctx context.Context, id, owner primitive.ObjectID, fields service.GuestUpdate) (*models.Guest, error) {
	set := bson.M{"updated_at": time.Now()}
	if fields.Name != nil {
		set["name"] = *fields.Name
	}
	if fields.Email != nil {
		set["email"] = *fields.Email
	}
	if fields.Avatar != nil {
		set["avatar"] = *fields.Avatar
	}
	if fields.Notes != nil {
		set["notes"] = *fields.Notes
	}

	guest := &models.Guest{}
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "created_by": owner},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(guest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "guest"}
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, &models.DuplicateError{Field: "guest name"}
		}
		return nil, storageErr("update guest", err)
	}
	return guest, nil
}

func (s *GuestStore) Delete(ctx context.Context, id, owner primitive.ObjectID) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "created_by": owner})
	if err != nil {
		return false, storageErr("delete guest", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *GuestStore) MarkSynced(ctx context.Context, id, target primitive.ObjectID, at time.Time) error {
	res, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"synced_with": target,
		"synced_at":   at,
		"updated_at":  at,
	}})
	if err != nil {
		return storageErr("mark guest synced", err)
	}
	if res.MatchedCount == 0 {
		return &models.NotFoundError{Resource: "guest"}
	}
	return nil
}

func (s *GuestStore) SetTotals(ctx context.Context, id primitive.ObjectID, matches, wins int) error {
	_, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"total_matches": matches,
		"total_wins":    wins,
		"updated_at":    time.Now(),
	}})
	if err != nil {
		return storageErr("set guest totals", err)
	}
	return nil
}
