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

type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection("users")}
}

func (s *UserStore) Insert(ctx context.Context, user *models.User) error {
	res, err := s.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &models.DuplicateError{Field: "username or email"}
		}
		return storageErr("insert user", err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.getOne(ctx, bson.M{"_id": id})
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getOne(ctx, bson.M{"email": email})
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getOne(ctx, bson.M{"username": username})
}

func (s *UserStore) GetByVerifyToken(ctx context.Context, token string) (*models.User, error) {
	return s.getOne(ctx, bson.M{"email_verify_token": token})
}

func (s *UserStore) getOne(ctx context.Context, filter bson.M) (*models.User, error) {
	user := &models.User{}
	err := s.coll.FindOne(ctx, filter).Decode(user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "user"}
		}
		return nil, storageErr("get user", err)
	}
	return user, nil
}

// Refs fetches display projections for a set of user ids.
func (s *UserStore) Refs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserRef, error) {
	cursor, err := s.coll.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"username": 1, "avatar": 1}),
	)
	if err != nil {
		return nil, storageErr("get user refs", err)
	}
	var refs []models.UserRef
	if err := cursor.All(ctx, &refs); err != nil {
		return nil, storageErr("decode user refs", err)
	}
	out := make(map[primitive.ObjectID]models.UserRef, len(refs))
	for _, ref := range refs {
		out[ref.ID] = ref
	}
	return out, nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, id primitive.ObjectID, username, email string) (*models.User, error) {
	return s.findAndSet(ctx, id, bson.M{"username": username, "email": email})
}

func (s *UserStore) SetAvatar(ctx context.Context, id primitive.ObjectID, avatar string) (*models.User, error) {
	return s.findAndSet(ctx, id, bson.M{"avatar": avatar})
}

func (s *UserStore) findAndSet(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	set["updated_at"] = time.Now()
	user := &models.User{}
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "user"}
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, &models.DuplicateError{Field: "username or email"}
		}
		return nil, storageErr("update user", err)
	}
	return user, nil
}

func (s *UserStore) SetEmailVerified(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.coll.UpdateByID(ctx, id, bson.M{
		"$set":   bson.M{"is_email_verified": true, "updated_at": time.Now()},
		"$unset": bson.M{"email_verify_token": ""},
	})
	if err != nil {
		return storageErr("verify user email", err)
	}
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return storageErr("delete user", err)
	}
	if res.DeletedCount == 0 {
		return &models.NotFoundError{Resource: "user"}
	}
	return nil
}

func (s *UserStore) Search(ctx context.Context, query string, limit int64) ([]models.User, error) {
	regex := ciContains(query)
	cursor, err := s.coll.Find(ctx,
		bson.M{"$or": []bson.M{{"username": regex}, {"email": regex}}},
		options.Find().
			SetLimit(limit).
			SetProjection(bson.M{"username": 1, "email": 1, "avatar": 1}),
	)
	if err != nil {
		return nil, storageErr("search users", err)
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, storageErr("decode users", err)
	}
	return users, nil
}

func (s *UserStore) AddFriend(ctx context.Context, userID primitive.ObjectID, friend models.Friend) error {
	res, err := s.coll.UpdateByID(ctx, userID, bson.M{
		"$push": bson.M{"friends": friend},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return storageErr("add friend", err)
	}
	if res.MatchedCount == 0 {
		return &models.NotFoundError{Resource: "user"}
	}
	return nil
}

func (s *UserStore) SetFriendStatus(ctx context.Context, userID, friendID primitive.ObjectID, status string) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": userID, "friends": bson.M{"$elemMatch": bson.M{
			"user":   friendID,
			"status": models.FriendPending,
		}}},
		bson.M{"$set": bson.M{
			"friends.$.status": status,
			"updated_at":       time.Now(),
		}},
	)
	if err != nil {
		return false, storageErr("set friend status", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *UserStore) AddGame(ctx context.Context, userID primitive.ObjectID, game models.GameEntry) error {
	res, err := s.coll.UpdateByID(ctx, userID, bson.M{
		"$push": bson.M{"games": game},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return storageErr("add game", err)
	}
	if res.MatchedCount == 0 {
		return &models.NotFoundError{Resource: "user"}
	}
	return nil
}

func (s *UserStore) RemoveGame(ctx context.Context, userID primitive.ObjectID, bggID string) error {
	res, err := s.coll.UpdateByID(ctx, userID, bson.M{
		"$pull": bson.M{"games": bson.M{"bgg_id": bggID}},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return storageErr("remove game", err)
	}
	if res.MatchedCount == 0 {
		return &models.NotFoundError{Resource: "user"}
	}
	return nil
}
