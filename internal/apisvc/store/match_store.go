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

type MatchStore struct {
	coll *mongo.Collection
}

func NewMatchStore(db *mongo.Database) *MatchStore {
	return &MatchStore{coll: db.Collection("matches")}
}

var dateDesc = options.Find().SetSort(bson.D{{Key: "date", Value: -1}})

func (s *MatchStore) Insert(ctx context.Context, match *models.Match) error {
	res, err := s.coll.InsertOne(ctx, match)
	if err != nil {
		return storageErr("insert match", err)
	}
	match.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MatchStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Match, error) {
	match := &models.Match{}
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(match)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "match"}
		}
		return nil, storageErr("get match", err)
	}
	return match, nil
}

func (s *MatchStore) ListByParticipant(ctx context.Context, user primitive.ObjectID, page, limit int64) ([]models.Match, int64, error) {
	return s.page(ctx, bson.M{"players.user": user}, page, limit)
}

func (s *MatchStore) ListByGameAndParticipant(ctx context.Context, gameID string, user primitive.ObjectID, page, limit int64) ([]models.Match, int64, error) {
	return s.page(ctx, bson.M{"game.bgg_id": gameID, "players.user": user}, page, limit)
}

func (s *MatchStore) page(ctx context.Context, filter bson.M, page, limit int64) ([]models.Match, int64, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, storageErr("list matches", err)
	}
	var matches []models.Match
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, 0, storageErr("decode matches", err)
	}
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, storageErr("count matches", err)
	}
	return matches, total, nil
}

func (s *MatchStore) ListAllByParticipant(ctx context.Context, user primitive.ObjectID) ([]models.Match, error) {
	return s.find(ctx, bson.M{"players.user": user})
}

func (s *MatchStore) Update(ctx context.Context, id primitive.ObjectID, upd service.MatchUpdate) (*models.Match, error) {
	set := bson.M{"updated_at": time.Now()}
	if upd.Game != nil {
		set["game"] = *upd.Game
	}
	if upd.Players != nil {
		set["players"] = *upd.Players
	}
	if upd.Duration != nil {
		set["duration"] = *upd.Duration
	}
	if upd.Date != nil {
		set["date"] = *upd.Date
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	if upd.Notes != nil {
		set["notes"] = *upd.Notes
	}
	if upd.IsTeamGame != nil {
		set["is_team_game"] = *upd.IsTeamGame
	}
	if upd.IsCooperative != nil {
		set["is_cooperative"] = *upd.IsCooperative
	}
	if upd.HasWinner != nil {
		set["has_winner"] = *upd.HasWinner
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}

	match := &models.Match{}
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(match)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Resource: "match"}
		}
		return nil, storageErr("update match", err)
	}
	return match, nil
}

func (s *MatchStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return storageErr("delete match", err)
	}
	if res.DeletedCount == 0 {
		return &models.NotFoundError{Resource: "match"}
	}
	return nil
}

func (s *MatchStore) FindByGuest(ctx context.Context, guestID primitive.ObjectID) ([]models.Match, error) {
	return s.find(ctx, bson.M{"players.guest": guestID})
}

func (s *MatchStore) CountByGuest(ctx context.Context, guestID primitive.ObjectID) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"players.guest": guestID})
	if err != nil {
		return 0, storageErr("count matches by guest", err)
	}
	return count, nil
}

// FindUnclaimedByGuestNames returns matches holding at least one player
// entry with no user reference whose guest name equals one of the given
// names (case-insensitive, full string).
func (s *MatchStore) FindUnclaimedByGuestNames(ctx context.Context, names []string) ([]models.Match, error) {
	var ors []bson.M
	for _, name := range names {
		if name == "" {
			continue
		}
		ors = append(ors, bson.M{"players": bson.M{"$elemMatch": bson.M{
			"user":       nil,
			"guest_name": ciExact(name),
		}}})
	}
	if len(ors) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"$or": ors})
}

// FindByGuestOrName covers both persistent guest references and legacy
// transient entries created before the Guest record existed.
func (s *MatchStore) FindByGuestOrName(ctx context.Context, guestID primitive.ObjectID, name string) ([]models.Match, error) {
	filter := bson.M{"$or": []bson.M{
		{"players.guest": guestID},
		{"players": bson.M{"$elemMatch": bson.M{
			"user":       nil,
			"guest_name": ciExact(name),
		}}},
	}}
	return s.find(ctx, filter)
}

func (s *MatchStore) SavePlayers(ctx context.Context, matchID primitive.ObjectID, players []models.Player) error {
	res, err := s.coll.UpdateByID(ctx, matchID, bson.M{"$set": bson.M{
		"players":    players,
		"updated_at": time.Now(),
	}})
	if err != nil {
		return storageErr("save match players", err)
	}
	if res.MatchedCount == 0 {
		return &models.NotFoundError{Resource: "match"}
	}
	return nil
}

func (s *MatchStore) find(ctx context.Context, filter bson.M) ([]models.Match, error) {
	cursor, err := s.coll.Find(ctx, filter, dateDesc)
	if err != nil {
		return nil, storageErr("find matches", err)
	}
	var matches []models.Match
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, storageErr("decode matches", err)
	}
	return matches, nil
}
