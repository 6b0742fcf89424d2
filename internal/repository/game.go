package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"weiqi_room/internal/domain/game"
	errs "weiqi_room/internal/errors"
)

const gamesCollection = "games"

// GameRepository archives finished games in MongoDB.
type GameRepository struct {
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewGameRepository(log *zap.SugaredLogger, mongo *mongo.Database) *GameRepository {
	return &GameRepository{
		log:   log,
		mongo: mongo,
	}
}

func (g *GameRepository) SaveFinishedGame(ctx context.Context, finished game.FinishedGame) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := g.mongo.Collection(gamesCollection)

	_, err := collection.InsertOne(ctx, finished)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrArchiveFailed, err)
	}

	g.log.Infof("finished game archived for room: %s", finished.RoomID)
	return nil
}

// GetFinishedGames returns the archived games of a room, newest first.
func (g *GameRepository) GetFinishedGames(ctx context.Context, roomID string) ([]game.FinishedGame, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	collection := g.mongo.Collection(gamesCollection)
	filter := bson.M{"room_id": roomID}
	opts := options.Find().SetSort(bson.D{{Key: "finished_at", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		g.log.Error(err)
		return nil, err
	}
	defer cursor.Close(ctx)

	result := make([]game.FinishedGame, 0)
	for cursor.Next(ctx) {
		var finished game.FinishedGame
		if err = cursor.Decode(&finished); err != nil {
			g.log.Error(err)
			return result, err
		}
		result = append(result, finished)
	}

	return result, cursor.Err()
}
