package store

import (
	"context"
	"time"

	"github.com/fakduai/khun-phaen-sync/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetRoomDocument fetches the persisted snapshot for a room code, returning
// nil if none exists. Consulted by room revival.
func (s *Store) GetRoomDocument(ctx context.Context, roomCode string) (*models.RoomDocument, error) {
	return instrument(ctx, "find_one", CollRooms, func(ctx context.Context) (*models.RoomDocument, error) {
		var rd models.RoomDocument
		err := s.collection(CollRooms).FindOne(ctx, bson.M{"room_code": roomCode}).Decode(&rd)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &rd, nil
	})
}

// UpsertRoomDocument persists the last-writer-wins document snapshot for a
// room code. Fire-and-forget from the session's perspective.
func (s *Store) UpsertRoomDocument(ctx context.Context, roomCode, document string, lastSync time.Time) error {
	_, err := instrument(ctx, "upsert", CollRooms, func(ctx context.Context) (any, error) {
		return s.collection(CollRooms).UpdateOne(ctx,
			bson.M{"room_code": roomCode},
			bson.M{"$set": bson.M{"document": document, "last_sync": lastSync}},
			options.Update().SetUpsert(true))
	})
	return err
}

// DeleteRoomDocument removes a room's persisted snapshot, part of the
// workspace-deletion cascade.
func (s *Store) DeleteRoomDocument(ctx context.Context, roomCode string) error {
	_, err := instrument(ctx, "delete_one", CollRooms, func(ctx context.Context) (any, error) {
		return s.collection(CollRooms).DeleteOne(ctx, bson.M{"room_code": roomCode})
	})
	return err
}
