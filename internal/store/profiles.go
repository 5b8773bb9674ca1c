package store

import (
	"context"

	"github.com/fakduai/khun-phaen-sync/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpsertUserProfile creates or replaces a user's profile document.
func (s *Store) UpsertUserProfile(ctx context.Context, p *models.UserProfile) error {
	_, err := instrument(ctx, "upsert", CollUserProfiles, func(ctx context.Context) (any, error) {
		return s.collection(CollUserProfiles).ReplaceOne(ctx,
			bson.M{"user_id": p.UserID}, p, options.Replace().SetUpsert(true))
	})
	return err
}

// GetUserProfile fetches a user's profile, returning nil if none exists.
func (s *Store) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	return instrument(ctx, "find_one", CollUserProfiles, func(ctx context.Context) (*models.UserProfile, error) {
		var p models.UserProfile
		err := s.collection(CollUserProfiles).FindOne(ctx, bson.M{"user_id": userID}).Decode(&p)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &p, nil
	})
}

// DeleteUserProfile removes a user's profile document.
func (s *Store) DeleteUserProfile(ctx context.Context, userID string) error {
	_, err := instrument(ctx, "delete_one", CollUserProfiles, func(ctx context.Context) (any, error) {
		return s.collection(CollUserProfiles).DeleteOne(ctx, bson.M{"user_id": userID})
	})
	return err
}
