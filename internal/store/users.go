package store

import (
	"context"
	"time"

	"github.com/fakduai/khun-phaen-sync/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CountUsers reports how many accounts exist, used to gate the one-shot
// setup-token bootstrap.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return instrument(ctx, "count", CollUsers, func(ctx context.Context) (int64, error) {
		return s.collection(CollUsers).CountDocuments(ctx, bson.M{})
	})
}

// CreateUser inserts a new user document, stamping its creation time. The
// caller assigns the ID.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.CreatedAt = time.Now().UTC()
	_, err := instrument(ctx, "insert_one", CollUsers, func(ctx context.Context) (any, error) {
		return s.collection(CollUsers).InsertOne(ctx, u)
	})
	return err
}

// GetUserByEmail looks up a user by email, returning nil if absent.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return instrument(ctx, "find_one", CollUsers, func(ctx context.Context) (*models.User, error) {
		var u models.User
		err := s.collection(CollUsers).FindOne(ctx, bson.M{"email": email}).Decode(&u)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &u, nil
	})
}

// GetUserByID looks up a user by id, returning nil if absent.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return instrument(ctx, "find_one", CollUsers, func(ctx context.Context) (*models.User, error) {
		var u models.User
		err := s.collection(CollUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&u)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &u, nil
	})
}

// GetUserBySetupToken looks up a user by their one-shot setup token,
// returning nil if absent.
func (s *Store) GetUserBySetupToken(ctx context.Context, token string) (*models.User, error) {
	return instrument(ctx, "find_one", CollUsers, func(ctx context.Context) (*models.User, error) {
		var u models.User
		err := s.collection(CollUsers).FindOne(ctx, bson.M{"setup_token": token}).Decode(&u)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &u, nil
	})
}

// ListUsers returns every user, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return instrument(ctx, "find", CollUsers, func(ctx context.Context) ([]models.User, error) {
		cur, err := s.collection(CollUsers).Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"created_at": -1}))
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		var users []models.User
		if err := cur.All(ctx, &users); err != nil {
			return nil, err
		}
		return users, nil
	})
}

// UpdateUser replaces a user's mutable fields (role, nickname, password hash).
func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	_, err := instrument(ctx, "update_one", CollUsers, func(ctx context.Context) (any, error) {
		return s.collection(CollUsers).UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": bson.M{
			"email":         u.Email,
			"password_hash": u.PasswordHash,
			"nickname":      u.Nickname,
			"role":          u.Role,
			"setup_token":   u.SetupToken,
		}})
	})
	return err
}

// DeleteUser removes a user by id.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	_, err := instrument(ctx, "delete_one", CollUsers, func(ctx context.Context) (any, error) {
		return s.collection(CollUsers).DeleteOne(ctx, bson.M{"_id": id})
	})
	return err
}
