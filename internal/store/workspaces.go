package store

import (
	"context"
	"time"

	"github.com/fakduai/khun-phaen-sync/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CreateWorkspace inserts a new workspace document.
func (s *Store) CreateWorkspace(ctx context.Context, w *models.Workspace) error {
	w.CreatedAt = time.Now().UTC()
	_, err := instrument(ctx, "insert_one", CollWorkspaces, func(ctx context.Context) (any, error) {
		return s.collection(CollWorkspaces).InsertOne(ctx, w)
	})
	return err
}

// GetWorkspaceByID fetches a workspace by id, returning nil if absent.
func (s *Store) GetWorkspaceByID(ctx context.Context, id string) (*models.Workspace, error) {
	return instrument(ctx, "find_one", CollWorkspaces, func(ctx context.Context) (*models.Workspace, error) {
		var w models.Workspace
		err := s.collection(CollWorkspaces).FindOne(ctx, bson.M{"_id": id}).Decode(&w)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &w, nil
	})
}

// GetWorkspaceByRoomCode fetches a workspace by its bound room code,
// returning nil if absent. Used by room revival.
func (s *Store) GetWorkspaceByRoomCode(ctx context.Context, roomCode string) (*models.Workspace, error) {
	return instrument(ctx, "find_one", CollWorkspaces, func(ctx context.Context) (*models.Workspace, error) {
		var w models.Workspace
		err := s.collection(CollWorkspaces).FindOne(ctx, bson.M{"room_code": roomCode}).Decode(&w)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &w, nil
	})
}

// ListWorkspacesByOwner returns every workspace owned by a user.
func (s *Store) ListWorkspacesByOwner(ctx context.Context, ownerID string) ([]models.Workspace, error) {
	return instrument(ctx, "find", CollWorkspaces, func(ctx context.Context) ([]models.Workspace, error) {
		cur, err := s.collection(CollWorkspaces).Find(ctx, bson.M{"owner_id": ownerID})
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		var out []models.Workspace
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// ListWorkspacesWithDigestsEnabled returns every workspace whose
// notification_config.enabled is true, for the digest scheduler.
func (s *Store) ListWorkspacesWithDigestsEnabled(ctx context.Context) ([]models.Workspace, error) {
	return instrument(ctx, "find", CollWorkspaces, func(ctx context.Context) ([]models.Workspace, error) {
		cur, err := s.collection(CollWorkspaces).Find(ctx, bson.M{"notification_config.enabled": true})
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		var out []models.Workspace
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// UpdateWorkspace replaces a workspace's mutable fields.
func (s *Store) UpdateWorkspace(ctx context.Context, w *models.Workspace) error {
	_, err := instrument(ctx, "update_one", CollWorkspaces, func(ctx context.Context) (any, error) {
		return s.collection(CollWorkspaces).UpdateOne(ctx, bson.M{"_id": w.ID}, bson.M{"$set": bson.M{
			"name":                w.Name,
			"notification_config": w.NotificationConfig,
			"assignee_user_ids":   w.AssigneeUserIDs,
		}})
	})
	return err
}

// UpdateWorkspaceNotificationLastSent stamps last_sent_at after a successful
// digest POST; left unchanged on failure so a later matching tick retries.
func (s *Store) UpdateWorkspaceNotificationLastSent(ctx context.Context, workspaceID string, at time.Time) error {
	_, err := instrument(ctx, "update_one", CollWorkspaces, func(ctx context.Context) (any, error) {
		return s.collection(CollWorkspaces).UpdateOne(ctx,
			bson.M{"_id": workspaceID},
			bson.M{"$set": bson.M{"notification_config.last_sent_at": at}})
	})
	return err
}

// DeleteWorkspace removes a workspace document. The cascading deletion of
// its room snapshot, live Room and dependent tasks/projects/assignees/
// sprints is orchestrated by the HTTP handler, not here.
func (s *Store) DeleteWorkspace(ctx context.Context, id string) error {
	_, err := instrument(ctx, "delete_one", CollWorkspaces, func(ctx context.Context) (any, error) {
		return s.collection(CollWorkspaces).DeleteOne(ctx, bson.M{"_id": id})
	})
	return err
}

// WorkspaceAccess reports whether userID owns or is an assignee of the
// workspace bound to roomCode.
func (s *Store) WorkspaceAccess(ctx context.Context, roomCode, userID string) (bool, error) {
	w, err := s.GetWorkspaceByRoomCode(ctx, roomCode)
	if err != nil {
		return false, err
	}
	if w == nil {
		return false, nil
	}
	if w.OwnerID == userID {
		return true, nil
	}
	for _, a := range w.AssigneeUserIDs {
		if a == userID {
			return true, nil
		}
	}
	return false, nil
}
