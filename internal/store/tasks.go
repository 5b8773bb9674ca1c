package store

import (
	"context"
	"time"

	"github.com/fakduai/khun-phaen-sync/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CreateTask inserts a new task document.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := instrument(ctx, "insert_one", CollTasks, func(ctx context.Context) (any, error) {
		return s.collection(CollTasks).InsertOne(ctx, t)
	})
	return err
}

// GetTaskByID fetches a task by id, returning nil if absent.
func (s *Store) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	return instrument(ctx, "find_one", CollTasks, func(ctx context.Context) (*models.Task, error) {
		var t models.Task
		err := s.collection(CollTasks).FindOne(ctx, bson.M{"_id": id}).Decode(&t)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &t, nil
	})
}

// ListTasksByWorkspace returns every task in a workspace.
func (s *Store) ListTasksByWorkspace(ctx context.Context, workspaceID string) ([]models.Task, error) {
	return instrument(ctx, "find", CollTasks, func(ctx context.Context) ([]models.Task, error) {
		cur, err := s.collection(CollTasks).Find(ctx, bson.M{"workspace_id": workspaceID})
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		var out []models.Task
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// ListNonArchivedTasksByWorkspace returns every non-archived task in a
// workspace, for the digest scheduler's task enumeration.
func (s *Store) ListNonArchivedTasksByWorkspace(ctx context.Context, workspaceID string) ([]models.Task, error) {
	return instrument(ctx, "find", CollTasks, func(ctx context.Context) ([]models.Task, error) {
		cur, err := s.collection(CollTasks).Find(ctx, bson.M{"workspace_id": workspaceID, "is_archived": false})
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		var out []models.Task
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// UpdateTask replaces a task's mutable fields.
func (s *Store) UpdateTask(ctx context.Context, t *models.Task) error {
	t.UpdatedAt = time.Now().UTC()
	_, err := instrument(ctx, "update_one", CollTasks, func(ctx context.Context) (any, error) {
		return s.collection(CollTasks).UpdateOne(ctx, bson.M{"_id": t.ID}, bson.M{"$set": bson.M{
			"title":       t.Title,
			"status":      t.Status,
			"category":    t.Category,
			"project_id":  t.ProjectID,
			"assignee_id": t.AssigneeID,
			"sprint_id":   t.SprintID,
			"is_archived": t.IsArchived,
			"updated_at":  t.UpdatedAt,
		}})
	})
	return err
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	_, err := instrument(ctx, "delete_one", CollTasks, func(ctx context.Context) (any, error) {
		return s.collection(CollTasks).DeleteOne(ctx, bson.M{"_id": id})
	})
	return err
}

// DeleteTasksByWorkspace removes every task in a workspace, part of the
// workspace-deletion cascade.
func (s *Store) DeleteTasksByWorkspace(ctx context.Context, workspaceID string) error {
	_, err := instrument(ctx, "delete_many", CollTasks, func(ctx context.Context) (any, error) {
		return s.collection(CollTasks).DeleteMany(ctx, bson.M{"workspace_id": workspaceID})
	})
	return err
}
