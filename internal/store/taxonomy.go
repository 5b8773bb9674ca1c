// Projects, assignees and sprints are lightweight workspace-scoped lookup
// documents with the same CRUD shape; grouped here rather than split across
// three near-identical files.
package store

import (
	"context"

	"github.com/fakduai/khun-phaen-sync/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// CreateProject inserts a new project document.
func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	_, err := instrument(ctx, "insert_one", CollProjects, func(ctx context.Context) (any, error) {
		return s.collection(CollProjects).InsertOne(ctx, p)
	})
	return err
}

// ListProjectsByWorkspace returns every project in a workspace.
func (s *Store) ListProjectsByWorkspace(ctx context.Context, workspaceID string) ([]models.Project, error) {
	return instrument(ctx, "find", CollProjects, func(ctx context.Context) ([]models.Project, error) {
		cur, err := s.collection(CollProjects).Find(ctx, bson.M{"workspace_id": workspaceID})
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		var out []models.Project
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// UpdateProject replaces a project's name.
func (s *Store) UpdateProject(ctx context.Context, p *models.Project) error {
	_, err := instrument(ctx, "update_one", CollProjects, func(ctx context.Context) (any, error) {
		return s.collection(CollProjects).UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{"name": p.Name}})
	})
	return err
}

// DeleteProject removes a project by id.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	_, err := instrument(ctx, "delete_one", CollProjects, func(ctx context.Context) (any, error) {
		return s.collection(CollProjects).DeleteOne(ctx, bson.M{"_id": id})
	})
	return err
}

// DeleteProjectsByWorkspace removes every project in a workspace.
func (s *Store) DeleteProjectsByWorkspace(ctx context.Context, workspaceID string) error {
	_, err := instrument(ctx, "delete_many", CollProjects, func(ctx context.Context) (any, error) {
		return s.collection(CollProjects).DeleteMany(ctx, bson.M{"workspace_id": workspaceID})
	})
	return err
}

// CreateAssignee inserts a new assignee document.
func (s *Store) CreateAssignee(ctx context.Context, a *models.Assignee) error {
	_, err := instrument(ctx, "insert_one", CollAssignees, func(ctx context.Context) (any, error) {
		return s.collection(CollAssignees).InsertOne(ctx, a)
	})
	return err
}

// ListAssigneesByWorkspace returns every assignee in a workspace.
func (s *Store) ListAssigneesByWorkspace(ctx context.Context, workspaceID string) ([]models.Assignee, error) {
	return instrument(ctx, "find", CollAssignees, func(ctx context.Context) ([]models.Assignee, error) {
		cur, err := s.collection(CollAssignees).Find(ctx, bson.M{"workspace_id": workspaceID})
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		var out []models.Assignee
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// UpdateAssignee replaces an assignee's name.
func (s *Store) UpdateAssignee(ctx context.Context, a *models.Assignee) error {
	_, err := instrument(ctx, "update_one", CollAssignees, func(ctx context.Context) (any, error) {
		return s.collection(CollAssignees).UpdateOne(ctx, bson.M{"_id": a.ID}, bson.M{"$set": bson.M{"name": a.Name}})
	})
	return err
}

// DeleteAssignee removes an assignee by id.
func (s *Store) DeleteAssignee(ctx context.Context, id string) error {
	_, err := instrument(ctx, "delete_one", CollAssignees, func(ctx context.Context) (any, error) {
		return s.collection(CollAssignees).DeleteOne(ctx, bson.M{"_id": id})
	})
	return err
}

// DeleteAssigneesByWorkspace removes every assignee in a workspace.
func (s *Store) DeleteAssigneesByWorkspace(ctx context.Context, workspaceID string) error {
	_, err := instrument(ctx, "delete_many", CollAssignees, func(ctx context.Context) (any, error) {
		return s.collection(CollAssignees).DeleteMany(ctx, bson.M{"workspace_id": workspaceID})
	})
	return err
}

// CreateSprint inserts a new sprint document.
func (s *Store) CreateSprint(ctx context.Context, sp *models.Sprint) error {
	_, err := instrument(ctx, "insert_one", CollSprints, func(ctx context.Context) (any, error) {
		return s.collection(CollSprints).InsertOne(ctx, sp)
	})
	return err
}

// ListSprintsByWorkspace returns every sprint in a workspace.
func (s *Store) ListSprintsByWorkspace(ctx context.Context, workspaceID string) ([]models.Sprint, error) {
	return instrument(ctx, "find", CollSprints, func(ctx context.Context) ([]models.Sprint, error) {
		cur, err := s.collection(CollSprints).Find(ctx, bson.M{"workspace_id": workspaceID})
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)
		var out []models.Sprint
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// UpdateSprint replaces a sprint's mutable fields.
func (s *Store) UpdateSprint(ctx context.Context, sp *models.Sprint) error {
	_, err := instrument(ctx, "update_one", CollSprints, func(ctx context.Context) (any, error) {
		return s.collection(CollSprints).UpdateOne(ctx, bson.M{"_id": sp.ID}, bson.M{"$set": bson.M{
			"name":      sp.Name,
			"starts_at": sp.StartsAt,
			"ends_at":   sp.EndsAt,
		}})
	})
	return err
}

// DeleteSprint removes a sprint by id.
func (s *Store) DeleteSprint(ctx context.Context, id string) error {
	_, err := instrument(ctx, "delete_one", CollSprints, func(ctx context.Context) (any, error) {
		return s.collection(CollSprints).DeleteOne(ctx, bson.M{"_id": id})
	})
	return err
}

// DeleteSprintsByWorkspace removes every sprint in a workspace.
func (s *Store) DeleteSprintsByWorkspace(ctx context.Context, workspaceID string) error {
	_, err := instrument(ctx, "delete_many", CollSprints, func(ctx context.Context) (any, error) {
		return s.collection(CollSprints).DeleteMany(ctx, bson.M{"workspace_id": workspaceID})
	})
	return err
}
