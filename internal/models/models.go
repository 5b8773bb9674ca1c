// Package models holds the persisted document shapes and wire message
// types shared across the store, room runtime, digest and API packages.
package models

import "time"

// User is a persisted account. A user invited without a password carries a
// one-shot SetupToken until they complete /api/auth/setup-password.
type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Nickname     string    `bson:"nickname" json:"nickname"`
	Role         string    `bson:"role" json:"role"` // "admin" | "user"
	SetupToken   string    `bson:"setup_token,omitempty" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// UserProfile is a side document carrying display preferences for a User.
type UserProfile struct {
	UserID      string `bson:"user_id" json:"user_id"`
	DisplayName string `bson:"display_name" json:"display_name"`
	AvatarURL   string `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
}

// NotificationConfig controls a Workspace's digest schedule.
type NotificationConfig struct {
	WebhookURL string     `bson:"webhook_url,omitempty" json:"webhook_url,omitempty"`
	Enabled    bool       `bson:"enabled" json:"enabled"`
	Days       []int      `bson:"days" json:"days"` // 0=Sun .. 6=Sat
	Time       string     `bson:"time" json:"time"` // "HH:MM" local wallclock
	LastSentAt *time.Time `bson:"last_sent_at,omitempty" json:"last_sent_at,omitempty"`
}

// Workspace is a persisted, owner-scoped container bound to exactly one room code.
type Workspace struct {
	ID                 string              `bson:"_id,omitempty" json:"id"`
	Name               string              `bson:"name" json:"name"`
	OwnerID            string              `bson:"owner_id" json:"owner_id"`
	RoomCode           string              `bson:"room_code" json:"room_code"`
	CreatedAt          time.Time           `bson:"created_at" json:"created_at"`
	NotificationConfig *NotificationConfig `bson:"notification_config,omitempty" json:"notification_config,omitempty"`
	AssigneeUserIDs    []string            `bson:"assignee_user_ids,omitempty" json:"assignee_user_ids,omitempty"`
}

// RoomDocument is the persisted snapshot record backing room revival.
type RoomDocument struct {
	RoomCode string    `bson:"room_code" json:"room_code"`
	Document string    `bson:"document" json:"document"`
	LastSync time.Time `bson:"last_sync" json:"last_sync"`
}

// Project groups Tasks within a Workspace.
type Project struct {
	ID          string `bson:"_id,omitempty" json:"id"`
	WorkspaceID string `bson:"workspace_id" json:"workspace_id"`
	Name        string `bson:"name" json:"name"`
}

// Assignee is a person a Task can be assigned to within a Workspace.
type Assignee struct {
	ID          string `bson:"_id,omitempty" json:"id"`
	WorkspaceID string `bson:"workspace_id" json:"workspace_id"`
	Name        string `bson:"name" json:"name"`
}

// Sprint bounds a Task to a time-boxed iteration within a Workspace.
type Sprint struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	WorkspaceID string    `bson:"workspace_id" json:"workspace_id"`
	Name        string    `bson:"name" json:"name"`
	StartsAt    time.Time `bson:"starts_at" json:"starts_at"`
	EndsAt      time.Time `bson:"ends_at" json:"ends_at"`
}

// Task is a unit of tracked work within a Workspace.
type Task struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	WorkspaceID string    `bson:"workspace_id" json:"workspace_id"`
	Title       string    `bson:"title" json:"title"`
	Status      string    `bson:"status" json:"status"` // "todo" | "in-progress" | "in-test" | "done" | ...
	Category    string    `bson:"category,omitempty" json:"category,omitempty"`
	ProjectID   string    `bson:"project_id,omitempty" json:"project_id,omitempty"`
	AssigneeID  string    `bson:"assignee_id,omitempty" json:"assignee_id,omitempty"`
	SprintID    string    `bson:"sprint_id,omitempty" json:"sprint_id,omitempty"`
	IsArchived  bool      `bson:"is_archived" json:"is_archived"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}
