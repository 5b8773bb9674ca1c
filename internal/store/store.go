// Package store is the instrumented persistence adapter (component A):
// a thin, traced wrapper around MongoDB collections for users, workspaces,
// room snapshots and task-tracking documents.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	dbLatency   metric.Float64Histogram
	dbActiveOps metric.Int64UpDownCounter
)

// Collection names used by the store's accessors.
const (
	CollUsers        = "users"
	CollUserProfiles = "user_profiles"
	CollWorkspaces   = "workspaces"
	CollRooms        = "rooms"
	CollTasks        = "tasks"
	CollProjects     = "projects"
	CollAssignees    = "assignees"
	CollSprints      = "sprints"
)

// Store holds the Mongo client/database handle and exposes instrumented
// collection accessors to the rest of the application.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB at uri and selects database dbName.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	var err error

	meter := otel.Meter("mongo-client")
	dbLatency, err = meter.Float64Histogram("db.query.latency", metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("failed to create db.query.latency instrument: %w", err)
	}
	dbActiveOps, err = meter.Int64UpDownCounter("db.active.operations", metric.WithUnit("operations"))
	if err != nil {
		return nil, fmt.Errorf("failed to create db.active.operations instrument: %w", err)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctxPing, span := otel.Tracer("mongo-client").Start(ctx, "mongo.ping")
	defer span.End()
	if err := client.Ping(ctxPing, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to ping MongoDB")
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	span.SetStatus(codes.Ok, "MongoDB connected successfully")

	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Close disconnects the underlying Mongo client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Health pings MongoDB to verify connectivity.
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// instrument wraps a single Mongo operation with a trace span, a latency
// histogram and an in-flight-operation gauge.
func instrument[T any](ctx context.Context, opName, collName string, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	ctx, span := otel.Tracer("mongo-client").Start(ctx, "mongo."+opName)
	dbActiveOps.Add(ctx, 1)
	defer func() {
		dbActiveOps.Add(ctx, -1)
		dbLatency.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(
			attribute.String("db.operation", opName),
			attribute.String("db.collection", collName),
		))
		span.End()
	}()

	result, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mongo operation failed")
	}
	return result, err
}
