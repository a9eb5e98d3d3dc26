package persistence

import (
	"context"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const activityCollection = "activity_events"

// ActivityRepository stores activity events in MongoDB.
type ActivityRepository struct {
	collection *mongo.Collection
}

func NewActivityRepository(client *mongo.Client, database string) *ActivityRepository {
	return &ActivityRepository{collection: client.Database(database).Collection(activityCollection)}
}

var _ repository.IActivitySink = (*ActivityRepository)(nil)

func (r *ActivityRepository) Write(ctx context.Context, event *model.ActivityEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert activity event: %w", err)
	}
	return nil
}

// Recent returns the latest events of a workspace, newest first.
func (r *ActivityRepository) Recent(ctx context.Context, workspaceID string, limit int64) ([]model.ActivityEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.D{{Key: "workspace_id", Value: workspaceID}}, opts)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while fetching activity events")
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	events := make([]model.ActivityEvent, 0)
	for cursor.Next(ctx) {
		var event model.ActivityEvent
		if err := cursor.Decode(&event); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding")
			continue
		}
		events = append(events, event)
	}
	return events, cursor.Err()
}
