package usageRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/ntolkachev-gh/clientera-telegram-bot/database"
	"github.com/ntolkachev-gh/clientera-telegram-bot/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoUsageRepo implements UsageRepository using MongoDB.
type MongoUsageRepo struct {
	coll *mongo.Collection
}

// NewMongoUsageRepo creates a new instance of UsageRepository using MongoDB.
func NewMongoUsageRepo() UsageRepository {
	return &MongoUsageRepo{coll: database.Collection("usage_logs")}
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// Append inserts a usage record. Records are never updated or deleted.
func (r *MongoUsageRepo) Append(record *models.UsageRecord) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	record.CreatedAt = time.Now()
	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to append usage record: %w", err)
	}
	return nil
}

// Stats aggregates invocation count, token totals and cost.
func (r *MongoUsageRepo) Stats() (*models.UsageStats, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"invocations":  bson.M{"$sum": 1},
			"totalTokens":  bson.M{"$sum": "$totalTokens"},
			"totalCostUsd": bson.M{"$sum": "$costUsd"},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage stats: %w", err)
	}
	defer cursor.Close(ctx)

	var stats models.UsageStats
	if cursor.Next(ctx) {
		if err := cursor.Decode(&stats); err != nil {
			return nil, fmt.Errorf("failed to decode usage stats: %w", err)
		}
	}
	return &stats, nil
}
