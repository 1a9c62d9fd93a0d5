package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureAutomationLogIndexes creates the indexes the audit log listing relies on.
func EnsureAutomationLogIndexes(ctx context.Context, db *mongo.Database, collection string) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "automation_rule_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_automation_logs_rule_created"),
		},
		{
			Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_automation_logs_org_created"),
		},
		{
			Keys:    bson.D{{Key: "triggering_event_id", Value: 1}},
			Options: options.Index().SetName("idx_automation_logs_event"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_automation_logs_status"),
		},
	}

	_, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
