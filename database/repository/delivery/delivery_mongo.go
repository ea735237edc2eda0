package deliveryRepo

import (
	"context"
	"fmt"
	"time"

	"notifyhub/database"
	"notifyhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDeliveryLogRepo implements DeliveryLogRepository using MongoDB.
type MongoDeliveryLogRepo struct {
	coll *mongo.Collection
}

// NewMongoDeliveryLogRepo creates a new instance of DeliveryLogRepository using MongoDB.
func NewMongoDeliveryLogRepo() DeliveryLogRepository {
	coll := database.MongoClient.Database("notifyhub").Collection("delivery_log")
	repo := &MongoDeliveryLogRepo{coll: coll}

	ctx, cancel := newContext(10 * time.Second)
	defer cancel()
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "notificationId", Value: 1}, {Key: "attemptedAt", Value: 1}},
	})
	if err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// Record appends one delivery attempt outcome.
func (r *MongoDeliveryLogRepo) Record(l *models.DeliveryLog) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if l.AttemptedAt.IsZero() {
		l.AttemptedAt = time.Now()
	}

	if _, err := r.coll.InsertOne(ctx, l); err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}
	return nil
}

// ListByNotification retrieves attempts for one notification, oldest first.
func (r *MongoDeliveryLogRepo) ListByNotification(notificationID string) ([]models.DeliveryLog, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "attemptedAt", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"notificationId": notificationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery attempts for %s: %w", notificationID, err)
	}
	defer cursor.Close(ctx)

	var out []models.DeliveryLog
	for cursor.Next(ctx) {
		var l models.DeliveryLog
		if err := cursor.Decode(&l); err != nil {
			return nil, fmt.Errorf("failed to decode delivery attempt: %w", err)
		}
		out = append(out, l)
	}
	return out, nil
}
