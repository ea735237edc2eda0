package notificationRepo

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

// MongoNotificationRepo implements NotificationRepository using MongoDB.
type MongoNotificationRepo struct {
	coll *mongo.Collection
}

// NewMongoNotificationRepo creates a new instance of NotificationRepository using MongoDB.
func NewMongoNotificationRepo() NotificationRepository {
	coll := database.MongoClient.Database("notifyhub").Collection("notifications")
	repo := &MongoNotificationRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoNotificationRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "read", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Create inserts a new notification document.
func (r *MongoNotificationRepo) Create(n *models.Notification) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	_, err := r.coll.InsertOne(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetByID retrieves a notification by its unique ID.
func (r *MongoNotificationRepo) GetByID(id string) (*models.Notification, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var n models.Notification
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&n); err != nil {
		return nil, fmt.Errorf("failed to fetch notification with id %s: %w", id, err)
	}
	return &n, nil
}

// ListByRecipient retrieves notifications for a recipient, newest first.
func (r *MongoNotificationRepo) ListByRecipient(recipientID string, onlyUnread bool, limit int64) ([]models.Notification, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{"recipientId": recipientID}
	if onlyUnread {
		filter["read"] = false
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for %s: %w", recipientID, err)
	}
	defer cursor.Close(ctx)

	var out []models.Notification
	for cursor.Next(ctx) {
		var n models.Notification
		if err := cursor.Decode(&n); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

// MarkRead sets the read flag on one notification owned by the recipient.
// The flag only ever transitions false to true; marking an already-read
// notification matches zero documents and is not an error.
func (r *MongoNotificationRepo) MarkRead(id, recipientID string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": id, "recipientId": recipientID}
	update := bson.M{"$set": bson.M{"read": true}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("notification with id %s not found", id)
	}
	return nil
}

// MarkAllRead sets the read flag on every unread notification of the recipient.
func (r *MongoNotificationRepo) MarkAllRead(recipientID string) (int64, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{"recipientId": recipientID, "read": false}
	update := bson.M{"$set": bson.M{"read": true}}

	result, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read for %s: %w", recipientID, err)
	}
	return result.ModifiedCount, nil
}

// SetDeliveredAt records the first successful delivery time.
func (r *MongoNotificationRepo) SetDeliveredAt(id string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	// Only set once; later deliveries keep the original timestamp.
	filter := bson.M{"id": id, "deliveredAt": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{"deliveredAt": time.Now()}}

	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to set deliveredAt on notification %s: %w", id, err)
	}
	return nil
}

// CountUnread returns the number of unread notifications for a recipient.
func (r *MongoNotificationRepo) CountUnread(recipientID string) (int64, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	count, err := r.coll.CountDocuments(ctx, bson.M{"recipientId": recipientID, "read": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications for %s: %w", recipientID, err)
	}
	return count, nil
}
