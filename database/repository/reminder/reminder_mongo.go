package reminderRepo

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

// MongoReminderRepo implements ReminderRepository using MongoDB.
type MongoReminderRepo struct {
	coll *mongo.Collection
}

// NewMongoReminderRepo creates a new instance of ReminderRepository using MongoDB.
func NewMongoReminderRepo() ReminderRepository {
	coll := database.MongoClient.Database("notifyhub").Collection("reminders")
	repo := &MongoReminderRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoReminderRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "sent", Value: 1}, {Key: "fireAt", Value: 1}}},
		{Keys: bson.D{{Key: "subject.kind", Value: 1}, {Key: "subject.id", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Create inserts a new scheduled reminder.
func (r *MongoReminderRepo) Create(rem *models.ScheduledReminder) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = time.Now()
	}

	_, err := r.coll.InsertOne(ctx, rem)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

// DueBefore retrieves unsent reminders due at or before now, ordered by fire time.
func (r *MongoReminderRepo) DueBefore(now time.Time, limit int) ([]models.ScheduledReminder, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{"sent": false, "fireAt": bson.M{"$lte": now}}
	opts := options.Find().SetSort(bson.D{{Key: "fireAt", Value: 1}}).SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.ScheduledReminder
	for cursor.Next(ctx) {
		var rem models.ScheduledReminder
		if err := cursor.Decode(&rem); err != nil {
			return nil, fmt.Errorf("failed to decode reminder: %w", err)
		}
		out = append(out, rem)
	}
	return out, nil
}

// MarkSent sets the sent flag on a reminder.
func (r *MongoReminderRepo) MarkSent(id string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"sent": true}})
	if err != nil {
		return fmt.Errorf("failed to mark reminder %s sent: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("reminder with id %s not found", id)
	}
	return nil
}

// DeleteForSubject removes pending reminders for one subject.
func (r *MongoReminderRepo) DeleteForSubject(kind, subjectID string) (int64, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"subject.kind": kind, "subject.id": subjectID, "sent": false}
	result, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reminders for %s %s: %w", kind, subjectID, err)
	}
	return result.DeletedCount, nil
}
