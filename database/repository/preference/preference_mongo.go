package preferenceRepo

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

// MongoPreferenceRepo implements PreferenceRepository using MongoDB.
type MongoPreferenceRepo struct {
	coll *mongo.Collection
}

// NewMongoPreferenceRepo creates a new instance of PreferenceRepository using MongoDB.
func NewMongoPreferenceRepo() PreferenceRepository {
	coll := database.MongoClient.Database("notifyhub").Collection("preferences")
	repo := &MongoPreferenceRepo{coll: coll}

	ctx, cancel := newContext(10 * time.Second)
	defer cancel()
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "recipientId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// Get retrieves the preferences row for a recipient; (nil, nil) when absent.
func (r *MongoPreferenceRepo) Get(recipientID string) (*models.RecipientPreferences, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var p models.RecipientPreferences
	if err := r.coll.FindOne(ctx, bson.M{"recipientId": recipientID}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch preferences for %s: %w", recipientID, err)
	}
	return &p, nil
}

// Upsert creates or replaces the preferences row.
func (r *MongoPreferenceRepo) Upsert(p *models.RecipientPreferences) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"recipientId": p.RecipientID}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, filter, p, opts); err != nil {
		return fmt.Errorf("failed to upsert preferences for %s: %w", p.RecipientID, err)
	}
	return nil
}
