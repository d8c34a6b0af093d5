package clientRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/ntolkachev-gh/clientera-telegram-bot/database"
	"github.com/ntolkachev-gh/clientera-telegram-bot/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoClientRepo implements ClientRepository using MongoDB.
type MongoClientRepo struct {
	coll *mongo.Collection
}

// NewMongoClientRepo creates a new instance of ClientRepository using MongoDB.
func NewMongoClientRepo() ClientRepository {
	coll := database.Collection("clients")
	repo := &MongoClientRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoClientRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "chatId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "lastVisit", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Create inserts a new client profile document.
func (r *MongoClientRepo) Create(client *models.ClientProfile) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	client.CreatedAt = now
	client.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, client); err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// Update modifies an existing client profile document.
func (r *MongoClientRepo) Update(client *models.ClientProfile) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	client.UpdatedAt = time.Now()
	filter := bson.M{"id": client.ID}
	update := bson.M{"$set": client}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update client with id %s: %w", client.ID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("client with id %s not found", client.ID)
	}
	return nil
}

// GetByID retrieves a client profile by its unique ID.
func (r *MongoClientRepo) GetByID(id string) (*models.ClientProfile, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var client models.ClientProfile
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&client); err != nil {
		return nil, fmt.Errorf("failed to fetch client with id %s: %w", id, err)
	}
	return &client, nil
}

// GetByChatID retrieves a client profile by its external chat identity.
func (r *MongoClientRepo) GetByChatID(chatID string) (*models.ClientProfile, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var client models.ClientProfile
	if err := r.coll.FindOne(ctx, bson.M{"chatId": chatID}).Decode(&client); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch client with chat id %s: %w", chatID, err)
	}
	return &client, nil
}

// DueForReminder returns opted-in clients last seen before the given instant.
func (r *MongoClientRepo) DueForReminder(before time.Time) ([]models.ClientProfile, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"reminderOptIn": true,
		"lastVisit":     bson.M{"$ne": nil, "$lt": before},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients due for reminder: %w", err)
	}
	defer cursor.Close(ctx)

	var clients []models.ClientProfile
	for cursor.Next(ctx) {
		var c models.ClientProfile
		if err := cursor.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to decode client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, nil
}
