package sessionRepo

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

// MongoSessionRepo implements SessionRepository using MongoDB.
type MongoSessionRepo struct {
	sessions *mongo.Collection
	audit    *mongo.Collection
}

// NewMongoSessionRepo creates a new instance of SessionRepository using MongoDB.
func NewMongoSessionRepo() SessionRepository {
	repo := &MongoSessionRepo{
		sessions: database.Collection("sessions"),
		audit:    database.Collection("messages"),
	}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func (r *MongoSessionRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	sessionIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "state", Value: 1}}},
	}
	if _, err := r.sessions.Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	auditIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "createdAt", Value: 1}}},
	}
	if _, err := r.audit.Indexes().CreateMany(ctx, auditIndexes); err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

// GetActiveByClient retrieves the client's single non-terminal session.
func (r *MongoSessionRepo) GetActiveByClient(clientID string) (*models.Session, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"clientId": clientID,
		"state": bson.M{"$nin": bson.A{
			string(models.StateCompleted),
			string(models.StateAbandoned),
			string(models.StateFailed),
		}},
	}

	var session models.Session
	if err := r.sessions.FindOne(ctx, filter).Decode(&session); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch active session for client %s: %w", clientID, err)
	}
	return &session, nil
}

// GetByID retrieves a session by its unique ID.
func (r *MongoSessionRepo) GetByID(id string) (*models.Session, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var session models.Session
	if err := r.sessions.FindOne(ctx, bson.M{"id": id}).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to fetch session with id %s: %w", id, err)
	}
	return &session, nil
}

// ListByClient retrieves all sessions for a client, newest first.
func (r *MongoSessionRepo) ListByClient(clientID string) ([]models.Session, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.sessions.Find(ctx, bson.M{"clientId": clientID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for client %s: %w", clientID, err)
	}
	defer cursor.Close(ctx)

	var sessions []models.Session
	for cursor.Next(ctx) {
		var s models.Session
		if err := cursor.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to decode session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// Save upserts the full session document. The session embeds its bounded
// history and pending action, so one write persists the whole turn.
func (r *MongoSessionRepo) Save(session *models.Session) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{"id": session.ID}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.sessions.ReplaceOne(ctx, filter, session, opts); err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// AppendAudit stores a turn in the append-only audit collection.
func (r *MongoSessionRepo) AppendAudit(turn *models.Turn) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.audit.InsertOne(ctx, turn); err != nil {
		return fmt.Errorf("failed to append audit turn: %w", err)
	}
	return nil
}

// CountAuditByClient counts audit turns across the given sessions.
func (r *MongoSessionRepo) CountAuditByClient(sessionIDs []string) (int64, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	count, err := r.audit.CountDocuments(ctx, bson.M{"sessionId": bson.M{"$in": sessionIDs}})
	if err != nil {
		return 0, fmt.Errorf("failed to count audit turns: %w", err)
	}
	return count, nil
}
