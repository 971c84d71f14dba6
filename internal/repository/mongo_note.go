package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magcho/hedgedoc/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoNoteRepository implements domain.NoteRepository
type MongoNoteRepository struct {
	collection *mongo.Collection
}

func NewMongoNoteRepository(db *mongo.Database) *MongoNoteRepository {
	coll := db.Collection("notes")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// alias is optional but unique where present
	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "alias", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	})

	return &MongoNoteRepository{
		collection: coll,
	}
}

func (r *MongoNoteRepository) Create(ctx context.Context, note *domain.Note) error {
	if note.ID == "" {
		note.ID = primitive.NewObjectID().Hex()
	}
	if note.PublicID == "" {
		note.PublicID = domain.NewNotePublicID()
	}
	note.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, note)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

func (r *MongoNoteRepository) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	var note domain.Note
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&note); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return &note, nil
}

func (r *MongoNoteRepository) GetByAlias(ctx context.Context, alias string) (*domain.Note, error) {
	var note domain.Note
	if err := r.collection.FindOne(ctx, bson.M{"alias": alias}).Decode(&note); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get note by alias: %w", err)
	}
	return &note, nil
}

func (r *MongoNoteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
