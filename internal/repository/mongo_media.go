package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magcho/hedgedoc/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mediaCollectionName = "media_uploads"

// MongoMediaRepository implements domain.MediaRepository using MongoDB
type MongoMediaRepository struct {
	collection *mongo.Collection
}

// NewMongoMediaRepository creates a new MongoDB media repository
func NewMongoMediaRepository(db *mongo.Database) *MongoMediaRepository {
	collection := db.Collection(mediaCollectionName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Uploads are listed per user and per note
	_, _ = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{
			Keys:    bson.D{{Key: "note_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})

	return &MongoMediaRepository{
		collection: collection,
	}
}

// Create inserts a new MediaUpload record. The id is assigned by the caller
// and must be unique; the unique _id index enforces no reuse.
func (r *MongoMediaRepository) Create(ctx context.Context, upload *domain.MediaUpload) error {
	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, upload)
	if err != nil {
		return fmt.Errorf("failed to insert media upload: %w", err)
	}
	return nil
}

func (r *MongoMediaRepository) GetByID(ctx context.Context, id string) (*domain.MediaUpload, error) {
	var upload domain.MediaUpload
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&upload); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotInStore
		}
		return nil, fmt.Errorf("failed to get media upload: %w", err)
	}
	return &upload, nil
}

func (r *MongoMediaRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.MediaUpload, error) {
	return r.list(ctx, bson.M{"user_id": userID})
}

func (r *MongoMediaRepository) ListByNoteID(ctx context.Context, noteID string) ([]*domain.MediaUpload, error) {
	return r.list(ctx, bson.M{"note_id": noteID})
}

func (r *MongoMediaRepository) list(ctx context.Context, filter bson.M) ([]*domain.MediaUpload, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find media uploads: %w", err)
	}
	defer cursor.Close(ctx)

	var uploads []*domain.MediaUpload
	if err := cursor.All(ctx, &uploads); err != nil {
		return nil, fmt.Errorf("failed to decode media uploads: %w", err)
	}
	return uploads, nil
}

// DetachNote unsets the note reference. Matching zero documents is fine: the
// upload may already be detached or deleted by a concurrent request.
func (r *MongoMediaRepository) DetachNote(ctx context.Context, id string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$unset": bson.M{"note_id": ""}},
	)
	if err != nil {
		return fmt.Errorf("failed to detach note from media upload: %w", err)
	}
	return nil
}

func (r *MongoMediaRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete media upload: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotInStore
	}
	return nil
}
