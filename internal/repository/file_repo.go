package repository

import (
	"coderoom/internal/model"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FileRepo reads shared-file metadata. File content lives elsewhere.
type FileRepo interface {
	Create(ctx context.Context, file *model.FileMeta) error
	GetMeta(ctx context.Context, id string) (*model.FileMeta, error)
}

type fileRepo struct {
	collection *mongo.Collection
}

// NewFileRepo creates a new file metadata repository
func NewFileRepo(db *mongo.Database) FileRepo {
	return &fileRepo{
		collection: db.Collection("files"),
	}
}

func (r *fileRepo) Create(ctx context.Context, file *model.FileMeta) error {
	if file.ID == "" {
		file.ID = primitive.NewObjectID().Hex()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, file)
	return err
}

func (r *fileRepo) GetMeta(ctx context.Context, id string) (*model.FileMeta, error) {
	opts := options.FindOne().SetProjection(bson.M{"fileData": 0, "accessLog": 0})

	var file model.FileMeta
	err := r.collection.FindOne(ctx, idFilter(id), opts).Decode(&file)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}
