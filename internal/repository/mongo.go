package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore groups the MongoDB-backed directories behind one client
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to uri, pings the server and ensures indexes
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	if err := EnsureRoomIndexes(ctx, db); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	log.Info().Str("module", "repository").Str("database", database).Msg("connected to MongoDB")
	return &MongoStore{client: client, db: db}, nil
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Rooms() RoomRepo { return NewRoomRepo(s.db) }

func (s *MongoStore) Users() UserRepo { return NewUserRepo(s.db) }

func (s *MongoStore) Files() FileRepo { return NewFileRepo(s.db) }

// Store is implemented by MongoStore and SQLiteStore
type Store interface {
	Rooms() RoomRepo
	Users() UserRepo
	Files() FileRepo
	Close() error
}
