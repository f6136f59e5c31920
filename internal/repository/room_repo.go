package repository

import (
	"coderoom/internal/model"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RoomRepo is the Room Directory: durable storage of room documents keyed by roomId
type RoomRepo interface {
	Create(ctx context.Context, room *model.Room) error
	FindByRoomID(ctx context.Context, roomID string) (*model.Room, error)
	Update(ctx context.Context, roomID string, update model.RoomUpdate) (*model.Room, error)
	AddAllowedParticipant(ctx context.Context, roomID, userID string) (*model.Room, error)
	Exists(ctx context.Context, roomID string) (bool, error)
}

type roomRepo struct {
	collection *mongo.Collection
}

// NewRoomRepo creates a MongoDB-backed room directory
func NewRoomRepo(db *mongo.Database) RoomRepo {
	return &roomRepo{
		collection: db.Collection("rooms"),
	}
}

// EnsureRoomIndexes creates the unique roomId index
func EnsureRoomIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("rooms").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roomId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	room.ApplyDefaults(time.Now())

	_, err := r.collection.InsertOne(ctx, room)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *roomRepo) FindByRoomID(ctx context.Context, roomID string) (*model.Room, error) {
	var room model.Room
	err := r.collection.FindOne(ctx, bson.M{"roomId": roomID}).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) Update(ctx context.Context, roomID string, update model.RoomUpdate) (*model.Room, error) {
	set := roomUpdateSet(update)
	if len(set) == 0 {
		return r.FindByRoomID(ctx, roomID)
	}
	return r.findOneAndUpdate(ctx, roomID, bson.M{"$set": set})
}

func (r *roomRepo) AddAllowedParticipant(ctx context.Context, roomID, userID string) (*model.Room, error) {
	return r.findOneAndUpdate(ctx, roomID, bson.M{
		"$addToSet": bson.M{"allowedParticipants": userID},
		"$set":      bson.M{"lastUpdated": time.Now()},
	})
}

func (r *roomRepo) Exists(ctx context.Context, roomID string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"roomId": roomID}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *roomRepo) findOneAndUpdate(ctx context.Context, roomID string, update bson.M) (*model.Room, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var room model.Room
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"roomId": roomID}, update, opts).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func roomUpdateSet(u model.RoomUpdate) bson.M {
	set := bson.M{}
	if u.Code != nil {
		set["code"] = *u.Code
	}
	if u.Language != nil {
		set["language"] = *u.Language
	}
	if u.Mode != nil {
		set["mode"] = *u.Mode
	}
	if u.CurrentParticipants != nil {
		set["currentParticipants"] = u.CurrentParticipants
	}
	if u.LastUpdated != nil {
		set["lastUpdated"] = *u.LastUpdated
	}
	return set
}
