package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"docuchat/internal/config"
	"docuchat/internal/models"
	"docuchat/pkg/logger"
)

// Mongo implements ThreadStore and MessageStore on two collections.
type Mongo struct {
	threads  *mongo.Collection
	messages *mongo.Collection
	log      *logger.Logger
}

var (
	_ ThreadStore  = (*Mongo)(nil)
	_ MessageStore = (*Mongo)(nil)
)

func NewMongo(ctx context.Context, cfg config.MongoConfig) (*Mongo, error) {
	opts := options.Client().ApplyURI(cfg.Address)
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password})
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(cfg.Database)
	return &Mongo{
		threads:  db.Collection("threads"),
		messages: db.Collection("messages"),
		log:      logger.New("store.mongo"),
	}, nil
}

func (s *Mongo) Create(ctx context.Context, thread *models.Thread) error {
	if _, err := s.threads.InsertOne(ctx, thread); err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	return nil
}

func (s *Mongo) Get(ctx context.Context, owner, id string) (*models.Thread, error) {
	var thread models.Thread
	err := s.threads.FindOne(ctx, bson.M{"_id": id, "owner": owner}).Decode(&thread)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return &thread, nil
}

func (s *Mongo) ListByOwner(ctx context.Context, owner string) ([]models.Thread, error) {
	cursor, err := s.threads.Find(ctx, bson.M{"owner": owner},
		options.Find().SetSort(bson.M{"updated_at": -1}))
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer cursor.Close(ctx)
	var threads []models.Thread
	if err := cursor.All(ctx, &threads); err != nil {
		return nil, fmt.Errorf("decode threads: %w", err)
	}
	return threads, nil
}

func (s *Mongo) SetTitle(ctx context.Context, id, title string) error {
	_, err := s.threads.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"title": title, "updated_at": time.Now()}})
	if err != nil {
		return fmt.Errorf("set thread title: %w", err)
	}
	return nil
}

func (s *Mongo) Touch(ctx context.Context, id string) error {
	_, err := s.threads.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"updated_at": time.Now()}})
	if err != nil {
		return fmt.Errorf("touch thread: %w", err)
	}
	return nil
}

func (s *Mongo) Delete(ctx context.Context, owner, id string) error {
	res, err := s.threads.DeleteOne(ctx, bson.M{"_id": id, "owner": owner})
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Mongo) Append(ctx context.Context, msg *models.Message) error {
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *Mongo) ListByThread(ctx context.Context, threadID string) ([]models.Message, error) {
	cursor, err := s.messages.Find(ctx, bson.M{"thread_id": threadID},
		options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer cursor.Close(ctx)
	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}

func (s *Mongo) CountByThread(ctx context.Context, threadID string) (int64, error) {
	count, err := s.messages.CountDocuments(ctx, bson.M{"thread_id": threadID})
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

func (s *Mongo) DeleteByThread(ctx context.Context, threadID string) error {
	if _, err := s.messages.DeleteMany(ctx, bson.M{"thread_id": threadID}); err != nil {
		return fmt.Errorf("delete thread messages: %w", err)
	}
	return nil
}
