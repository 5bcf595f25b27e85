package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBConfig конфигурация для MongoDB репозитория
type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
}

// Validate проверяет корректность конфигурации
func (c MongoDBConfig) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("URI cannot be empty")
	}
	if c.Collection == "" {
		return fmt.Errorf("collection cannot be empty")
	}
	return nil
}

// mongoDocument обертка документа: сам entity хранится в поле data
type mongoDocument struct {
	ID        string    `bson:"_id"`
	Data      bson.M    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoDBReadRepository generic read-репозиторий для MongoDB.
// Фильтрация и сортировка выполняются по полям документа data.
type MongoDBReadRepository[T View] struct {
	config     MongoDBConfig
	client     *mongo.Client
	collection *mongo.Collection
	codec      Codec[T]
}

// NewMongoDBReadRepository создает новый MongoDB read-репозиторий
func NewMongoDBReadRepository[T View](config MongoDBConfig, codec Codec[T]) (*MongoDBReadRepository[T], error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongodb config: %w", err)
	}
	if config.Database == "" {
		config.Database = "sagastore"
	}

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoDBReadRepository[T]{
		config:     config,
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
		codec:      codec,
	}, nil
}

// Close закрывает соединение
func (r *MongoDBReadRepository[T]) Close(ctx context.Context) error {
	if r.client != nil {
		return r.client.Disconnect(ctx)
	}
	return nil
}

// Save сохраняет view (upsert)
func (r *MongoDBReadRepository[T]) Save(ctx context.Context, view T) error {
	data, err := r.encodeToBSON(view)
	if err != nil {
		return err
	}

	doc := mongoDocument{
		ID:        view.ID(),
		Data:      data,
		UpdatedAt: time.Now(),
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": view.ID()}, doc, opts); err != nil {
		return fmt.Errorf("failed to save view: %w", err)
	}
	return nil
}

// FindByID находит view по ID
func (r *MongoDBReadRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	var doc mongoDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
		}
		return zero, fmt.Errorf("failed to find view: %w", err)
	}
	return r.decodeFromBSON(doc.Data)
}

// FindByCriteria возвращает страницу view-моделей по фильтру
func (r *MongoDBReadRepository[T]) FindByCriteria(ctx context.Context, criteria Criteria, s *Sort, pagination Pagination) (Page[T], error) {
	pagination = pagination.Normalize()

	filter := bson.M{}
	for field, value := range criteria {
		filter["data."+field] = value
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return Page[T]{}, fmt.Errorf("failed to count views: %w", err)
	}

	findOpts := options.Find().
		SetSkip(int64((pagination.Page - 1) * pagination.PerPage)).
		SetLimit(int64(pagination.PerPage))
	if s != nil && s.Field != "" {
		direction := 1
		if s.Order == SortDesc {
			direction = -1
		}
		findOpts = findOpts.SetSort(bson.D{{Key: "data." + s.Field, Value: direction}})
	} else {
		findOpts = findOpts.SetSort(bson.D{{Key: "updated_at", Value: 1}})
	}

	cursor, err := r.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return Page[T]{}, fmt.Errorf("failed to find views: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]T, 0)
	for cursor.Next(ctx) {
		var doc mongoDocument
		if err := cursor.Decode(&doc); err != nil {
			return Page[T]{}, fmt.Errorf("failed to decode document: %w", err)
		}
		view, err := r.decodeFromBSON(doc.Data)
		if err != nil {
			return Page[T]{}, err
		}
		items = append(items, view)
	}
	if err := cursor.Err(); err != nil {
		return Page[T]{}, err
	}

	return Page[T]{
		Items:   items,
		Total:   total,
		Page:    pagination.Page,
		PerPage: pagination.PerPage,
	}, nil
}

// Delete удаляет view
func (r *MongoDBReadRepository[T]) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete view: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	return nil
}

// encodeToBSON сериализует view через кодек в bson-документ
func (r *MongoDBReadRepository[T]) encodeToBSON(view T) (bson.M, error) {
	data, err := r.codec.Encode(view)
	if err != nil {
		return nil, fmt.Errorf("failed to encode view: %w", err)
	}
	var doc bson.M
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert view to document: %w", err)
	}
	return doc, nil
}

// decodeFromBSON восстанавливает view из bson-документа
func (r *MongoDBReadRepository[T]) decodeFromBSON(doc bson.M) (T, error) {
	var zero T
	data, err := json.Marshal(doc)
	if err != nil {
		return zero, fmt.Errorf("failed to convert document: %w", err)
	}
	view, err := r.codec.Decode(data)
	if err != nil {
		return zero, fmt.Errorf("failed to decode view: %w", err)
	}
	return view, nil
}
