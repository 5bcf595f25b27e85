package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akriventsev/sagastore/core"
	"github.com/akriventsev/sagastore/events"
)

// MongoDBEventStoreConfig конфигурация для MongoDB Event Store
type MongoDBEventStoreConfig struct {
	URI         string
	Database    string
	Collection  string
	MaxPoolSize int
	MinPoolSize int
}

// Validate проверяет корректность конфигурации
func (c MongoDBEventStoreConfig) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("URI cannot be empty")
	}
	return nil
}

// DefaultMongoDBEventStoreConfig возвращает конфигурацию по умолчанию
func DefaultMongoDBEventStoreConfig() MongoDBEventStoreConfig {
	return MongoDBEventStoreConfig{
		Database:    "sagastore",
		Collection:  "events",
		MaxPoolSize: 100,
		MinPoolSize: 10,
	}
}

// MongoDBEventStore реализация EventStore для MongoDB
type MongoDBEventStore struct {
	config     MongoDBEventStoreConfig
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDBEventStore создает новый MongoDB Event Store
func NewMongoDBEventStore(config MongoDBEventStoreConfig) (*MongoDBEventStore, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongodb config: %w", err)
	}
	if config.Database == "" {
		config.Database = "sagastore"
	}
	if config.Collection == "" {
		config.Collection = "events"
	}

	ctx := context.Background()
	opts := options.Client().ApplyURI(config.URI)
	if config.MaxPoolSize > 0 {
		opts = opts.SetMaxPoolSize(uint64(config.MaxPoolSize))
	}
	if config.MinPoolSize > 0 {
		opts = opts.SetMinPoolSize(uint64(config.MinPoolSize))
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(config.Database).Collection(config.Collection)

	// Создаем индексы
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "aggregate_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "event_type", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "occurred_at", Value: 1}, {Key: "position", Value: 1}},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &MongoDBEventStore{
		config:     config,
		client:     client,
		collection: collection,
	}, nil
}

// Start запускает адаптер
func (s *MongoDBEventStore) Start(ctx context.Context) error {
	return nil
}

// Stop останавливает адаптер
func (s *MongoDBEventStore) Stop(ctx context.Context) error {
	if s.client != nil {
		return s.client.Disconnect(ctx)
	}
	return nil
}

// IsRunning проверяет, запущен ли адаптер
func (s *MongoDBEventStore) IsRunning() bool {
	return s.client != nil
}

// Name возвращает имя компонента
func (s *MongoDBEventStore) Name() string {
	return "mongodb-event-store"
}

// Type возвращает тип компонента
func (s *MongoDBEventStore) Type() core.ComponentType {
	return core.ComponentTypeStore
}

// Append сохраняет событие в коллекцию
func (s *MongoDBEventStore) Append(ctx context.Context, event events.Event) (StoredEvent, error) {
	position, err := s.nextPosition(ctx)
	if err != nil {
		return StoredEvent{}, err
	}

	stored := newStoredEvent(event, position)
	doc := bson.M{
		"event_id":       stored.ID,
		"aggregate_id":   stored.AggregateID,
		"aggregate_type": stored.AggregateType,
		"event_type":     stored.EventType,
		"payload":        stored.Payload,
		"metadata":       stored.Metadata,
		"position":       stored.Position,
		"occurred_at":    stored.OccurredAt,
		"recorded_at":    stored.RecordedAt,
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return StoredEvent{}, fmt.Errorf("%w: %s", ErrDuplicateEventID, stored.ID)
		}
		return StoredEvent{}, fmt.Errorf("failed to insert event: %w", err)
	}

	return stored, nil
}

// nextPosition возвращает следующую позицию в глобальном потоке
func (s *MongoDBEventStore) nextPosition(ctx context.Context) (int64, error) {
	var lastDoc bson.M
	opts := options.FindOne().SetSort(bson.D{{Key: "position", Value: -1}})
	err := s.collection.FindOne(ctx, bson.M{}, opts).Decode(&lastDoc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 1, nil
		}
		return 0, fmt.Errorf("failed to get last position: %w", err)
	}
	return getInt64(lastDoc, "position") + 1, nil
}

// FindByID возвращает событие по идентификатору
func (s *MongoDBEventStore) FindByID(ctx context.Context, id string) (StoredEvent, error) {
	var doc bson.M
	err := s.collection.FindOne(ctx, bson.M{"event_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return StoredEvent{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
		}
		return StoredEvent{}, fmt.Errorf("failed to find event: %w", err)
	}
	return decodeStoredEvent(doc), nil
}

// FindByCriteria возвращает события по фильтру в хронологическом порядке
func (s *MongoDBEventStore) FindByCriteria(ctx context.Context, criteria EventCriteria) ([]StoredEvent, error) {
	filter := buildCriteriaFilter(criteria)
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}, {Key: "position", Value: 1}})
	if criteria.Page > 0 {
		opts = opts.SetSkip(int64(criteria.offset())).SetLimit(int64(criteria.limit()))
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find events: %w", err)
	}
	defer cursor.Close(ctx)

	var result []StoredEvent
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		result = append(result, decodeStoredEvent(doc))
	}

	return result, cursor.Err()
}

// CountByCriteria возвращает количество событий, подходящих под фильтр
func (s *MongoDBEventStore) CountByCriteria(ctx context.Context, criteria EventCriteria) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, buildCriteriaFilter(criteria))
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// buildCriteriaFilter строит bson-фильтр по заполненным полям
func buildCriteriaFilter(criteria EventCriteria) bson.M {
	filter := bson.M{}
	if criteria.EventType != "" {
		filter["event_type"] = criteria.EventType
	}
	if criteria.AggregateID != "" {
		filter["aggregate_id"] = criteria.AggregateID
	}
	if criteria.AggregateType != "" {
		filter["aggregate_type"] = criteria.AggregateType
	}
	if criteria.From != nil || criteria.To != nil {
		occurred := bson.M{}
		if criteria.From != nil {
			occurred["$gte"] = *criteria.From
		}
		if criteria.To != nil {
			occurred["$lte"] = *criteria.To
		}
		filter["occurred_at"] = occurred
	}
	return filter
}

// decodeStoredEvent восстанавливает StoredEvent из bson-документа
func decodeStoredEvent(doc bson.M) StoredEvent {
	return StoredEvent{
		ID:            getString(doc, "event_id"),
		AggregateID:   getString(doc, "aggregate_id"),
		AggregateType: getString(doc, "aggregate_type"),
		EventType:     getString(doc, "event_type"),
		Payload:       getMap(doc, "payload"),
		Metadata:      getMap(doc, "metadata"),
		Position:      getInt64(doc, "position"),
		OccurredAt:    getTime(doc, "occurred_at"),
		RecordedAt:    getTime(doc, "recorded_at"),
	}
}

// Вспомогательные функции
func getString(doc bson.M, key string) string {
	if val, ok := doc[key].(string); ok {
		return val
	}
	return ""
}

func getInt64(doc bson.M, key string) int64 {
	switch v := doc[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func getTime(doc bson.M, key string) time.Time {
	switch v := doc[key].(type) {
	case time.Time:
		return v
	case primitive.DateTime:
		return v.Time()
	default:
		return time.Time{}
	}
}

func getMap(doc bson.M, key string) map[string]interface{} {
	switch v := doc[key].(type) {
	case bson.M:
		result := make(map[string]interface{}, len(v))
		for k, val := range v {
			result[k] = val
		}
		return result
	case map[string]interface{}:
		return v
	default:
		return map[string]interface{}{}
	}
}
