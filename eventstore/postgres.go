package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/akriventsev/sagastore/core"
	"github.com/akriventsev/sagastore/events"
)

// PostgresEventStoreConfig конфигурация для PostgreSQL Event Store
type PostgresEventStoreConfig struct {
	DSN        string
	SchemaName string
	TableName  string
}

// Validate проверяет корректность конфигурации
func (c PostgresEventStoreConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("DSN cannot be empty")
	}
	return nil
}

// DefaultPostgresEventStoreConfig возвращает конфигурацию по умолчанию
func DefaultPostgresEventStoreConfig() PostgresEventStoreConfig {
	return PostgresEventStoreConfig{
		SchemaName: "public",
		TableName:  "event_store",
	}
}

// PostgresEventStore реализация EventStore для PostgreSQL
type PostgresEventStore struct {
	config PostgresEventStoreConfig
	conn   *pgx.Conn
}

// NewPostgresEventStore создает новый PostgreSQL Event Store
func NewPostgresEventStore(config PostgresEventStoreConfig) (*PostgresEventStore, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	if config.SchemaName == "" {
		config.SchemaName = "public"
	}
	if config.TableName == "" {
		config.TableName = "event_store"
	}

	conn, err := pgx.Connect(context.Background(), config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &PostgresEventStore{
		config: config,
		conn:   conn,
	}, nil
}

// Start запускает адаптер
func (s *PostgresEventStore) Start(ctx context.Context) error {
	return nil
}

// Stop останавливает адаптер
func (s *PostgresEventStore) Stop(ctx context.Context) error {
	if s.conn != nil {
		return s.conn.Close(ctx)
	}
	return nil
}

// IsRunning проверяет, запущен ли адаптер
func (s *PostgresEventStore) IsRunning() bool {
	return s.conn != nil
}

// Name возвращает имя компонента
func (s *PostgresEventStore) Name() string {
	return "postgres-event-store"
}

// Type возвращает тип компонента
func (s *PostgresEventStore) Type() core.ComponentType {
	return core.ComponentTypeStore
}

func (s *PostgresEventStore) tableName() string {
	return fmt.Sprintf("%s.%s", s.config.SchemaName, s.config.TableName)
}

// Append сохраняет событие в таблицу event_store
func (s *PostgresEventStore) Append(ctx context.Context, event events.Event) (StoredEvent, error) {
	stored := newStoredEvent(event, 0)

	payloadJSON, err := json.Marshal(stored.Payload)
	if err != nil {
		return StoredEvent{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	metadataJSON, err := json.Marshal(stored.Metadata)
	if err != nil {
		return StoredEvent{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (event_id, aggregate_id, aggregate_type, event_type, payload, metadata, occurred_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING position
	`, s.tableName())

	err = s.conn.QueryRow(ctx, query,
		stored.ID,
		stored.AggregateID,
		stored.AggregateType,
		stored.EventType,
		payloadJSON,
		metadataJSON,
		stored.OccurredAt,
		stored.RecordedAt,
	).Scan(&stored.Position)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return StoredEvent{}, fmt.Errorf("%w: %s", ErrDuplicateEventID, stored.ID)
		}
		return StoredEvent{}, fmt.Errorf("failed to insert event: %w", err)
	}

	return stored, nil
}

// FindByID возвращает событие по идентификатору
func (s *PostgresEventStore) FindByID(ctx context.Context, id string) (StoredEvent, error) {
	query := fmt.Sprintf(`
		SELECT event_id, aggregate_id, aggregate_type, event_type, payload, metadata, position, occurred_at, recorded_at
		FROM %s
		WHERE event_id = $1
	`, s.tableName())

	stored, err := scanStoredEvent(s.conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StoredEvent{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
		}
		return StoredEvent{}, fmt.Errorf("failed to query event: %w", err)
	}
	return stored, nil
}

// FindByCriteria возвращает события по фильтру в хронологическом порядке
func (s *PostgresEventStore) FindByCriteria(ctx context.Context, criteria EventCriteria) ([]StoredEvent, error) {
	where, args := buildCriteriaWhere(criteria)
	query := fmt.Sprintf(`
		SELECT event_id, aggregate_id, aggregate_type, event_type, payload, metadata, position, occurred_at, recorded_at
		FROM %s
		%s
		ORDER BY occurred_at ASC, position ASC
	`, s.tableName(), where)

	if criteria.Page > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", criteria.limit(), criteria.offset())
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var result []StoredEvent
	for rows.Next() {
		stored, err := scanStoredEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		result = append(result, stored)
	}

	return result, rows.Err()
}

// CountByCriteria возвращает количество событий, подходящих под фильтр
func (s *PostgresEventStore) CountByCriteria(ctx context.Context, criteria EventCriteria) (int64, error) {
	where, args := buildCriteriaWhere(criteria)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", s.tableName(), where)

	var count int64
	if err := s.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// buildCriteriaWhere строит WHERE-часть запроса по заполненным полям фильтра
func buildCriteriaWhere(criteria EventCriteria) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	addCondition := func(expr string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(expr, len(args)))
	}

	if criteria.EventType != "" {
		addCondition("event_type = $%d", criteria.EventType)
	}
	if criteria.AggregateID != "" {
		addCondition("aggregate_id = $%d", criteria.AggregateID)
	}
	if criteria.AggregateType != "" {
		addCondition("aggregate_type = $%d", criteria.AggregateType)
	}
	if criteria.From != nil {
		addCondition("occurred_at >= $%d", *criteria.From)
	}
	if criteria.To != nil {
		addCondition("occurred_at <= $%d", *criteria.To)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// scanStoredEvent читает строку результата в StoredEvent
func scanStoredEvent(row pgx.Row) (StoredEvent, error) {
	var stored StoredEvent
	var payloadJSON, metadataJSON []byte

	err := row.Scan(
		&stored.ID,
		&stored.AggregateID,
		&stored.AggregateType,
		&stored.EventType,
		&payloadJSON,
		&metadataJSON,
		&stored.Position,
		&stored.OccurredAt,
		&stored.RecordedAt,
	)
	if err != nil {
		return StoredEvent{}, err
	}

	if err := json.Unmarshal(payloadJSON, &stored.Payload); err != nil {
		return StoredEvent{}, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if err := json.Unmarshal(metadataJSON, &stored.Metadata); err != nil {
		return StoredEvent{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return stored, nil
}
