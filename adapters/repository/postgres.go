package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// PostgresConfig конфигурация для PostgreSQL репозитория
type PostgresConfig struct {
	DSN        string
	SchemaName string
	TableName  string
}

// Validate проверяет корректность конфигурации
func (c PostgresConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("DSN cannot be empty")
	}
	if c.TableName == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	return nil
}

// Codec сериализация entity в JSON-документ и обратно
type Codec[T any] struct {
	Encode func(entity T) ([]byte, error)
	Decode func(data []byte) (T, error)
}

// JSONCodec кодек для типов, которые напрямую сериализуются в JSON
func JSONCodec[T any]() Codec[T] {
	return Codec[T]{
		Encode: func(entity T) ([]byte, error) {
			return json.Marshal(entity)
		},
		Decode: func(data []byte) (T, error) {
			var entity T
			err := json.Unmarshal(data, &entity)
			return entity, err
		},
	}
}

// PostgresRepository generic write-репозиторий поверх JSONB-таблицы.
// Схема таблицы: id TEXT PRIMARY KEY, data JSONB, updated_at TIMESTAMPTZ.
type PostgresRepository[T Entity] struct {
	config PostgresConfig
	conn   *pgx.Conn
	codec  Codec[T]
}

// NewPostgresRepository создает новый PostgreSQL репозиторий
func NewPostgresRepository[T Entity](config PostgresConfig, codec Codec[T]) (*PostgresRepository[T], error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	if config.SchemaName == "" {
		config.SchemaName = "public"
	}

	conn, err := pgx.Connect(context.Background(), config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &PostgresRepository[T]{
		config: config,
		conn:   conn,
		codec:  codec,
	}, nil
}

// Close закрывает соединение
func (r *PostgresRepository[T]) Close(ctx context.Context) error {
	if r.conn != nil {
		return r.conn.Close(ctx)
	}
	return nil
}

func (r *PostgresRepository[T]) tableName() string {
	return fmt.Sprintf("%s.%s", r.config.SchemaName, r.config.TableName)
}

// Save сохраняет entity (upsert)
func (r *PostgresRepository[T]) Save(ctx context.Context, entity T) error {
	data, err := r.codec.Encode(entity)
	if err != nil {
		return fmt.Errorf("failed to encode entity: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET data = $2, updated_at = $3
	`, r.tableName())

	if _, err := r.conn.Exec(ctx, query, entity.ID(), data, time.Now()); err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}
	return nil
}

// FindByID находит entity по ID
func (r *PostgresRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	query := fmt.Sprintf("SELECT data FROM %s WHERE id = $1", r.tableName())

	var data []byte
	if err := r.conn.QueryRow(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
		}
		return zero, fmt.Errorf("failed to query entity: %w", err)
	}

	entity, err := r.codec.Decode(data)
	if err != nil {
		return zero, fmt.Errorf("failed to decode entity: %w", err)
	}
	return entity, nil
}

// FindAll возвращает все entities
func (r *PostgresRepository[T]) FindAll(ctx context.Context) ([]T, error) {
	query := fmt.Sprintf("SELECT data FROM %s", r.tableName())

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var result []T
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entity, err := r.codec.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode entity: %w", err)
		}
		result = append(result, entity)
	}
	return result, rows.Err()
}

// Delete удаляет entity
func (r *PostgresRepository[T]) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.tableName())

	tag, err := r.conn.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	return nil
}

// PostgresReadRepository generic read-репозиторий поверх JSONB-таблицы.
// Фильтрация и сортировка выполняются по полям JSON-документа.
type PostgresReadRepository[T View] struct {
	config PostgresConfig
	conn   *pgx.Conn
	codec  Codec[T]
}

// NewPostgresReadRepository создает новый PostgreSQL read-репозиторий
func NewPostgresReadRepository[T View](config PostgresConfig, codec Codec[T]) (*PostgresReadRepository[T], error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	if config.SchemaName == "" {
		config.SchemaName = "public"
	}

	conn, err := pgx.Connect(context.Background(), config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &PostgresReadRepository[T]{
		config: config,
		conn:   conn,
		codec:  codec,
	}, nil
}

// Close закрывает соединение
func (r *PostgresReadRepository[T]) Close(ctx context.Context) error {
	if r.conn != nil {
		return r.conn.Close(ctx)
	}
	return nil
}

func (r *PostgresReadRepository[T]) tableName() string {
	return fmt.Sprintf("%s.%s", r.config.SchemaName, r.config.TableName)
}

// Save сохраняет view (upsert)
func (r *PostgresReadRepository[T]) Save(ctx context.Context, view T) error {
	data, err := r.codec.Encode(view)
	if err != nil {
		return fmt.Errorf("failed to encode view: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET data = $2, updated_at = $3
	`, r.tableName())

	if _, err := r.conn.Exec(ctx, query, view.ID(), data, time.Now()); err != nil {
		return fmt.Errorf("failed to save view: %w", err)
	}
	return nil
}

// FindByID находит view по ID
func (r *PostgresReadRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	query := fmt.Sprintf("SELECT data FROM %s WHERE id = $1", r.tableName())

	var data []byte
	if err := r.conn.QueryRow(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
		}
		return zero, fmt.Errorf("failed to query view: %w", err)
	}

	view, err := r.codec.Decode(data)
	if err != nil {
		return zero, fmt.Errorf("failed to decode view: %w", err)
	}
	return view, nil
}

// FindByCriteria возвращает страницу view-моделей по фильтру
func (r *PostgresReadRepository[T]) FindByCriteria(ctx context.Context, criteria Criteria, s *Sort, pagination Pagination) (Page[T], error) {
	pagination = pagination.Normalize()

	where, args := buildJSONWhere(criteria)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", r.tableName(), where)
	var total int64
	if err := r.conn.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return Page[T]{}, fmt.Errorf("failed to count views: %w", err)
	}

	orderBy := "ORDER BY updated_at ASC"
	if s != nil && s.Field != "" {
		direction := "ASC"
		if s.Order == SortDesc {
			direction = "DESC"
		}
		orderBy = fmt.Sprintf("ORDER BY data->>'%s' %s", s.Field, direction)
	}

	query := fmt.Sprintf("SELECT data FROM %s %s %s LIMIT %d OFFSET %d",
		r.tableName(), where, orderBy, pagination.PerPage, (pagination.Page-1)*pagination.PerPage)

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return Page[T]{}, fmt.Errorf("failed to query views: %w", err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return Page[T]{}, fmt.Errorf("failed to scan view: %w", err)
		}
		view, err := r.codec.Decode(data)
		if err != nil {
			return Page[T]{}, fmt.Errorf("failed to decode view: %w", err)
		}
		items = append(items, view)
	}
	if err := rows.Err(); err != nil {
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
func (r *PostgresReadRepository[T]) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.tableName())

	tag, err := r.conn.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete view: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	return nil
}

// buildJSONWhere строит WHERE по равенству полей JSON-документа
func buildJSONWhere(criteria Criteria) (string, []interface{}) {
	if len(criteria) == 0 {
		return "", nil
	}

	var conditions []string
	var args []interface{}
	for field, value := range criteria {
		args = append(args, fmt.Sprintf("%v", value))
		conditions = append(conditions, fmt.Sprintf("data->>'%s' = $%d", field, len(args)))
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
