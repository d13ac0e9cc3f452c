package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"carfinder/internal/model"
)

// columnByField maps predicate fields onto cars table columns.
// Fields outside this map are rejected so they never reach the SQL text.
var columnByField = map[string]string{
	model.FieldModel:      "model",
	model.FieldPriceNum:   "price_num",
	model.FieldMileageNum: "mileage_num",
	model.FieldYear:       "model_year",
	model.FieldColor:      "color",
	model.FieldCity:       "city",
	model.FieldEngine:     "engine",
}

const carColumns = `id, model, generation, city, mileage, mileage_num, color, color_raw,
	engine, price, price_num, model_year, url, description`

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute) // Shorter lifetime to avoid stale connections
	db.SetConnMaxIdleTime(2 * time.Minute) // Close idle connections sooner

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks the database connection
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Search performs cosine similarity search restricted by pred
func (r *PostgresRepository) Search(ctx context.Context, pred *model.Predicate, vector []float32, limit int) ([]model.ScoredCar, error) {
	whereClauses, args, argIndex, err := buildWhere(pred, 2)
	if err != nil {
		return nil, err
	}
	whereClauses = append(whereClauses, "embedding IS NOT NULL")

	query := fmt.Sprintf(`
		SELECT %s, 1 - (embedding <=> $1) AS score
		FROM cars
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, carColumns, strings.Join(whereClauses, " AND "), argIndex)

	args = append([]interface{}{pgvector.NewVector(vector)}, args...)
	args = append(args, limit)

	var results []model.ScoredCar
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search cars: %w", err)
	}
	return results, nil
}

// Enumerate pages through cars matching pred in id order.
// The cursor is the last id of the previous page.
func (r *PostgresRepository) Enumerate(ctx context.Context, pred *model.Predicate, cursor string, batch int) ([]model.Car, string, error) {
	var after uint64
	if cursor != "" {
		parsed, err := strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			log.Printf("⚠️  Ignoring ill-formed page cursor %q: %v", cursor, err)
			return nil, "", nil
		}
		after = parsed
	}

	whereClauses, args, argIndex, err := buildWhere(pred, 1)
	if err != nil {
		return nil, "", err
	}
	whereClauses = append(whereClauses, fmt.Sprintf("id > $%d", argIndex))
	args = append(args, after, batch)

	query := fmt.Sprintf(`
		SELECT %s
		FROM cars
		WHERE %s
		ORDER BY id
		LIMIT $%d
	`, carColumns, strings.Join(whereClauses, " AND "), argIndex+1)

	var cars []model.Car
	if err := r.db.SelectContext(ctx, &cars, query, args...); err != nil {
		return nil, "", fmt.Errorf("failed to enumerate cars: %w", err)
	}

	next := ""
	if len(cars) == batch && batch > 0 {
		next = strconv.FormatUint(cars[len(cars)-1].ID, 10)
	}
	return cars, next, nil
}

// GetCar retrieves a single car by its ID
func (r *PostgresRepository) GetCar(ctx context.Context, id uint64) (*model.Car, error) {
	var car model.Car
	query := fmt.Sprintf(`SELECT %s FROM cars WHERE id = $1`, carColumns)
	err := r.db.GetContext(ctx, &car, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get car: %w", err)
	}
	return &car, nil
}

// EnsureIndex creates the vector extension, the cars table and the search log table
func (r *PostgresRepository) EnsureIndex(ctx context.Context, dims int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS cars (
			id          BIGINT PRIMARY KEY,
			model       TEXT NOT NULL DEFAULT '',
			generation  TEXT NOT NULL DEFAULT '',
			city        TEXT NOT NULL DEFAULT '',
			mileage     TEXT NOT NULL DEFAULT '',
			mileage_num DOUBLE PRECISION,
			color       TEXT NOT NULL DEFAULT '',
			color_raw   TEXT NOT NULL DEFAULT '',
			engine      TEXT NOT NULL DEFAULT '',
			price       TEXT NOT NULL DEFAULT '',
			price_num   DOUBLE PRECISION,
			model_year  INTEGER,
			url         TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			embedding   vector(%d),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dims),
		`CREATE INDEX IF NOT EXISTS cars_embedding_idx ON cars USING hnsw (embedding vector_cosine_ops)`,
		`CREATE INDEX IF NOT EXISTS cars_color_idx ON cars (color)`,
		`CREATE INDEX IF NOT EXISTS cars_city_idx ON cars (city)`,
		`CREATE INDEX IF NOT EXISTS cars_model_year_idx ON cars (model_year)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare cars schema: %w", err)
		}
	}
	return r.EnsureLogSchema(ctx)
}

// ResetIndex drops the cars table and recreates it
func (r *PostgresRepository) ResetIndex(ctx context.Context, dims int) error {
	if _, err := r.db.ExecContext(ctx, `DROP TABLE IF EXISTS cars`); err != nil {
		return fmt.Errorf("failed to drop cars table: %w", err)
	}
	log.Println("🗑️  Table 'cars' dropped")
	return r.EnsureIndex(ctx, dims)
}

// EnsureLogSchema creates the search log table
func (r *PostgresRepository) EnsureLogSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS search_logs (
		search_id        TEXT PRIMARY KEY,
		query            TEXT NOT NULL,
		filters          JSONB,
		strategy         TEXT NOT NULL DEFAULT '',
		outcome          TEXT NOT NULL DEFAULT '',
		result_count     INTEGER NOT NULL DEFAULT 0,
		returned_car_ids BIGINT[],
		took_ms          BIGINT NOT NULL DEFAULT 0,
		clicked_car_id   BIGINT,
		action           TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("failed to prepare search_logs schema: %w", err)
	}
	return nil
}

// UpsertCars inserts or replaces cars together with their embeddings
func (r *PostgresRepository) UpsertCars(ctx context.Context, cars []model.IndexedCar) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO cars (id, model, generation, city, mileage, mileage_num, color, color_raw,
			engine, price, price_num, model_year, url, description, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			model = EXCLUDED.model, generation = EXCLUDED.generation, city = EXCLUDED.city,
			mileage = EXCLUDED.mileage, mileage_num = EXCLUDED.mileage_num,
			color = EXCLUDED.color, color_raw = EXCLUDED.color_raw, engine = EXCLUDED.engine,
			price = EXCLUDED.price, price_num = EXCLUDED.price_num, model_year = EXCLUDED.model_year,
			url = EXCLUDED.url, description = EXCLUDED.description, embedding = EXCLUDED.embedding,
			updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, item := range cars {
		c := item.Car
		_, err := stmt.ExecContext(ctx,
			c.ID, c.Model, c.Generation, c.City, c.Mileage, c.MileageNum, c.Color, c.ColorRaw,
			c.Engine, c.Price, c.PriceNum, c.Year, c.URL, c.Description, pgvector.NewVector(item.Vector),
		)
		if err != nil {
			return fmt.Errorf("car %d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LogSearch logs a search query
func (r *PostgresRepository) LogSearch(ctx context.Context, entry *model.SearchLog) error {
	filters, err := json.Marshal(entry.Filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	carIDs := make([]int64, len(entry.CarIDs))
	for i, id := range entry.CarIDs {
		carIDs[i] = int64(id)
	}

	logQuery := `
		INSERT INTO search_logs (search_id, query, filters, strategy, outcome, result_count, returned_car_ids, took_ms)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, logQuery,
		entry.SearchID, entry.Query, string(filters), entry.Strategy, string(entry.Outcome),
		entry.ResultCount, pq.Array(carIDs), entry.TookMs,
	)
	if err != nil {
		return fmt.Errorf("failed to log search: %w", err)
	}
	return nil
}

// LogFeedback logs user feedback/action
func (r *PostgresRepository) LogFeedback(ctx context.Context, searchID string, carID uint64, action string) error {
	query := `
		UPDATE search_logs
		SET clicked_car_id = $2, action = $3
		WHERE search_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, searchID, carID, action)
	if err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	return nil
}

// buildWhere renders pred as SQL conditions with placeholders starting at argIndex.
// It returns the next free placeholder index.
func buildWhere(pred *model.Predicate, argIndex int) ([]string, []interface{}, int, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	if pred == nil {
		return whereClauses, args, argIndex, nil
	}

	for _, c := range pred.Must {
		column, ok := columnByField[c.Field]
		if !ok {
			return nil, nil, 0, fmt.Errorf("unsupported filter field %q", c.Field)
		}

		switch {
		case c.Range != nil:
			if c.Range.Gte != nil {
				whereClauses = append(whereClauses, fmt.Sprintf("%s >= $%d", column, argIndex))
				args = append(args, *c.Range.Gte)
				argIndex++
			}
			if c.Range.Lte != nil {
				whereClauses = append(whereClauses, fmt.Sprintf("%s <= $%d", column, argIndex))
				args = append(args, *c.Range.Lte)
				argIndex++
			}
		case c.Match != nil && c.Match.Integer != nil:
			whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", column, argIndex))
			args = append(args, *c.Match.Integer)
			argIndex++
		case c.Match != nil && c.Match.Keyword != nil:
			whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", column, argIndex))
			args = append(args, *c.Match.Keyword)
			argIndex++
		}
	}

	return whereClauses, args, argIndex, nil
}
