package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"carboncheck/backend/services/carbon-service/internal/models"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Dialect captures the differences between the SQL engines the store runs on.
type Dialect struct {
	Name      string
	schema    []string
	timeValue func(time.Time) any
}

// Postgres stores created_time as TIMESTAMPTZ.
var Postgres = Dialect{
	Name: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS %[1]s (
			partition_key TEXT NOT NULL,
			row_key       TEXT NOT NULL,
			created_time  TIMESTAMPTZ NOT NULL,
			intensity     INTEGER NOT NULL CHECK (intensity >= 0),
			can_charge    BOOLEAN NOT NULL,
			PRIMARY KEY (partition_key, row_key)
		)`,
		`CREATE INDEX IF NOT EXISTS %[1]s_created_idx ON %[1]s (partition_key, created_time DESC)`,
	},
	timeValue: func(t time.Time) any { return t.UTC() },
}

// SQLite has no native timestamp type; created_time is kept as fixed-width UTC text so that
// ORDER BY on the column stays chronological.
var SQLite = Dialect{
	Name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS %[1]s (
			partition_key TEXT NOT NULL,
			row_key       TEXT NOT NULL,
			created_time  TEXT NOT NULL,
			intensity     INTEGER NOT NULL CHECK (intensity >= 0),
			can_charge    INTEGER NOT NULL,
			PRIMARY KEY (partition_key, row_key)
		)`,
		`CREATE INDEX IF NOT EXISTS %[1]s_created_idx ON %[1]s (partition_key, created_time DESC)`,
	},
	timeValue: func(t time.Time) any { return t.UTC().Format(models.RowKeyLayout) },
}

// SQLStore persists readings in a relational table.
type SQLStore struct {
	db      *sql.DB
	table   string
	dialect Dialect
}

// NewSQLStore returns a store over table. The table name is validated because it is
// interpolated into statements.
func NewSQLStore(db *sql.DB, table string, dialect Dialect) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("repository: nil db")
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("repository: invalid table name %q", table)
	}
	return &SQLStore{db: db, table: table, dialect: dialect}, nil
}

// EnsureSchema creates the readings table and its index when missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(stmt, s.table)); err != nil {
			return fmt.Errorf("ensure %s schema: %w", s.dialect.Name, err)
		}
	}
	return nil
}

// Insert stores new reading.
func (s *SQLStore) Insert(ctx context.Context, reading *models.Reading) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (partition_key, row_key, created_time, intensity, can_charge)
		VALUES ($1, $2, $3, $4, $5)
	`, s.table)
	_, err := s.db.ExecContext(ctx, query,
		reading.PartitionKey,
		reading.RowKey,
		s.dialect.timeValue(reading.CreatedTime),
		reading.Intensity,
		reading.CanCharge,
	)
	return err
}

// Query returns newest readings first.
func (s *SQLStore) Query(ctx context.Context, partitionKey string, limit int) ([]models.Reading, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("query limit must be positive, got %d", limit)
	}
	query := fmt.Sprintf(`
		SELECT partition_key, row_key, created_time, intensity, can_charge
		FROM %s
		WHERE partition_key = $1
		ORDER BY created_time DESC, row_key DESC
		LIMIT $2
	`, s.table)
	rows, err := s.db.QueryContext(ctx, query, partitionKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(
			&r.PartitionKey,
			&r.RowKey,
			timestamp{dest: &r.CreatedTime},
			&r.Intensity,
			&r.CanCharge,
		); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return readings, nil
}

// Get returns one reading.
func (s *SQLStore) Get(ctx context.Context, partitionKey, rowKey string) (*models.Reading, error) {
	query := fmt.Sprintf(`
		SELECT partition_key, row_key, created_time, intensity, can_charge
		FROM %s
		WHERE partition_key = $1 AND row_key = $2
	`, s.table)
	var r models.Reading
	err := s.db.QueryRowContext(ctx, query, partitionKey, rowKey).Scan(
		&r.PartitionKey,
		&r.RowKey,
		timestamp{dest: &r.CreatedTime},
		&r.Intensity,
		&r.CanCharge,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Delete removes one reading.
func (s *SQLStore) Delete(ctx context.Context, partitionKey, rowKey string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE partition_key = $1 AND row_key = $2`, s.table)
	_, err := s.db.ExecContext(ctx, query, partitionKey, rowKey)
	return err
}

// timestamp scans either a driver time or the fixed-width text form.
type timestamp struct {
	dest *time.Time
}

func (t timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t.dest = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported created_time type %T", src)
	}
}

func (t timestamp) parse(raw string) error {
	ts, err := time.Parse(models.RowKeyLayout, raw)
	if err != nil {
		ts, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return fmt.Errorf("parse created_time %q: %w", raw, err)
		}
	}
	*t.dest = ts.UTC()
	return nil
}
