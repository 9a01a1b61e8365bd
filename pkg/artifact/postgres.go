// pkg/artifact/postgres.go
package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/refinery-project/refinery/pkg/dataset"
)

// PostgresStore persists artifacts and transformation records into
// append-only tables. Inserts only; rows are never updated or deleted.
type PostgresStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresStore connects to Postgres and ensures the tracking tables exist
func NewPostgresStore(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	store := &PostgresStore{db: db, logger: logger}
	if err := store.setupTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup artifact tables: %w", err)
	}
	return store, nil
}

// setupTables ensures the artifact and transformation tracking tables exist
func (s *PostgresStore) setupTables(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	createSQL := `
		CREATE TABLE IF NOT EXISTS pipeline_artifacts (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			key TEXT NOT NULL,
			payload BYTEA NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (run_id, key)
		);
		CREATE TABLE IF NOT EXISTS pipeline_transformations (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			seq INT NOT NULL,
			operation TEXT NOT NULL,
			parameters JSONB,
			rows_affected INT NOT NULL,
			columns_affected TEXT[],
			recorded_at TIMESTAMP WITH TIME ZONE NOT NULL,
			UNIQUE (run_id, seq)
		)
	`
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return err
	}

	s.logger.Info("Ensured pipeline tracking tables exist")
	return nil
}

// Put inserts one artifact row. The unique constraint enforces the
// append-only contract at the database level.
func (s *PostgresStore) Put(ctx context.Context, runID, key string, payload []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_artifacts (run_id, key, payload) VALUES ($1, $2, $3)`,
		runID, key, payload)
	if err != nil {
		return fmt.Errorf("failed to insert artifact %q: %w", key, err)
	}

	s.logger.Debug("Wrote artifact",
		zap.String("runID", runID),
		zap.String("key", key),
		zap.Int("bytes", len(payload)))
	return nil
}

// AppendLog batch-inserts transformation records inside a transaction
func (s *PostgresStore) AppendLog(ctx context.Context, runID string, records []dataset.TransformationRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.Error(err))
			}
		}
	}()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO pipeline_transformations
		(run_id, seq, operation, parameters, rows_affected, columns_affected, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		params, jerr := encodeParams(rec.Parameters)
		if jerr != nil {
			err = jerr
			return err
		}
		_, err = stmt.ExecContext(ctx,
			runID,
			rec.Seq,
			rec.Operation,
			params,
			rec.RowsAffected,
			encodeTextArray(rec.ColumnsAffected),
			rec.RecordedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transformation record: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Recorded transformation log",
		zap.String("runID", runID),
		zap.Int("count", len(records)))
	return nil
}

// Close releases the database connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
