//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"utilityfn/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveEvaluation(ctx context.Context, record model.EvaluationRecord) error {
	if record.ID == "" {
		return errors.New("evaluation id is required")
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeEvaluation(record)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO evaluations (id, model, recorded_at, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			model = excluded.model,
			recorded_at = excluded.recorded_at,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, record.ID, record.Model, record.RecordedAt.UnixNano(), record.SchemaVersion, record.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetEvaluation(ctx context.Context, id string) (model.EvaluationRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.EvaluationRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM evaluations WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.EvaluationRecord{}, false, nil
		}
		return model.EvaluationRecord{}, false, err
	}

	record, err := DecodeEvaluation(payload)
	if err != nil {
		return model.EvaluationRecord{}, false, fmt.Errorf("decode evaluation %s: %w", id, err)
	}
	return record, true, nil
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, modelName string, limit int) ([]model.EvaluationRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, payload FROM evaluations
		WHERE ? = '' OR model = ?
		ORDER BY recorded_at DESC, rowid DESC
		LIMIT ?
	`, modelName, modelName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EvaluationRecord
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		record, err := DecodeEvaluation(payload)
		if err != nil {
			return nil, fmt.Errorf("decode evaluation %s: %w", id, err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteEvaluations(ctx context.Context, modelName string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM evaluations WHERE ? = '' OR model = ?`, modelName, modelName)
	return err
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS evaluations (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			recorded_at INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS evaluations_model_recorded
			ON evaluations (model, recorded_at);
	`)
	return err
}
