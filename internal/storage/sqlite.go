// Package storage persists interaction graph snapshots in SQLite so the
// service restarts with its last known state without re-reading source files.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/kusuri/internal/models"
)

// SQLiteStore holds interaction records keyed by their unordered normalized
// drug pair, so (A, B) and (B, A) occupy the same row.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (creating if needed) the snapshot database.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		drug1 TEXT NOT NULL,
		drug2 TEXT NOT NULL,
		condition TEXT NOT NULL,
		pair_key TEXT NOT NULL UNIQUE,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_interactions_drug1 ON interactions(drug1);
	CREATE INDEX IF NOT EXISTS idx_interactions_drug2 ON interactions(drug2);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// pairKey builds the order-independent row key for a drug pair.
func pairKey(drug1, drug2 string) string {
	a := models.NormalizeName(drug1)
	b := models.NormalizeName(drug2)
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// Upsert writes one interaction, replacing any existing row for the same
// unordered pair.
func (s *SQLiteStore) Upsert(rec models.InteractionRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO interactions (drug1, drug2, condition, pair_key)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(pair_key) DO UPDATE SET
			drug1 = excluded.drug1,
			drug2 = excluded.drug2,
			condition = excluded.condition,
			updated_at = CURRENT_TIMESTAMP`,
		rec.Drug1, rec.Drug2, rec.Condition, pairKey(rec.Drug1, rec.Drug2))
	if err != nil {
		return fmt.Errorf("failed to upsert interaction: %w", err)
	}
	return nil
}

// ReplaceAll swaps the stored snapshot for the given record set in one
// transaction.
func (s *SQLiteStore) ReplaceAll(records []models.InteractionRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM interactions"); err != nil {
		return fmt.Errorf("failed to clear interactions: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO interactions (drug1, drug2, condition, pair_key)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(pair_key) DO UPDATE SET
			drug1 = excluded.drug1,
			drug2 = excluded.drug2,
			condition = excluded.condition,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.Drug1, rec.Drug2, rec.Condition, pairKey(rec.Drug1, rec.Drug2)); err != nil {
			return fmt.Errorf("failed to insert interaction %s/%s: %w", rec.Drug1, rec.Drug2, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("interaction snapshot replaced", zap.Int("records", len(records)))
	}
	return nil
}

// LoadAll returns every stored interaction in insertion order.
func (s *SQLiteStore) LoadAll() ([]models.InteractionRecord, error) {
	rows, err := s.db.Query("SELECT drug1, drug2, condition FROM interactions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var records []models.InteractionRecord
	for rows.Next() {
		var rec models.InteractionRecord
		if err := rows.Scan(&rec.Drug1, &rec.Drug2, &rec.Condition); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}
	return records, nil
}

// Count returns the number of stored interactions.
func (s *SQLiteStore) Count() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM interactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
