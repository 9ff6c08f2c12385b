package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/models"
)

// PostgresStore keeps the totals tables in Postgres for deployments where a
// local file does not survive restarts. Same checkpoint semantics as the
// file store: full load at startup, wholesale overwrite per save.
type PostgresStore struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewPostgresStore(dsn string, log zerolog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db, log: log.With().Str("component", "pgstore").Logger()}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (p *PostgresStore) createTables() error {
	if _, err := p.db.Exec(`
	CREATE TABLE IF NOT EXISTS study_totals (
		user_id TEXT PRIMARY KEY,
		total_ms BIGINT NOT NULL DEFAULT 0
	)`); err != nil {
		return fmt.Errorf("failed to create study_totals: %w", err)
	}

	if _, err := p.db.Exec(`
	CREATE TABLE IF NOT EXISTS study_subject_totals (
		subject TEXT NOT NULL,
		user_id TEXT NOT NULL,
		total_ms BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (subject, user_id)
	)`); err != nil {
		return fmt.Errorf("failed to create study_subject_totals: %w", err)
	}
	return nil
}

func (p *PostgresStore) Load() (models.Snapshot, error) {
	snapshot := models.NewSnapshot()

	rows, err := p.db.Query(`SELECT user_id, total_ms FROM study_totals`)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to load global totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID string
		var totalMS int64
		if err := rows.Scan(&userID, &totalMS); err != nil {
			return models.Snapshot{}, fmt.Errorf("failed to scan global row: %w", err)
		}
		snapshot.Global[userID] = totalMS
	}
	if err := rows.Err(); err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to read global totals: %w", err)
	}

	subjectRows, err := p.db.Query(`SELECT subject, user_id, total_ms FROM study_subject_totals`)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to load subject totals: %w", err)
	}
	defer subjectRows.Close()
	for subjectRows.Next() {
		var subjectKey, userID string
		var totalMS int64
		if err := subjectRows.Scan(&subjectKey, &userID, &totalMS); err != nil {
			return models.Snapshot{}, fmt.Errorf("failed to scan subject row: %w", err)
		}
		if snapshot.Subjects[subjectKey] == nil {
			snapshot.Subjects[subjectKey] = make(map[string]int64)
		}
		snapshot.Subjects[subjectKey][userID] = totalMS
	}
	if err := subjectRows.Err(); err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to read subject totals: %w", err)
	}

	return snapshot, nil
}

// Save upserts every row with its absolute value. Totals never shrink, so
// rows absent from the snapshot cannot exist in the database either.
func (p *PostgresStore) Save(snapshot models.Snapshot) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	for userID, totalMS := range snapshot.Global {
		if _, err := tx.Exec(`
		INSERT INTO study_totals (user_id, total_ms)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET total_ms = EXCLUDED.total_ms`,
			userID, totalMS); err != nil {
			return fmt.Errorf("failed to upsert global total: %w", err)
		}
	}

	for subjectKey, users := range snapshot.Subjects {
		for userID, totalMS := range users {
			if _, err := tx.Exec(`
			INSERT INTO study_subject_totals (subject, user_id, total_ms)
			VALUES ($1, $2, $3)
			ON CONFLICT (subject, user_id) DO UPDATE SET total_ms = EXCLUDED.total_ms`,
				subjectKey, userID, totalMS); err != nil {
				return fmt.Errorf("failed to upsert subject total: %w", err)
			}
		}
	}

	return tx.Commit()
}

func (p *PostgresStore) Close() error { return p.db.Close() }
