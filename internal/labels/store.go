package labels

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pkortright/flashdeck/internal/errors"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Store is the persistent label store, keyed by card id. Mutations are
// written through immediately; a read after Set observes the new value.
type Store struct {
	db *sql.DB
}

// Init opens (creating if needed) the label database at baseDir/labels.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.flashdeck.
func Init(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Pragmas in the connection string apply to all pooled connections
	dbPath := filepath.Join(baseDir, "labels.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open label database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return &Store{db: db}, nil
}

// ConfigurePool applies connection pool limits. Only sets limits for
// non-zero values; if maxOpen is 1, all access is serialized.
func (s *Store) ConfigurePool(maxOpen, maxIdle int) {
	if maxOpen > 0 {
		s.db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		s.db.SetMaxIdleConns(maxIdle)
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the label for id. The second return is false when no label
// exists (no overrides, grasped=false).
func (s *Store) Get(ctx context.Context, id string) (Label, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT difficulty, usefulness, grasped, updated_at FROM labels WHERE card_id = ?`, id)

	var (
		difficulty sql.NullString
		usefulness sql.NullString
		grasped    int
		updatedAt  int64
	)
	if err := row.Scan(&difficulty, &usefulness, &grasped, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Label{}, false, nil
		}
		return Label{}, false, errors.NewPersistence(err)
	}

	return Label{
		Difficulty: fromNullString(difficulty),
		Usefulness: fromNullString(usefulness),
		Grasped:    grasped != 0,
		UpdatedAt:  updatedAt,
	}, true, nil
}

// Set merges the patch into the label for id (creating one if absent) and
// persists it. Returns the merged label. Last write wins on concurrent
// mutation of the same id; other entries are never affected.
func (s *Store) Set(ctx context.Context, id string, p Patch) (Label, error) {
	if id == "" {
		return Label{}, errors.NewInvalidRequest("card id is required")
	}

	current, _, err := s.Get(ctx, id)
	if err != nil {
		return Label{}, err
	}

	merged := current.apply(p)
	merged.UpdatedAt = time.Now().Unix()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO labels (card_id, difficulty, usefulness, grasped, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(card_id) DO UPDATE SET
			difficulty = excluded.difficulty,
			usefulness = excluded.usefulness,
			grasped    = excluded.grasped,
			updated_at = excluded.updated_at`,
		id, toNullString(merged.Difficulty), toNullString(merged.Usefulness),
		boolToInt(merged.Grasped), merged.UpdatedAt,
	)
	if err != nil {
		return Label{}, errors.NewPersistence(err)
	}

	return merged, nil
}

// LoadAll returns the entire label mapping.
func (s *Store) LoadAll(ctx context.Context) (map[string]Label, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT card_id, difficulty, usefulness, grasped, updated_at FROM labels`)
	if err != nil {
		return nil, errors.NewPersistence(err)
	}
	defer rows.Close()

	result := make(map[string]Label)
	for rows.Next() {
		var (
			id         string
			difficulty sql.NullString
			usefulness sql.NullString
			grasped    int
			updatedAt  int64
		)
		if err := rows.Scan(&id, &difficulty, &usefulness, &grasped, &updatedAt); err != nil {
			return nil, errors.NewPersistence(err)
		}
		result[id] = Label{
			Difficulty: fromNullString(difficulty),
			Usefulness: fromNullString(usefulness),
			Grasped:    grasped != 0,
			UpdatedAt:  updatedAt,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistence(err)
	}

	return result, nil
}

// ReplaceAll atomically replaces the whole mapping. Used by combined import:
// either the entire new mapping lands or the previous one is retained.
func (s *Store) ReplaceAll(ctx context.Context, m map[string]Label) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewPersistence(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM labels`); err != nil {
		return errors.NewPersistence(err)
	}

	now := time.Now().Unix()
	for id, lbl := range m {
		if id == "" || lbl.IsZero() {
			continue
		}
		updatedAt := lbl.UpdatedAt
		if updatedAt == 0 {
			updatedAt = now
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO labels (card_id, difficulty, usefulness, grasped, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			id, toNullString(lbl.Difficulty), toNullString(lbl.Usefulness),
			boolToInt(lbl.Grasped), updatedAt,
		)
		if err != nil {
			return errors.NewPersistence(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewPersistence(err)
	}
	return nil
}

// Clear removes every label.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM labels`); err != nil {
		return errors.NewPersistence(err)
	}
	return nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := getUserVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS labels (
		  card_id    TEXT PRIMARY KEY,
		  difficulty TEXT,
		  usefulness TEXT,
		  grasped    INTEGER NOT NULL DEFAULT 0,
		  updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_labels_grasped
		ON labels(grasped)
		WHERE grasped = 1;
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

func getUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
