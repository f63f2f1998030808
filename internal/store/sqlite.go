/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

//go:embed sql/*.sql
var migrations embed.FS

// SQLite stores players in a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// any pending migrations.
func OpenSQLite(path string, log zerolog.Logger) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()

		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	if err := migrate(db, log); err != nil {
		db.Close()

		return nil, err
	}

	return &SQLite{db: db}, nil
}

func migrate(db *sql.DB, log zerolog.Logger) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(migrations, "sql/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		body, err := migrations.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(body)); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}

		log.Info().Str("migration", f).Msg("applied")
	}

	return nil
}

func (s *SQLite) BestStreak(ctx context.Context, player string) (int, error) {
	var best int

	err := s.db.QueryRowContext(ctx, `SELECT best_streak FROM players WHERE id=?`, player).Scan(&best)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}

	return best, err
}

func (s *SQLite) RecordStreak(ctx context.Context, player string, streak int) (int, error) {
	var best int

	err := s.db.QueryRowContext(ctx, `
        INSERT INTO players (id, best_streak) VALUES (?, ?)
        ON CONFLICT(id) DO UPDATE SET
            best_streak = MAX(best_streak, excluded.best_streak),
            updated_at  = CURRENT_TIMESTAMP
        RETURNING best_streak`,
		player, max(streak, 0),
	).Scan(&best)
	if err != nil {
		return 0, fmt.Errorf("record streak: %w", err)
	}

	return best, nil
}

func (s *SQLite) Settings(ctx context.Context, player string) ([]byte, error) {
	var blob sql.NullString

	err := s.db.QueryRowContext(ctx, `SELECT settings FROM players WHERE id=?`, player).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !blob.Valid) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return []byte(blob.String), nil
}

func (s *SQLite) SaveSettings(ctx context.Context, player string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO players (id, settings) VALUES (?, ?)
        ON CONFLICT(id) DO UPDATE SET
            settings   = excluded.settings,
            updated_at = CURRENT_TIMESTAMP`,
		player, string(blob),
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
