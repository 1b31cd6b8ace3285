package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prodige/prodige/internal/config"
	log "github.com/sirupsen/logrus"
)

const (
	connectAttempts = 5
	connectBaseWait = 1 * time.Second
	connectTimeout  = 5 * time.Second
)

// Connect opens a Postgres database and verifies it is reachable, retrying
// with a doubling delay between attempts. When the retry budget is exhausted
// it returns an error and the caller falls back to file storage for the
// lifetime of the process.
func Connect(cfg config.Database) (*sql.DB, error) {
	// Escape single quotes in the password for the keyword/value DSN form.
	escapedPassword := strings.ReplaceAll(cfg.Pass, "'", "\\'")

	dsn := fmt.Sprintf("host=%s port=%d user=%s password='%s' dbname=%s sslmode=disable options='-c search_path=%s'",
		cfg.Host, cfg.Port, cfg.User, escapedPassword, cfg.Name, cfg.Schema)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	var lastErr error
	wait := connectBaseWait
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		lastErr = db.PingContext(ctx)
		cancel()
		if lastErr == nil {
			log.Infof("Database connection established (attempt %d/%d)", attempt, connectAttempts)
			return db, nil
		}
		log.Warnf("Database connection attempt %d/%d failed: %v", attempt, connectAttempts, lastErr)
		if attempt < connectAttempts {
			time.Sleep(wait)
			wait *= 2
		}
	}

	_ = db.Close()
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", connectAttempts, lastErr)
}

// Migrate applies all pending migrations using golang-migrate on the already
// open connection.
func Migrate(db *sql.DB) error {
	migrationsPath, err := findMigrationsPath()
	if err != nil {
		return fmt.Errorf("failed to locate migrations directory: %w", err)
	}

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "pgx", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// findMigrationsPath searches upward from the working directory for a
// "migrations" directory, so migrations resolve in tests as well where the
// working directory differs from the project root.
func findMigrationsPath() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, "migrations")
		info, err := os.Stat(candidate)
		if err == nil && info.IsDir() {
			return filepath.Abs(candidate)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("migrations directory not found")
}
