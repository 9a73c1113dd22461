package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

// Open открывает БД по DSN: Postgres через pgx, иначе SQLite (пустой DSN означает память).
func Open(dsn string) (*SQL, error) {
	dialect, err := DetectDialect(dsn)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch dialect {
	case DialectPostgres:
		db, err = sql.Open("pgx", strings.TrimSpace(dsn))
		if err != nil {
			return nil, err
		}
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	default:
		db, err = sql.Open("sqlite", sqlitePath(dsn))
		if err != nil {
			return nil, err
		}
		// одна коннекция: in-memory база живёт внутри соединения
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return New(db, dialect), nil
}

func sqlitePath(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return ":memory:"
	case strings.HasPrefix(strings.ToLower(dsn), "sqlite://"):
		return dsn[len("sqlite://"):]
	}
	return dsn
}

func (s *SQL) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
