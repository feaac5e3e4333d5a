package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// sqlitePragmas are applied to every connection opened on a file database.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
}

type sqliteStorage struct {
	handles
	db *sql.DB
}

// NewSQLite opens the database file in WAL mode, creating its directory.
// The special path ":memory:" opens a private in-memory database.
func NewSQLite(cfg SQLiteConfig) (Storage, error) {
	dsn, err := sqliteDSN(cfg.Path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers and keeps :memory: alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &sqliteStorage{db: db}, nil
}

func sqliteDSN(path string) (string, error) {
	switch path {
	case memoryPath:
		return memoryPath, nil
	case "":
		path = defaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create sqlite directory: %w", err)
	}
	return "file:" + path + "?_pragma=" + strings.Join(sqlitePragmas, "&_pragma="), nil
}

func (s *sqliteStorage) Type() string      { return TypeSQLite }
func (s *sqliteStorage) SQLiteDB() *sql.DB { return s.db }
func (s *sqliteStorage) Close() error      { return s.db.Close() }
