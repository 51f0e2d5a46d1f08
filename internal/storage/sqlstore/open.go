package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	// Embedded Dolt driver, registers "dolt" with database/sql. CGO-only.
	_ "github.com/dolthub/driver"
	// Server-mode MySQL-wire driver, registers "mysql".
	_ "github.com/go-sql-driver/mysql"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/surveyflow/engine/storage/sqlstore")

// Store is the concrete storage backend: one *sql.DB plus the config it
// was opened with, implementing both answerstore.Store and
// dependentstore.Store against a single schema.
type Store struct {
	db     *sql.DB
	cfg    Config
}

// Open connects to Dolt in either embedded or server mode depending on
// cfg.ServerMode, and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn, driverName, err := dsnFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: %w", err)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ensure schema: %w", err)
	}
	return s, nil
}

func dsnFor(cfg Config) (dsn, driverName string, err error) {
	if cfg.ServerMode {
		user := cfg.ServerUser
		if user == "" {
			user = "root"
		}
		host := cfg.ServerHost
		if host == "" {
			host = "127.0.0.1"
		}
		port := cfg.ServerPort
		if port == 0 {
			port = 3307
		}
		auth := user
		if cfg.ServerPassword != "" {
			auth = fmt.Sprintf("%s:%s", user, cfg.ServerPassword)
		}
		tlsParam := ""
		if cfg.ServerTLS {
			tlsParam = "&tls=true"
		}
		return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true%s", auth, host, port, cfg.database(), tlsParam), "mysql", nil
	}
	if cfg.Path == "" {
		return "", "", fmt.Errorf("embedded mode requires Path")
	}
	return fmt.Sprintf("file://%s?commitname=surveyflow&commitemail=surveyflow@local&database=%s", cfg.Path, cfg.database()), "dolt", nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
