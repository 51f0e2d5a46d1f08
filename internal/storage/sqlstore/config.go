// Package sqlstore is the concrete SQL-backed implementation of
// internal/answerstore.Store and internal/dependentstore.Store (spec §4.C,
// §4.D), backed by a dual embedded/server Dolt connection. It speaks plain
// database/sql, so the same code path serves both connection modes:
//
//   - Embedded: github.com/dolthub/driver, no server process (CGO).
//   - Server: github.com/go-sql-driver/mysql against a running
//     `dolt sql-server`, for multi-process survey deployments.
package sqlstore

import "time"

// Config selects and configures the Dolt connection, trimmed to what this
// engine needs: no version-control remotes, no watchdog, since the survey
// engine treats Dolt purely as a transactional SQL store.
type Config struct {
	// Path is the embedded database directory. Ignored when ServerMode.
	Path string

	// Database is the schema/database name to USE. Defaults to "surveyflow".
	Database string

	// ServerMode selects the go-sql-driver/mysql path over the embedded
	// dolthub/driver path.
	ServerMode bool
	ServerHost string
	ServerPort int
	ServerUser string
	ServerPassword string
	ServerTLS      bool

	// RetryMaxElapsed bounds how long withRetry keeps retrying a transient
	// server-mode error before giving up. Zero uses the default below.
	RetryMaxElapsed time.Duration
}

const defaultRetryMaxElapsed = 30 * time.Second

func (c *Config) database() string {
	if c.Database == "" {
		return "surveyflow"
	}
	return c.Database
}

func (c *Config) retryMaxElapsed() time.Duration {
	if c.RetryMaxElapsed <= 0 {
		return defaultRetryMaxElapsed
	}
	return c.RetryMaxElapsed
}
