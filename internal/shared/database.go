package shared

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavor of a database/sql driver.
type Dialect string

const (
	DialectSQLite3  Dialect = "sqlite3"  // github.com/mattn/go-sqlite3
	DialectSQLite   Dialect = "sqlite"   // modernc.org/sqlite
	DialectPostgres Dialect = "postgres" // github.com/lib/pq
)

// ParseDialect maps a configured driver name to a [Dialect].
func ParseDialect(driver string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(driver)); d {
	case DialectSQLite3, DialectSQLite, DialectPostgres:
		return d, nil
	case "":
		return DialectSQLite3, nil
	default:
		return "", fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, driver)
	}
}

// Rebind rewrites '?' placeholders into the dialect's bind syntax.
//
// Queries are written once with '?' and rebound to $1..$n for postgres.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NewDatabase opens a connection to a SQLite database at the specified path.
// The path can be ":memory:" for an in-memory database.
// Returns an open database connection or an error if connection fails.
func NewDatabase(path string) (*sql.DB, error) {
	return OpenDatabase(DialectSQLite3, path)
}

// OpenDatabase opens and pings a database for the given dialect and DSN.
func OpenDatabase(d Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// A single connection keeps every statement on the same in-memory database.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
// Recommended for production use to limit connections and improve performance.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
}
