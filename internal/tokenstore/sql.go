package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// SQL dialects supported by SQLBackend.
const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
)

var ErrUnknownDialect = errors.New("unknown sql dialect")

// NewDB opens a connection pool for dialect. A failed ping is logged but
// not fatal; the backend reports errors per call until the database is up.
func NewDB(dialect, dsn string) (*sql.DB, error) {
	driver, err := driverName(dialect)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		slog.Warn("token store database ping failed", "dialect", dialect, "error", err)
	}

	return db, nil
}

func driverName(dialect string) (string, error) {
	switch dialect {
	case DialectMySQL:
		return "mysql", nil
	case DialectPostgres:
		return "pgx", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
}

// SQLBackend stores one row per (scope, name) in portal_session_values.
// Reads extend a scope's expiry once less than half of ttl remains.
type SQLBackend struct {
	db      *sql.DB
	dialect string
	ttl     time.Duration
	now     func() time.Time
}

func NewSQLBackend(db *sql.DB, dialect string, ttl time.Duration) (*SQLBackend, error) {
	if _, err := driverName(dialect); err != nil {
		return nil, err
	}
	return &SQLBackend{db: db, dialect: dialect, ttl: ttl, now: time.Now}, nil
}

// EnsureSchema creates the backing table if it does not exist.
func (b *SQLBackend) EnsureSchema(ctx context.Context) error {
	ts := "DATETIME(6)"
	if b.dialect == DialectPostgres {
		ts = "TIMESTAMPTZ"
	}
	query := `CREATE TABLE IF NOT EXISTS portal_session_values (
	scope VARCHAR(64) NOT NULL,
	name VARCHAR(32) NOT NULL,
	value TEXT NOT NULL,
	expires_at ` + ts + ` NULL,
	PRIMARY KEY (scope, name)
)`
	_, err := b.db.ExecContext(ctx, query)
	return err
}

func (b *SQLBackend) Get(ctx context.Context, scope, key string) (string, bool, error) {
	query := b.rebind(`SELECT value FROM portal_session_values
WHERE scope = ? AND name = ? AND (expires_at IS NULL OR expires_at > ?)`)

	var v string
	err := b.db.QueryRowContext(ctx, query, scope, key, b.now().UTC()).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if b.ttl > 0 {
		now := b.now()
		refresh := b.rebind(`UPDATE portal_session_values SET expires_at = ?
WHERE scope = ? AND expires_at IS NOT NULL AND expires_at < ?`)
		if _, err := b.db.ExecContext(ctx, refresh, now.Add(b.ttl).UTC(), scope, now.Add(b.ttl/2).UTC()); err != nil {
			return "", false, fmt.Errorf("refreshing expiry: %w", err)
		}
	}
	return v, true, nil
}

func (b *SQLBackend) Set(ctx context.Context, scope string, values map[string]string) error {
	var query string
	switch b.dialect {
	case DialectPostgres:
		query = `INSERT INTO portal_session_values (scope, name, value, expires_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (scope, name) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`
	default:
		query = `INSERT INTO portal_session_values (scope, name, value, expires_at) VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE value = VALUES(value), expires_at = VALUES(expires_at)`
	}

	var expiresAt sql.NullTime
	if b.ttl > 0 {
		expiresAt = sql.NullTime{Time: b.now().Add(b.ttl).UTC(), Valid: true}
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, name := range sortedKeys(values) {
		if _, err := tx.ExecContext(ctx, query, scope, name, values[name], expiresAt); err != nil {
			return fmt.Errorf("upserting %s: %w", name, err)
		}
	}

	return tx.Commit()
}

func (b *SQLBackend) Delete(ctx context.Context, scope string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	args := make([]any, 0, len(keys)+1)
	args = append(args, scope)
	for _, k := range keys {
		args = append(args, k)
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	query := b.rebind(`DELETE FROM portal_session_values WHERE scope = ? AND name IN (` + marks + `)`)

	_, err := b.db.ExecContext(ctx, query, args...)
	return err
}

// Prune deletes expired rows.
func (b *SQLBackend) Prune(ctx context.Context) (int64, error) {
	query := b.rebind(`DELETE FROM portal_session_values WHERE expires_at IS NOT NULL AND expires_at <= ?`)

	res, err := b.db.ExecContext(ctx, query, b.now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// rebind rewrites ? placeholders to $n for postgres.
func (b *SQLBackend) rebind(query string) string {
	if b.dialect != DialectPostgres {
		return query
	}

	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
