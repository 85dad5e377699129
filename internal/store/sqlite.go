// Package store implements the generic key-value record store backing the
// location registry, the food preference resolver, and the plain preference
// service. Every entity kind lives in one flat (owner, key) table,
// distinguished by key prefix and the record_type discriminant column.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the records table.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "perctx.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is still usable.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

const recordColumns = "id, owner, key, payload, location_tag, record_type, created_at, updated_at"

// Put inserts a new record. Returns ErrDuplicateKey if a record already
// exists at (owner, key); the schema-level UNIQUE constraint is the backstop
// against concurrent duplicate creation.
func (s *Store) Put(owner, key string, payload []byte, hints Hints) (Record, error) {
	now := time.Now().UTC()
	rec := Record{
		ID:          uuid.New().String(),
		Owner:       owner,
		Key:         key,
		Payload:     payload,
		LocationTag: hints.LocationTag,
		RecordType:  hints.RecordType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.Exec(`
		INSERT INTO records (id, owner, key, payload, location_tag, record_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Owner, rec.Key, string(rec.Payload), rec.LocationTag, rec.RecordType,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Record{}, ErrDuplicateKey
		}
		return Record{}, err
	}
	return rec, nil
}

// Get returns the record at (owner, key), or ErrNotFound. Callers decide
// whether absence means "not found" or "defaults apply".
func (s *Store) Get(owner, key string) (Record, error) {
	row := s.db.QueryRow(`SELECT `+recordColumns+` FROM records WHERE owner = ? AND key = ?`, owner, key)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// Upsert creates the record at (owner, key) or replaces its payload wholesale.
// Preference-set writes are always whole-set replacements, never deltas.
func (s *Store) Upsert(owner, key string, payload []byte, hints Hints) (Record, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO records (id, owner, key, payload, location_tag, record_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, key) DO UPDATE SET
			payload = excluded.payload,
			location_tag = excluded.location_tag,
			record_type = excluded.record_type,
			updated_at = excluded.updated_at`,
		uuid.New().String(), owner, key, string(payload), hints.LocationTag, hints.RecordType,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return Record{}, err
	}
	return s.Get(owner, key)
}

// Delete removes the record at (owner, key). Reports whether a record existed.
func (s *Store) Delete(owner, key string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM records WHERE owner = ? AND key = ?`, owner, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// QueryByOwnerAndType returns all records for owner with the given record_type,
// in key order.
func (s *Store) QueryByOwnerAndType(owner, recordType string) ([]Record, error) {
	rows, err := s.db.Query(`SELECT `+recordColumns+` FROM records WHERE owner = ? AND record_type = ? ORDER BY key ASC`,
		owner, recordType)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// QueryByOwnerAndLocationTag returns all records for owner carrying the given
// location_tag hint, in key order.
func (s *Store) QueryByOwnerAndLocationTag(owner, locationTag string) ([]Record, error) {
	rows, err := s.db.Query(`SELECT `+recordColumns+` FROM records WHERE owner = ? AND location_tag = ? ORDER BY key ASC`,
		owner, locationTag)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// QueryByOwnerAndKeyPrefix returns all records for owner whose key starts with
// prefix, in key order. Used by the orphan sweeper to scan override sets.
func (s *Store) QueryByOwnerAndKeyPrefix(owner, prefix string) ([]Record, error) {
	rows, err := s.db.Query(`SELECT `+recordColumns+` FROM records WHERE owner = ? AND key LIKE ? ESCAPE '\' ORDER BY key ASC`,
		owner, escapeLike(prefix)+"%")
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// Owners returns the distinct owners present in the store.
func (s *Store) Owners() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT owner FROM records ORDER BY owner ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var payload, createdAt, updatedAt string
	if err := row.Scan(&rec.ID, &rec.Owner, &rec.Key, &payload, &rec.LocationTag, &rec.RecordType, &createdAt, &updatedAt); err != nil {
		return Record{}, err
	}
	rec.Payload = []byte(payload)

	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Record{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return Record{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var results []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func escapeLike(s string) string {
	// Keys contain no %/_ in practice, but dots are literal in LIKE so only
	// the wildcard characters need care.
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
