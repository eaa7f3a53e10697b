// Package duckdb provides rsid lookups backed by a DuckDB table keyed by
// chrom, pos, ref and alt.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// Entry is one variant with its rsid.
type Entry struct {
	Chrom string
	Pos   int64
	Ref   string
	Alt   string
	Rsid  string
}

type entryKey struct {
	chrom, ref, alt string
	pos             int64
}

// Store manages a DuckDB connection holding the rsids table.
type Store struct {
	db   *sql.DB
	path string

	mu       sync.Mutex
	lookupPS *sql.Stmt // prepared on first Lookup
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.lookupPS != nil {
		s.lookupPS.Close()
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS rsids (
		chrom VARCHAR,
		pos BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		rsid VARCHAR
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_rsids_lookup ON rsids (chrom, pos, ref, alt)`)
	return err
}

// Loaded reports whether the rsids table has data.
func (s *Store) Loaded() bool {
	n, err := s.Count()
	return err == nil && n > 0
}

// Count returns the number of rows in the rsids table.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM rsids").Scan(&n); err != nil {
		return 0, fmt.Errorf("count rsids: %w", err)
	}
	return n, nil
}

// Load replaces the table contents with a tab-delimited file (plain or
// gzipped) with one header line and the columns chrom, pos, ref, alt and
// rsid. Chromosomes are normalized the way the line parser does it, and
// numeric rsids gain the "rs" prefix.
func (s *Store) Load(tsvPath string) error {
	if _, err := s.db.Exec(`DELETE FROM rsids`); err != nil {
		return fmt.Errorf("clear rsids: %w", err)
	}
	quoted := strings.ReplaceAll(tsvPath, "'", "''")
	query := fmt.Sprintf(`INSERT INTO rsids
		SELECT upper(regexp_replace(chrom, '^chr', '', 'i')), pos, upper(ref), upper(alt),
			CASE WHEN starts_with(rsid, 'rs') THEN rsid ELSE 'rs' || rsid END
		FROM read_csv('%s', delim='\t', header=true,
			columns={
				'chrom': 'VARCHAR',
				'pos': 'BIGINT',
				'ref': 'VARCHAR',
				'alt': 'VARCHAR',
				'rsid': 'VARCHAR'
			})`, quoted)
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("load rsids from %s: %w", tsvPath, err)
	}
	return nil
}

// Append inserts entries through the DuckDB appender. Duplicate variants
// within the batch keep their first rsid.
func (s *Store) Append(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	seen := make(map[entryKey]bool, len(entries))
	deduped := make([]Entry, 0, len(entries))
	for _, e := range entries {
		k := entryKey{e.Chrom, e.Ref, e.Alt, e.Pos}
		if !seen[k] {
			seen[k] = true
			deduped = append(deduped, e)
		}
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "rsids")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, e := range deduped {
		if err := appender.AppendRow(e.Chrom, e.Pos, e.Ref, e.Alt, e.Rsid); err != nil {
			return fmt.Errorf("append rsid: %w", err)
		}
	}
	return appender.Flush()
}

// Lookup returns the rsid stored for a variant.
func (s *Store) Lookup(chrom string, pos int64, ref, alt string) (string, bool, error) {
	s.mu.Lock()
	if s.lookupPS == nil {
		ps, err := s.db.Prepare("SELECT rsid FROM rsids WHERE chrom=? AND pos=? AND ref=? AND alt=? LIMIT 1")
		if err != nil {
			s.mu.Unlock()
			return "", false, fmt.Errorf("prepare rsid lookup: %w", err)
		}
		s.lookupPS = ps
	}
	ps := s.lookupPS
	s.mu.Unlock()

	var rsid string
	err := ps.QueryRow(chrom, pos, ref, alt).Scan(&rsid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup %s:%d: %w", chrom, pos, err)
	}
	return rsid, true, nil
}

// KnownChroms lists the chromosomes present in the table.
func (s *Store) KnownChroms() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT chrom FROM rsids ORDER BY chrom")
	if err != nil {
		return nil, fmt.Errorf("query chroms: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan chrom: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
