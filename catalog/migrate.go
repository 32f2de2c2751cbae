package catalog

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// migration is one pending schema change, parsed from a file named
// <unix-timestamp>:<name>.sql.
type migration struct {
	timestamp int64
	name      string
	path      string
}

// migrate applies every migration newer than the last applied
// timestamp, recording each in pico_migrations.
func (c *Catalog) migrate() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS pico_migrations (
		applied_at INTEGER NOT NULL,
		name TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var last int64
	row := c.db.QueryRow(`SELECT COALESCE(MAX(applied_at), 0) FROM pico_migrations`)
	if err := row.Scan(&last); err != nil {
		return fmt.Errorf("read last migration: %w", err)
	}

	pending, err := c.pendingMigrations(last)
	if err != nil {
		return err
	}

	for _, m := range pending {
		body, err := os.ReadFile(m.path)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", m.path, err)
		}
		if _, err := c.db.Exec(string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		if _, err := c.db.Exec(
			`INSERT INTO pico_migrations (applied_at, name) VALUES (?, ?)`,
			m.timestamp, m.name,
		); err != nil {
			return fmt.Errorf("record migration %s: %w", m.name, err)
		}
		log.Printf("[catalog] applied migration %d:%s", m.timestamp, m.name)
	}
	return nil
}

// pendingMigrations lists migrations with a timestamp after last,
// sorted ascending. Files that do not parse are skipped with a log
// line rather than failing startup.
func (c *Catalog) pendingMigrations(last int64) ([]migration, error) {
	entries, err := os.ReadDir(c.migrationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read migrations directory %s: %w", c.migrationsDir, err)
	}

	var pending []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ".sql")
		tsPart, name, ok := strings.Cut(base, ":")
		if !ok {
			log.Printf("[catalog] skipping migration with unparseable name: %s", entry.Name())
			continue
		}
		ts, err := strconv.ParseInt(tsPart, 10, 64)
		if err != nil {
			log.Printf("[catalog] skipping migration with unparseable timestamp: %s", entry.Name())
			continue
		}
		if ts <= last {
			continue
		}
		pending = append(pending, migration{
			timestamp: ts,
			name:      name,
			path:      filepath.Join(c.migrationsDir, entry.Name()),
		})
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].timestamp < pending[j].timestamp
	})
	return pending, nil
}
