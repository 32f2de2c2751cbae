// Package catalog loads the SQL server functions from disk and
// executes them against the application database.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"pico/wire"
)

// paramPattern matches the :name placeholders inside a function body.
var paramPattern = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// Function is one loaded server function: a single SQL statement plus
// the parameter names it declares, in first-appearance order.
type Function struct {
	Name       string
	Statement  string
	Parameters []string
}

// Catalog holds the loaded function set behind a read lock so requests
// keep resolving while a reload swaps the map.
type Catalog struct {
	mu        sync.RWMutex
	functions map[string]*Function

	db            *sql.DB
	functionsDir  string
	migrationsDir string
}

// Open connects to the database, applies pending migrations, and loads
// every function under functionsDir.
func Open(dsn, functionsDir, migrationsDir string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	c := &Catalog{
		functions:     make(map[string]*Function),
		db:            db,
		functionsDir:  functionsDir,
		migrationsDir: migrationsDir,
	}

	if migrationsDir != "" {
		if err := c.migrate(); err != nil {
			db.Close()
			return nil, err
		}
	}
	if err := c.Reload(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Reload re-reads every .sql file under the functions directory and
// atomically replaces the loaded set.
func (c *Catalog) Reload() error {
	entries, err := os.ReadDir(c.functionsDir)
	if err != nil {
		return fmt.Errorf("read functions directory %s: %w", c.functionsDir, err)
	}

	functions := make(map[string]*Function)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		path := filepath.Join(c.functionsDir, entry.Name())
		body, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read function %s: %w", path, err)
		}
		name := strings.TrimSuffix(entry.Name(), ".sql")
		functions[name] = &Function{
			Name:       name,
			Statement:  string(body),
			Parameters: extractParameters(string(body)),
		}
	}

	c.mu.Lock()
	c.functions = functions
	c.mu.Unlock()

	log.Printf("[catalog] loaded %d functions from %s", len(functions), c.functionsDir)
	return nil
}

// Lookup returns the named function, or false when it is not loaded.
func (c *Catalog) Lookup(name string) (*Function, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.functions[name]
	return fn, ok
}

// Size reports how many functions are loaded.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.functions)
}

// Names returns the loaded function names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.functions))
	for name := range c.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs fn with the declared parameters drawn from input. A
// missing parameter is a client error naming the parameter; execution
// failures are internal. Result shaping follows row count: zero rows
// yield nil, one row an object, more an array of objects.
func (c *Catalog) Invoke(ctx context.Context, fn *Function, input map[string]any) (any, *wire.Error) {
	args := make([]any, 0, len(fn.Parameters))
	for _, param := range fn.Parameters {
		value, ok := input[param]
		if !ok {
			return nil, wire.NewError(wire.StatusBadRequest,
				fmt.Sprintf("missing required parameter: %s", param))
		}
		args = append(args, sql.Named(param, bindValue(value)))
	}

	rows, err := c.db.QueryContext(ctx, fn.Statement, args...)
	if err != nil {
		log.Printf("[catalog] function %s failed: %v", fn.Name, err)
		return nil, wire.NewError(wire.StatusInternalError, "function execution failed")
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		log.Printf("[catalog] function %s scan failed: %v", fn.Name, err)
		return nil, wire.NewError(wire.StatusInternalError, "function execution failed")
	}
	return result, nil
}

// extractParameters collects the distinct :name placeholders in the
// order they first appear.
func extractParameters(statement string) []string {
	seen := make(map[string]bool)
	var params []string
	for _, match := range paramPattern.FindAllStringSubmatch(statement, -1) {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			params = append(params, name)
		}
	}
	return params
}

// bindValue coerces a JSON-shaped value into a driver-friendly one.
// Integral floats bind as integers so id lookups compare correctly;
// nested structures bind as their JSON text.
func bindValue(v any) any {
	switch x := v.(type) {
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	case map[string]any, []any:
		raw, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		return string(raw)
	default:
		return v
	}
}

func scanRows(rows *sql.Rows) (any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalize(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(result) {
	case 0:
		return nil, nil
	case 1:
		return result[0], nil
	default:
		out := make([]any, len(result))
		for i, row := range result {
			out[i] = row
		}
		return out, nil
	}
}

func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return v
	}
}
