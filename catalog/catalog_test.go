package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"pico/wire"
)

func writeSQL(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func openTestCatalog(t *testing.T, functions map[string]string, migrations map[string]string) *Catalog {
	t.Helper()

	functionsDir := t.TempDir()
	for name, body := range functions {
		writeSQL(t, functionsDir, name+".sql", body)
	}

	migrationsDir := t.TempDir()
	for name, body := range migrations {
		writeSQL(t, migrationsDir, name, body)
	}

	dsn := filepath.Join(t.TempDir(), "test.db")
	cat, err := Open(dsn, functionsDir, migrationsDir)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { cat.Close() })
	return cat
}

func TestExtractParameters(t *testing.T) {
	params := extractParameters("SELECT * FROM users WHERE id = :id AND org = :org AND id = :id")
	if !reflect.DeepEqual(params, []string{"id", "org"}) {
		t.Errorf("expected [id org], got %v", params)
	}

	if params := extractParameters("SELECT 1"); params != nil {
		t.Errorf("expected no params, got %v", params)
	}
}

func TestLookupAndSize(t *testing.T) {
	cat := openTestCatalog(t, map[string]string{
		"ping": "SELECT 1 AS ok",
	}, nil)

	if cat.Size() != 1 {
		t.Errorf("expected 1 function, got %d", cat.Size())
	}
	fn, ok := cat.Lookup("ping")
	if !ok {
		t.Fatal("expected ping to be loaded")
	}
	if fn.Name != "ping" {
		t.Errorf("unexpected name: %s", fn.Name)
	}
	if _, ok := cat.Lookup("missing"); ok {
		t.Error("expected missing to be absent")
	}
}

func TestInvokeSingleRow(t *testing.T) {
	cat := openTestCatalog(t, map[string]string{
		"ping": "SELECT 1 AS ok, 'pong' AS message",
	}, nil)

	fn, _ := cat.Lookup("ping")
	result, werr := cat.Invoke(context.Background(), fn, map[string]any{})
	if werr != nil {
		t.Fatalf("invoke error: %v", werr)
	}
	row, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected object result, got %T", result)
	}
	if row["message"] != "pong" {
		t.Errorf("expected message=pong, got %v", row["message"])
	}
}

func TestInvokeRowShaping(t *testing.T) {
	cat := openTestCatalog(t, map[string]string{
		"none": "SELECT 1 AS n WHERE 1 = 0",
		"many": "SELECT 1 AS n UNION ALL SELECT 2",
	}, nil)

	fn, _ := cat.Lookup("none")
	result, werr := cat.Invoke(context.Background(), fn, map[string]any{})
	if werr != nil {
		t.Fatalf("invoke error: %v", werr)
	}
	if result != nil {
		t.Errorf("expected nil for zero rows, got %v", result)
	}

	fn, _ = cat.Lookup("many")
	result, werr = cat.Invoke(context.Background(), fn, map[string]any{})
	if werr != nil {
		t.Fatalf("invoke error: %v", werr)
	}
	rows, ok := result.([]any)
	if !ok {
		t.Fatalf("expected array for multiple rows, got %T", result)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
}

func TestInvokeNamedParameters(t *testing.T) {
	cat := openTestCatalog(t, map[string]string{
		"echo": "SELECT :name AS name, :age AS age",
	}, nil)

	fn, _ := cat.Lookup("echo")
	result, werr := cat.Invoke(context.Background(), fn, map[string]any{
		"name": "ada",
		"age":  float64(36),
	})
	if werr != nil {
		t.Fatalf("invoke error: %v", werr)
	}
	row := result.(map[string]any)
	if row["name"] != "ada" {
		t.Errorf("expected name=ada, got %v", row["name"])
	}
}

func TestInvokeMissingParameter(t *testing.T) {
	cat := openTestCatalog(t, map[string]string{
		"lookup": "SELECT :id AS id",
	}, nil)

	fn, _ := cat.Lookup("lookup")
	_, werr := cat.Invoke(context.Background(), fn, map[string]any{})
	if werr == nil {
		t.Fatal("expected an error")
	}
	if werr.Status != wire.StatusBadRequest {
		t.Errorf("expected 400, got %d", werr.Status)
	}
	if werr.Message != "missing required parameter: id" {
		t.Errorf("expected the message to name the parameter, got %q", werr.Message)
	}
}

func TestInvokeAgainstMigratedSchema(t *testing.T) {
	cat := openTestCatalog(t, map[string]string{
		"add_user":  "INSERT INTO users (name) VALUES (:name) RETURNING id, name",
		"get_users": "SELECT id, name FROM users ORDER BY id",
	}, map[string]string{
		"1700000000:create_users.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)",
	})

	ctx := context.Background()

	fn, _ := cat.Lookup("add_user")
	for _, name := range []string{"ada", "charles"} {
		if _, werr := cat.Invoke(ctx, fn, map[string]any{"name": name}); werr != nil {
			t.Fatalf("insert %s: %v", name, werr)
		}
	}

	fn, _ = cat.Lookup("get_users")
	result, werr := cat.Invoke(ctx, fn, map[string]any{})
	if werr != nil {
		t.Fatalf("select error: %v", werr)
	}
	rows, ok := result.([]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %v", result)
	}
	first := rows[0].(map[string]any)
	if first["name"] != "ada" {
		t.Errorf("expected first row ada, got %v", first)
	}
}

func TestMigrationsApplyOnceInOrder(t *testing.T) {
	functionsDir := t.TempDir()
	migrationsDir := t.TempDir()
	writeSQL(t, migrationsDir, "1700000002:add_column.sql",
		"ALTER TABLE items ADD COLUMN label TEXT")
	writeSQL(t, migrationsDir, "1700000001:create_items.sql",
		"CREATE TABLE items (id INTEGER PRIMARY KEY)")
	writeSQL(t, migrationsDir, "not-a-migration.sql", "SELECT broken")

	dsn := filepath.Join(t.TempDir(), "test.db")
	cat, err := Open(dsn, functionsDir, migrationsDir)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	cat.Close()

	// Reopening must not reapply; ALTER would fail the second time.
	cat, err = Open(dsn, functionsDir, migrationsDir)
	if err != nil {
		t.Fatalf("reopen catalog: %v", err)
	}
	defer cat.Close()

	var count int
	row := cat.db.QueryRow("SELECT COUNT(*) FROM pico_migrations")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 applied migrations, got %d", count)
	}
}

func TestReloadPicksUpNewFunctions(t *testing.T) {
	functionsDir := t.TempDir()
	writeSQL(t, functionsDir, "ping.sql", "SELECT 1 AS ok")

	dsn := filepath.Join(t.TempDir(), "test.db")
	cat, err := Open(dsn, functionsDir, "")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	defer cat.Close()

	writeSQL(t, functionsDir, "pong.sql", "SELECT 2 AS ok")
	if err := cat.Reload(); err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if cat.Size() != 2 {
		t.Errorf("expected 2 functions after reload, got %d", cat.Size())
	}
	if !reflect.DeepEqual(cat.Names(), []string{"ping", "pong"}) {
		t.Errorf("unexpected names: %v", cat.Names())
	}
}

func TestBindValueIntegralFloat(t *testing.T) {
	cat := openTestCatalog(t, map[string]string{
		"add":  "INSERT INTO nums (n) VALUES (:n)",
		"find": "SELECT n FROM nums WHERE n = :n",
	}, map[string]string{
		"1700000000:create_nums.sql": "CREATE TABLE nums (n INTEGER)",
	})

	ctx := context.Background()
	fn, _ := cat.Lookup("add")
	if _, werr := cat.Invoke(ctx, fn, map[string]any{"n": float64(42)}); werr != nil {
		t.Fatalf("insert error: %v", werr)
	}

	// JSON numbers arrive as float64; an integral one must still match
	// the stored integer.
	fn, _ = cat.Lookup("find")
	result, werr := cat.Invoke(ctx, fn, map[string]any{"n": float64(42)})
	if werr != nil {
		t.Fatalf("select error: %v", werr)
	}
	if result == nil {
		t.Fatal("expected the inserted row to match")
	}
}

func BenchmarkInvoke(b *testing.B) {
	functionsDir := b.TempDir()
	body := "SELECT :n AS n"
	if err := os.WriteFile(filepath.Join(functionsDir, "echo.sql"), []byte(body), 0o644); err != nil {
		b.Fatalf("write function: %v", err)
	}

	dsn := filepath.Join(b.TempDir(), "bench.db")
	cat, err := Open(dsn, functionsDir, "")
	if err != nil {
		b.Fatalf("open catalog: %v", err)
	}
	defer cat.Close()

	fn, _ := cat.Lookup("echo")
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, werr := cat.Invoke(ctx, fn, map[string]any{"n": float64(i)}); werr != nil {
			b.Fatal(fmt.Sprint(werr))
		}
	}
}
