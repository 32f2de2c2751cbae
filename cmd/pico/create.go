package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

const functionTemplate = `-- %s
-- Parameters are declared inline as :name placeholders.
SELECT 1 AS ok;
`

const migrationTemplate = `-- %s
-- Applied once, in timestamp order.
`

func createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Scaffold functions and migrations",
	}
	cmd.AddCommand(createFunctionCmd(), createMigrationCmd())
	return cmd
}

func createFunctionCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "function <name>",
		Short: "Create a new server function file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := createFunction(dir, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("created %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "functions", "functions directory")
	return cmd
}

func createMigrationCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migration <name>",
		Short: "Create a new timestamped migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := createMigration(dir, args[0], time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("created %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "migrations directory")
	return cmd
}

func createFunction(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".sql")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("function %s already exists", name)
	}
	contents := fmt.Sprintf(functionTemplate, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func createMigration(dir, name string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%d:%s.sql", now.Unix(), name))
	contents := fmt.Sprintf(migrationTemplate, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
