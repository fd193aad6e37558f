package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var migrationsDir string

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Apply or roll back CounselBack database migrations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrator()
		if err != nil {
			return err
		}
		defer closeMigrator(m)

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		log.Println("Migration up successful")
		return nil
	},
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations, all of them when steps is omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrator()
		if err != nil {
			return err
		}
		defer closeMigrator(m)

		if len(args) == 1 {
			steps, err := strconv.Atoi(args[0])
			if err != nil || steps <= 0 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			err = m.Steps(-steps)
			if err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return err
			}
		} else if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		log.Println("Migration down successful")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMigrator()
		if err != nil {
			return err
		}
		defer closeMigrator(m)

		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "", "migrations directory (searched for when empty)")
	rootCmd.AddCommand(upCmd, downCmd, versionCmd)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func newMigrator() (*migrate.Migrate, error) {
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		return nil, errors.New("DB_URL environment variable is required")
	}

	path := migrationsDir
	if path == "" {
		found, err := findMigrationsDir()
		if err != nil {
			return nil, err
		}
		path = found
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	return migrate.New("file://"+absPath, dbURL)
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		log.Printf("close migration source: %v", srcErr)
	}
	if dbErr != nil {
		log.Printf("close migration database: %v", dbErr)
	}
}

// findMigrationsDir walks up from the working directory, then looks next to
// the executable.
func findMigrationsDir() (string, error) {
	var candidates []string

	if cwd, err := os.Getwd(); err == nil {
		current := cwd
		for i := 0; i < 6; i++ {
			candidates = append(candidates, filepath.Join(current, "migrations"))
			parent := filepath.Dir(current)
			if parent == current {
				break
			}
			current = parent
		}
	}
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		candidates = append(candidates,
			filepath.Join(exeDir, "migrations"),
			filepath.Join(exeDir, "..", "migrations"),
			filepath.Join(exeDir, "..", "..", "migrations"),
		)
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", errors.New("migrations directory not found")
}
