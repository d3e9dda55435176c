// cmd/migrate applies the migrations/*.up.sql files against the tenant
// database. It uses the same schema_migrations table format as
// golang-migrate (bigint version + dirty flag) so the two tools are
// interchangeable.
//
// Usage:
//
//	go run ./cmd/migrate
//	go run ./cmd/migrate -down        # roll back the newest applied version
//	DATABASE_URL=postgres://... go run ./cmd/migrate
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/realtyhost/internal/config"
)

type migration struct {
	version int64
	file    string
}

func main() {
	dir := flag.String("dir", "migrations", "directory holding NNN_name.up.sql / .down.sql files")
	down := flag.Bool("down", false, "roll back the newest applied migration")
	flag.Parse()

	if err := run(*dir, *down); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(dir string, down bool) error {
	cfg, err := config.Load("domainsvc")
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	fmt.Println("connected to database")

	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version bigint NOT NULL,
			dirty   boolean NOT NULL,
			PRIMARY KEY (version)
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	if down {
		return rollback(ctx, db, dir)
	}

	files, err := collect(dir, ".up.sql")
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range files {
		var exists bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1 AND dirty = false)`,
			m.version,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check %s: %w", m.file, err)
		}
		if exists {
			fmt.Printf("  skip  %s (already applied)\n", m.file)
			continue
		}

		sql, err := os.ReadFile(filepath.Join(dir, m.file))
		if err != nil {
			return fmt.Errorf("read %s: %w", m.file, err)
		}

		// Mark dirty=true before applying so a crash is visible.
		if _, err := db.Exec(ctx,
			`INSERT INTO schema_migrations (version, dirty) VALUES ($1, true)
			 ON CONFLICT (version) DO UPDATE SET dirty = true`, m.version,
		); err != nil {
			return fmt.Errorf("mark dirty %s: %w", m.file, err)
		}

		if _, err := db.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", m.file, err)
		}

		if _, err := db.Exec(ctx,
			`UPDATE schema_migrations SET dirty = false WHERE version = $1`, m.version,
		); err != nil {
			return fmt.Errorf("mark clean %s: %w", m.file, err)
		}

		fmt.Printf("  apply %s\n", m.file)
		applied++
	}

	if applied == 0 {
		fmt.Println("nothing to migrate, already up to date")
	} else {
		fmt.Printf("applied %d migration(s)\n", applied)
	}
	return nil
}

func rollback(ctx context.Context, db *pgxpool.Pool, dir string) error {
	var version int64
	err := db.QueryRow(ctx, `SELECT coalesce(max(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return fmt.Errorf("find latest version: %w", err)
	}
	if version == 0 {
		fmt.Println("nothing to roll back")
		return nil
	}

	files, err := collect(dir, ".down.sql")
	if err != nil {
		return err
	}
	m, ok := find(files, version)
	if !ok {
		return fmt.Errorf("no down migration for version %d", version)
	}

	sql, err := os.ReadFile(filepath.Join(dir, m.file))
	if err != nil {
		return fmt.Errorf("read %s: %w", m.file, err)
	}
	if _, err := db.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply %s: %w", m.file, err)
	}
	if _, err := db.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, version); err != nil {
		return fmt.Errorf("unrecord version %d: %w", version, err)
	}
	fmt.Printf("  revert %s\n", m.file)
	return nil
}

// collect returns the files in dir ending in suffix, ordered by version.
func collect(dir, suffix string) ([]migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var out []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		ver, err := versionFromFile(e.Name())
		if err != nil {
			return nil, fmt.Errorf("parse version from %s: %w", e.Name(), err)
		}
		out = append(out, migration{version: ver, file: e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

func find(files []migration, version int64) (migration, bool) {
	for _, m := range files {
		if m.version == version {
			return m, true
		}
	}
	return migration{}, false
}

// versionFromFile extracts the leading integer from a migration filename.
// "001_tenants.up.sql" → 1
func versionFromFile(filename string) (int64, error) {
	prefix, _, ok := strings.Cut(filename, "_")
	if !ok {
		return 0, fmt.Errorf("unexpected filename format")
	}
	return strconv.ParseInt(prefix, 10, 64)
}
