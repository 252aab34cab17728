package migration

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Schema describes the embedded migration set.
type Schema struct {
	Version  uint
	Checksum string
	Files    []string
}

// VersionString is the form stored in system_bootstrap_state.
func (s Schema) VersionString() string {
	return strconv.FormatUint(uint64(s.Version), 10)
}

var (
	inspectOnce sync.Once
	inspected   Schema
	inspectErr  error
)

// Inspect reads the embedded migrations once and returns their latest
// version and a checksum over the up files in version order.
func Inspect() (Schema, error) {
	inspectOnce.Do(func() {
		inspected, inspectErr = inspect(embeddedMigrations, migrationsDir)
	})
	return inspected, inspectErr
}

func inspect(fsys fs.FS, dir string) (Schema, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return Schema{}, fmt.Errorf("list migrations: %w", err)
	}

	var schema Schema
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name())
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		version, ok := parseMigrationVersion(name)
		if !ok {
			return Schema{}, fmt.Errorf("invalid migration filename: %s", name)
		}
		schema.Version = max(schema.Version, version)
		schema.Files = append(schema.Files, name)
	}
	if len(schema.Files) == 0 {
		return Schema{}, errors.New("no embedded migrations found")
	}
	sort.Strings(schema.Files)

	hasher := sha256.New()
	for _, name := range schema.Files {
		content, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return Schema{}, fmt.Errorf("read migration %s: %w", name, err)
		}
		hasher.Write([]byte(name))
		hasher.Write([]byte{0})
		hasher.Write(content)
		hasher.Write([]byte{0})
	}
	schema.Checksum = hex.EncodeToString(hasher.Sum(nil))
	return schema, nil
}

// parseMigrationVersion reads the numeric prefix of "000004_invoices.up.sql".
func parseMigrationVersion(name string) (uint, bool) {
	prefix, _, found := strings.Cut(name, "_")
	if !found || prefix == "" {
		return 0, false
	}
	parsed, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(parsed), true
}

// migrationLockKey is shared by every caremarket process that migrates.
const migrationLockKey int64 = 0x6361_7265_6d69_67

var ErrMigrationLocked = errors.New("another process is running migrations")

// withMigrationLock runs fn while holding a postgres session advisory lock.
// The lock lives on one pinned connection so the unlock hits the same session.
func withMigrationLock(ctx context.Context, db *sql.DB, fn func() error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("migration lock connection: %w", err)
	}
	defer conn.Close()

	var locked bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", migrationLockKey).Scan(&locked); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	if !locked {
		return ErrMigrationLocked
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockKey)
	}()

	return fn()
}
