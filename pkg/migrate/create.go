package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	unsafeName  = regexp.MustCompile(`[^a-z0-9]+`)
	fileVersion = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- undo %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty <YYYYMMDDHHMMSS>_<name>.sql into dir and
// returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	slug := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, time.Now().UTC().Format("20060102150405")+"_"+slug+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, migrationTemplate, slug); err != nil {
		return "", fmt.Errorf("write migration: %w", err)
	}
	return path, nil
}

// Validate checks file naming, version uniqueness and goose annotations.
func Validate(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	versions := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		m := fileVersion.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", name)
		}
		if other, dup := versions[m[1]]; dup {
			return fmt.Errorf("%s and %s share version %s", other, name, m[1])
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), marker) {
				return fmt.Errorf("%s: missing %q", name, marker)
			}
		}
	}
	return nil
}
