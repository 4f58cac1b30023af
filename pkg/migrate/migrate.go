// Package migrate applies the goose SQL migrations compiled into the binary.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
)

// SourceDir is where new migrations are written, relative to the repo root.
const SourceDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the embedded migration files.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Applied describes one migration that ran.
type Applied struct {
	Version   int64
	Path      string
	Direction string
	Duration  time.Duration
}

type Status struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// Runner drives a goose provider against Postgres.
type Runner struct {
	provider *goose.Provider
}

// NewRunner uses the embedded migrations when fsys is nil.
func NewRunner(db *sql.DB, fsys fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if fsys == nil {
		fsys = Migrations()
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

func (r *Runner) Up(ctx context.Context) ([]Applied, error) {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}
	return toApplied(results), nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) (*Applied, error) {
	result, err := r.provider.Down(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose down: %w", err)
	}
	applied := toApplied([]*goose.MigrationResult{result})
	if len(applied) == 0 {
		return nil, nil
	}
	return &applied[0], nil
}

// To migrates up or down until target (YYYYMMDDHHMMSS) is the current version.
func (r *Runner) To(ctx context.Context, target int64) ([]Applied, error) {
	current, err := r.Version(ctx)
	if err != nil {
		return nil, err
	}
	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	default:
		results, err = r.provider.DownTo(ctx, target)
	}
	if err != nil {
		return nil, fmt.Errorf("goose migrate to %d: %w", target, err)
	}
	return toApplied(results), nil
}

func (r *Runner) Version(ctx context.Context) (int64, error) {
	v, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("db version: %w", err)
	}
	return v, nil
}

func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]Status, 0, len(statuses))
	for _, s := range statuses {
		if s == nil || s.Source == nil {
			continue
		}
		out = append(out, Status{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

func toApplied(results []*goose.MigrationResult) []Applied {
	out := make([]Applied, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		out = append(out, Applied{
			Version:   res.Source.Version,
			Path:      res.Source.Path,
			Direction: res.Direction,
			Duration:  res.Duration,
		})
	}
	return out
}
