package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"f0oster/svcspy/services"
)

// Store persists monitoring runs and their detected changes to Postgres.
// It is optional: the monitor treats every Store failure as a warning.
type Store struct {
	dsn    string
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewStore(dsn string, logger *slog.Logger) *Store {
	return &Store{
		dsn:    dsn,
		logger: logger,
	}
}

// Connect adds a connection pool and bootstraps the schema.
func (s *Store) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, s.dsn)
	if err != nil {
		return fmt.Errorf("connect to history database: %w", err)
	}
	s.pool = pool

	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		s.pool = nil
		return err
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			run_id         uuid PRIMARY KEY,
			captured_at    timestamptz NOT NULL,
			total          integer NOT NULL,
			full_access    integer NOT NULL,
			limited_access integer NOT NULL,
			failed         integer NOT NULL,
			modified_count integer NOT NULL,
			new_count      integer NOT NULL,
			removed_count  integer NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS service_changes (
			run_id       uuid NOT NULL REFERENCES runs (run_id),
			service_name text NOT NULL,
			change_type  text NOT NULL,
			previous     jsonb,
			current      jsonb,
			changed_at   timestamptz NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create service_changes table: %w", err)
	}
	return nil
}

// RecordRun persists one run and all of its changes in a single fail-fast
// transaction: either the whole run is recorded or none of it is.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	modified, added, removed, _ := run.Delta.Counts()
	_, err = tx.Exec(ctx, `
		INSERT INTO runs (run_id, captured_at, total, full_access, limited_access, failed,
			modified_count, new_count, removed_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, run.RunID, run.CapturedAt,
		run.Stats.Total, run.Stats.FullAccess, run.Stats.LimitedAccess, run.Stats.Failed,
		modified, added, removed)
	if err != nil {
		return fmt.Errorf("insert run failed: %w", err)
	}

	for _, change := range run.Delta.Modified {
		if err := s.insertChange(ctx, tx, run, ChangeModified, change.Current.Name, &change.Previous, &change.Current); err != nil {
			return err
		}
	}
	for _, snap := range run.Delta.New {
		if err := s.insertChange(ctx, tx, run, ChangeNew, snap.Name, nil, &snap); err != nil {
			return err
		}
	}
	for _, snap := range run.Delta.Removed {
		if err := s.insertChange(ctx, tx, run, ChangeRemoved, snap.Name, &snap, nil); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "recorded run history",
		"run_id", run.RunID.String(),
		"changes", modified+added+removed,
	)
	return nil
}

func (s *Store) insertChange(
	ctx context.Context,
	tx pgx.Tx,
	run Run,
	changeType ChangeType,
	name string,
	previous *services.Snapshot,
	current *services.Snapshot,
) error {
	previousJSON, err := marshalSnapshot(previous)
	if err != nil {
		return fmt.Errorf("failed to marshal previous snapshot for %s: %w", name, err)
	}
	currentJSON, err := marshalSnapshot(current)
	if err != nil {
		return fmt.Errorf("failed to marshal current snapshot for %s: %w", name, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO service_changes (run_id, service_name, change_type, previous, current, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.RunID, name, string(changeType), previousJSON, currentJSON, run.CapturedAt)
	if err != nil {
		return fmt.Errorf("insert service change for %s failed: %w", name, err)
	}
	return nil
}

func marshalSnapshot(snap *services.Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, nil
	}
	return json.Marshal(snap)
}
