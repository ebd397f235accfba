package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiranshivaraju/gitverified/pkg/models"
)

const defaultRunLimit = 50

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Pipeline runs ---

func (s *PostgresStore) CreatePipelineRun(ctx context.Context, run *models.PipelineRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (id, filename, execution_id, success, strategy, link, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.Filename, run.ExecutionID, run.Success, run.Strategy, run.Link, run.Error, run.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create pipeline run: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPipelineRun(ctx context.Context, id uuid.UUID) (*models.PipelineRun, error) {
	var r models.PipelineRun
	err := s.pool.QueryRow(ctx,
		`SELECT id, filename, execution_id, success, strategy, link, error, created_at
		 FROM pipeline_runs WHERE id = $1`, id,
	).Scan(&r.ID, &r.Filename, &r.ExecutionID, &r.Success, &r.Strategy, &r.Link, &r.Error, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pipeline run: %w", err)
	}
	return &r, nil
}

// ListPipelineRuns returns the most recent runs first. A non-positive limit
// means the default of 50.
func (s *PostgresStore) ListPipelineRuns(ctx context.Context, limit int) ([]*models.PipelineRun, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, filename, execution_id, success, strategy, link, error, created_at
		 FROM pipeline_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pipeline runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.PipelineRun{}
	for rows.Next() {
		var r models.PipelineRun
		if err := rows.Scan(&r.ID, &r.Filename, &r.ExecutionID, &r.Success, &r.Strategy,
			&r.Link, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pipeline run: %w", err)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// --- Candidates ---

// ListCandidates returns the leaderboard, highest p_score first.
func (s *PostgresStore) ListCandidates(ctx context.Context) ([]*models.Candidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, p_score, truth, passion, code, status, flag, created_at
		 FROM candidates ORDER BY p_score DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	candidates := []*models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.PScore, &c.Truth, &c.Passion, &c.Code,
			&c.Status, &c.Flag, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, &c)
	}
	return candidates, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
