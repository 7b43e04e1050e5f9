package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Totarae/YotpoBridge/internal/database"
	"github.com/Totarae/YotpoBridge/internal/model"
)

// JobRunRepository хранит историю запусков заданий в PostgreSQL.
type JobRunRepository struct {
	DB database.Querier
}

// NewJobRunRepository создаёт новый экземпляр JobRunRepository.
func NewJobRunRepository(db database.Querier) *JobRunRepository {
	return &JobRunRepository{DB: db}
}

// SaveRun сохраняет запись о запуске.
func (r *JobRunRepository) SaveRun(ctx context.Context, run *model.JobRun) error {
	steps := run.Steps
	if steps == nil {
		steps = []model.StepRun{}
	}
	runContext := run.Context
	if runContext == nil {
		runContext = map[string]any{}
	}

	query := `INSERT INTO job_runs (id, job_id, status, message, steps, context, started_at, finished_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.Exec(ctx, query, run.ID.String(), run.JobID, run.Status, run.Message, steps, runContext, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("database insert error: %w", err)
	}
	return nil
}

// ListRuns возвращает последние запуски задания, новые первыми.
func (r *JobRunRepository) ListRuns(ctx context.Context, jobID string, limit int) ([]*model.JobRun, error) {
	query := `SELECT id::text, job_id, status, message, steps, context, started_at, finished_at
              FROM job_runs WHERE job_id = $1
              ORDER BY started_at DESC
              LIMIT $2`
	rows, err := r.DB.Query(ctx, query, jobID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query job runs: %w", err)
	}
	defer rows.Close()

	var results []*model.JobRun
	for rows.Next() {
		var (
			id       string
			run      model.JobRun
			started  time.Time
			finished time.Time
		)
		if err := rows.Scan(&id, &run.JobID, &run.Status, &run.Message, &run.Steps, &run.Context, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("job run id %q: %w", id, err)
		}
		run.StartedAt = started.UTC()
		run.FinishedAt = finished.UTC()
		results = append(results, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read job runs: %w", err)
	}
	return results, nil
}
