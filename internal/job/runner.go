package job

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Totarae/YotpoBridge/internal/apperr"
	"github.com/Totarae/YotpoBridge/internal/metrics"
	"github.com/Totarae/YotpoBridge/internal/model"
)

//go:generate mockgen -destination=mocks/mock_history.go -package=mocks github.com/Totarae/YotpoBridge/internal/job HistoryStore

var (
	// ErrDuplicateJob: задание с таким ID уже зарегистрировано.
	ErrDuplicateJob = errors.New("job already registered")
	// ErrJobRunning: задание уже выполняется; второй запуск не начинается.
	ErrJobRunning = fmt.Errorf("job already running: %w", apperr.ErrConflict)
)

// HistoryStore хранит историю запусков.
type HistoryStore interface {
	SaveRun(ctx context.Context, run *model.JobRun) error
	ListRuns(ctx context.Context, jobID string, limit int) ([]*model.JobRun, error)
}

// HealthReporter получает итог последнего запуска задания.
type HealthReporter interface {
	ReportJob(jobID string, healthy bool)
}

// Runner выполняет задания: шаги идут по очереди, первый ERROR
// останавливает запуск.
type Runner struct {
	mu      sync.RWMutex
	jobs    map[string]Job
	running map[string]struct{}
	history HistoryStore
	health  HealthReporter
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// Option настраивает Runner.
type Option func(*Runner)

// WithHealth подключает отчёт о состоянии.
func WithHealth(h HealthReporter) Option {
	return func(r *Runner) { r.health = h }
}

// WithMetrics подключает метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithClock подменяет часы.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner создаёт Runner.
func NewRunner(history HistoryStore, logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		jobs:    make(map[string]Job),
		running: make(map[string]struct{}),
		history: history,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register добавляет задание.
func (r *Runner) Register(j Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[j.ID]; ok {
		return fmt.Errorf("%s: %w", j.ID, ErrDuplicateJob)
	}
	r.jobs[j.ID] = j
	return nil
}

// Jobs возвращает идентификаторы зарегистрированных заданий.
func (r *Runner) Jobs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.jobs))
	for id := range r.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Run выполняет задание и сохраняет запись о запуске. Ошибка возвращается,
// если задание не найдено, уже выполняется или запись не сохранилась;
// статус шагов виден в JobRun.
func (r *Runner) Run(ctx context.Context, jobID string, params Parameters) (*model.JobRun, error) {
	j, err := r.acquire(jobID)
	if err != nil {
		return nil, err
	}
	defer r.release(jobID)

	exec := &JobExecution{
		ID:        uuid.New(),
		JobID:     jobID,
		Context:   ExecutionContext{},
		StartedAt: r.now().UTC(),
	}
	run := &model.JobRun{
		ID:        exec.ID,
		JobID:     jobID,
		Status:    CodeOK,
		StartedAt: exec.StartedAt,
	}

	for _, s := range j.Steps {
		if err := ctx.Err(); err != nil {
			run.Status = CodeError
			run.Message = fmt.Sprintf("step %s not started: %v", s.ID, err)
			break
		}
		status := r.runStep(ctx, s, params, &StepExecution{StepID: s.ID, JobExecution: exec})
		run.Steps = append(run.Steps, model.StepRun{StepID: s.ID, Status: status.Code, Message: status.Message})
		if status.IsError() {
			run.Status = CodeError
			run.Message = fmt.Sprintf("step %s: %s", s.ID, status.Message)
			break
		}
	}
	run.Context = maps.Clone(map[string]any(exec.Context))
	run.FinishedAt = r.now().UTC()

	r.metrics.ObserveJobRun(jobID, run.Status)
	if r.health != nil {
		r.health.ReportJob(jobID, run.Status == CodeOK)
	}

	logFields := []zap.Field{
		zap.String("job", jobID),
		zap.String("run_id", run.ID.String()),
		zap.String("status", run.Status),
		zap.Duration("duration", run.FinishedAt.Sub(run.StartedAt)),
	}
	if run.Status == CodeOK {
		r.logger.Info("Job finished", logFields...)
	} else {
		r.logger.Warn("Job finished with errors", append(logFields, zap.String("message", run.Message))...)
	}

	// Запись сохраняется и при отменённом контексте запроса.
	if err := r.history.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		return run, fmt.Errorf("save job run %s: %w", run.ID, err)
	}
	return run, nil
}

// acquire отмечает задание выполняющимся. Одновременно идёт не больше
// одного запуска каждого задания.
func (r *Runner) acquire(jobID string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return Job{}, fmt.Errorf("job %s: %w", jobID, apperr.ErrNotFound)
	}
	if _, busy := r.running[jobID]; busy {
		return Job{}, fmt.Errorf("job %s: %w", jobID, ErrJobRunning)
	}
	r.running[jobID] = struct{}{}
	return j, nil
}

func (r *Runner) release(jobID string) {
	r.mu.Lock()
	delete(r.running, jobID)
	r.mu.Unlock()
}

// runStep выполняет шаг; паника превращается в ERROR.
func (r *Runner) runStep(ctx context.Context, s Step, params Parameters, se *StepExecution) (status Status) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Job step panicked", zap.String("step", s.ID), zap.Any("panic", rec))
			status = Error(fmt.Sprintf("panic: %v", rec))
		}
	}()

	merged := make(Parameters, len(s.Params)+len(params))
	maps.Copy(merged, s.Params)
	maps.Copy(merged, params)
	return s.Run(ctx, merged, se)
}

// Runs возвращает последние запуски задания.
func (r *Runner) Runs(ctx context.Context, jobID string, limit int) ([]*model.JobRun, error) {
	r.mu.RLock()
	_, ok := r.jobs[jobID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, apperr.ErrNotFound)
	}
	return r.history.ListRuns(ctx, jobID, limit)
}
