package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger передаёт журнал cron в zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Scheduler запускает задания по расписанию cron. Запуск пропускается,
// пока предыдущий запуск той же записи не завершился.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	logger *zap.Logger
	base   context.Context
}

// NewScheduler создаёт Scheduler.
func NewScheduler(runner *Runner, logger *zap.Logger) *Scheduler {
	cl := cronLogger{l: logger.Sugar()}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		runner: runner,
		logger: logger,
		base:   context.Background(),
	}
}

// Schedule добавляет запуск jobID по стандартному выражению cron.
func (s *Scheduler) Schedule(spec, jobID string, params Parameters) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		_, err := s.runner.Run(s.base, jobID, params)
		switch {
		case errors.Is(err, ErrJobRunning):
			s.logger.Info("Scheduled job skipped, previous run in progress", zap.String("job", jobID))
		case err != nil:
			s.logger.Error("Scheduled job failed", zap.String("job", jobID), zap.Error(err))
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule %s %q: %w", jobID, spec, err)
	}
	s.logger.Info("Job scheduled", zap.String("job", jobID), zap.String("spec", spec))
	return id, nil
}

// Len возвращает число записей расписания.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Run запускает расписание и блокируется до отмены ctx. Выполняющиеся
// задания дожидаются завершения.
func (s *Scheduler) Run(ctx context.Context) error {
	s.base = ctx
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
