package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/Totarae/YotpoBridge/internal/model"
)

// HistoryStore хранит историю запусков в памяти. Если задан файл, каждая
// запись дописывается в него строкой JSON и читается обратно при старте.
type HistoryStore struct {
	mu     sync.RWMutex
	runs   []*model.JobRun
	file   string
	logger *zap.Logger
}

// NewHistoryStore создаёт хранилище. Пустой file означает режим in-memory.
func NewHistoryStore(file string, logger *zap.Logger) *HistoryStore {
	s := &HistoryStore{file: file, logger: logger}

	// Загружаем данные из файла
	if err := s.loadFromFile(); err != nil {
		logger.Warn("Ошибка загрузки истории из файла", zap.String("file", file), zap.Error(err))
	}
	return s
}

// SaveRun реализует History.
func (s *HistoryStore) SaveRun(_ context.Context, run *model.JobRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != "" {
		if err := s.appendToFile(run); err != nil {
			return fmt.Errorf("append job run: %w", err)
		}
	}
	s.runs = append(s.runs, run)
	return nil
}

// ListRuns реализует History.
func (s *HistoryStore) ListRuns(_ context.Context, jobID string, limit int) ([]*model.JobRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.JobRun
	for i := len(s.runs) - 1; i >= 0; i-- {
		if s.runs[i].JobID != jobID {
			continue
		}
		out = append(out, s.runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// loadFromFile читает историю при старте. Битые строки пропускаются.
func (s *HistoryStore) loadFromFile() error {
	if s.file == "" {
		return nil
	}
	file, err := os.Open(s.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Файл ещё не создан, это не ошибка
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	skipped := 0
	for scanner.Scan() {
		var run model.JobRun
		if err := json.Unmarshal(scanner.Bytes(), &run); err != nil {
			skipped++
			continue
		}
		s.runs = append(s.runs, &run)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	s.logger.Info("История запусков загружена",
		zap.String("file", s.file),
		zap.Int("runs", len(s.runs)),
		zap.Int("skipped", skipped),
	)
	return nil
}

func (s *HistoryStore) appendToFile(run *model.JobRun) error {
	file, err := os.OpenFile(s.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	_, err = file.Write(append(data, '\n')) // Записываем с новой строки
	return err
}
