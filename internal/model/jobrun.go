package model

import (
	"time"

	"github.com/google/uuid"
)

// JobRun: запись истории запусков задания.
type JobRun struct {
	ID         uuid.UUID      `json:"id"`
	JobID      string         `json:"job_id"`
	Status     string         `json:"status"`
	Message    string         `json:"message,omitempty"`
	Steps      []StepRun      `json:"steps"`
	Context    map[string]any `json:"context,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// StepRun: итог одного шага.
type StepRun struct {
	StepID  string `json:"step_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
