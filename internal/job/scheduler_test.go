package job

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/Totarae/YotpoBridge/internal/job/mocks"
)

func TestScheduler_InvalidSpec(t *testing.T) {
	s := NewScheduler(NewRunner(nil, zap.NewNop()), zap.NewNop())
	_, err := s.Schedule("every tuesday", "j", nil)
	assert.Error(t, err)
	assert.Zero(t, s.Len())
}

func TestScheduler_RunsJobUntilCanceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	history := mocks.NewMockHistoryStore(ctrl)
	history.EXPECT().SaveRun(gomock.Any(), gomock.Any()).Return(nil).MinTimes(1)

	var fired atomic.Int32
	r := NewRunner(history, zap.NewNop())
	require.NoError(t, r.Register(Job{ID: "tick", Steps: []Step{{ID: "count", Run: func(context.Context, Parameters, *StepExecution) Status {
		fired.Add(1)
		return OK("")
	}}}}))

	s := NewScheduler(r, zap.NewNop())
	_, err := s.Schedule("@every 1s", "tick", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return fired.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
