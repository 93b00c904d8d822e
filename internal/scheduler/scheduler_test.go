package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intern_radar/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type slowMaintainer struct {
	delay time.Duration

	mu       sync.Mutex
	finished int
}

func (m *slowMaintainer) RunMaintenanceCycle(_ context.Context) (*domain.PoolStats, error) {
	time.Sleep(m.delay)
	m.mu.Lock()
	m.finished++
	m.mu.Unlock()
	return &domain.PoolStats{}, nil
}

func (m *slowMaintainer) finishedCycles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished
}

func TestStop_WaitsForStartupCycle(t *testing.T) {
	maintainer := &slowMaintainer{delay: 50 * time.Millisecond}
	sched := NewScheduler(maintainer, "@daily", discardLogger())

	require.NoError(t, sched.Start(context.Background()))
	sched.Stop()

	assert.Equal(t, 1, maintainer.finishedCycles())
}

func TestStart_RejectsInvalidSpec(t *testing.T) {
	sched := NewScheduler(&slowMaintainer{}, "not a cron spec", discardLogger())
	assert.Error(t, sched.Start(context.Background()))
}
