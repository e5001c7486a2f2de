package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"taskSync/internal/worker"

	"github.com/stretchr/testify/assert"
)

type countingSyncer struct {
	calls     atomic.Int32
	lastLimit atomic.Int32
}

func (c *countingSyncer) Resync(ctx context.Context, limit int) int {
	c.calls.Add(1)
	c.lastLimit.Store(int32(limit))
	return 0
}

// TestResyncWorker_Sweep тестирует одиночный проход с переданным батчем
func TestResyncWorker_Sweep(t *testing.T) {
	syncer := &countingSyncer{}
	batch := 7
	w := worker.NewResyncWorker(syncer, nil, &batch)

	w.Sweep(context.Background())

	assert.Equal(t, int32(1), syncer.calls.Load())
	assert.Equal(t, int32(7), syncer.lastLimit.Load())
}

// TestResyncWorker_Start тестирует периодический запуск и остановку
// по отмене контекста
func TestResyncWorker_Start(t *testing.T) {
	syncer := &countingSyncer{}
	interval := 10 * time.Millisecond
	w := worker.NewResyncWorker(syncer, &interval, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return syncer.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("воркер не остановился")
	}
}
