package worker

import (
	"context"
	"time"

	"taskSync/internal/logger"

	"go.uber.org/zap"
)

// Syncer — то, что умеет повторно предложить неподтверждённые записи
type Syncer interface {
	Resync(ctx context.Context, limit int) int
}

// ResyncWorker периодически возвращает набор повторной отправки в очередь
// исходящих — записи в local и pending не зависают навсегда после сбоя сети
type ResyncWorker struct {
	syncer    Syncer
	interval  time.Duration
	batchSize int
}

func NewResyncWorker(syncer Syncer, interval *time.Duration, batchSize *int) *ResyncWorker {
	var intervalToSet time.Duration
	if interval == nil {
		intervalToSet = 5 * time.Minute
	} else {
		intervalToSet = *interval
	}

	var batchToSet int
	if batchSize == nil {
		batchToSet = 100
	} else {
		batchToSet = *batchSize
	}
	return &ResyncWorker{
		syncer:    syncer,
		interval:  intervalToSet,
		batchSize: batchToSet,
	}
}

func (w *ResyncWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Info("Worker: Фоновая проверка неподтверждённых записей", zap.Time("started_at", time.Now()))
			w.Sweep(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Фоновая проверка останавливается")
			return
		}
	}
}

func (w *ResyncWorker) Sweep(ctx context.Context) {
	start := time.Now()

	offered := w.syncer.Resync(ctx, w.batchSize)

	logger.Info(
		"Worker: Завершение прохода",
		zap.Duration("ms", time.Since(start)),
		zap.Int("offered", offered),
	)
}
