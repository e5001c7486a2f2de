package service

import (
	"context"
	"time"

	"taskSync/internal/logger"
	"taskSync/internal/models/task"
	"taskSync/internal/remote"

	"go.uber.org/zap"
)

// очередь исходящих: ограниченный канал заданий, один фоновый потребитель.
// Запись в очередь никогда не блокирует вызывающий код — при переполнении
// задание теряется с предупреждением, запись остаётся в наборе повторной
// отправки и её доставит следующий цикл.

type jobKind string

const jobCreate jobKind = "create"
const jobUpdate jobKind = "update"

type outboundJob struct {
	kind    jobKind
	id      string
	payload task.NewTaskPayload
	patch   task.Patch
	// asOf — метка last_edited на момент постановки обновления в очередь;
	// более поздняя локальная правка отменяет прямое применение ответа
	asOf time.Time
}

func (s *SyncService) enqueue(job outboundJob) {
	select {
	case s.jobs <- job:
	default:
		logger.Warn("Service: Очередь исходящих переполнена, задание отложено",
			zap.String("kind", string(job.kind)),
			zap.String("task_id", job.id),
		)
	}
}

// Start запускает потребителя очереди; останавливается отменой контекста
func (s *SyncService) Start(ctx context.Context) {
	go func() {
		logger.Info("Service: Потребитель очереди исходящих запущен")
		for {
			select {
			case <-ctx.Done():
				logger.Info("Service: Потребитель очереди исходящих остановлен")
				return
			case job := <-s.jobs:
				s.process(ctx, job)
			}
		}
	}()
}

func (s *SyncService) process(ctx context.Context, job outboundJob) {
	client := s.client()
	if client == nil {
		return
	}

	rctx, cancel := context.WithTimeout(ctx, s.remoteTimeout())
	defer cancel()

	switch job.kind {
	case jobCreate:
		s.processCreate(ctx, rctx, client, job)
	case jobUpdate:
		s.processUpdate(ctx, rctx, client, job)
	}
}

// processCreate отправляет локально созданную задачу; успех переписывает
// её идентификатор на выданный удалённой стороной
func (s *SyncService) processCreate(ctx, rctx context.Context, client remote.Client, job outboundJob) {
	current, ok := s.repo.Get(job.id)
	if !ok || !task.IsLocalID(current.ID) {
		// запись удалена или уже подтверждена
		return
	}

	created, err := client.CreateTask(rctx, job.payload)
	if err != nil {
		s.absorbFailure(ctx, job, err)
		return
	}

	if err := s.repo.MarkSynced(ctx, job.id, created.ID); err != nil {
		logger.Error("Service: Подтверждение создания не применено", err,
			zap.String("local_id", job.id),
			zap.String("remote_id", created.ID),
		)
		return
	}
	if acked, found := s.repo.Get(created.ID); found {
		s.notifier.Publish(acked)
	}
}

// processUpdate шлёт патч; ответ удалённой стороны становится новой
// объединённой истиной — это та же логическая правка
func (s *SyncService) processUpdate(ctx, rctx context.Context, client remote.Client, job outboundJob) {
	updated, err := client.UpdateTask(rctx, job.id, job.patch)
	if err != nil {
		s.absorbFailure(ctx, job, err)
		return
	}

	applied, err := s.repo.ApplyRemote(ctx, updated, job.asOf)
	if err != nil {
		logger.Error("Service: Подтверждение обновления не сохранено", err, zap.String("task_id", job.id))
		return
	}
	if applied {
		if acked, found := s.repo.Get(updated.ID); found {
			s.notifier.Publish(acked)
		}
	}
}

// absorbFailure: сбой удалённой операции никогда не становится ошибкой
// пользовательской мутации — локальная запись уже принята. Временный сбой
// оставляет статус как есть, невосстановимый помечает запись error.
func (s *SyncService) absorbFailure(ctx context.Context, job outboundJob, err error) {
	if remote.Retryable(err) {
		logger.Warn("Service: Удалённая операция не удалась, повторим позже",
			zap.String("kind", string(job.kind)),
			zap.String("task_id", job.id),
			zap.Error(err),
		)
		return
	}

	logger.Error("Service: Невосстановимый сбой удалённой операции", err,
		zap.String("kind", string(job.kind)),
		zap.String("task_id", job.id),
	)
	if markErr := s.repo.MarkError(ctx, job.id); markErr != nil {
		logger.Error("Service: Не удалось пометить запись", markErr, zap.String("task_id", job.id))
	}
	if marked, found := s.repo.Get(job.id); found {
		s.notifier.Publish(marked)
	}
}
