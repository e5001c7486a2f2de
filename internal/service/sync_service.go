package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskSync/internal/logger"
	"taskSync/internal/models/task"
	"taskSync/internal/remote"
	"taskSync/internal/repository"

	"go.uber.org/zap"
)

// здесь решается, когда обращаться к удалённой стороне: локальная запись
// всегда первая и всегда успешна мгновенно, удалённая — по возможности

type SyncService struct {
	repo     *repository.TaskRepository
	notifier *Notifier
	jobs     chan outboundJob

	mtx     sync.RWMutex
	remote  remote.Client // nil — удалённая сторона не настроена
	timeout time.Duration
}

func NewSyncService(repo *repository.TaskRepository, client remote.Client, timeout time.Duration, queueSize int) *SyncService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &SyncService{
		repo:     repo,
		notifier: NewNotifier(0),
		jobs:     make(chan outboundJob, queueSize),
		remote:   client,
		timeout:  timeout,
	}
}

func (s *SyncService) client() remote.Client {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.remote
}

func (s *SyncService) remoteTimeout() time.Duration {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.timeout
}

// Reconfigure подменяет клиента удалённой стороны (смена адреса или токена)
// и возвращает error-записи в набор повторной отправки
func (s *SyncService) Reconfigure(ctx context.Context, client remote.Client, timeout time.Duration) error {
	s.mtx.Lock()
	s.remote = client
	if timeout > 0 {
		s.timeout = timeout
	}
	s.mtx.Unlock()

	requeued, err := s.repo.RequeueErrors(ctx)
	if err != nil {
		return fmt.Errorf("возврат error-записей: %w", err)
	}
	if len(requeued) > 0 {
		logger.Info("Service: Записи возвращены на повторную отправку", zap.Int("count", len(requeued)))
	}
	return nil
}

// GetTasks — единственная операция, ожидающая удалённую сторону перед
// возвратом: раз в вызов меняем задержку на свежесть. Сбой запроса
// деградирует до устаревшего локального списка, но не до ошибки.
func (s *SyncService) GetTasks(ctx context.Context) ([]*task.Task, error) {
	local := s.repo.List()

	client := s.client()
	if client == nil {
		return local, nil
	}

	fctx, cancel := context.WithTimeout(ctx, s.remoteTimeout())
	defer cancel()

	remoteTasks, err := client.FetchTasks(fctx)
	if err != nil {
		logger.Warn("Service: Не удалось получить задачи с удалённой стороны", zap.Error(err))
		return local, nil
	}

	report, err := s.repo.MergeRemote(ctx, remoteTasks)
	for _, changed := range report.Changed {
		s.notifier.Publish(changed)
	}
	if err != nil {
		// слияние в памяти состоялось, снимок допишется следующим сохранением
		logger.Error("Service: Слияние выполнено, но снимок не сохранён", err)
	}

	return s.repo.List(), nil
}

// AddTask пишет локально и возвращает управление сразу — вызывающий код
// никогда не ждёт сеть при создании задачи. Удалённое создание уходит
// в очередь исходящих и подтверждается фоном.
func (s *SyncService) AddTask(ctx context.Context, payload task.NewTaskPayload) (*task.Task, error) {
	created, err := s.repo.Create(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}
	s.notifier.Publish(created)

	if s.client() != nil {
		s.enqueue(outboundJob{
			kind:    jobCreate,
			id:      created.ID,
			payload: payload,
		})
	}
	return created, nil
}

// UpdateTask пишет локально и возвращает управление сразу; запись в pending
// уже хранит намерение пользователя, сбой удалённого обновления только логируется
func (s *SyncService) UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFound("задача", id)
		}
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}
	s.notifier.Publish(updated)

	// локальный id удалённой стороне неизвестен — такую запись доставит
	// подтверждение создания и цикл повторной отправки
	if !task.IsLocalID(id) && s.client() != nil {
		s.enqueue(outboundJob{
			kind:  jobUpdate,
			id:    id,
			patch: patch,
			asOf:  updated.LastEdited,
		})
	}
	return updated, nil
}

func (s *SyncService) DeleteTask(ctx context.Context, id string) (bool, error) {
	existed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return existed, fmt.Errorf("удаление задачи: %w", err)
	}
	return existed, nil
}

func (s *SyncService) GetTask(id string) (*task.Task, bool) {
	return s.repo.Get(id)
}

func (s *SyncService) Pending() []*task.Task {
	return s.repo.Pending()
}

// GetStatusOptions отдаёт кешированные варианты статуса, по возможности
// освежив их с удалённой стороны
func (s *SyncService) GetStatusOptions(ctx context.Context) ([]task.StatusOption, error) {
	client := s.client()
	if client == nil {
		return s.repo.StatusOptions(), nil
	}

	fctx, cancel := context.WithTimeout(ctx, s.remoteTimeout())
	defer cancel()

	options, err := client.FetchStatusOptions(fctx)
	if err != nil {
		logger.Warn("Service: Не удалось получить варианты статуса", zap.Error(err))
		return s.repo.StatusOptions(), nil
	}

	if err := s.repo.SetStatusOptions(ctx, options); err != nil {
		logger.Error("Service: Варианты статуса не сохранены", err)
	}
	return options, nil
}

// Resync повторно предлагает удалённой стороне до limit неподтверждённых
// записей; limit <= 0 — без ограничения
func (s *SyncService) Resync(ctx context.Context, limit int) int {
	if s.client() == nil {
		return 0
	}

	offered := 0
	for _, t := range s.repo.Pending() {
		if limit > 0 && offered >= limit {
			break
		}
		switch t.SyncStatus {
		case task.SyncLocal:
			s.enqueue(outboundJob{
				kind:    jobCreate,
				id:      t.ID,
				payload: task.PayloadOf(t),
			})
		case task.SyncPending:
			s.enqueue(outboundJob{
				kind:  jobUpdate,
				id:    t.ID,
				patch: task.PatchOf(t),
				asOf:  t.LastEdited,
			})
		}
		offered++
	}

	if offered > 0 {
		logger.Info("Service: Набор повторной отправки предложен очереди", zap.Int("count", offered))
	}
	return offered
}

func (s *SyncService) Subscribe() (int, <-chan *task.Task) {
	return s.notifier.Subscribe()
}

func (s *SyncService) Unsubscribe(id int) {
	s.notifier.Unsubscribe(id)
}
