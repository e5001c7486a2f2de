package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"taskSync/internal/logger"
	"taskSync/internal/models/task"
	"taskSync/internal/store"

	"go.uber.org/zap"
)

// имена логических документов в хранилище
const DocTasks = "tasks"
const DocStatusOptions = "status_options"

// MergeReport — итог слияния удалённой выборки в локальную коллекцию
type MergeReport struct {
	Added   int
	Updated int
	// записи, изменённые слиянием, — для уведомления подписчиков
	Changed []*task.Task
}

// TaskRepository держит каноническую коллекцию в памяти за одним мьютексом.
// Каждая мутация выполняется как единая критическая секция
// «изменить в памяти -> снять снимок -> сохранить» — хранилище только
// приёмник снимков, мутации никогда не строятся на устаревшем чтении с диска.
type TaskRepository struct {
	mtx           sync.RWMutex
	store         store.Store
	tasks         map[string]*task.Task
	statusOptions []task.StatusOption

	now func() time.Time
}

func New(ctx context.Context, st store.Store) (*TaskRepository, error) {
	r := &TaskRepository{
		store: st,
		tasks: make(map[string]*task.Task),
		now:   time.Now,
	}

	var loaded []*task.Task
	if err := st.Load(ctx, DocTasks, &loaded); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("загрузка коллекции задач: %w", err)
		}
	}
	for _, t := range loaded {
		r.tasks[t.ID] = t
	}

	var options []task.StatusOption
	if err := st.Load(ctx, DocStatusOptions, &options); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("загрузка вариантов статуса: %w", err)
		}
	}
	r.statusOptions = options

	logger.Info("Repository: Коллекция загружена", zap.Int("tasks", len(r.tasks)))
	return r, nil
}

// persistTasks снимает снимок коллекции и отдаёт его хранилищу.
// Вызывается только под полным мьютексом. Ошибка сохранения не откатывает
// состояние в памяти: следующий удачный Save зафиксирует накопленное.
func (r *TaskRepository) persistTasks(ctx context.Context) error {
	snapshot := r.sortedLocked()
	if err := r.store.Save(ctx, DocTasks, snapshot); err != nil {
		logger.Error("Repository: Не удалось сохранить снимок коллекции", err)
		return fmt.Errorf("сохранение коллекции: %w", err)
	}
	return nil
}

// sortedLocked — вся коллекция, новые по дате создания первыми,
// при равенстве времени решает порядок идентификаторов
func (r *TaskRepository) sortedLocked() []*task.Task {
	res := make([]*task.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].ID > res[j].ID
	})
	return res
}

func (r *TaskRepository) List() []*task.Task {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	sorted := r.sortedLocked()
	res := make([]*task.Task, len(sorted))
	for i, t := range sorted {
		res[i] = t.Clone()
	}
	return res
}

func (r *TaskRepository) Get(id string) (*task.Task, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Create выдаёт свежий локальный id и кладёт запись со статусом local.
// Локальная запись обязана пережить полностью отсутствующую удалённую сторону.
func (r *TaskRepository) Create(ctx context.Context, payload task.NewTaskPayload) (*task.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	now := r.now()
	id := task.NewLocalID(now)
	for _, exists := r.tasks[id]; exists; _, exists = r.tasks[id] {
		// коллизия почти невероятна, но дешевле перегенерировать, чем проверять
		id = task.NewLocalID(now)
	}

	t := task.FromPayload(payload)
	t.ID = id
	t.CreatedAt = now
	t.LastEdited = now
	t.SyncStatus = task.SyncLocal
	t.LocalOnly = true

	r.tasks[id] = t
	if err := r.persistTasks(ctx); err != nil {
		return nil, err
	}

	logger.Info("Repository: Создана локальная задача", zap.String("task_id", id))
	return t.Clone(), nil
}

// Update накладывает только присутствующие поля патча; подтверждённая
// запись переходит в pending, несинхронизированные статусы не меняются
func (r *TaskRepository) Update(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}

	patch.Apply(t)
	t.LastEdited = r.now()
	if t.SyncStatus == task.SyncSynced {
		t.SyncStatus = task.SyncPending
	}

	if err := r.persistTasks(ctx); err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return false, nil
	}
	delete(r.tasks, id)
	if err := r.persistTasks(ctx); err != nil {
		return true, err
	}
	logger.Info("Repository: Задача удалена", zap.String("task_id", id))
	return true, nil
}

// MergeRemote сливает удалённую выборку в локальную коллекцию.
// Правила: незнакомый id — вставка со статусом synced; запись в pending
// неприкосновенна независимо от меток времени — локальное намерение
// побеждает, пока не подтверждено; иначе удалённая версия берёт верх при
// last_edited >= локального. Отсутствующие в выборке записи не удаляются:
// выборка может быть отфильтрованной или постраничной.
func (r *TaskRepository) MergeRemote(ctx context.Context, remoteTasks []*task.Task) (MergeReport, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	report := MergeReport{}
	for _, rt := range remoteTasks {
		local, known := r.tasks[rt.ID]
		if !known {
			added := rt.Clone()
			if added.CreatedAt.IsZero() {
				added.CreatedAt = added.LastEdited
			}
			added.SyncStatus = task.SyncSynced
			added.LocalOnly = false
			r.tasks[added.ID] = added
			report.Added++
			report.Changed = append(report.Changed, added.Clone())
			continue
		}

		if local.SyncStatus == task.SyncPending {
			continue
		}
		if rt.LastEdited.Before(local.LastEdited) {
			continue
		}

		local.CopyDomainFrom(rt)
		local.SyncStatus = task.SyncSynced
		local.LocalOnly = false
		report.Updated++
		report.Changed = append(report.Changed, local.Clone())
	}

	if report.Added == 0 && report.Updated == 0 {
		return report, nil
	}
	if err := r.persistTasks(ctx); err != nil {
		return report, err
	}

	logger.Info("Repository: Слияние завершено",
		zap.Int("added", report.Added),
		zap.Int("updated", report.Updated),
		zap.Int("fetched", len(remoteTasks)),
	)
	return report, nil
}

// Pending — набор повторной отправки: всё, что ещё не подтверждено
func (r *TaskRepository) Pending() []*task.Task {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	res := []*task.Task{}
	for _, t := range r.sortedLocked() {
		if t.SyncStatus.Unsynced() {
			res = append(res, t.Clone())
		}
	}
	return res
}

// MarkSynced переписывает идентификатор записи с локального на удалённый —
// единственная операция, меняющая идентичность записи. Старый id после
// вызова считается недействительным.
func (r *TaskRepository) MarkSynced(ctx context.Context, localID, remoteID string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	t, ok := r.tasks[localID]
	if !ok {
		return ErrNotFound
	}

	delete(r.tasks, localID)
	t.ID = remoteID
	t.SyncStatus = task.SyncSynced
	t.LocalOnly = false
	r.tasks[remoteID] = t

	if err := r.persistTasks(ctx); err != nil {
		return err
	}
	logger.Info("Repository: Задача подтверждена удалённой стороной",
		zap.String("local_id", localID),
		zap.String("remote_id", remoteID),
	)
	return nil
}

// MarkError помечает запись после невосстановимой ошибки удалённой операции
func (r *TaskRepository) MarkError(ctx context.Context, id string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.SyncStatus = task.SyncError

	return r.persistTasks(ctx)
}

// RequeueErrors возвращает error-записи в состояние до ошибки, чтобы они
// снова попали в набор повторной отправки (например, после смены токена)
func (r *TaskRepository) RequeueErrors(ctx context.Context) ([]*task.Task, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	requeued := []*task.Task{}
	for _, t := range r.tasks {
		if t.SyncStatus != task.SyncError {
			continue
		}
		if t.LocalOnly {
			t.SyncStatus = task.SyncLocal
		} else {
			t.SyncStatus = task.SyncPending
		}
		requeued = append(requeued, t.Clone())
	}

	if len(requeued) == 0 {
		return requeued, nil
	}
	return requeued, r.persistTasks(ctx)
}

// ApplyRemote принимает запись, которую удалённая сторона вернула в ответ
// на наше же обновление: прямой перенос допустим, это та же логическая
// правка. Пропускается, если запись успела уйти в pending более поздней
// локальной правкой, чем снимок asOf, — её доставит следующий цикл.
func (r *TaskRepository) ApplyRemote(ctx context.Context, rt *task.Task, asOf time.Time) (bool, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	local, ok := r.tasks[rt.ID]
	if !ok {
		// запись удалили локально, пока летел ответ
		return false, nil
	}
	if local.SyncStatus == task.SyncPending && local.LastEdited.After(asOf) {
		return false, nil
	}

	local.CopyDomainFrom(rt)
	local.SyncStatus = task.SyncSynced
	local.LocalOnly = false

	if err := r.persistTasks(ctx); err != nil {
		return true, err
	}
	return true, nil
}

func (r *TaskRepository) StatusOptions() []task.StatusOption {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return append([]task.StatusOption(nil), r.statusOptions...)
}

func (r *TaskRepository) SetStatusOptions(ctx context.Context, options []task.StatusOption) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.statusOptions = append([]task.StatusOption(nil), options...)
	if err := r.store.Save(ctx, DocStatusOptions, r.statusOptions); err != nil {
		logger.Error("Repository: Не удалось сохранить варианты статуса", err)
		return fmt.Errorf("сохранение вариантов статуса: %w", err)
	}
	return nil
}
