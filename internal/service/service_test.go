package service_test

import (
	"context"
	"testing"
	"time"

	"taskSync/internal/models/task"
	"taskSync/internal/remote"
	"taskSync/internal/repository"
	"taskSync/internal/service"
	"taskSync/internal/store/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRemoteClient - мок удалённой стороны
type MockRemoteClient struct {
	mock.Mock
}

func (m *MockRemoteClient) FetchTasks(ctx context.Context) ([]*task.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockRemoteClient) CreateTask(ctx context.Context, payload task.NewTaskPayload) (*task.Task, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockRemoteClient) UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockRemoteClient) FetchStatusOptions(ctx context.Context) ([]task.StatusOption, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]task.StatusOption), args.Error(1)
}

var _ remote.Client = (*MockRemoteClient)(nil)

func newTestService(t *testing.T, client remote.Client) (*service.SyncService, *repository.TaskRepository) {
	t.Helper()
	repo, err := repository.New(context.Background(), inmemory.New())
	require.NoError(t, err)
	return service.NewSyncService(repo, client, time.Second, 16), repo
}

// TestSyncService_AddTaskWithoutRemote тестирует чисто локальное создание:
// мутация успешна мгновенно при полностью отсутствующей удалённой стороне
func TestSyncService_AddTaskWithoutRemote(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	created, err := svc.AddTask(ctx, task.NewTaskPayload{Title: "Buy milk"})
	require.NoError(t, err)

	assert.True(t, task.IsLocalID(created.ID))
	assert.Equal(t, task.SyncLocal, created.SyncStatus)

	got, ok := svc.GetTask(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Buy milk", got.Title)
}

// TestSyncService_AddTaskAck тестирует подтверждение создания: вызов
// возвращается сразу со статусом local, фоном id переписывается на удалённый
func TestSyncService_AddTaskAck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := new(MockRemoteClient)
	client.On("CreateTask", mock.Anything, mock.Anything).Return(&task.Task{
		ID:         "r42",
		Title:      "Buy milk",
		LastEdited: time.Now(),
	}, nil)

	svc, _ := newTestService(t, client)
	svc.Start(ctx)

	created, err := svc.AddTask(ctx, task.NewTaskPayload{Title: "Buy milk"})
	require.NoError(t, err)
	// вызывающий код не ждал сеть
	assert.Equal(t, task.SyncLocal, created.SyncStatus)
	assert.True(t, task.IsLocalID(created.ID))

	assert.Eventually(t, func() bool {
		_, gone := svc.GetTask(created.ID)
		acked, ok := svc.GetTask("r42")
		return !gone && ok && acked.SyncStatus == task.SyncSynced
	}, 2*time.Second, 10*time.Millisecond)

	client.AssertExpectations(t)
}

// TestSyncService_AddTaskRemoteDown тестирует временный сбой создания:
// запись остаётся local и входит в набор повторной отправки
func TestSyncService_AddTaskRemoteDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := new(MockRemoteClient)
	client.On("CreateTask", mock.Anything, mock.Anything).
		Return(nil, remote.NewError(remote.ErrTimeout, "таймаут"))

	svc, _ := newTestService(t, client)
	svc.Start(ctx)

	created, err := svc.AddTask(ctx, task.NewTaskPayload{Title: "офлайн"})
	require.NoError(t, err)

	// даём потребителю очереди время упереться в таймаут
	time.Sleep(100 * time.Millisecond)

	got, ok := svc.GetTask(created.ID)
	require.True(t, ok)
	assert.Equal(t, task.SyncLocal, got.SyncStatus)
	assert.Len(t, svc.Pending(), 1)
}

// TestSyncService_AddTaskUnauthenticated тестирует невосстановимый сбой:
// запись помечается error и выпадает из набора повторной отправки
func TestSyncService_AddTaskUnauthenticated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := new(MockRemoteClient)
	client.On("CreateTask", mock.Anything, mock.Anything).
		Return(nil, remote.NewError(remote.ErrUnauthenticated, "токен отозван"))

	svc, _ := newTestService(t, client)
	svc.Start(ctx)

	created, err := svc.AddTask(ctx, task.NewTaskPayload{Title: "без токена"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		got, ok := svc.GetTask(created.ID)
		return ok && got.SyncStatus == task.SyncError
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, svc.Pending())
}

// TestSyncService_GetTasksMerges тестирует освежение списка слиянием
func TestSyncService_GetTasksMerges(t *testing.T) {
	ctx := context.Background()

	client := new(MockRemoteClient)
	client.On("FetchTasks", mock.Anything).Return([]*task.Task{
		{ID: "r1", Title: "с удалённой стороны", LastEdited: time.Now()},
	}, nil)

	svc, _ := newTestService(t, client)

	tasks, err := svc.GetTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "r1", tasks[0].ID)
	assert.Equal(t, task.SyncSynced, tasks[0].SyncStatus)
}

// TestSyncService_GetTasksRemoteDown тестирует деградацию чтения:
// сбой запроса отдаёт локальный список без ошибки
func TestSyncService_GetTasksRemoteDown(t *testing.T) {
	ctx := context.Background()

	client := new(MockRemoteClient)
	client.On("FetchTasks", mock.Anything).
		Return(nil, remote.NewError(remote.ErrTimeout, "недоступна"))

	svc, _ := newTestService(t, client)
	created, err := svc.AddTask(ctx, task.NewTaskPayload{Title: "локальная"})
	require.NoError(t, err)

	tasks, err := svc.GetTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, created.ID, tasks[0].ID)
}

// TestSyncService_GetTasksDuplicateOnIDMismatch тестирует сценарий дубля:
// неподтверждённая локальная копия и её удалённый двойник с другим id
// сосуществуют — слияние строго по id
func TestSyncService_GetTasksDuplicateOnIDMismatch(t *testing.T) {
	ctx := context.Background()

	client := new(MockRemoteClient)
	client.On("FetchTasks", mock.Anything).Return([]*task.Task{
		{ID: "rX", Title: "Buy milk", LastEdited: time.Now()},
	}, nil)

	svc, _ := newTestService(t, client)
	created, err := svc.AddTask(ctx, task.NewTaskPayload{Title: "Buy milk"})
	require.NoError(t, err)
	assert.True(t, task.IsLocalID(created.ID))

	tasks, err := svc.GetTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

// TestSyncService_UpdateTaskAck тестирует подтверждение обновления:
// ответ удалённой стороны становится новой объединённой истиной
func TestSyncService_UpdateTaskAck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := new(MockRemoteClient)
	client.On("UpdateTask", mock.Anything, "r1", mock.Anything).Return(&task.Task{
		ID:         "r1",
		Title:      "правка",
		LastEdited: time.Now().Add(time.Second),
	}, nil)

	svc, repo := newTestService(t, client)
	_, err := repo.MergeRemote(ctx, []*task.Task{
		{ID: "r1", Title: "исходная", LastEdited: time.Now().Add(-time.Hour)},
	})
	require.NoError(t, err)

	svc.Start(ctx)

	title := "правка"
	updated, err := svc.UpdateTask(ctx, "r1", task.Patch{Title: &title})
	require.NoError(t, err)
	// локальная запись сразу в pending, без ожидания сети
	assert.Equal(t, task.SyncPending, updated.SyncStatus)

	assert.Eventually(t, func() bool {
		got, ok := svc.GetTask("r1")
		return ok && got.SyncStatus == task.SyncSynced
	}, 2*time.Second, 10*time.Millisecond)

	client.AssertExpectations(t)
}

// TestSyncService_UpdateLocalOnlySkipsRemote тестирует, что запись с
// локальным id не отправляется как удалённое обновление
func TestSyncService_UpdateLocalOnlySkipsRemote(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := new(MockRemoteClient)
	// CreateTask упадёт, чтобы запись осталась local
	client.On("CreateTask", mock.Anything, mock.Anything).
		Return(nil, remote.NewError(remote.ErrTimeout, "недоступна"))

	svc, _ := newTestService(t, client)
	svc.Start(ctx)

	created, err := svc.AddTask(ctx, task.NewTaskPayload{Title: "локальная"})
	require.NoError(t, err)

	title := "правка локальной"
	_, err = svc.UpdateTask(ctx, created.ID, task.Patch{Title: &title})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	client.AssertNotCalled(t, "UpdateTask", mock.Anything, mock.Anything, mock.Anything)
}

// TestSyncService_UpdateNotFound тестирует бизнес-ошибку NOT_FOUND
func TestSyncService_UpdateNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	title := "x"
	_, err := svc.UpdateTask(ctx, "нет такой", task.Patch{Title: &title})
	require.Error(t, err)

	var businessErr *service.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, "NOT_FOUND", businessErr.Code)
}

// TestSyncService_Resync тестирует повторную отправку: застрявшая local
// запись доставляется при следующем проходе
func TestSyncService_Resync(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := new(MockRemoteClient)
	client.On("CreateTask", mock.Anything, mock.Anything).
		Return(nil, remote.NewError(remote.ErrTimeout, "недоступна")).Once()
	client.On("CreateTask", mock.Anything, mock.Anything).Return(&task.Task{
		ID:         "r77",
		Title:      "дошла",
		LastEdited: time.Now(),
	}, nil)

	svc, _ := newTestService(t, client)
	svc.Start(ctx)

	created, err := svc.AddTask(ctx, task.NewTaskPayload{Title: "дошла"})
	require.NoError(t, err)

	// первый заход упал
	time.Sleep(100 * time.Millisecond)
	require.Len(t, svc.Pending(), 1)

	offered := svc.Resync(ctx, 0)
	assert.Equal(t, 1, offered)

	assert.Eventually(t, func() bool {
		_, gone := svc.GetTask(created.ID)
		acked, ok := svc.GetTask("r77")
		return !gone && ok && acked.SyncStatus == task.SyncSynced
	}, 2*time.Second, 10*time.Millisecond)
}

// TestSyncService_ResyncWithoutRemote тестирует, что без удалённой стороны
// проход ничего не предлагает
func TestSyncService_ResyncWithoutRemote(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	_, err := svc.AddTask(ctx, task.NewTaskPayload{Title: "локальная"})
	require.NoError(t, err)
	assert.Equal(t, 0, svc.Resync(ctx, 0))
}

// TestSyncService_SubscribeOrdering тестирует порядок доставки истории
// одной задачи подписчику
func TestSyncService_SubscribeOrdering(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	id, events := svc.Subscribe()
	defer svc.Unsubscribe(id)

	created, err := svc.AddTask(ctx, task.NewTaskPayload{Title: "v1"})
	require.NoError(t, err)
	for _, title := range []string{"v2", "v3"} {
		titleCopy := title
		_, err = svc.UpdateTask(ctx, created.ID, task.Patch{Title: &titleCopy})
		require.NoError(t, err)
	}

	var titles []string
	for i := 0; i < 3; i++ {
		select {
		case ev := <-events:
			titles = append(titles, ev.Title)
		case <-time.After(time.Second):
			t.Fatal("событие не доставлено")
		}
	}
	assert.Equal(t, []string{"v1", "v2", "v3"}, titles)
}

// TestSyncService_GetStatusOptions тестирует освежение вариантов статуса
// и деградацию к кешу при сбое
func TestSyncService_GetStatusOptions(t *testing.T) {
	ctx := context.Background()

	options := []task.StatusOption{{ID: "s1", Name: "To do", Color: "gray"}}

	client := new(MockRemoteClient)
	client.On("FetchStatusOptions", mock.Anything).Return(options, nil).Once()
	client.On("FetchStatusOptions", mock.Anything).
		Return(nil, remote.NewError(remote.ErrTimeout, "недоступна"))

	svc, _ := newTestService(t, client)

	got, err := svc.GetStatusOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, options, got)

	// сбой — отдаётся кеш
	got, err = svc.GetStatusOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, options, got)
}

// TestSyncService_Reconfigure тестирует возврат error-записей после
// смены учётных данных
func TestSyncService_Reconfigure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bad := new(MockRemoteClient)
	bad.On("CreateTask", mock.Anything, mock.Anything).
		Return(nil, remote.NewError(remote.ErrUnauthenticated, "токен отозван"))

	svc, _ := newTestService(t, bad)
	svc.Start(ctx)

	created, err := svc.AddTask(ctx, task.NewTaskPayload{Title: "застряла"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		got, ok := svc.GetTask(created.ID)
		return ok && got.SyncStatus == task.SyncError
	}, 2*time.Second, 10*time.Millisecond)

	good := new(MockRemoteClient)
	require.NoError(t, svc.Reconfigure(ctx, good, time.Second))

	got, ok := svc.GetTask(created.ID)
	require.True(t, ok)
	assert.Equal(t, task.SyncLocal, got.SyncStatus)
	assert.Len(t, svc.Pending(), 1)
}
