package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"taskSync/internal/config"
	"taskSync/internal/handlers"
	"taskSync/internal/logger"
	"taskSync/internal/middleware"
	"taskSync/internal/remote"
	"taskSync/internal/repository"
	"taskSync/internal/service"
	"taskSync/internal/store"
	"taskSync/internal/store/file"
	"taskSync/internal/store/inmemory"
	"taskSync/internal/store/postgres"
	"taskSync/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	repo      *repository.TaskRepository
	service   *service.SyncService
	worker    *worker.ResyncWorker
	shutdowns []func(context.Context) // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(context.Context), 0),
	}
}

func (a *App) Init(ctx context.Context) error {

	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func(context.Context) {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	st, err := a.buildStore(ctx)
	if err != nil {
		return fmt.Errorf("инициализация хранилища: %w", err)
	}

	a.repo, err = repository.New(ctx, st)
	if err != nil {
		return fmt.Errorf("инициализация репозитория: %w", err)
	}

	var client remote.Client
	if a.config.RemoteConfigured() {
		rc := a.config.RemoteSettings()
		client = remote.NewHTTPClient(rc.BaseURL, rc.Token, rc.Timeout)
		logger.Info("App: Удалённая сторона настроена")
	} else {
		logger.Info("App: Удалённая сторона не настроена, работаем только локально")
	}

	a.service = service.NewSyncService(a.repo, client, a.config.Remote.Timeout, a.config.Sync.QueueSize)
	a.worker = worker.NewResyncWorker(a.service, &a.config.Sync.ResyncInterval, &a.config.Sync.ResyncBatch)

	a.router = a.buildRouter()
	a.server = &http.Server{
		Addr:    a.config.GetServerAddr(),
		Handler: a.router,
	}
	return nil
}

func (a *App) buildStore(ctx context.Context) (store.Store, error) {
	switch a.config.Store.Type {
	case "postgres":
		st, err := postgres.New(ctx, a.config.Store.URL)
		if err != nil {
			return nil, err
		}
		a.shutdowns = append(a.shutdowns, func(context.Context) { st.Close() })
		return st, nil
	case "inmemory":
		return inmemory.New(), nil
	default:
		return file.New(a.config.Store.Path)
	}
}

func (a *App) buildRouter() *chi.Mux {
	taskHandler := handlers.NewTaskHandler(a.service)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.RateLimit(100))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
	}))

	r.Route("/tasks", func(r chi.Router) {

		r.Get("/events", taskHandler.Events) // GET /tasks/events — SSE

		// SSE-лента живёт дольше любого таймаута, поэтому таймаут
		// накладывается группой, а не на весь роутер
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/", taskHandler.GetTasks)  // GET /tasks — с ожиданием удалённой стороны
			r.Post("/", taskHandler.PostTask) // POST /tasks — мгновенно, локально

			r.Get("/pending", taskHandler.GetPendingTasks) // GET /tasks/pending
			r.Post("/resync", taskHandler.PostResync)      // POST /tasks/resync

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.GetTaskByID)   // GET /tasks/{id}
				r.Patch("/", taskHandler.PatchTask)   // PATCH /tasks/{id}
				r.Delete("/", taskHandler.DeleteTask) // DELETE /tasks/{id}
			})
		})
	})

	r.With(middleware.Timeout(30*time.Second)).Get("/status-options", taskHandler.GetStatusOptions)
	r.Get("/health", taskHandler.HealthCheck)
	return r
}

// Run блокирует до остановки сервера; фон (очередь исходящих и
// периодическая повторная отправка) живёт, пока жив ctx
func (a *App) Run(ctx context.Context) error {
	a.service.Start(ctx)
	go a.worker.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("App: Сервер запущен", zap.String("addr", a.server.Addr))
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown()
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("сервер: %w", err)
		}
		return nil
	}
}

// Reload перечитывает конфигурацию и пересобирает клиента удалённой
// стороны; error-записи возвращаются в набор повторной отправки
func (a *App) Reload(ctx context.Context) error {
	if err := a.config.Reload(); err != nil {
		return err
	}

	var client remote.Client
	rc := a.config.RemoteSettings()
	if a.config.RemoteConfigured() {
		client = remote.NewHTTPClient(rc.BaseURL, rc.Token, rc.Timeout)
	}
	return a.service.Reconfigure(ctx, client, rc.Timeout)
}

func (a *App) Shutdown() error {
	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.server.Shutdown(shCtx)

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i](shCtx)
	}
	return err
}
