package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"todoKeeper/internal/config"
	"todoKeeper/internal/handlers"
	"todoKeeper/internal/logger"
	"todoKeeper/internal/middleware"
	"todoKeeper/internal/repository/task/inmemory"
	"todoKeeper/internal/repository/task/postgres"
	"todoKeeper/internal/service"
	"todoKeeper/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	repository service.TaskRepository
	worker     *worker.ReminderWorker
	shutdowns  []func() // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initRepository(ctx); err != nil {
		return err
	}

	taskService := service.NewTaskService(a.repository)
	taskHandler := handlers.NewTaskHandler(&taskService)

	a.worker = worker.NewReminderWorker(a.repository, &a.config.Worker.Interval, &a.config.Worker.BatchSize)

	a.router = a.routes(taskHandler)
	a.server = &http.Server{
		Addr:    a.config.GetServerAddr(),
		Handler: a.router,
	}

	return nil
}

func (a *App) initRepository(ctx context.Context) error {
	switch a.config.Repository.Type {
	case "postgres":
		storage, err := postgres.New(ctx, a.config.Database.URL, postgres.PoolConfig{
			MaxConns:    a.config.Database.MaxConnections,
			MinConns:    a.config.Database.MinConnections,
			IdleTimeout: a.config.Database.IdleTimeout,
		})
		if err != nil {
			return fmt.Errorf("инициализация postgres: %w", err)
		}
		a.shutdowns = append(a.shutdowns, storage.Close)
		a.repository = storage
	default:
		a.repository = inmemory.NewTaskStorage()
	}
	return nil
}

func (a *App) routes(taskHandler handlers.TaskHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.RateLimit(100))

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", taskHandler.GetTasks)  // GET /tasks
		r.Post("/", taskHandler.PostTask) // POST /tasks

		r.Route("/bulk", func(r chi.Router) {
			r.Post("/", taskHandler.BulkCreateTasks)   // POST /tasks/bulk
			r.Put("/", taskHandler.BulkUpdateTasks)    // PUT /tasks/bulk
			r.Delete("/", taskHandler.BulkDeleteTasks) // DELETE /tasks/bulk
		})

		r.Get("/search", taskHandler.SearchTasks)  // GET /tasks/search
		r.Get("/count", taskHandler.GetTasksCount) // GET /tasks/count
		r.Get("/stats", taskHandler.GetStats)      // GET /tasks/stats

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", taskHandler.GetTaskByID)       // GET /tasks/{id}
			r.Put("/", taskHandler.UpdateTaskByID)    // PUT /tasks/{id}
			r.Delete("/", taskHandler.DeleteTaskByID) // DELETE /tasks/{id}
		})
	})

	r.Delete("/admin/reset", taskHandler.ResetTasks)
	r.Get("/health", taskHandler.HealthCheck)

	return r
}

// Run запускает планировщик напоминаний и HTTP-сервер; завершение
// по отмене ctx останавливает оба
func (a *App) Run(ctx context.Context) error {
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	go a.worker.Start(workerCtx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started: " + a.config.GetServerAddr())
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.runShutdowns()
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Получен сигнал завершения, останавливаем сервер...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Ошибка остановки сервера", err)
		}
	}

	a.runShutdowns()
	return nil
}

func (a *App) runShutdowns() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
}
