package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskini/internal/api"
	"taskini/internal/api/handler"
	"taskini/internal/app/service"
	"taskini/internal/app/worker"
	"taskini/internal/common/security"
	"taskini/internal/domain/repository"
	"taskini/internal/platform/cache"
	"taskini/internal/platform/config"
	"taskini/internal/platform/database"
	"taskini/internal/platform/queue"
	"taskini/internal/platform/session"
	"taskini/internal/platform/storage"
)

func main() {
	// 1. Configuration
	config.Load()
	cfg := config.AppConfig
	fmt.Println("Configuration loaded.")

	// 2. JWT
	security.InitJWT()

	// 3. Store
	var (
		userRepo repository.UserRepository
		taskRepo repository.TaskRepository
	)
	switch cfg.StoreDriver {
	case config.StorePostgres:
		database.Connect()
		defer database.Close()
		userRepo = repository.NewPgUserRepository(database.DB)
		taskRepo = repository.NewPgTaskRepository(database.DB)
	case config.StoreMongo:
		database.ConnectMongo()
		defer database.CloseMongo()
		idxCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := repository.EnsureMongoIndexes(idxCtx, database.MongoDB); err != nil {
			cancel()
			log.Fatalf("Could not create MongoDB indexes: %v", err)
		}
		cancel()
		userRepo = repository.NewMongoUserRepository(database.MongoDB)
		taskRepo = repository.NewMongoTaskRepository(database.MongoDB)
	default:
		log.Fatalf("Unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	fmt.Printf("Using %s store.\n", cfg.StoreDriver)

	// 4. Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()

	summaryCache := cache.New(queue.RDB, "taskini:", cfg.CacheTTL)
	sessions := session.NewStore(queue.RDB, cfg.RevokedTokenPrefix, cfg.SessionChannelPrefix)
	cleanupQueue := queue.NewPhotoCleanupQueue(queue.RDB, cfg.PhotoCleanupQueue)

	// 5. Photo storage
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 10*time.Second)
	photos, err := storage.Open(storageCtx, cfg)
	storageCancel()
	if err != nil {
		log.Fatalf("Could not open %s photo storage: %v", cfg.StorageDriver, err)
	}
	defer photos.Close()
	fmt.Printf("Using %s photo storage.\n", cfg.StorageDriver)

	// 6. Services
	directory := service.NewUserDirectory(userRepo, summaryCache)
	authService := service.NewAuthService(userRepo, sessions)
	taskService := service.NewTaskService(taskRepo, userRepo, directory)
	profileService := service.NewProfileService(userRepo, photos, cleanupQueue, directory)
	userService := service.NewUserService(userRepo)
	statsService := service.NewStatsService(userRepo, taskRepo, cleanupQueue, summaryCache)

	// 7. Photo cleanup worker
	cleanupWorker := worker.NewPhotoCleanupWorker(queue.RDB, cleanupQueue, photos, worker.Options{
		LockTTL:     time.Duration(cfg.PhotoCleanupLockTTLSeconds) * time.Second,
		MaxAttempts: cfg.PhotoCleanupMaxAttempts,
		Backoff:     cfg.PhotoCleanupBackoff,
	})
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()
	workerDone := make(chan struct{})
	go func() {
		cleanupWorker.Start(appCtx)
		close(workerDone)
	}()

	// 8. Router & HTTP server
	authHandler := handler.NewAuthHandler(authService, sessions)
	router := api.NewRouter(api.Handlers{
		Auth:    authHandler,
		Tasks:   handler.NewTaskHandler(taskService),
		Profile: handler.NewProfileHandler(profileService, taskService),
		Users:   handler.NewUserHandler(userService, statsService),
		Uploads: handler.NewUploadHandler(photos),
	}, sessions)

	server := newHTTPServer(":"+cfg.APIPort, router, authHandler.CloseStreams)

	// 9. Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
		}
	}()

	<-stop

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// In-flight requests drain first; the worker stops once nothing can enqueue.
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server shutdown failed: %v", err)
	}
	appCancel()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Println("WARN: Photo cleanup worker did not stop in time.")
	}

	log.Println("Server and worker stopped gracefully.")
}

// newHTTPServer has no WriteTimeout: /api/auth/events streams stay open and
// other routes run under the router timeout. onShutdown hooks run when
// Shutdown starts, before it waits for active connections.
func newHTTPServer(addr string, h http.Handler, onShutdown ...func()) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	for _, f := range onShutdown {
		server.RegisterOnShutdown(f)
	}
	return server
}
