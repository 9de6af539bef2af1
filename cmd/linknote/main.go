package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/linknote/internal/analyze"
	"github.com/xxxsen/linknote/internal/config"
	"github.com/xxxsen/linknote/internal/db"
	"github.com/xxxsen/linknote/internal/dispatch"
	"github.com/xxxsen/linknote/internal/handler"
	"github.com/xxxsen/linknote/internal/job"
	"github.com/xxxsen/linknote/internal/middleware"
	"github.com/xxxsen/linknote/internal/repo"
	"github.com/xxxsen/linknote/internal/schedule"
	"github.com/xxxsen/linknote/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "linknote",
		Short: "linknote backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run linknote server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	rootLogger := logutil.GetLogger(context.Background())
	rootLogger.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_path", cfg.DBPath),
		zap.String("analyzer", cfg.Analyzer.Provider),
	)

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	noteRepo := repo.NewNoteRepo(conn)
	ftsRepo := repo.NewFTSRepo(conn)
	categoryRepo := repo.NewCategoryRepo(conn)
	jobRepo := repo.NewIngestJobRepo(conn)

	categoryService := service.NewCategoryService(conn, categoryRepo, noteRepo)
	noteService, err := service.NewNoteService(noteRepo, ftsRepo, categoryService)
	if err != nil {
		return fmt.Errorf("init note service: %w", err)
	}

	fetcher := analyze.NewHTTPFetcher(analyze.HTTPFetcherConfig{
		Timeout:   time.Duration(cfg.Fetch.TimeoutSec) * time.Second,
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
	})
	analyzer, err := analyze.NewAnalyzer(cfg.Analyzer.Provider, cfg.Analyzer.Args)
	if err != nil {
		return fmt.Errorf("init analyzer: %w", err)
	}
	engine := analyze.NewEngine(fetcher, analyzer, cfg.DefaultCategory)

	dispatcher := dispatch.NewDispatcher(cfg.Dispatch.Workers, cfg.Dispatch.QueueSize)
	ingestService := service.NewIngestService(jobRepo, noteService, engine, dispatcher)
	importService := service.NewImportService(noteService, ingestService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	dispatcher.Start(ctx, ingestService.ProcessJob)

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewKindBackfillJob(noteService, cfg.Backfill.BatchSize), cfg.Backfill.CronSpec); err != nil {
		return fmt.Errorf("schedule backfill: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Notes:      handler.NewNoteHandler(noteService),
		Ingest:     handler.NewIngestHandler(ingestService),
		Categories: handler.NewCategoryHandler(categoryService),
		Import:     handler.NewImportHandler(importService),
	}
	if cfg.RateLimitSec > 0 {
		deps.Throttle = middleware.RateLimit(time.Duration(cfg.RateLimitSec) * time.Second)
	}

	engineAPI, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	rootLogger.Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engineAPI.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	rootLogger.Info("server stopping...")
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := dispatcher.Stop(stopCtx); err != nil {
		rootLogger.Warn("dispatcher drain timed out", zap.Error(err))
	}
	return nil
}
