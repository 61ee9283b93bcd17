package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-results-api/internal/dto"
	"github.com/noah-isme/academic-results-api/internal/repository"
	"github.com/noah-isme/academic-results-api/internal/service"
	"github.com/noah-isme/academic-results-api/pkg/cache"
	"github.com/noah-isme/academic-results-api/pkg/config"
	"github.com/noah-isme/academic-results-api/pkg/database"
	"github.com/noah-isme/academic-results-api/pkg/logger"
	"github.com/noah-isme/academic-results-api/pkg/storage"
)

func main() {
	var (
		timeout    time.Duration
		workers    int
		policy     string
		gradeTable string
		asJSON     bool
		snapshot   string
	)

	flag.DurationVar(&timeout, "timeout", 0, "Batch deadline (overrides RESULTS_BATCH_TIMEOUT)")
	flag.IntVar(&workers, "workers", 0, "Concurrent writers (overrides RESULTS_BATCH_WORKERS)")
	flag.StringVar(&policy, "policy", "", "Aggregation policy: auto, weighted or average")
	flag.StringVar(&gradeTable, "grade-table", "", "Grade table preset: standard or legacy")
	flag.BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	flag.StringVar(&snapshot, "snapshot", "", "Archive the generated results as csv or pdf under EXPORT_SNAPSHOT_DIR")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if timeout > 0 {
		cfg.Results.BatchTimeout = timeout
	}
	if workers > 0 {
		cfg.Results.BatchWorkers = workers
	}
	if policy != "" {
		cfg.Results.Policy = policy
	}
	if gradeTable != "" {
		cfg.Results.GradeTable = gradeTable
		cfg.Results.Boundaries = ""
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engineCfg, err := service.EngineConfigFromSettings(cfg.Results)
	if err != nil {
		logr.Fatal("invalid result engine configuration", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	// cached student views must not outlive the regenerated rows
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, cached results will expire naturally", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, "academic-results:", logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, nil, cfg.Results.CacheTTL, logr, redisClient != nil)

	resultRepo := repository.NewResultRepository(db)
	svc := service.NewResultService(
		repository.NewEnrollmentRepository(db),
		repository.NewGradeRepository(db),
		resultRepo,
		cacheSvc,
		engineCfg,
		nil,
		logr,
		nil,
	)

	summary, err := svc.GenerateAll(ctx)
	if err != nil {
		logr.Fatal("result generation failed", zap.Error(err))
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(summary)
	} else {
		fmt.Println(summary.Message)
		fmt.Printf("total=%d generated=%d skipped=%d failed=%d pending=%d duration=%dms\n",
			summary.Total, summary.Generated, summary.Skipped, summary.Failed, summary.Pending, summary.DurationMs)
		for _, f := range summary.Failures {
			fmt.Printf("  FAILED %s: %s\n", f.EnrollmentID, f.Reason)
		}
	}

	if snapshot != "" && !summary.Partial {
		exportSvc := service.NewExportService(resultRepo, service.ExportConfig{MaxRows: cfg.Exports.MaxRows}, nil, logr, nil, nil)
		if err := archiveSnapshot(ctx, exportSvc, cfg.Exports, snapshot, logr); err != nil {
			logr.Error("failed to archive result snapshot", zap.Error(err))
			os.Exit(1)
		}
	}

	if summary.Failed > 0 || summary.Partial {
		os.Exit(1)
	}
}

func archiveSnapshot(ctx context.Context, exports *service.ExportService, cfg config.ExportsConfig, format string, logr *zap.Logger) error {
	store, err := storage.NewLocalStorage(cfg.SnapshotDir)
	if err != nil {
		return err
	}
	file, err := exports.ExportResults(ctx, dto.ExportResultsRequest{Format: format})
	if err != nil {
		return err
	}
	path, err := store.Save(file.Filename, file.Data)
	if err != nil {
		return err
	}
	logr.Info("result snapshot archived", zap.String("path", path), zap.Int("rows", file.Rows))

	removed, err := store.CleanupOlderThan(cfg.SnapshotRetention)
	if err != nil {
		logr.Warn("snapshot cleanup failed", zap.Error(err))
		return nil
	}
	if len(removed) > 0 {
		logr.Info("expired snapshots removed", zap.Strings("files", removed))
	}
	return nil
}
