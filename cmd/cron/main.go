package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"esim-service/internal/biz"
	"esim-service/internal/conf"

	"github.com/gaoyong06/go-pkg/logger"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"
)

var (
	flagconf string
)

// CronApp holds the use cases the scheduled jobs run against.
type CronApp struct {
	renewalUsecase *biz.RenewalOrderUseCase
}

const (
	// reconcileAge only orders pending at least this long get swept
	reconcileAge = 10 * time.Minute
	// reconcileBatch max orders per sweep
	reconcileBatch = 100
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}

	logConfig := &logger.Config{
		Level:         "info",
		Format:        "json",
		Output:        "stdout",
		FilePath:      "logs/esim-cron.log",
		MaxSize:       100,
		MaxAge:        30,
		MaxBackups:    10,
		Compress:      true,
		EnableConsole: true,
	}

	loggerInstance := logger.NewLogger(logConfig)

	loggerInstance = log.With(loggerInstance,
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "esim-cron",
	)

	logHelper := log.NewHelper(loggerInstance)

	app, cleanup, err := wireApp(&bc, loggerInstance)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	cronScheduler := cron.New(cron.WithSeconds())

	// Pending order reconciliation - every 5 minutes
	_, err = cronScheduler.AddFunc("0 */5 * * * *", func() {
		logHelper.Info("[CRON] Starting pending renewal reconciliation...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		acted, err := app.renewalUsecase.ReconcilePending(ctx, reconcileAge, reconcileBatch)
		if err != nil {
			logHelper.Errorf("[CRON] Error reconciling pending renewals: %v", err)
		} else {
			logHelper.Infof("[CRON] Finished pending renewal reconciliation: acted=%d", acted)
		}
	})
	if err != nil {
		logHelper.Errorf("Failed to add reconciliation job: %v", err)
	}

	cronScheduler.Start()
	logHelper.Info("========================================")
	logHelper.Info("Cron jobs started successfully")
	logHelper.Info("Scheduled jobs:")
	logHelper.Info("  - Pending renewal reconciliation: every 5 minutes")
	logHelper.Info("========================================")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logHelper.Info("Shutting down gracefully...")

	ctx := cronScheduler.Stop()
	select {
	case <-ctx.Done():
		logHelper.Info("Cron jobs stopped gracefully")
	case <-time.After(5 * time.Second):
		logHelper.Info("Cron jobs forced to stop after timeout")
	}
}
