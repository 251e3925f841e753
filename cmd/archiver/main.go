package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	app "github.com/okian/sitelog/internal/app"
	"github.com/okian/sitelog/internal/archive"
	"github.com/okian/sitelog/internal/config"
	"github.com/okian/sitelog/pkg/logger"
	"github.com/okian/sitelog/pkg/metrics"
)

func main() {
	var (
		once = flag.Bool("once", false, "Archive a single hour and exit")
		hour = flag.String("hour", "", "Hour to archive with -once, RFC3339 (default: the previous hour)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(logger.Format(cfg.LogFormat))); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Named("archiver")

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := cfg.ValidateStandaloneArchiver(*once && cfg.Runtime != config.RuntimeLambda); err != nil {
		log.Error(ctx, "archiver cannot read the collector's store", logger.Error(err))
		os.Exit(1)
	}

	metrics.Configure(metrics.WithConstLabels(map[string]string{"environment": cfg.Environment}))

	svc := app.New(app.WithConfig(cfg), app.WithLogger(log))
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	switch {
	case cfg.Runtime == config.RuntimeLambda:
		lambda.StartWithOptions(svc.Job().HandleScheduled, lambda.WithContext(ctx))
	case *once:
		if code := runOnce(ctx, svc.Job(), *hour, log); code != 0 {
			svc.Stop()
			os.Exit(code)
		}
	default:
		if err := svc.RunScheduler(ctx); err != nil {
			log.Error(ctx, "scheduler stopped", logger.Error(err))
		}
	}
}

func runOnce(ctx context.Context, job *archive.Job, hour string, log logger.Logger) int {
	w := archive.PreviousHour(time.Now())
	if hour != "" {
		t, err := time.Parse(time.RFC3339, hour)
		if err != nil {
			log.Error(ctx, "invalid -hour", logger.String("hour", hour), logger.Error(err))
			return 2
		}
		w = archive.HourOf(t)
	}

	res, err := job.Run(ctx, w)
	out, _ := json.Marshal(res.Body())
	os.Stdout.Write(append(out, '\n'))
	if err != nil {
		return 1
	}
	return 0
}
