package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/okian/sitelog/internal/testevents"
	"github.com/okian/sitelog/pkg/logger"
)

const (
	defaultSessions   = 1000
	defaultSites      = "shop.example.com,blog.example.com"
	defaultPixelRatio = 0.2
	workersPerCPU     = 2
	defaultTimeout    = 30 * time.Second
	runTimeout        = 10 * time.Minute
)

func main() {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	fs.Usage = testevents.Usage(fs)
	var (
		baseURL    = fs.String("url", "http://localhost:9080", "collector base URL")
		sessions   = fs.Int("sessions", defaultSessions, "visitor sessions to replay")
		sites      = fs.String("sites", defaultSites, "comma separated site ids")
		pixel      = fs.Float64("pixel", defaultPixelRatio, "share of page views sent as GET pixels")
		workers    = fs.Int("workers", runtime.NumCPU()*workersPerCPU, "concurrent senders")
		timeout    = fs.Duration("timeout", defaultTimeout, "per-request timeout")
		outputFile = fs.String("output", "", "where to save generated hits (timestamped name when empty)")
		logFile    = fs.String("log", "", "log file, mirrored to stdout (timestamped name when empty)")
		verbose    = fs.Bool("verbose", false, "log progress at debug level")
	)
	_ = fs.Parse(os.Args[1:])

	closer, logPath, err := testevents.OpenLog(*logFile, *verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "simulate:", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	logger.Get().Info(ctx, "logging to file", logger.String("path", logPath))

	cfg := &testevents.Config{
		BaseURL:    *baseURL,
		Sessions:   *sessions,
		Sites:      strings.Split(*sites, ","),
		PixelRatio: *pixel,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    logPath,
		Verbose:    *verbose,
	}
	if err := testevents.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		cancel()
		closer.Close()
		os.Exit(1)
	}
}
