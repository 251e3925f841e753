package testevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/sitelog/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// ErrRecordsMissing is returned when the collector reports fewer stored
// records than acknowledged hits.
var ErrRecordsMissing = errors.New("collector stored fewer records than acknowledged")

// Run executes the complete simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting traffic simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.Sessions),
		logger.Any("sites", config.Sites),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()))

	client := newHTTPClient(config.Timeout)

	if err := checkServiceHealth(ctx, client, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	before, err := fetchStoredRecords(ctx, client, config)
	if err != nil {
		return fmt.Errorf("stats retrieval failed: %w", err)
	}

	hits := generateHits(ctx, config, stats)
	submitHits(ctx, config, hits, stats)

	after, err := fetchStoredRecords(ctx, client, config)
	if err != nil {
		return fmt.Errorf("stats retrieval failed: %w", err)
	}
	stats.RecordsReported = after - before

	if err := saveHitsToFile(ctx, config, hits); err != nil {
		logger.Get().Warn(ctx, "failed to save hits to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if stats.RecordsReported < int64(stats.HitsSuccessful) {
		return fmt.Errorf("%w: %d stored, %d acknowledged", ErrRecordsMissing, stats.RecordsReported, stats.HitsSuccessful)
	}
	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// fetchStoredRecords reads records_stored from /stats.
func fetchStoredRecords(ctx context.Context, client *HTTPClient, config *Config) (int64, error) {
	resp, err := client.Get(ctx, config.BaseURL+"/stats")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != StatusOK {
		return 0, fmt.Errorf("stats returned status %d", resp.StatusCode)
	}
	var stats struct {
		RecordsStored int64 `json:"records_stored"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return 0, fmt.Errorf("decode stats: %w", err)
	}
	return stats.RecordsStored, nil
}

// saveHitsToFile writes the generated hits as a JSON array.
func saveHitsToFile(ctx context.Context, config *Config, hits []Hit) error {
	if len(hits) == 0 {
		return errors.New("no hits to save")
	}

	filename := config.OutputFile
	if filename == "" {
		filename = "generated_hits_" + time.Now().Format("20060102_150405") + ".json"
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal hits: %w", err)
	}
	if err := os.WriteFile(filename, data, logFilePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "hits saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var successRate, hitsPerSecond float64
	if stats.HitsSubmitted > 0 {
		successRate = float64(stats.HitsSuccessful) / float64(stats.HitsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		hitsPerSecond = float64(stats.HitsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("hitsGenerated", stats.HitsGenerated),
		logger.Int("batches", stats.BatchesInHits),
		logger.Int("hitsSubmitted", stats.HitsSubmitted),
		logger.Int("hitsSuccessful", stats.HitsSuccessful),
		logger.Int("hitsFailed", stats.HitsFailed),
		logger.Int64("recordsStored", stats.RecordsReported),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("hitsPerSecond", hitsPerSecond))
}
