package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/sitelog/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, rawURL string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// Send issues hit against the collect endpoint.
func (c *HTTPClient) Send(ctx context.Context, collectURL string, hit Hit) (*http.Response, error) {
	if hit.Method == http.MethodGet {
		q := url.Values{}
		for k, v := range hit.Query {
			q.Set(k, v)
		}
		return c.Get(ctx, collectURL+"?"+q.Encode())
	}
	return c.Post(ctx, collectURL, hit.Payload)
}

// submitHits submits hits concurrently using a worker pool.
func submitHits(ctx context.Context, config *Config, hits []Hit, stats *Stats) {
	log.Printf("Submitting %d hits with %d workers...", len(hits), config.Workers)

	client := newHTTPClient(config.Timeout)
	collectURL := config.BaseURL + "/collect"

	var (
		successful atomic.Int64
		failed     atomic.Int64
		submitted  atomic.Int64
		lastReport atomic.Int64
	)

	hitChan := make(chan Hit, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for hit := range hitChan {
				if ctx.Err() != nil {
					continue
				}
				if submitSingleHit(ctx, client, collectURL, hit) {
					successful.Add(1)
				} else {
					failed.Add(1)
				}
				total := submitted.Add(1)

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) && config.Verbose {
					log.Printf("Progress: %d/%d submitted (success: %d, failed: %d)",
						total, len(hits), successful.Load(), failed.Load())
				}
			}
		}()
	}

	go func() {
		defer close(hitChan)
		for _, hit := range hits {
			select {
			case <-ctx.Done():
				return
			case hitChan <- hit:
			}
		}
	}()

	wg.Wait()

	stats.HitsSubmitted = int(submitted.Load())
	stats.HitsSuccessful = int(successful.Load())
	stats.HitsFailed = int(failed.Load())

	logger.Get().Info(ctx, "hit submission completed",
		logger.Int("successful", stats.HitsSuccessful),
		logger.Int("failed", stats.HitsFailed))
}

// submitSingleHit reports whether the collector acknowledged hit.
func submitSingleHit(ctx context.Context, client *HTTPClient, collectURL string, hit Hit) bool {
	resp, err := client.Send(ctx, collectURL, hit)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != StatusOK {
		return false
	}
	var ack AckResponse
	return json.Unmarshal(body, &ack) == nil && ack.Status == "success"
}
