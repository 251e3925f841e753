package testevents

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/sitelog/internal/domain/model"
	"github.com/okian/sitelog/pkg/logger"
)

const randomFloatDivisor = 1000000

var (
	pages = []string{"/", "/pricing", "/blog/launch", "/docs/getting-started", "/contact"}

	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148",
		"Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15",
		"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36",
	}

	touches = []map[string]any{
		{"source": "google", "medium": "organic", "category": "search"},
		{"source": "direct", "medium": "none", "category": "direct"},
		{"source": "newsletter", "medium": "email", "category": "email",
			"utmParams": map[string]any{"utm_source": "newsletter", "utm_medium": "email", "utm_campaign": "spring"}},
	}
)

// randomFloat returns a random float64 in [0, 1) using crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomInt(n int) int {
	if n <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

func pick[T any](list []T) T {
	return list[randomInt(len(list))]
}

// generateHits builds every request for config.Sessions sessions.
func generateHits(ctx context.Context, config *Config, stats *Stats) []Hit {
	logger.Get().Info(ctx, "generating session traffic", logger.Int("sessions", config.Sessions))

	now := time.Now().UTC()
	var hits []Hit
	for i := 0; i < config.Sessions; i++ {
		if ctx.Err() != nil {
			break
		}
		session := sessionHits(config, now)
		for _, h := range session {
			if h.Payload != nil && h.Payload["eventType"] == model.TypeBatch {
				stats.BatchesInHits++
			}
		}
		hits = append(hits, session...)
	}

	stats.HitsGenerated = len(hits)
	logger.Get().Info(ctx, "generated hits", logger.Int("count", len(hits)))
	return hits
}

// sessionHits simulates one visit: a few page views, an engagement batch
// and a page exit.
func sessionHits(config *Config, now time.Time) []Hit {
	site := pick(config.Sites)
	sessionID := uuid.NewString()
	visitorID := uuid.NewString()
	ua := pick(userAgents)
	touch := pick(touches)

	views := 1 + randomInt(4)
	hits := make([]Hit, 0, views+2)
	at := now
	for v := 0; v < views; v++ {
		path := pick(pages)
		at = at.Add(time.Duration(1+randomInt(30)) * time.Second)
		if randomFloat() < config.PixelRatio {
			hits = append(hits, Hit{Method: "GET", Query: map[string]string{
				"sid":    sessionID,
				"vid":    visitorID,
				"url":    "https://" + site + path,
				"source": touch["source"].(string),
				"medium": touch["medium"].(string),
			}})
			continue
		}
		hits = append(hits, Hit{Method: "POST", Payload: map[string]any{
			"eventType":   model.TypePageview,
			"siteId":      site,
			"sessionId":   sessionID,
			"visitorId":   visitorID,
			"url":         "https://" + site + path,
			"path":        path,
			"timestamp":   at.Format(time.RFC3339Nano),
			"browser":     map[string]any{"userAgent": ua},
			"page":        map[string]any{"title": "Page " + strconv.Itoa(v+1), "referrer": ""},
			"attribution": map[string]any{"firstTouch": touch, "currentTouch": touch},
		}})
	}

	hits = append(hits, Hit{Method: "POST", Payload: batchPayload(site, sessionID, visitorID, at)})

	timeSpent := 5000 + randomInt(120000)
	hits = append(hits, Hit{Method: "POST", Payload: map[string]any{
		"eventType": model.TypePageExit,
		"siteId":    site,
		"sessionId": sessionID,
		"visitorId": visitorID,
		"timestamp": at.Add(time.Duration(timeSpent) * time.Millisecond).Format(time.RFC3339Nano),
		"browser":   map[string]any{"userAgent": ua},
		"scroll":    map[string]any{"maxScrollPercentage": randomInt(101)},
		"eventData": map[string]any{"timeSpent": timeSpent},
	}})
	return hits
}

func batchPayload(site, sessionID, visitorID string, at time.Time) map[string]any {
	n := 2 + randomInt(10)
	events := make([]any, 0, n)
	for i := 0; i < n; i++ {
		switch randomInt(3) {
		case 0:
			events = append(events, map[string]any{"eventType": model.TypeClick})
		case 1:
			events = append(events, map[string]any{
				"eventType": model.TypeScroll,
				"eventData": map[string]any{"scrollPercentage": randomInt(101)},
			})
		default:
			events = append(events, map[string]any{
				"eventType": model.TypeScrollDepth,
				"eventData": map[string]any{"milestone": 25 * (1 + randomInt(4))},
			})
		}
	}
	duration := 1000 + randomInt(60000)
	return map[string]any{
		"eventType": model.TypeBatch,
		"siteId":    site,
		"sessionId": sessionID,
		"visitorId": visitorID,
		"events":    events,
		"batchMetadata": map[string]any{
			"activityDuration": duration,
			"sentOnExit":       randomInt(2) == 1,
			"batchStartTime":   at.Format(time.RFC3339Nano),
			"batchEndTime":     at.Add(time.Duration(duration) * time.Millisecond).Format(time.RFC3339Nano),
		},
	}
}
