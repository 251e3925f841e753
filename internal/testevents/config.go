package testevents

import "time"

// Config holds configuration for the traffic simulation.
type Config struct {
	BaseURL    string        // Base URL of the collector
	Sessions   int           // Number of visitor sessions to simulate
	Sites      []string      // Site ids the sessions are spread across
	PixelRatio float64       // Share of page views sent as GET pixels
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated payloads
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Hit is one request to send to /collect. Payload is the POST body; Query is
// used instead for GET pixels.
type Hit struct {
	Method  string            `json:"method"`
	Payload map[string]any    `json:"payload,omitempty"`
	Query   map[string]string `json:"query,omitempty"`
}

// AckResponse represents the response from event submission.
type AckResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Stats holds simulation statistics.
type Stats struct {
	HitsGenerated   int
	BatchesInHits   int
	HitsSubmitted   int
	HitsSuccessful  int
	HitsFailed      int
	RecordsReported int64
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
