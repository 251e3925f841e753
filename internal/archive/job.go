package archive

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/okian/sitelog/pkg/logger"
	"github.com/okian/sitelog/pkg/metrics"
)

// Result messages.
const (
	MessageArchived = "Events archived successfully"
	MessageNoEvents = "No events to archive"
	ErrorArchival   = "Archival failed"
)

// Run outcomes, as recorded in metrics.
const (
	OutcomeArchived = "archived"
	OutcomeEmpty    = "empty"
	OutcomeFailed   = "failed"
)

// Result summarizes one archival run.
type Result struct {
	StatusCode     int
	Outcome        string
	Message        string
	Window         Window
	SitesProcessed int
	ArchivedFiles  []string
}

// Body is the JSON document reported for the run. Its shape depends on
// the outcome.
func (r Result) Body() map[string]any {
	switch r.Outcome {
	case OutcomeFailed:
		return map[string]any{"error": ErrorArchival, "message": r.Message}
	case OutcomeEmpty:
		return map[string]any{"message": r.Message, "time_range": r.Window.String()}
	default:
		files := r.ArchivedFiles
		if files == nil {
			files = []string{}
		}
		return map[string]any{
			"message":         r.Message,
			"files_created":   len(r.ArchivedFiles),
			"sites_processed": r.SitesProcessed,
			"time_range":      r.Window.String(),
			"archived_files":  files,
		}
	}
}

// Response is the scheduled-function reply.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Job runs the scan and archive steps for one window.
type Job struct {
	scanner  *Scanner
	archiver *Archiver
	clock    func() time.Time
	logger   logger.Logger
}

// NewJob returns a Job.
func NewJob(scanner *Scanner, archiver *Archiver, opts ...Option) *Job {
	o := apply(opts)
	return &Job{scanner: scanner, archiver: archiver, clock: o.clock, logger: o.logger.Named("job")}
}

// RunPreviousHour archives the last full hour before the current time.
func (j *Job) RunPreviousHour(ctx context.Context) (Result, error) {
	return j.Run(ctx, PreviousHour(j.clock()))
}

// Run archives w. A scan error fails the whole run and is returned along
// with a failed Result; per-site errors only shrink ArchivedFiles.
func (j *Job) Run(ctx context.Context, w Window) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordArchiveDuration(float64(time.Since(start).Nanoseconds()) / 1e6)
	}()

	j.logger.Info(ctx, "starting hourly archival", logger.String("time_range", w.String()))

	groups, err := j.scanner.Scan(ctx, w)
	if err != nil {
		metrics.RecordArchiveRun(OutcomeFailed)
		j.logger.Error(ctx, "error during archival", logger.Error(err))
		return Result{
			StatusCode: http.StatusInternalServerError,
			Outcome:    OutcomeFailed,
			Message:    err.Error(),
			Window:     w,
		}, err
	}

	if len(groups) == 0 {
		metrics.RecordArchiveRun(OutcomeEmpty)
		j.logger.Info(ctx, "no events found for window", logger.String("time_range", w.String()))
		return Result{StatusCode: http.StatusOK, Outcome: OutcomeEmpty, Message: MessageNoEvents, Window: w}, nil
	}

	keys := j.archiver.ArchiveAll(ctx, groups, w.Start)
	metrics.RecordArchiveRun(OutcomeArchived)
	j.logger.Info(ctx, "archived log files",
		logger.Int("files_created", len(keys)),
		logger.Int("sites_processed", len(groups)))

	return Result{
		StatusCode:     http.StatusOK,
		Outcome:        OutcomeArchived,
		Message:        MessageArchived,
		Window:         w,
		SitesProcessed: len(groups),
		ArchivedFiles:  keys,
	}, nil
}

// HandleScheduled is the scheduled-function entry point. Scan failures are
// reported in the response rather than as an invocation error.
func (j *Job) HandleScheduled(ctx context.Context, ev events.CloudWatchEvent) (Response, error) {
	now := j.clock()
	if !ev.Time.IsZero() {
		now = ev.Time
	}
	res, _ := j.Run(ctx, PreviousHour(now))
	body, err := json.Marshal(res.Body())
	if err != nil {
		return Response{}, err
	}
	return Response{StatusCode: res.StatusCode, Body: string(body)}, nil
}
