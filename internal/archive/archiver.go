package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/okian/sitelog/internal/adapters/coldstore"
	"github.com/okian/sitelog/internal/domain/record"
	"github.com/okian/sitelog/pkg/logger"
	"github.com/okian/sitelog/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Object metadata keys.
const (
	MetaSiteID      = "site-id"
	MetaEventCount  = "event-count"
	MetaHourStart   = "hour-start"
	MetaEnvironment = "environment"
)

// headerField is one archive_info entry, in output order.
type headerField struct {
	key   string
	value any
}

// Archiver writes one object per site group.
type Archiver struct {
	bucket      coldstore.Bucket
	environment string
	concurrency int
	clock       func() time.Time
	logger      logger.Logger
}

// NewArchiver returns an Archiver writing to bucket.
func NewArchiver(bucket coldstore.Bucket, opts ...Option) *Archiver {
	o := apply(opts)
	return &Archiver{
		bucket:      bucket,
		environment: o.environment,
		concurrency: o.concurrency,
		clock:       o.clock,
		logger:      o.logger.Named("archiver"),
	}
}

// SanitizeSite makes a site id safe as a path segment.
func SanitizeSite(siteID string) string {
	return strings.ToLower(strings.NewReplacer(".", "-", "/", "-").Replace(siteID))
}

// ObjectKey is the cold store key of a site's archive for the hour starting
// at hourStart.
func ObjectKey(siteID string, hourStart time.Time) string {
	h := hourStart.UTC()
	return fmt.Sprintf("site-logs/domain=%s/year=%d/month=%02d/day=%02d/hour=%02d/events-%s.jsonl",
		SanitizeSite(siteID), h.Year(), int(h.Month()), h.Day(), h.Hour(), h.Format(keyHourLayout))
}

// Render serializes a group: a metadata header line followed by one
// compact JSON line per record.
func Render(g Group, hourStart, archivedAt time.Time, environment string) ([]byte, error) {
	var buf bytes.Buffer
	err := writeHeader(&buf, []headerField{
		{"site_id", g.SiteID},
		{"hour_start", hourStart.UTC().Format(isoLayout)},
		{"event_count", len(g.Items)},
		{"archived_at", isoTimestamp(archivedAt)},
		{"environment", environment},
	})
	if err != nil {
		return nil, fmt.Errorf("render header: %w", err)
	}
	for _, it := range g.Items {
		line, err := record.MarshalLine(it)
		if err != nil {
			return nil, fmt.Errorf("render record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// writeHeader writes the header line with ", " and ": " separators and
// non-ASCII escaped, the layout readers of existing archives expect.
// Record lines stay compact.
func writeHeader(buf *bytes.Buffer, fields []headerField) error {
	buf.WriteString(`{"archive_info": {`)
	for i, f := range fields {
		if i > 0 {
			buf.WriteString(", ")
		}
		var v bytes.Buffer
		enc := json.NewEncoder(&v)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(f.value); err != nil {
			return err
		}
		buf.WriteString(strconv.QuoteToASCII(f.key))
		buf.WriteString(": ")
		buf.WriteString(asciiJSON(bytes.TrimSuffix(v.Bytes(), []byte("\n"))))
	}
	buf.WriteString("}}\n")
	return nil
}

// asciiJSON rewrites non-ASCII runes of encoded JSON as \u escapes, using
// surrogate pairs above the basic plane.
func asciiJSON(b []byte) string {
	var sb strings.Builder
	for _, r := range string(b) {
		switch {
		case r < utf8.RuneSelf:
			sb.WriteRune(r)
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&sb, "\\u%04x\\u%04x", hi, lo)
		default:
			fmt.Fprintf(&sb, "\\u%04x", r)
		}
	}
	return sb.String()
}

// isoTimestamp formats t in UTC, with microseconds only when non-zero.
func isoTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format(isoLayout)
	}
	return t.Format(isoMicroLayout)
}

// ArchiveSite writes one group and returns its key. Failures are logged
// and reported as an empty key.
func (a *Archiver) ArchiveSite(ctx context.Context, g Group, hourStart time.Time) string {
	if len(g.Items) == 0 {
		return ""
	}
	key := ObjectKey(g.SiteID, hourStart)
	if err := a.put(ctx, key, g, hourStart); err != nil {
		metrics.RecordArchiveSiteError()
		a.logger.Error(ctx, "error archiving events for site",
			logger.String("site_id", g.SiteID),
			logger.String("key", key),
			logger.Error(err))
		return ""
	}
	metrics.RecordArchiveFile(len(g.Items))
	a.logger.Info(ctx, "archived events for site",
		logger.String("site_id", g.SiteID),
		logger.Int("events", len(g.Items)),
		logger.String("key", key))
	return key
}

// ArchiveAll archives every group, up to the configured number at a time,
// and returns the created keys in group order.
func (a *Archiver) ArchiveAll(ctx context.Context, groups []Group, hourStart time.Time) []string {
	keys := make([]string, len(groups))
	var eg errgroup.Group
	eg.SetLimit(a.concurrency)
	for i, g := range groups {
		i, g := i, g
		eg.Go(func() error {
			keys[i] = a.ArchiveSite(ctx, g, hourStart)
			return nil
		})
	}
	_ = eg.Wait()

	created := keys[:0]
	for _, k := range keys {
		if k != "" {
			created = append(created, k)
		}
	}
	return created
}

func (a *Archiver) put(ctx context.Context, key string, g Group, hourStart time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrArchive, r)
		}
	}()
	body, err := Render(g, hourStart, a.clock(), a.environment)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArchive, err)
	}
	meta := map[string]string{
		MetaSiteID:      g.SiteID,
		MetaEventCount:  strconv.Itoa(len(g.Items)),
		MetaHourStart:   hourStart.UTC().Format(isoLayout),
		MetaEnvironment: a.environment,
	}
	if err := a.bucket.PutObject(ctx, key, body, coldstore.ContentTypeJSONL, meta); err != nil {
		return fmt.Errorf("%w: %w", ErrArchive, err)
	}
	return nil
}
