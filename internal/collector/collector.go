package collector

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/sitelog/internal/adapters/repository"
	"github.com/okian/sitelog/internal/domain/model"
	"github.com/okian/sitelog/internal/domain/record"
	"github.com/okian/sitelog/pkg/logger"
	"github.com/okian/sitelog/pkg/metrics"
)

// Ingestion kinds used in metrics and stats.
const (
	KindSingle = "single"
	KindBatch  = "batch"
)

// Collector normalizes payloads and writes one record per payload.
type Collector struct {
	store  repository.Store
	norm   *Normalizer
	logger logger.Logger
	clock  func() time.Time

	stored atomic.Int64
	failed atomic.Int64
}

// New returns a Collector writing to store.
func New(store repository.Store, opts ...Option) *Collector {
	o := apply(opts)
	return &Collector{
		store:  store,
		norm:   newNormalizer(o),
		logger: o.logger.Named("collector"),
		clock:  o.clock,
	}
}

// Collect normalizes ev and stores the result. Nothing is stored when an
// error is returned.
func (c *Collector) Collect(ctx context.Context, ev model.Event, req Request) (record.Item, error) {
	kind := KindSingle
	if _, ok := ev.(*model.Batch); ok {
		kind = KindBatch
	}

	item, err := c.normalize(ctx, ev, req)
	if err != nil {
		c.failed.Add(1)
		metrics.RecordIngestFailure(kind)
		return nil, err
	}
	if err := c.store.Put(ctx, item); err != nil {
		c.failed.Add(1)
		metrics.RecordIngestFailure(kind)
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	c.stored.Add(1)
	metrics.RecordEventIngested(kind)

	if kind == KindBatch {
		c.logger.Info(ctx, "stored batch record",
			logger.Any("event_id", item[record.AttrEventID]),
			logger.Any("event_count", record.Plain(item[record.AttrEventCount])),
			logger.Any("click_count", record.Plain(item[record.AttrClickCount])),
			logger.Any("scroll_milestones", record.Plain(item[record.AttrScrollMilestones])))
	} else {
		c.logger.Info(ctx, "stored individual event",
			logger.String("event_type", ev.EventType()),
			logger.Any("session_id", item[record.AttrSessionID]))
	}
	return item, nil
}

func (c *Collector) normalize(ctx context.Context, ev model.Event, req Request) (item record.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrNormalize, r)
		}
	}()
	return c.norm.Normalize(ctx, ev, req), nil
}

// GetStats reports ingestion counters.
func (c *Collector) GetStats() map[string]any {
	stats := map[string]any{
		"records_stored": c.stored.Load(),
		"store_failures": c.failed.Load(),
	}
	if counter, ok := c.store.(repository.Counter); ok {
		if n, err := counter.Count(context.Background()); err == nil {
			stats["store_records"] = n
		}
	}
	return stats
}
