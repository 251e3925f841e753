package archive

import (
	"context"
	"fmt"

	"github.com/okian/sitelog/internal/adapters/repository"
	"github.com/okian/sitelog/internal/domain/record"
	"github.com/okian/sitelog/pkg/logger"
	"github.com/okian/sitelog/pkg/metrics"
)

// Group is one site's records for a window.
type Group struct {
	SiteID string
	Items  []record.Item
}

// Scanner reads a window's records from the keyed store.
type Scanner struct {
	store    repository.Store
	pageSize int
	logger   logger.Logger
}

// NewScanner returns a Scanner. A non-positive pageSize uses the store
// default.
func NewScanner(store repository.Store, pageSize int, l logger.Logger) *Scanner {
	if l == nil {
		l = logger.Discard()
	}
	return &Scanner{store: store, pageSize: pageSize, logger: l.Named("scanner")}
}

// Scan follows the store's continuation tokens until exhausted and groups
// the matching records by site, in order of first appearance. Any store
// error aborts the scan.
func (s *Scanner) Scan(ctx context.Context, w Window) ([]Group, error) {
	from, to := w.Bounds()
	in := repository.ScanInput{From: from, To: to, Limit: s.pageSize}

	var items []record.Item
	for {
		page, err := s.store.Scan(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScan, err)
		}
		metrics.RecordScanPage()
		items = append(items, page.Items...)
		s.logger.Debug(ctx, "scanned page",
			logger.Int("page_items", len(page.Items)),
			logger.Int("total_items", len(items)))

		if page.Next == "" {
			break
		}
		in.Token = page.Next
	}

	groups := GroupBySite(items)
	counts := make(map[string]int, len(groups))
	for _, g := range groups {
		counts[g.SiteID] = len(g.Items)
	}
	s.logger.Info(ctx, "events grouped by site",
		logger.Int("events", len(items)),
		logger.Any("sites", counts))
	return groups, nil
}

// GroupBySite partitions items by siteId, "unknown" when absent. Groups
// keep the order in which sites first appear, and items keep scan order.
func GroupBySite(items []record.Item) []Group {
	var groups []Group
	index := map[string]int{}
	for _, it := range items {
		site := it.SiteID()
		i, ok := index[site]
		if !ok {
			i = len(groups)
			index[site] = i
			groups = append(groups, Group{SiteID: site})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}
