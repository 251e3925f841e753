package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/okian/sitelog/internal/domain/record"
	"github.com/shopspring/decimal"
)

type namedStore struct {
	name  string
	store Store
}

func openStores(t *testing.T) []namedStore {
	t.Helper()
	b, err := OpenBadger("", WithInMemory(), WithExpiry(false))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("close badger: %v", err)
		}
	})
	return []namedStore{
		{name: "memory", store: NewMemoryStore()},
		{name: "badger", store: b},
	}
}

func item(site, session string, ts int64) record.Item {
	return record.Item{
		record.AttrDomainSession: record.DomainSession(site, session),
		record.AttrTimestamp:     decimal.NewFromInt(ts),
		record.AttrSiteID:        site,
		record.AttrSessionID:     session,
		record.AttrData:          map[string]any{"n": decimal.RequireFromString("1.5")},
	}
}

func scanAll(t *testing.T, s Store, from, to int64, limit int) ([]record.Item, int) {
	t.Helper()
	var (
		all   []record.Item
		pages int
		token string
	)
	for {
		page, err := s.Scan(context.Background(), ScanInput{From: from, To: to, Token: token, Limit: limit})
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		pages++
		all = append(all, page.Items...)
		if page.Next == "" {
			return all, pages
		}
		token = page.Next
	}
}

func TestStore_PutAndScan(t *testing.T) {
	for _, ns := range openStores(t) {
		t.Run(ns.name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 10; i++ {
				if err := ns.store.Put(ctx, item("a.com", fmt.Sprintf("s%d", i%3), int64(1000+i))); err != nil {
					t.Fatalf("put: %v", err)
				}
			}

			all, _ := scanAll(t, ns.store, 0, 1<<40, 0)
			if len(all) != 10 {
				t.Fatalf("expected 10 items, got %d", len(all))
			}

			got := all[0][record.AttrData].(map[string]any)["n"].(decimal.Decimal)
			if got.String() != "1.5" {
				t.Errorf("expected nested decimal 1.5, got %s", got)
			}
		})
	}
}

func TestStore_FilterIsInclusive(t *testing.T) {
	for _, ns := range openStores(t) {
		t.Run(ns.name, func(t *testing.T) {
			ctx := context.Background()
			for _, ts := range []int64{999, 1000, 1500, 1999, 2000} {
				if err := ns.store.Put(ctx, item("a.com", "s", ts)); err != nil {
					t.Fatalf("put: %v", err)
				}
			}

			all, _ := scanAll(t, ns.store, 1000, 1999, 0)
			var ts []int64
			for _, it := range all {
				v, _ := it.Timestamp()
				ts = append(ts, v)
			}
			sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
			if fmt.Sprint(ts) != "[1000 1500 1999]" {
				t.Errorf("unexpected timestamps %v", ts)
			}
		})
	}
}

func TestStore_Pagination(t *testing.T) {
	for _, ns := range openStores(t) {
		t.Run(ns.name, func(t *testing.T) {
			ctx := context.Background()
			// Half the items fall outside the window so some pages come back
			// empty while still carrying a token.
			for i := 0; i < 20; i++ {
				ts := int64(5000 + i)
				if i%2 == 0 {
					ts = 1
				}
				if err := ns.store.Put(ctx, item(fmt.Sprintf("site%02d.com", i), "s", ts)); err != nil {
					t.Fatalf("put: %v", err)
				}
			}

			all, pages := scanAll(t, ns.store, 5000, 6000, 3)
			if len(all) != 10 {
				t.Fatalf("expected 10 matching items across pages, got %d", len(all))
			}
			if pages < 7 {
				t.Errorf("expected at least 7 pages with limit 3, got %d", pages)
			}

			seen := map[string]bool{}
			for _, it := range all {
				k, err := it.Key()
				if err != nil {
					t.Fatalf("key: %v", err)
				}
				if seen[k.DomainSession] {
					t.Errorf("item %s returned twice", k.DomainSession)
				}
				seen[k.DomainSession] = true
			}
		})
	}
}

func TestStore_PutReplacesSameKey(t *testing.T) {
	for _, ns := range openStores(t) {
		t.Run(ns.name, func(t *testing.T) {
			ctx := context.Background()
			first := item("a.com", "s", 42)
			second := item("a.com", "s", 42)
			second["eventType"] = "page_exit"

			if err := ns.store.Put(ctx, first); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := ns.store.Put(ctx, second); err != nil {
				t.Fatalf("put: %v", err)
			}

			all, _ := scanAll(t, ns.store, 0, 100, 0)
			if len(all) != 1 {
				t.Fatalf("expected 1 item, got %d", len(all))
			}
			if all[0]["eventType"] != "page_exit" {
				t.Errorf("expected replacement to win, got %v", all[0]["eventType"])
			}
			if c, ok := ns.store.(Counter); ok {
				if n, _ := c.Count(ctx); n != 1 {
					t.Errorf("expected count 1, got %d", n)
				}
			}
		})
	}
}

func TestStore_EdgeCases(t *testing.T) {
	for _, ns := range openStores(t) {
		t.Run(ns.name, func(t *testing.T) {
			ctx := context.Background()

			err := ns.store.Put(ctx, record.Item{record.AttrSiteID: "a.com"})
			if !errors.Is(err, record.ErrMissingKey) {
				t.Errorf("expected ErrMissingKey, got %v", err)
			}

			_, err = ns.store.Scan(ctx, ScanInput{From: 10, To: 5})
			if !errors.Is(err, ErrInvalidRange) {
				t.Errorf("expected ErrInvalidRange, got %v", err)
			}

			_, err = ns.store.Scan(ctx, ScanInput{From: 0, To: 5, Token: "%%%"})
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}

			page, err := ns.store.Scan(ctx, ScanInput{From: 0, To: 5})
			if err != nil {
				t.Fatalf("scan of empty store: %v", err)
			}
			if len(page.Items) != 0 || page.Next != "" {
				t.Errorf("expected empty final page, got %+v", page)
			}
		})
	}
}

func TestStore_ContextCancellation(t *testing.T) {
	for _, ns := range openStores(t) {
		t.Run(ns.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if err := ns.store.Put(ctx, item("a.com", "s", 1)); !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled from Put, got %v", err)
			}
			if _, err := ns.store.Scan(ctx, ScanInput{To: 1}); !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled from Scan, got %v", err)
			}
		})
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	for _, ns := range openStores(t) {
		t.Run(ns.name, func(t *testing.T) {
			ctx := context.Background()
			numGoroutines := 8
			numPuts := 50

			var wg sync.WaitGroup
			for g := 0; g < numGoroutines; g++ {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					for j := 0; j < numPuts; j++ {
						if err := ns.store.Put(ctx, item("a.com", fmt.Sprintf("g%d", id), int64(j))); err != nil {
							t.Errorf("goroutine %d: unexpected error: %v", id, err)
						}
					}
				}(g)
			}
			wg.Wait()

			all, _ := scanAll(t, ns.store, 0, int64(numPuts), 17)
			if len(all) != numGoroutines*numPuts {
				t.Errorf("expected %d items, got %d", numGoroutines*numPuts, len(all))
			}
		})
	}
}

func TestBadgerKeyOrdering(t *testing.T) {
	keys := [][]byte{
		badgerKey(record.Key{DomainSession: "a#s", Timestamp: -5}),
		badgerKey(record.Key{DomainSession: "a#s", Timestamp: 0}),
		badgerKey(record.Key{DomainSession: "a#s", Timestamp: 1704067200000}),
		badgerKey(record.Key{DomainSession: "b#s", Timestamp: 1}),
	}
	for i := 0; i < len(keys)-1; i++ {
		if string(keys[i]) >= string(keys[i+1]) {
			t.Errorf("key %d does not sort before key %d", i, i+1)
		}
	}
	ts, ok := timestampFromKey(keys[2])
	if !ok || ts != 1704067200000 {
		t.Errorf("expected timestamp 1704067200000, got %d (%v)", ts, ok)
	}
}
