// Package repository defines the keyed event store and its drivers.
package repository

import (
	"context"

	"github.com/okian/sitelog/internal/domain/model"
	"github.com/okian/sitelog/internal/domain/record"
)

// DefaultScanLimit bounds how many items one Scan call evaluates when the
// caller does not set a limit.
const DefaultScanLimit = 1000

// ScanInput selects items whose timestamp lies in [From, To], both
// inclusive, in epoch milliseconds.
type ScanInput struct {
	From int64
	To   int64
	// Token resumes a previous scan; empty starts from the beginning.
	Token string
	// Limit caps the number of items evaluated (not returned) by this call.
	Limit int
}

// ScanPage is one page of a scan.
type ScanPage struct {
	Items []record.Item
	// Next is empty when the scan is exhausted.
	Next string
}

// Store provides read/write access to canonical records.
type Store interface {
	// Put writes an item keyed by (domain_session, timestamp), replacing any
	// item with the same key.
	Put(ctx context.Context, item record.Item) error

	// Scan evaluates items in key order and returns the ones matching the
	// timestamp filter. Callers repeat with ScanPage.Next until it is empty.
	Scan(ctx context.Context, in ScanInput) (ScanPage, error)
}

// Counter is implemented by stores that can report their size cheaply.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

func (in ScanInput) limit() int {
	if in.Limit <= 0 {
		return DefaultScanLimit
	}
	return in.Limit
}

func (in ScanInput) matches(ts int64) bool {
	return ts >= in.From && ts <= in.To
}

func numberAttr(item record.Item, attr string) (int64, bool) {
	d, ok := model.Number(item[attr])
	if !ok {
		return 0, false
	}
	return d.IntPart(), true
}
