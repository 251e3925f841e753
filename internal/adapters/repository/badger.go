package repository

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/okian/sitelog/internal/domain/record"
	"github.com/okian/sitelog/pkg/logger"
	"github.com/okian/sitelog/pkg/metrics"
)

const keySeparator = 0x00

// BadgerStore persists records in an embedded badger database. Keys are
// domain_session, a zero byte, then the big-endian timestamp, so iteration
// follows (domain_session, timestamp) order.
type BadgerStore struct {
	db     *badger.DB
	opts   options
	logger logger.Logger
}

// OpenBadger opens (or creates) a badger store under dir.
func OpenBadger(dir string, opts ...Option) (*BadgerStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	bo := badger.DefaultOptions(dir).WithLogger(nil)
	if o.inMemory {
		bo = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", dir, err)
	}
	return &BadgerStore{db: db, opts: o, logger: o.logger.Named("badger")}, nil
}

// Close releases the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Put implements Store.
func (s *BadgerStore) Put(ctx context.Context, item record.Item) error {
	start := time.Now()
	defer func() {
		metrics.RecordStorePutLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := item.Key()
	if err != nil {
		return fmt.Errorf("badger put: %w", err)
	}
	val, err := record.Encode(item)
	if err != nil {
		return fmt.Errorf("badger put: %w", err)
	}

	e := badger.NewEntry(badgerKey(k), val)
	if s.opts.expiry {
		if ttl, ok := expiresIn(item); ok {
			e = e.WithTTL(ttl)
		}
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(e)
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	if err != nil {
		return fmt.Errorf("badger put: %w", err)
	}
	return nil
}

// Scan implements Store.
func (s *BadgerStore) Scan(ctx context.Context, in ScanInput) (ScanPage, error) {
	if err := ctx.Err(); err != nil {
		return ScanPage{}, err
	}
	if in.From > in.To {
		return ScanPage{}, ErrInvalidRange
	}
	var after []byte
	if in.Token != "" {
		b, err := base64.RawURLEncoding.DecodeString(in.Token)
		if err != nil || len(b) == 0 {
			return ScanPage{}, fmt.Errorf("%w: %q", ErrInvalidToken, in.Token)
		}
		after = b
	}

	var page ScanPage
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		it.Rewind()
		if after != nil {
			it.Seek(after)
			if it.Valid() && bytes.Equal(it.Item().Key(), after) {
				it.Next()
			}
		}

		limit := in.limit()
		var last []byte
		for evaluated := 0; it.Valid() && evaluated < limit; it.Next() {
			evaluated++
			x := it.Item()
			last = x.KeyCopy(nil)

			if ts, ok := timestampFromKey(last); ok && !in.matches(ts) {
				continue
			}
			err := x.Value(func(val []byte) error {
				item, err := record.Decode(val)
				if err != nil {
					return err
				}
				page.Items = append(page.Items, item)
				return nil
			})
			if err != nil {
				return err
			}
		}
		if it.Valid() && last != nil {
			page.Next = base64.RawURLEncoding.EncodeToString(last)
		}
		return nil
	})
	if err != nil {
		return ScanPage{}, fmt.Errorf("badger scan: %w", err)
	}
	return page, nil
}

// Count implements Counter.
func (s *BadgerStore) Count(context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		o := badger.DefaultIteratorOptions
		o.PrefetchValues = false
		it := txn.NewIterator(o)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func badgerKey(k record.Key) []byte {
	b := make([]byte, 0, len(k.DomainSession)+9)
	b = append(b, k.DomainSession...)
	b = append(b, keySeparator)
	return binary.BigEndian.AppendUint64(b, uint64(k.Timestamp)^(1<<63))
}

func timestampFromKey(key []byte) (int64, bool) {
	if len(key) < 9 || key[len(key)-9] != keySeparator {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(key[len(key)-8:]) ^ (1 << 63)), true
}

// expiresIn converts the ttl attribute (epoch seconds) into a duration.
// Items already past their ttl are stored without one.
func expiresIn(item record.Item) (time.Duration, bool) {
	d, ok := numberAttr(item, record.AttrTTL)
	if !ok {
		return 0, false
	}
	ttl := time.Until(time.Unix(d, 0))
	if ttl <= 0 {
		return 0, false
	}
	return ttl, true
}
