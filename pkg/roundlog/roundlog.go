package roundlog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	goerrors "errors"

	"github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/round"
	"github.com/dgraph-io/badger/v4"
)

// Log is the append-only persisted round log: one immutable record per
// decided round, keyed by round number. It is enough for an auditor to
// replay which aggregate digest a round produced without re-running
// training.
type Log struct {
	db *badger.DB
}

// Open opens the log at path. An empty path opens an in-memory log, used
// by tests and single-run demos.
func Open(path string) (*Log, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Log{db: db}, nil
}

func key(r uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], r)

	return k[:]
}

// Append records a round decision. A round may be decided exactly once;
// appending a second record for the same round fails.
func (l *Log) Append(_ context.Context, rec round.Record) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return l.db.Update(func(txn *badger.Txn) error {
		k := key(rec.Round)
		if _, err := txn.Get(k); err == nil {
			return errors.ErrEntityExists
		} else if !goerrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		return txn.Set(k, val)
	})
}

// Get returns the record for one round.
func (l *Log) Get(_ context.Context, r uint64) (round.Record, error) {
	var rec round.Record
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(r))
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})

	return rec, err
}

// List pages through records in ascending round order.
func (l *Log) List(_ context.Context, offset, limit uint64) (round.Page, error) {
	page := round.Page{Offset: offset, Limit: limit}
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		var idx uint64
		for it.Rewind(); it.Valid(); it.Next() {
			if idx >= offset && uint64(len(page.Records)) < limit {
				var rec round.Record
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &rec)
				})
				if err != nil {
					return err
				}
				page.Records = append(page.Records, rec)
			}
			idx++
		}
		page.Total = idx

		return nil
	})

	return page, err
}

// Close releases the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}
