package storage

import (
	"messenger/errors"

	"github.com/dgraph-io/badger/v4"
)

const (
	maxConflictRetries = 3
	sequenceBandwidth  = 100
)

// update runs fn in a read-write transaction and replays it when badger
// reports a conflict, so a racing writer makes the loser re-read fresh state
// instead of failing.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return wrap(err)
		}
	}
	return wrap(err)
}

func view(db *badger.DB, fn func(txn *badger.Txn) error) error {
	return wrap(db.View(fn))
}

// wrap lets domain errors through and turns everything else into ErrUnavailable.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.KindOf(err) != errors.KindUnknown {
		return err
	}
	return errors.Unavailable(err)
}

// scan walks a prefix in key order, or newest first when reverse is set.
// A positive limit stops the walk after that many entries.
func scan(txn *badger.Txn, prefix string, reverse bool, limit int, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = reverse
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	seek := []byte(prefix)
	if reverse {
		seek = append([]byte(prefix), reverseSeekSuffix...)
	}
	count := 0
	for it.Seek(seek); it.ValidForPrefix([]byte(prefix)); it.Next() {
		if limit > 0 && count == limit {
			break
		}
		item := it.Item()
		key := item.KeyCopy(nil)
		if err := item.Value(func(val []byte) error {
			return fn(key, val)
		}); err != nil {
			return err
		}
		count++
	}
	return nil
}

// nextID hands out ids starting at 1; badger sequences start at 0.
func nextID(seq *badger.Sequence) (uint64, error) {
	n, err := seq.Next()
	if err != nil {
		return 0, errors.Unavailable(err)
	}
	return n + 1, nil
}
