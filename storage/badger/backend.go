package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/kernelci/storage"
)

// Backend owns the BadgerDB instance behind the document store and exposes
// the key/value operations the repositories are built from.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLogger routes badger's printf-style logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) log(level slog.Level, msg string, items []any) {
	l.logger.Log(context.Background(), level, strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (l *badgerLogger) Errorf(msg string, items ...any)   { l.log(slog.LevelError, msg, items) }
func (l *badgerLogger) Warningf(msg string, items ...any) { l.log(slog.LevelWarn, msg, items) }
func (l *badgerLogger) Infof(msg string, items ...any)    { l.log(slog.LevelDebug, msg, items) }
func (l *badgerLogger) Debugf(msg string, items ...any)   { l.log(slog.LevelDebug, msg, items) }

// OpenBackend opens the document store at dir, creating the directory if
// needed. With inMemory set dir is ignored and nothing touches disk.
func OpenBackend(dir string, inMemory bool) (*Backend, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	if !inMemory {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(dir)
	}

	logger := slog.Default().With("component", "badger")
	opts.Logger = &badgerLogger{logger: logger}
	// Documents are small JSON records
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Backend{db: db, logger: logger}, nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(dir, 0755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is discarded unless fn commits it.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// PutAll writes every keys[i]/values[i] pair in one transaction: either all
// of them become visible or none do.
func (b *Backend) PutAll(ctx context.Context, keys, values [][]byte) error {
	if len(keys) != len(values) {
		return fmt.Errorf("put: %d keys for %d values", len(keys), len(values))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.WithTx(func(tx *badger.Txn) error {
		for i := range keys {
			if err := tx.Set(keys[i], values[i]); err != nil {
				return fmt.Errorf("put %s: %w", keys[i], err)
			}
		}
		return tx.Commit()
	}, true)
}

// Get returns a copy of the value stored at key, or storage.ErrNotFound.
func (b *Backend) Get(key []byte) ([]byte, error) {
	var value []byte
	err := b.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	}, false)
	return value, err
}

// ScanPrefix calls fn for every key starting with prefix, in key order.
// The slices passed to fn are only valid for the duration of the call.
func (b *Backend) ScanPrefix(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			err := item.Value(func(val []byte) error {
				return fn(item.Key(), val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
}
