package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/scriptvault/core"
	"github.com/poiesic/scriptvault/storage"
)

const (
	// maxTxRetries bounds retries of transactions that lost a commit race.
	maxTxRetries = 5
)

// Backend wraps a BadgerDB instance and implements storage.Backend.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ storage.Backend = (*Backend)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// NewBackend opens a BadgerDB backed store at path.
func NewBackend(path string) (storage.Backend, error) {
	return OpenBackend(path, false)
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool) (*Backend, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// Ensure directory exists
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotDirectory, filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	logger := slog.Default().With("component", "badger-backend")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: logger,
	}, nil
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
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// withRetry reruns a write transaction that lost a commit race.
func (b *Backend) withRetry(fn func(tx *badger.Txn) error) error {
	var err error
	for attempt := 1; attempt <= maxTxRetries; attempt++ {
		err = b.WithTx(fn, true)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		b.logger.Debug("transaction conflict, retrying", "attempt", attempt)
	}
	return err
}

// Resolve records the namespace on first use and returns its key prefix.
// An existing record must decode and name ns, otherwise the prefix is not
// trusted.
func (b *Backend) Resolve(ctx context.Context, ns core.Namespace) (storage.Location, error) {
	key := makeNamespaceKey(ns)
	err := b.withRetry(func(tx *badger.Txn) error {
		record, err := readNamespaceRecord(tx, key)
		if err == nil {
			if record.Namespace() != ns {
				return fmt.Errorf("%w: key for %s holds namespace %s",
					storage.ErrSerializationFailed, ns, record.Namespace())
			}
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		record = &storage.NamespaceRecord{
			Group:     ns.Group,
			Entity:    ns.Entity,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Set(key, storage.MarshalNamespaceRecord(record)); err != nil {
			return err
		}
		b.logger.Debug("namespace recorded", "namespace", ns.String())
		return tx.Commit()
	})
	if err != nil {
		return storage.Location{}, err
	}
	return storage.Location{Namespace: ns, Path: string(makeVersionPrefix(ns))}, nil
}

// Namespace loads the record written when ns was first resolved.
func (b *Backend) Namespace(ctx context.Context, ns core.Namespace) (*storage.NamespaceRecord, error) {
	var record *storage.NamespaceRecord
	err := b.WithTx(func(tx *badger.Txn) error {
		var readErr error
		record, readErr = readNamespaceRecord(tx, makeNamespaceKey(ns))
		return readErr
	}, false)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: namespace %s", storage.ErrVersionNotFound, ns)
	}
	return record, err
}

func readNamespaceRecord(tx *badger.Txn, key []byte) (*storage.NamespaceRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		return nil, err
	}
	var record *storage.NamespaceRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalNamespaceRecord(val)
		return unmarshalErr
	})
	return record, err
}

// ListVersions iterates the version keys of a namespace. Badger keeps keys
// sorted, so ids come out oldest first.
func (b *Backend) ListVersions(ctx context.Context, loc storage.Location) ([]core.VersionID, error) {
	prefix := []byte(loc.Path)
	ids := []core.VersionID{}

	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			id := core.VersionID(bytes.TrimPrefix(key, prefix))
			if !id.Valid() {
				continue
			}
			ids = append(ids, id)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	core.SortVersions(ids)
	return ids, nil
}

// ReadVersion returns a copy of the stored payload.
func (b *Backend) ReadVersion(ctx context.Context, loc storage.Location, id core.VersionID) ([]byte, error) {
	var payload []byte
	err := b.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVersionKey(loc, id))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	}, false)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrVersionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if payload == nil {
		payload = []byte{}
	}
	return payload, nil
}

// WriteVersion checks for an existing key and sets the payload in one transaction.
func (b *Backend) WriteVersion(ctx context.Context, loc storage.Location, id core.VersionID, payload []byte) error {
	key := makeVersionKey(loc, id)
	err := b.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(key); err == nil {
			return fmt.Errorf("%w: %s", storage.ErrVersionExists, id)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := tx.Set(key, payload); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if errors.Is(err, badger.ErrConflict) {
		// Another transaction committed the same key first.
		return fmt.Errorf("%w: %s", storage.ErrVersionExists, id)
	}
	return err
}

// DeleteVersion removes a version key.
func (b *Backend) DeleteVersion(ctx context.Context, loc storage.Location, id core.VersionID) error {
	key := makeVersionKey(loc, id)
	err := b.withRetry(func(tx *badger.Txn) error {
		if _, err := tx.Get(key); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", storage.ErrVersionNotFound, id)
	}
	return err
}
