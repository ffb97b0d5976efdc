package cache

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Store persists a Cache to a BadgerDB directory. Each query entry and each
// result record is one versioned value, so a single corrupt value costs one
// entry instead of the whole cache.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

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

// OpenStore opens a cache store at the specified path, creating the
// directory if it doesn't exist. Pass inMemory=true for an ephemeral store.
func OpenStore(filePath string, inMemory bool) (*Store, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
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
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "cache-store"),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the entire persisted cache. Values that fail to decode are
// logged and skipped; the error return covers database-level failures only.
// Callers are expected to fall back to a fresh cache on error, since the
// cache is never a source of truth.
func (s *Store) Load() (*Cache, error) {
	cache := New()

	err := s.db.View(func(tx *badger.Txn) error {
		if err := s.loadQueryEntries(tx, cache); err != nil {
			return err
		}
		return s.loadRecords(tx, cache)
	})
	if err != nil {
		return nil, err
	}

	queries, records := cache.Size()
	s.logger.Debug("loaded result cache", "queries", queries, "records", records)
	return cache, nil
}

func (s *Store) loadQueryEntries(tx *badger.Txn, cache *Cache) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(queryEntryPrefix + ":")
	it := tx.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		err := item.Value(func(val []byte) error {
			entry, err := unmarshalQueryEntry(val)
			if err != nil {
				s.logger.Warn("skipping unreadable query entry",
					"key", string(item.Key()), "err", err)
				return nil
			}
			cache.setEntry(entry.Text, entry.UUIDs)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadRecords(tx *badger.Txn, cache *Cache) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(documentRecordPrefix + ":")
	it := tx.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		err := item.Value(func(val []byte) error {
			record, err := UnmarshalResultRecord(val)
			if err != nil {
				s.logger.Warn("skipping unreadable result record",
					"key", string(item.Key()), "err", err)
				return nil
			}
			cache.setRecord(record)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Save writes the full cache contents. Badger transactions have a size
// ceiling, so writes go through a WriteBatch instead of one transaction.
func (s *Store) Save(cache *Cache) error {
	queries, records := cache.snapshot()

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for text, uuids := range queries {
		value := marshalQueryEntry(queryEntry{Text: text, UUIDs: uuids})
		if err := wb.Set(makeQueryEntryKey(text), value); err != nil {
			return err
		}
	}
	for _, record := range records {
		if err := wb.Set(makeDocumentRecordKey(record.UUID), MarshalResultRecord(record)); err != nil {
			return err
		}
	}

	if err := wb.Flush(); err != nil {
		return err
	}

	s.logger.Info("saved result cache", "queries", len(queries), "records", len(records))
	return nil
}
