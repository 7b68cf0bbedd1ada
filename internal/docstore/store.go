package docstore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-memdb"
)

const (
	tableDocuments = "documents"
	tableSequences = "sequences"

	indexID         = "id"
	indexCollection = "collection"
)

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableDocuments: {
			Name: tableDocuments,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:   indexID,
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "collection"},
							&memdb.StringFieldIndex{Field: "key"},
						},
					},
				},
				indexCollection: {
					Name:    indexCollection,
					Unique:  false,
					Indexer: &memdb.StringFieldIndex{Field: "collection"},
				},
			},
		},
		tableSequences: {
			Name: tableSequences,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "name"},
				},
			},
		},
	},
}

// Store is a sharded in-memory document engine. Each shard is an independent
// memdb database; documents and sequences are placed by hashing their key.
// Write transactions on one shard are serialized by memdb, which makes every
// single-key read-modify-write atomic.
type Store struct {
	shards []*memdb.MemDB
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a store with the given number of shards.
func New(shards int, opts ...Option) (*Store, error) {
	if shards < 1 {
		return nil, fmt.Errorf("shard count must be at least 1, got %d", shards)
	}
	s := &Store{shards: make([]*memdb.MemDB, shards), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.shards {
		db, err := memdb.NewMemDB(schema)
		if err != nil {
			return nil, fmt.Errorf("create shard %d: %w", i, err)
		}
		s.shards[i] = db
	}
	s.logger.Debug("document store ready", "shards", shards)
	return s, nil
}

// Shards returns the shard count.
func (s *Store) Shards() int {
	return len(s.shards)
}

func (s *Store) shardFor(key string) *memdb.MemDB {
	return s.shards[s.shardIndex(key)]
}

func (s *Store) shardIndex(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(s.shards)))
}

// writeAll runs fn with write transactions on every shard that owns one of
// keys and commits them together once fn succeeds. Transactions are opened
// in shard order so concurrent callers cannot deadlock.
func (s *Store) writeAll(keys []string, fn func(txn func(key string) *memdb.Txn) error) error {
	used := make([]bool, len(s.shards))
	for _, k := range keys {
		used[s.shardIndex(k)] = true
	}
	txns := make([]*memdb.Txn, len(s.shards))
	for i, ok := range used {
		if ok {
			txns[i] = s.shards[i].Txn(true)
		}
	}
	defer func() {
		for _, txn := range txns {
			if txn != nil {
				txn.Abort()
			}
		}
	}()

	err := fn(func(key string) *memdb.Txn { return txns[s.shardIndex(key)] })
	if err != nil {
		return err
	}
	for _, txn := range txns {
		if txn != nil {
			txn.Commit()
		}
	}
	return nil
}

// Collection returns a handle on the named collection. Collections exist
// implicitly; the handle is cheap and safe for concurrent use.
func (s *Store) Collection(name, idField string) (*Collection, error) {
	if name == "" {
		return nil, errors.New("collection name must not be empty")
	}
	if idField == "" {
		return nil, errors.New("identity field must not be empty")
	}
	return &Collection{store: s, name: name, idField: idField}, nil
}
