// Package kvstore is a versioned key-value world state with optimistic
// concurrency control. A Txn records the version of every key it reads and
// buffers its writes; Commit applies the writes in one batch only if none of
// the read versions moved in the meantime.
package kvstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrConflict is returned by Commit when another transaction changed a key
// this one read. The transaction has no effect and may be resubmitted.
var ErrConflict = errors.New("kvstore: read set changed since transaction began")

// ErrTxnDone is returned when a committed or discarded Txn is used again.
var ErrTxnDone = errors.New("kvstore: transaction already finished")

const DefaultCacheSize = 1024

type entry struct {
	version uint64
	value   []byte
}

func encodeEntry(e entry) []byte {
	out := make([]byte, 8+len(e.value))
	binary.BigEndian.PutUint64(out, e.version)
	copy(out[8:], e.value)
	return out
}

func decodeEntry(b []byte) (entry, error) {
	if len(b) < 8 {
		return entry{}, fmt.Errorf("kvstore: corrupt entry of %d bytes", len(b))
	}
	value := make([]byte, len(b)-8)
	copy(value, b[8:])
	return entry{version: binary.BigEndian.Uint64(b), value: value}, nil
}

// Store is the committed world state.
type Store struct {
	db    *leveldb.DB
	cache *lru.Cache
	now   func() time.Time

	// mu is held exclusively by Commit and shared by committed reads, so a
	// read never caches a value a concurrent commit is replacing.
	mu sync.RWMutex
}

type Option func(*Store)

// WithClock sets the source of transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens or creates a persistent store at path.
func Open(path string, cacheSize int, opts ...Option) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return newStore(db, cacheSize, opts)
}

// OpenMemory returns a store backed by in-memory leveldb storage.
func OpenMemory(cacheSize int, opts ...Option) (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return newStore(db, cacheSize, opts)
}

func newStore(db *leveldb.DB, cacheSize int, opts []Option) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("new cache: %w", err)
	}
	s := &Store{db: db, cache: cache, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the committed value and version of key. A missing key has
// version 0 and a nil value.
func (s *Store) Get(key string) ([]byte, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.get(key)
	if err != nil {
		return nil, 0, err
	}
	return e.value, e.version, nil
}

// get must be called with mu held.
func (s *Store) get(key string) (entry, error) {
	if v, ok := s.cache.Get(key); ok {
		return v.(entry), nil
	}
	b, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return entry{}, nil
	}
	if err != nil {
		return entry{}, fmt.Errorf("leveldb get: %w", err)
	}
	e, err := decodeEntry(b)
	if err != nil {
		return entry{}, err
	}
	s.cache.Add(key, e)
	return e, nil
}

type kv struct {
	key     string
	version uint64
	value   []byte
}

// scan returns every committed entry whose key starts with prefix, in key
// order.
func (s *Store) scan(prefix string) ([]kv, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer it.Release()

	var out []kv
	for it.Next() {
		e, err := decodeEntry(it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, kv{key: string(it.Key()), version: e.version, value: e.value})
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("leveldb iterate: %w", err)
	}
	return out, nil
}

// commit validates t's read set and applies its write set atomically.
func (s *Store) commit(t *Txn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, read := range t.reads {
		cur, err := s.get(key)
		if err != nil {
			return err
		}
		if cur.version != read {
			return ErrConflict
		}
	}
	if len(t.writes) == 0 {
		return nil
	}

	batch := new(leveldb.Batch)
	staged := make(map[string]entry, len(t.writes))
	for _, key := range t.order {
		cur, err := s.get(key)
		if err != nil {
			return err
		}
		e := entry{version: cur.version + 1, value: t.writes[key]}
		batch.Put([]byte(key), encodeEntry(e))
		staged[key] = e
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("leveldb write: %w", err)
	}
	for key, e := range staged {
		s.cache.Add(key, e)
	}
	return nil
}
