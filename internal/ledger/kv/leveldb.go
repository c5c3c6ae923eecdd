package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	ldbutil "github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBBackend stores entries in a LevelDB database. The usage counter lives
// under the meta partition and is written in the same leveldb.Batch as the data.
type LevelDBBackend struct {
	// writeMu serializes read-modify-write of the usage counter across shards.
	writeMu sync.Mutex
	db      *leveldb.DB
}

// OpenLevelDB opens or creates the database at path.
func OpenLevelDB(path string) (*LevelDBBackend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDBBackend{db: db}, nil
}

// OpenLevelDBMemory opens a LevelDB database held in memory.
func OpenLevelDBMemory() (*LevelDBBackend, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open in-memory leveldb: %w", err)
	}
	return &LevelDBBackend{db: db}, nil
}

func (l *LevelDBBackend) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	v, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (l *LevelDBBackend) Usage(_ context.Context) (uint64, error) {
	return l.readUsage()
}

func (l *LevelDBBackend) readUsage() (uint64, error) {
	v, err := l.db.Get(usageKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return decodeUsage(v)
}

func (l *LevelDBBackend) Apply(_ context.Context, batch *Batch) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	usage, err := l.readUsage()
	if err != nil {
		return err
	}
	next, err := applyDelta(usage, batch.UsageDelta)
	if err != nil {
		return err
	}

	b := new(leveldb.Batch)
	for _, op := range batch.Ops {
		if op.Delete {
			b.Delete(op.Key)
			continue
		}
		b.Put(op.Key, op.Value)
	}
	b.Put(usageKey, encodeUsage(next))
	return l.db.Write(b, nil)
}

// ForEach calls fn for every data entry whose key starts with prefix.
func (l *LevelDBBackend) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	it := l.db.NewIterator(ldbutil.BytesPrefix(prefix), nil)
	defer it.Release()
	for it.Next() {
		if err := fn(append([]byte(nil), it.Key()...), append([]byte(nil), it.Value()...)); err != nil {
			return err
		}
	}
	return it.Error()
}

func (l *LevelDBBackend) Close() error {
	return l.db.Close()
}
