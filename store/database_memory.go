package store

import (
	"encoding/gob"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryDatabase is a purely in memory database.
type MemoryDatabase struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryDatabase allocates a new empty MemoryDatabase
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		data: make(map[string][]byte),
	}
}

// Batch is a no-op for a memory database.
func (mdb *MemoryDatabase) Batch() Batch {
	return mdb
}

// Flush is a no-op for a memory database.
func (mdb *MemoryDatabase) Flush() error {
	return nil
}

// Rollback is a no-op for a memory database
func (mdb *MemoryDatabase) Rollback() {}

// Get returns the value at `key`.
func (mdb *MemoryDatabase) Get(key ...string) ([]byte, error) {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	data, ok := mdb.data[strings.Join(key, ".")]
	if !ok {
		return nil, ErrNoSuchKey
	}

	return append([]byte(nil), data...), nil
}

// Put sets `key` to `data`.
func (mdb *MemoryDatabase) Put(data []byte, key ...string) {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	mdb.data[strings.Join(key, ".")] = append([]byte(nil), data...)
}

// Erase removes `key`.
func (mdb *MemoryDatabase) Erase(key ...string) {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	delete(mdb.data, strings.Join(key, "."))
}

// Keys returns all keys starting with `prefix`, sorted.
func (mdb *MemoryDatabase) Keys(prefix ...string) ([][]string, error) {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	fullKeys := []string{}
	for key := range mdb.data {
		if hasPrefix(strings.Split(key, "."), prefix) {
			fullKeys = append(fullKeys, key)
		}
	}

	sort.Strings(fullKeys)

	keys := [][]string{}
	for _, key := range fullKeys {
		keys = append(keys, strings.Split(key, "."))
	}

	return keys, nil
}

// Export encodes the internal memory map to a gob structure,
// and writes it to `w`.
func (mdb *MemoryDatabase) Export(w io.Writer) error {
	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	return gob.NewEncoder(w).Encode(mdb.data)
}

// Import imports a previously exported dump and decodes the gob structure.
func (mdb *MemoryDatabase) Import(r io.Reader) error {
	data := make(map[string][]byte)
	if err := gob.NewDecoder(r).Decode(&data); err != nil {
		return err
	}

	mdb.mu.Lock()
	defer mdb.mu.Unlock()

	for key, val := range data {
		mdb.data[key] = val
	}

	return nil
}

// Close the memory - a no op.
func (mdb *MemoryDatabase) Close() error {
	return nil
}

func hasPrefix(key, prefix []string) bool {
	if len(prefix) > len(key) {
		return false
	}

	for idx := range prefix {
		if key[idx] != prefix[idx] {
			return false
		}
	}

	return true
}
