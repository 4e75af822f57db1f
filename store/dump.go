package store

import (
	"io"

	e "github.com/pkg/errors"
)

// Copy copies every key under `prefix` from `src` to `dst` in one batch
// and returns the number of copied keys.
func Copy(dst, src Database, prefix ...string) (int, error) {
	keys, err := src.Keys(prefix...)
	if err != nil {
		return 0, err
	}

	batch := dst.Batch()
	for _, key := range keys {
		val, err := src.Get(key...)
		if err != nil {
			batch.Rollback()
			return 0, e.Wrapf(err, "failed to read %v", key)
		}

		batch.Put(val, key...)
	}

	if err := batch.Flush(); err != nil {
		return 0, err
	}

	return len(keys), nil
}

// Dump writes the keys under `prefix` to `w`. Unlike Export the format does
// not depend on the backend of `db`, so a dump of a badger database can be
// restored into a memory one and the other way round.
func Dump(db Database, w io.Writer, prefix ...string) (int, error) {
	mem := NewMemoryDatabase()
	n, err := Copy(mem, db, prefix...)
	if err != nil {
		return 0, err
	}

	return n, mem.Export(w)
}

// Restore reads a dump written by Dump into `db`.
// It returns the number of restored keys.
func Restore(db Database, r io.Reader) (int, error) {
	mem := NewMemoryDatabase()
	if err := mem.Import(r); err != nil {
		return 0, e.Wrap(err, "failed to read dump")
	}

	return Copy(db, mem)
}
