// Copyright (c) 2024 LevelGraph Go Contributors
//
// Permission is hereby granted, free of charge, to any person
// obtaining a copy of this software and associated documentation
// files (the "Software"), to deal in the Software without
// restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the
// Software is furnished to do so, subject to the following
// conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package persist

import (
	"encoding/binary"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/benbenbenbenbenben/annidx/pkg/annerr"
	"github.com/benbenbenbenbenben/annidx/pkg/hnsw"
)

// SnapshotStore is a secondary, enrichment-oriented persistence backend
// adapted from the teacher repo's goleveldb wrapper: an id-ordered,
// crash-safe key/value store of msgpack-encoded vector records for bulk
// export/import. No index operation reads or writes it; it changes only
// through its own Put, PutAll and Delete calls, so it does not reopen
// the "no live on-disk mutation" non-goal spec.md §1 rules out for the
// index itself.
type SnapshotStore struct {
	db *leveldb.DB
}

// OpenSnapshotStore opens (creating if absent) a goleveldb database at
// path.
func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, annerr.Wrap("persist.open_snapshot_store", annerr.FileIOError, err)
	}
	return &SnapshotStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SnapshotStore) Close() error {
	if err := s.db.Close(); err != nil {
		return annerr.Wrap("persist.close_snapshot_store", annerr.FileIOError, err)
	}
	return nil
}

// idKey big-endian-encodes id so leveldb's lexicographic key order
// matches numeric id order, making Range iteration id-ordered for free.
func idKey(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

// Put upserts a single record.
func (s *SnapshotStore) Put(rec hnsw.Record) error {
	val, err := msgpack.Marshal(rec)
	if err != nil {
		return annerr.Wrap("persist.snapshot_put", annerr.FileIOError, err)
	}
	if err := s.db.Put(idKey(rec.ID), val, nil); err != nil {
		return annerr.Wrap("persist.snapshot_put", annerr.FileIOError, err)
	}
	return nil
}

// PutAll writes every record in a single leveldb batch, the bulk write
// path.
func (s *SnapshotStore) PutAll(records []hnsw.Record) error {
	batch := new(leveldb.Batch)
	for _, rec := range records {
		val, err := msgpack.Marshal(rec)
		if err != nil {
			return annerr.Wrap("persist.snapshot_put_all", annerr.FileIOError, err)
		}
		batch.Put(idKey(rec.ID), val)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return annerr.Wrap("persist.snapshot_put_all", annerr.FileIOError, err)
	}
	return nil
}

// Get looks up a single record by id.
func (s *SnapshotStore) Get(id uint64) (hnsw.Record, bool, error) {
	val, err := s.db.Get(idKey(id), nil)
	if err == leveldb.ErrNotFound {
		return hnsw.Record{}, false, nil
	}
	if err != nil {
		return hnsw.Record{}, false, annerr.Wrap("persist.snapshot_get", annerr.FileIOError, err)
	}
	var rec hnsw.Record
	if err := msgpack.Unmarshal(val, &rec); err != nil {
		return hnsw.Record{}, false, annerr.Wrap("persist.snapshot_get", annerr.InvalidFile, err)
	}
	return rec, true, nil
}

// Delete removes id, if present.
func (s *SnapshotStore) Delete(id uint64) error {
	if err := s.db.Delete(idKey(id), nil); err != nil {
		return annerr.Wrap("persist.snapshot_delete", annerr.FileIOError, err)
	}
	return nil
}

// All returns every stored record in ascending id order.
func (s *SnapshotStore) All() ([]hnsw.Record, error) {
	var out []hnsw.Record
	var it iterator.Iterator = s.db.NewIterator(&util.Range{}, nil)
	defer it.Release()
	for it.Next() {
		var rec hnsw.Record
		if err := msgpack.Unmarshal(it.Value(), &rec); err != nil {
			return nil, annerr.Wrap("persist.snapshot_all", annerr.InvalidFile, err)
		}
		out = append(out, rec)
	}
	if err := it.Error(); err != nil {
		return nil, annerr.Wrap("persist.snapshot_all", annerr.FileIOError, err)
	}
	return out, nil
}
