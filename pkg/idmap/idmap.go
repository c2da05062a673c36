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

// Package idmap provides the open-chained uint64-keyed hash table that
// backs an index's id→node lookups (spec.md §4.C). It is deliberately
// simple: the hash of a key is the key itself modulo the bucket count,
// since keys are already-uniform caller ids, not arbitrary byte
// strings that need a mixing hash.
package idmap

// defaultLoadFactor is the elements/buckets ratio that triggers a
// doubling rehash, matching spec.md §4.C's default threshold of 15.
const defaultLoadFactor = 15

type entry struct {
	key   uint64
	value any
	next  *entry
}

// Map is an open-chained uint64 -> value hash table with load-factor
// triggered rehashing.
type Map struct {
	buckets    []*entry
	count      int
	loadFactor int
}

// New creates a Map with the given initial bucket count (defaulting to
// 16 if <= 0) and load-factor threshold (defaulting to 15 if <= 0).
func New(initialBuckets, loadFactor int) *Map {
	if initialBuckets <= 0 {
		initialBuckets = 16
	}
	if loadFactor <= 0 {
		loadFactor = defaultLoadFactor
	}
	return &Map{
		buckets:    make([]*entry, initialBuckets),
		loadFactor: loadFactor,
	}
}

func (m *Map) bucketFor(key uint64) int {
	return int(key % uint64(len(m.buckets)))
}

// Has reports whether key is present.
func (m *Map) Has(key uint64) bool {
	_, ok := m.Get(key)
	return ok
}

// Get returns the value stored for key, if any.
func (m *Map) Get(key uint64) (any, bool) {
	for e := m.buckets[m.bucketFor(key)]; e != nil; e = e.next {
		if e.key == key {
			return e.value, true
		}
	}
	return nil, false
}

// Insert adds key->value without checking for an existing entry; the
// caller is responsible for duplicate checking (spec.md §4.C).
func (m *Map) Insert(key uint64, value any) {
	idx := m.bucketFor(key)
	m.buckets[idx] = &entry{key: key, value: value, next: m.buckets[idx]}
	m.count++
	if m.count/len(m.buckets) > m.loadFactor {
		m.rehash()
	}
}

// Remove deletes key if present and returns its value.
func (m *Map) Remove(key uint64) (any, bool) {
	idx := m.bucketFor(key)
	var prev *entry
	for e := m.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			if prev == nil {
				m.buckets[idx] = e.next
			} else {
				prev.next = e.next
			}
			m.count--
			return e.value, true
		}
		prev = e
	}
	return nil, false
}

// Purge empties every bucket.
func (m *Map) Purge() {
	for i := range m.buckets {
		m.buckets[i] = nil
	}
	m.count = 0
}

// Len returns the number of stored entries.
func (m *Map) Len() int { return m.count }

// rehash doubles the bucket count and redistributes every entry.
func (m *Map) rehash() {
	old := m.buckets
	m.buckets = make([]*entry, len(old)*2)
	for _, head := range old {
		for e := head; e != nil; {
			next := e.next
			idx := m.bucketFor(e.key)
			e.next = m.buckets[idx]
			m.buckets[idx] = e
			e = next
		}
	}
}
