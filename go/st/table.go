// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package st

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"
)

// Table is an immutable mapping shared between snapshots. A table is never
// modified after it has been published as part of a State; updates produce
// a new table through a tableEditor, leaving all readers of the old table
// unaffected.
type Table[K comparable, V any] struct {
	entries map[K]V
}

func newTable[K comparable, V any]() *Table[K, V] {
	return &Table[K, V]{entries: map[K]V{}}
}

// Get returns the entry stored for key, if any.
func (t *Table[K, V]) Get(key K) (V, bool) {
	value, found := t.entries[key]
	return value, found
}

func (t *Table[K, V]) Len() int {
	return len(t.entries)
}

// Keys returns the table keys in a deterministic order.
func (t *Table[K, V]) Keys() []K {
	keys := maps.Keys(t.entries)
	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = fmt.Sprint(key)
	}
	sort.Sort(byName[K]{keys: keys, names: names})
	return keys
}

// byName sorts keys by their precomputed printed form.
type byName[K any] struct {
	keys  []K
	names []string
}

func (b byName[K]) Len() int           { return len(b.keys) }
func (b byName[K]) Less(i, j int) bool { return b.names[i] < b.names[j] }
func (b byName[K]) Swap(i, j int) {
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
	b.names[i], b.names[j] = b.names[j], b.names[i]
}

// Range calls f for every entry until f returns false. The iteration order
// is unspecified.
func (t *Table[K, V]) Range(f func(K, V) bool) {
	for key, value := range t.entries {
		if !f(key, value) {
			return
		}
	}
}

// tableEditor records updates to a table. The base table is cloned on the
// first write, so tables that are only read remain shared.
type tableEditor[K comparable, V any] struct {
	base  *Table[K, V]
	clone *Table[K, V]
}

func newTableEditor[K comparable, V any](base *Table[K, V]) tableEditor[K, V] {
	return tableEditor[K, V]{base: base}
}

func (e *tableEditor[K, V]) current() *Table[K, V] {
	if e.clone != nil {
		return e.clone
	}
	return e.base
}

func (e *tableEditor[K, V]) get(key K) (V, bool) {
	return e.current().Get(key)
}

func (e *tableEditor[K, V]) set(key K, value V) {
	if e.clone == nil {
		e.clone = &Table[K, V]{entries: maps.Clone(e.base.entries)}
		if e.clone.entries == nil {
			e.clone.entries = map[K]V{}
		}
	}
	e.clone.entries[key] = value
}

// result returns the edited table. Once called, the editor must not be
// written to anymore, since the result may be shared by a new snapshot.
func (e *tableEditor[K, V]) result() *Table[K, V] {
	return e.current()
}
