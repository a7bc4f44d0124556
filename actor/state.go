/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package actor

import (
	"bytes"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"devt.de/krotik/cmdb/graph/util"
)

/*
StateStore persists the state tables of all addresses.
*/
type StateStore interface {

	/*
		Get returns an entry of a table.
	*/
	Get(addr Address, table string, key string) ([]byte, bool, error)

	/*
		Set stores an entry of a table.
	*/
	Set(addr Address, table string, key string, value []byte) error

	/*
		Remove removes an entry of a table.
	*/
	Remove(addr Address, table string, key string) error

	/*
		Take reads and removes an entry in one atomic step.
	*/
	Take(addr Address, table string, key string) ([]byte, bool, error)

	/*
		Entries returns all entries of a table.
	*/
	Entries(addr Address, table string) (map[string][]byte, error)

	/*
		Scan iterates over a table of all addresses. Iteration stops if the
		callback returns false.
	*/
	Scan(table string, fn func(addr Address, key string, value []byte) bool) error

	/*
		Close closes the store.
	*/
	Close() error
}

/*
Table is a named state table of a single address. Values are msgpack encoded.
*/
type Table struct {
	store StateStore
	addr  Address
	name  string
}

/*
NewTable returns a state table of an address.
*/
func NewTable(store StateStore, addr Address, name string) *Table {
	return &Table{store, addr, name}
}

/*
Get decodes an entry into v. Returns false if the entry does not exist.
*/
func (t *Table) Get(key string, v interface{}) (bool, error) {
	val, ok, err := t.store.Get(t.addr, t.name, key)
	if err != nil || !ok {
		return false, err
	}
	return true, decodeValue(val, v)
}

/*
Set stores an entry.
*/
func (t *Table) Set(key string, v interface{}) error {
	val, err := msgpack.Marshal(v)
	if err != nil {
		return &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}
	return t.store.Set(t.addr, t.name, key, val)
}

/*
Remove removes an entry.
*/
func (t *Table) Remove(key string) error {
	return t.store.Remove(t.addr, t.name, key)
}

/*
Take decodes and removes an entry in one step. Returns false if the entry
did not exist.
*/
func (t *Table) Take(key string, v interface{}) (bool, error) {
	val, ok, err := t.store.Take(t.addr, t.name, key)
	if err != nil || !ok {
		return false, err
	}
	return true, decodeValue(val, v)
}

/*
Keys returns all keys of this table in sorted order.
*/
func (t *Table) Keys() ([]string, error) {
	entries, err := t.store.Entries(t.addr, t.name)
	if err != nil {
		return nil, err
	}

	res := make([]string, 0, len(entries))
	for k := range entries {
		res = append(res, k)
	}

	sort.Strings(res)

	return res, nil
}

/*
Values returns all encoded values of this table ordered by key.
*/
func (t *Table) Values() ([][]byte, error) {
	entries, err := t.store.Entries(t.addr, t.name)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	res := make([][]byte, 0, len(keys))
	for _, k := range keys {
		res = append(res, entries[k])
	}

	return res, nil
}

/*
ContainsValue checks if any entry of this table has a given value.
*/
func (t *Table) ContainsValue(v interface{}) (bool, error) {
	enc, err := msgpack.Marshal(v)
	if err != nil {
		return false, &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}

	vals, err := t.Values()
	if err != nil {
		return false, err
	}

	for _, val := range vals {
		if bytes.Equal(val, enc) {
			return true, nil
		}
	}

	return false, nil
}

/*
Len returns the number of entries in this table.
*/
func (t *Table) Len() (int, error) {
	entries, err := t.store.Entries(t.addr, t.name)
	return len(entries), err
}

func decodeValue(val []byte, v interface{}) error {
	if v == nil {
		return nil
	}
	if err := msgpack.Unmarshal(val, v); err != nil {
		return &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}
	return nil
}

/*
MemoryStateStore is a StateStore which keeps all state in memory.
*/
type MemoryStateStore struct {
	lock   *sync.Mutex
	tables map[Address]map[string]map[string][]byte
}

/*
NewMemoryStateStore creates a new MemoryStateStore.
*/
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{&sync.Mutex{}, make(map[Address]map[string]map[string][]byte)}
}

/*
Get returns an entry of a table.
*/
func (ms *MemoryStateStore) Get(addr Address, table string, key string) ([]byte, bool, error) {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	val, ok := ms.tables[addr][table][key]

	return val, ok, nil
}

/*
Set stores an entry of a table.
*/
func (ms *MemoryStateStore) Set(addr Address, table string, key string, value []byte) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	tables, ok := ms.tables[addr]
	if !ok {
		tables = make(map[string]map[string][]byte)
		ms.tables[addr] = tables
	}

	entries, ok := tables[table]
	if !ok {
		entries = make(map[string][]byte)
		tables[table] = entries
	}

	entries[key] = append([]byte(nil), value...)

	return nil
}

/*
Remove removes an entry of a table.
*/
func (ms *MemoryStateStore) Remove(addr Address, table string, key string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	ms.remove(addr, table, key)

	return nil
}

/*
Take reads and removes an entry in one atomic step.
*/
func (ms *MemoryStateStore) Take(addr Address, table string, key string) ([]byte, bool, error) {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	val, ok := ms.tables[addr][table][key]
	if ok {
		ms.remove(addr, table, key)
	}

	return val, ok, nil
}

/*
Entries returns all entries of a table.
*/
func (ms *MemoryStateStore) Entries(addr Address, table string) (map[string][]byte, error) {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	res := make(map[string][]byte)
	for k, v := range ms.tables[addr][table] {
		res[k] = v
	}

	return res, nil
}

/*
Scan iterates over a table of all addresses.
*/
func (ms *MemoryStateStore) Scan(table string, fn func(addr Address, key string, value []byte) bool) error {
	type entry struct {
		addr  Address
		key   string
		value []byte
	}

	var entries []entry

	// Collect entries first so the callback can modify the store

	ms.lock.Lock()
	for addr, tables := range ms.tables {
		for k, v := range tables[table] {
			entries = append(entries, entry{addr, k, v})
		}
	}
	ms.lock.Unlock()

	for _, e := range entries {
		if !fn(e.addr, e.key, e.value) {
			break
		}
	}

	return nil
}

/*
Close closes the store.
*/
func (ms *MemoryStateStore) Close() error {
	return nil
}

func (ms *MemoryStateStore) remove(addr Address, table string, key string) {
	tables, ok := ms.tables[addr]
	if !ok {
		return
	}

	delete(tables[table], key)

	if len(tables[table]) == 0 {
		delete(tables, table)
	}
	if len(tables) == 0 {
		delete(ms.tables, addr)
	}
}
