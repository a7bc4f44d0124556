/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graphstorage

import (
	"fmt"
	"strconv"
	"sync"

	"devt.de/krotik/cmdb/graph/data"
	"devt.de/krotik/cmdb/graph/util"
)

/*
MemoryGraphStorage data structure
*/
type MemoryGraphStorage struct {
	name      string                                // Name of the graph storage
	lock      *sync.Mutex                           // Lock for all operations
	docs      map[string]map[string]*StoredDocument // Collection -> key -> document
	fromIndex map[string]map[string]string          // From -> name -> link key
	toIndex   map[string]map[string]bool            // To -> link keys
	linkSeq   uint64                                // Last assigned link key
	revSeq    uint64                                // Last assigned revision
}

/*
NewMemoryGraphStorage creates a new MemoryGraphStorage instance.
*/
func NewMemoryGraphStorage(name string) Storage {
	return &MemoryGraphStorage{
		name:      name,
		lock:      &sync.Mutex{},
		docs:      make(map[string]map[string]*StoredDocument),
		fromIndex: make(map[string]map[string]string),
		toIndex:   make(map[string]map[string]bool),
	}
}

/*
Name returns the name of the MemoryGraphStorage instance.
*/
func (mgs *MemoryGraphStorage) Name() string {
	return mgs.name
}

/*
Create stores a new document.
*/
func (mgs *MemoryGraphStorage) Create(collection string, doc *StoredDocument) (*StoredDocument, error) {
	mgs.lock.Lock()
	defer mgs.lock.Unlock()

	doc = doc.Copy()
	doc.Collection = collection

	if collection == data.CollectionLinks {

		// Links are unique by source and name

		if key, ok := mgs.fromIndex[doc.From][doc.Name]; ok {
			return nil, &util.GraphError{Type: util.ErrAlreadyLink,
				Detail: fmt.Sprintf("link %v -> %v already exists (links/%v)", doc.From, doc.Name, key)}
		}

		mgs.linkSeq++
		doc.Key = strconv.FormatUint(mgs.linkSeq, 10)

	} else if _, ok := mgs.docs[collection][doc.Key]; ok {
		return nil, &util.GraphError{Type: util.ErrAlreadyExists,
			Detail: fmt.Sprintf("%v already exists", doc.ID())}
	}

	mgs.revSeq++
	doc.Revision = strconv.FormatUint(mgs.revSeq, 10)

	mgs.store(doc)

	return doc.Copy(), nil
}

/*
Read reads a document.
*/
func (mgs *MemoryGraphStorage) Read(collection string, key string) (*StoredDocument, error) {
	mgs.lock.Lock()
	defer mgs.lock.Unlock()

	doc, ok := mgs.docs[collection][key]
	if !ok {
		return nil, &util.GraphError{Type: util.ErrNotFound, Detail: collection + "/" + key}
	}

	return doc.Copy(), nil
}

/*
Update replaces an existing document.
*/
func (mgs *MemoryGraphStorage) Update(collection string, key string, doc *StoredDocument) (*StoredDocument, error) {
	mgs.lock.Lock()
	defer mgs.lock.Unlock()

	old, ok := mgs.docs[collection][key]
	if !ok {
		return nil, &util.GraphError{Type: util.ErrNotFound, Detail: collection + "/" + key}
	}

	doc = doc.Copy()
	doc.Collection = collection
	doc.Key = key

	if collection == data.CollectionLinks && (old.From != doc.From || old.Name != doc.Name) {
		if other, ok := mgs.fromIndex[doc.From][doc.Name]; ok && other != key {
			return nil, &util.GraphError{Type: util.ErrAlreadyLink,
				Detail: fmt.Sprintf("link %v -> %v already exists (links/%v)", doc.From, doc.Name, other)}
		}
	}

	mgs.unstore(old)

	mgs.revSeq++
	doc.Revision = strconv.FormatUint(mgs.revSeq, 10)

	mgs.store(doc)

	return doc.Copy(), nil
}

/*
Remove removes an existing document.
*/
func (mgs *MemoryGraphStorage) Remove(collection string, key string) error {
	mgs.lock.Lock()
	defer mgs.lock.Unlock()

	old, ok := mgs.docs[collection][key]
	if !ok {
		return &util.GraphError{Type: util.ErrNotFound, Detail: collection + "/" + key}
	}

	mgs.unstore(old)

	return nil
}

/*
FindEdge finds the link with a given name which starts at a given entity.
*/
func (mgs *MemoryGraphStorage) FindEdge(from string, name string) (*StoredDocument, error) {
	mgs.lock.Lock()
	defer mgs.lock.Unlock()

	if key, ok := mgs.fromIndex[from][name]; ok {
		return mgs.docs[data.CollectionLinks][key].Copy(), nil
	}

	return nil, &util.GraphError{Type: util.ErrNoLink, Detail: fmt.Sprintf("link %v -> %v not found", from, name)}
}

/*
FindEdgeTo finds a link between two entities.
*/
func (mgs *MemoryGraphStorage) FindEdgeTo(from string, to string) (*StoredDocument, error) {
	links, _ := mgs.EdgesFrom(from)

	for _, l := range links {
		if l.To == to {
			return l, nil
		}
	}

	return nil, &util.GraphError{Type: util.ErrNoLink, Detail: fmt.Sprintf("link from %v to %v not found", from, to)}
}

/*
EdgesFrom returns all links which start at a given entity.
*/
func (mgs *MemoryGraphStorage) EdgesFrom(from string) ([]*StoredDocument, error) {
	mgs.lock.Lock()
	defer mgs.lock.Unlock()

	var res []*StoredDocument

	for _, key := range mgs.fromIndex[from] {
		res = append(res, mgs.docs[data.CollectionLinks][key].Copy())
	}

	sortByKey(res)

	return res, nil
}

/*
EdgesTo returns all links which end at a given entity.
*/
func (mgs *MemoryGraphStorage) EdgesTo(to string) ([]*StoredDocument, error) {
	mgs.lock.Lock()
	defer mgs.lock.Unlock()

	var res []*StoredDocument

	for key := range mgs.toIndex[to] {
		res = append(res, mgs.docs[data.CollectionLinks][key].Copy())
	}

	sortByKey(res)

	return res, nil
}

/*
Close closes the storage.
*/
func (mgs *MemoryGraphStorage) Close() error {
	return nil
}

/*
String returns a string representation of the stored collections.
*/
func (mgs *MemoryGraphStorage) String() string {
	mgs.lock.Lock()
	defer mgs.lock.Unlock()

	res := fmt.Sprintf("MemoryGraphStorage %v\n", mgs.name)
	for c, docs := range mgs.docs {
		res += fmt.Sprintf("  %v: %v documents\n", c, len(docs))
	}

	return res
}

/*
store adds a document and its index entries. Expects the lock to be held.
*/
func (mgs *MemoryGraphStorage) store(doc *StoredDocument) {
	docs, ok := mgs.docs[doc.Collection]
	if !ok {
		docs = make(map[string]*StoredDocument)
		mgs.docs[doc.Collection] = docs
	}
	docs[doc.Key] = doc

	if doc.Collection == data.CollectionLinks {
		names, ok := mgs.fromIndex[doc.From]
		if !ok {
			names = make(map[string]string)
			mgs.fromIndex[doc.From] = names
		}
		names[doc.Name] = doc.Key

		keys, ok := mgs.toIndex[doc.To]
		if !ok {
			keys = make(map[string]bool)
			mgs.toIndex[doc.To] = keys
		}
		keys[doc.Key] = true
	}
}

/*
unstore removes a document and its index entries. Expects the lock to be held.
*/
func (mgs *MemoryGraphStorage) unstore(doc *StoredDocument) {
	delete(mgs.docs[doc.Collection], doc.Key)

	if doc.Collection == data.CollectionLinks {
		if names, ok := mgs.fromIndex[doc.From]; ok {
			delete(names, doc.Name)
			if len(names) == 0 {
				delete(mgs.fromIndex, doc.From)
			}
		}
		if keys, ok := mgs.toIndex[doc.To]; ok {
			delete(keys, doc.Key)
			if len(keys) == 0 {
				delete(mgs.toIndex, doc.To)
			}
		}
	}
}
