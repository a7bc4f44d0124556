/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package graphstorage contains classes which model storage objects for graph data.

There are two main storage objects: DiskGraphStorage which provides disk storage
(backed by BadgerDB) and MemoryGraphStorage which provides memory-only storage.

Documents are stored per collection under their key. Links are stored in the
links collection and are indexed by source (from + name) and by target. The
pair (from, name) is unique: creating a second link with the same pair fails
with ErrAlreadyLink. The check and the insert happen in one atomic step.
*/
package graphstorage

import (
	"sort"
	"strconv"

	"devt.de/krotik/cmdb/graph/data"
)

/*
Storage interface models the storage backend for a graph manager.
*/
type Storage interface {

	/*
	   Name returns the name of the GraphStorage instance.
	*/
	Name() string

	/*
		Create stores a new document. Links get a new numeric key assigned.
		Other documents must have a key which is not yet used in the collection.
	*/
	Create(collection string, doc *StoredDocument) (*StoredDocument, error)

	/*
		Read reads a document. Returns ErrNotFound if the document does not exist.
	*/
	Read(collection string, key string) (*StoredDocument, error)

	/*
		Update replaces an existing document.
	*/
	Update(collection string, key string, doc *StoredDocument) (*StoredDocument, error)

	/*
		Remove removes an existing document.
	*/
	Remove(collection string, key string) error

	/*
		FindEdge finds the link with a given name which starts at a given entity.
		Returns ErrNoLink if there is no such link.
	*/
	FindEdge(from string, name string) (*StoredDocument, error)

	/*
		FindEdgeTo finds a link between two entities. If there are several
		links the one with the lowest key is returned. Returns ErrNoLink if
		there is no such link.
	*/
	FindEdgeTo(from string, to string) (*StoredDocument, error)

	/*
		EdgesFrom returns all links which start at a given entity.
	*/
	EdgesFrom(from string) ([]*StoredDocument, error)

	/*
		EdgesTo returns all links which end at a given entity.
	*/
	EdgesTo(to string) ([]*StoredDocument, error)

	/*
		Close closes the storage.
	*/
	Close() error
}

/*
StoredDocument is the storage record of a document or link.
*/
type StoredDocument struct {
	Collection string          `msgpack:"collection"`
	Key        string          `msgpack:"key"`
	Revision   string          `msgpack:"rev"`
	Meta       data.Meta       `msgpack:"meta"`
	Properties data.Properties `msgpack:"props"`
	From       string          `msgpack:"from,omitempty"`
	To         string          `msgpack:"to,omitempty"`
	Name       string          `msgpack:"name,omitempty"`
	Type       string          `msgpack:"type,omitempty"`
}

/*
ID returns the full id of this document.
*/
func (sd *StoredDocument) ID() string {
	return sd.Collection + "/" + sd.Key
}

/*
Copy returns a copy of this record which does not share the property bag.
*/
func (sd *StoredDocument) Copy() *StoredDocument {
	c := *sd
	c.Properties = sd.Properties.Clone()
	return &c
}

/*
sortByKey sorts a list of links by their numeric key.
*/
func sortByKey(docs []*StoredDocument) {
	sort.Slice(docs, func(i, j int) bool {
		ki, _ := strconv.ParseUint(docs[i].Key, 10, 64)
		kj, _ := strconv.ParseUint(docs[j].Key, 10, 64)
		return ki < kj
	})
}
