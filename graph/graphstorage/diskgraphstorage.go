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
	"errors"
	"fmt"
	"os"
	"strconv"

	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/common/logutil"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"devt.de/krotik/cmdb/graph/data"
	"devt.de/krotik/cmdb/graph/util"
)

/*
Key prefixes of the disk storage
*/
const (
	prefixDocument = "d/"
	prefixFrom     = "f/"
	prefixTo       = "t/"
	keyLinkSeq     = "s/links"
	keyRevSeq      = "s/rev"
)

/*
MaxConflictRetries is the number of times a write is retried after a
transaction conflict.
*/
var MaxConflictRetries = 10

/*
DiskGraphStorage data structure
*/
type DiskGraphStorage struct {
	name     string     // Name of the graph storage
	readonly bool       // Flag for readonly mode
	db       *badger.DB // Database storing all documents and indexes
}

/*
NewDiskGraphStorage creates a new DiskGraphStorage instance.
*/
func NewDiskGraphStorage(name string, readonly bool) (Storage, error) {

	// Create the storage directory if it does not exist

	if res, _ := fileutil.PathExists(name); !res {
		if err := os.Mkdir(name, 0770); err != nil {
			return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
		}
	}

	opts := badger.DefaultOptions(name).WithReadOnly(readonly)

	return openDiskGraphStorage(name, readonly, opts)
}

/*
NewInMemoryDiskGraphStorage creates a DiskGraphStorage instance which keeps
all data in memory. The badger engine is used for all operations.
*/
func NewInMemoryDiskGraphStorage(name string) (Storage, error) {
	return openDiskGraphStorage(name, false, badger.DefaultOptions("").WithInMemory(true))
}

func openDiskGraphStorage(name string, readonly bool, opts badger.Options) (Storage, error) {
	db, err := badger.Open(opts.WithLogger(badgerLogger{logutil.GetLogger("cmdb.graph.badger")}))
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
	}

	return &DiskGraphStorage{name, readonly, db}, nil
}

/*
Name returns the name of the DiskGraphStorage instance.
*/
func (dgs *DiskGraphStorage) Name() string {
	return dgs.name
}

/*
Create stores a new document.
*/
func (dgs *DiskGraphStorage) Create(collection string, doc *StoredDocument) (*StoredDocument, error) {
	var res *StoredDocument

	err := dgs.update(func(txn *badger.Txn) error {
		doc := doc.Copy()
		doc.Collection = collection

		if collection == data.CollectionLinks {

			// Links are unique by source and name - the index lookup and
			// the insert are part of the same transaction

			key, err := getString(txn, fromKey(doc.From, doc.Name))
			if err == nil {
				return &util.GraphError{Type: util.ErrAlreadyLink,
					Detail: fmt.Sprintf("link %v -> %v already exists (links/%v)", doc.From, doc.Name, key)}
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			if doc.Key, err = nextCounter(txn, keyLinkSeq); err != nil {
				return err
			}

		} else if _, err := txn.Get(documentKey(collection, doc.Key)); err == nil {
			return &util.GraphError{Type: util.ErrAlreadyExists,
				Detail: fmt.Sprintf("%v already exists", doc.ID())}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := dgs.store(txn, doc); err != nil {
			return err
		}

		res = doc

		return nil
	})

	return res, err
}

/*
Read reads a document.
*/
func (dgs *DiskGraphStorage) Read(collection string, key string) (*StoredDocument, error) {
	var res *StoredDocument

	err := dgs.db.View(func(txn *badger.Txn) error {
		var err error
		res, err = readDocument(txn, collection, key)
		return err
	})

	return res, dgs.wrapReadError(err)
}

/*
Update replaces an existing document.
*/
func (dgs *DiskGraphStorage) Update(collection string, key string, doc *StoredDocument) (*StoredDocument, error) {
	var res *StoredDocument

	err := dgs.update(func(txn *badger.Txn) error {
		old, err := readDocument(txn, collection, key)
		if err != nil {
			return err
		}

		doc := doc.Copy()
		doc.Collection = collection
		doc.Key = key

		if collection == data.CollectionLinks && (old.From != doc.From || old.Name != doc.Name) {
			other, err := getString(txn, fromKey(doc.From, doc.Name))
			if err == nil && other != key {
				return &util.GraphError{Type: util.ErrAlreadyLink,
					Detail: fmt.Sprintf("link %v -> %v already exists (links/%v)", doc.From, doc.Name, other)}
			}
		}

		if err := unstore(txn, old); err != nil {
			return err
		}

		if err := dgs.store(txn, doc); err != nil {
			return err
		}

		res = doc

		return nil
	})

	return res, err
}

/*
Remove removes an existing document.
*/
func (dgs *DiskGraphStorage) Remove(collection string, key string) error {
	return dgs.update(func(txn *badger.Txn) error {
		old, err := readDocument(txn, collection, key)
		if err == nil {
			err = unstore(txn, old)
		}
		return err
	})
}

/*
FindEdge finds the link with a given name which starts at a given entity.
*/
func (dgs *DiskGraphStorage) FindEdge(from string, name string) (*StoredDocument, error) {
	var res *StoredDocument

	err := dgs.db.View(func(txn *badger.Txn) error {
		key, err := getString(txn, fromKey(from, name))

		if errors.Is(err, badger.ErrKeyNotFound) {
			return &util.GraphError{Type: util.ErrNoLink, Detail: fmt.Sprintf("link %v -> %v not found", from, name)}
		} else if err == nil {
			res, err = readDocument(txn, data.CollectionLinks, key)
		}

		return err
	})

	return res, dgs.wrapReadError(err)
}

/*
FindEdgeTo finds a link between two entities.
*/
func (dgs *DiskGraphStorage) FindEdgeTo(from string, to string) (*StoredDocument, error) {
	links, err := dgs.EdgesFrom(from)

	if err == nil {
		for _, l := range links {
			if l.To == to {
				return l, nil
			}
		}

		err = &util.GraphError{Type: util.ErrNoLink, Detail: fmt.Sprintf("link from %v to %v not found", from, to)}
	}

	return nil, err
}

/*
EdgesFrom returns all links which start at a given entity.
*/
func (dgs *DiskGraphStorage) EdgesFrom(from string) ([]*StoredDocument, error) {
	return dgs.edges(prefixFrom + from + "\x00")
}

/*
EdgesTo returns all links which end at a given entity.
*/
func (dgs *DiskGraphStorage) EdgesTo(to string) ([]*StoredDocument, error) {
	return dgs.edges(prefixTo + to + "\x00")
}

/*
Close closes the storage.
*/
func (dgs *DiskGraphStorage) Close() error {
	if err := dgs.db.Close(); err != nil {
		return &util.GraphError{Type: util.ErrClosing, Detail: err.Error()}
	}
	return nil
}

/*
edges returns all links referenced by an index prefix.
*/
func (dgs *DiskGraphStorage) edges(prefix string) ([]*StoredDocument, error) {
	var res []*StoredDocument

	err := dgs.db.View(func(txn *badger.Txn) error {
		p := []byte(prefix)

		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = p
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		var keys []string

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			keys = append(keys, string(val))
		}

		for _, key := range keys {
			doc, err := readDocument(txn, data.CollectionLinks, key)
			if err != nil {
				return err
			}
			res = append(res, doc)
		}

		return nil
	})

	if err != nil {
		return nil, dgs.wrapReadError(err)
	}

	sortByKey(res)

	return res, nil
}

/*
update runs a read-write transaction. Transactions which fail because of
a conflict with a concurrent transaction are retried.
*/
func (dgs *DiskGraphStorage) update(fn func(txn *badger.Txn) error) error {
	if dgs.readonly {
		return &util.GraphError{Type: util.ErrReadOnly, Detail: dgs.name}
	}

	var err error

	for i := 0; i < MaxConflictRetries; i++ {
		if err = dgs.db.Update(fn); !errors.Is(err, badger.ErrConflict) {
			break
		}
	}

	if err != nil {
		var gerr *util.GraphError

		if !errors.As(err, &gerr) {
			err = &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
		}
	}

	return err
}

/*
wrapReadError wraps a low-level read error.
*/
func (dgs *DiskGraphStorage) wrapReadError(err error) error {
	if err != nil {
		var gerr *util.GraphError

		if !errors.As(err, &gerr) {
			err = &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
		}
	}
	return err
}

/*
store writes a document and its index entries.
*/
func (dgs *DiskGraphStorage) store(txn *badger.Txn, doc *StoredDocument) error {
	rev, err := nextCounter(txn, keyRevSeq)
	if err != nil {
		return err
	}

	doc.Revision = rev

	val, err := msgpack.Marshal(doc)
	if err != nil {
		return err
	}

	if err = txn.Set(documentKey(doc.Collection, doc.Key), val); err == nil && doc.Collection == data.CollectionLinks {
		if err = txn.Set(fromKey(doc.From, doc.Name), []byte(doc.Key)); err == nil {
			err = txn.Set(toKey(doc.To, doc.Key), []byte(doc.Key))
		}
	}

	return err
}

/*
unstore removes a document and its index entries.
*/
func unstore(txn *badger.Txn, doc *StoredDocument) error {
	err := txn.Delete(documentKey(doc.Collection, doc.Key))

	if err == nil && doc.Collection == data.CollectionLinks {
		if err = txn.Delete(fromKey(doc.From, doc.Name)); err == nil {
			err = txn.Delete(toKey(doc.To, doc.Key))
		}
	}

	return err
}

/*
readDocument reads and decodes a document inside a transaction.
*/
func readDocument(txn *badger.Txn, collection string, key string) (*StoredDocument, error) {
	item, err := txn.Get(documentKey(collection, key))

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, &util.GraphError{Type: util.ErrNotFound, Detail: collection + "/" + key}
	} else if err != nil {
		return nil, err
	}

	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}

	doc := &StoredDocument{}
	if err := msgpack.Unmarshal(val, doc); err != nil {
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}

	return doc, nil
}

/*
nextCounter increments a counter inside a transaction and returns the new value.
*/
func nextCounter(txn *badger.Txn, key string) (string, error) {
	var n uint64

	val, err := getString(txn, []byte(key))
	if err == nil {
		if n, err = strconv.ParseUint(val, 10, 64); err != nil {
			return "", err
		}
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return "", err
	}

	res := strconv.FormatUint(n+1, 10)

	return res, txn.Set([]byte(key), []byte(res))
}

func getString(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if err != nil {
		return "", err
	}

	val, err := item.ValueCopy(nil)

	return string(val), err
}

func documentKey(collection, key string) []byte {
	return []byte(prefixDocument + collection + "/" + key)
}

func fromKey(from, name string) []byte {
	return []byte(prefixFrom + from + "\x00" + name)
}

func toKey(to, linkKey string) []byte {
	return []byte(prefixTo + to + "\x00" + linkKey)
}

/*
badgerLogger forwards badger log output to a scoped logger. Info and debug
output of the engine is dropped.
*/
type badgerLogger struct {
	logger logutil.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{}) { l.logger.Error(fmt.Sprintf(f, v...)) }
func (l badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warning(fmt.Sprintf(f, v...))
}
func (l badgerLogger) Infof(string, ...interface{})  {}
func (l badgerLogger) Debugf(string, ...interface{}) {}
