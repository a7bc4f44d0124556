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
Package data contains the entity model of the CMDB.

EntityRef

Every entity has a composite id <collection>/<key>. The kind of an entity is
derived from the shape of its key:

	root, objects, types  -> system node (collection system)
	\d+                   -> link        (collection links)
	UUID v4               -> object      (collection objects)
	anything else         -> type        (collection types)

The classification is done once when an id enters the system (ParseRef). All
other code branches on the Kind of an EntityRef.

Value

Entity properties are an open bag of tagged values (strings, numbers, booleans,
lists and maps). Values are converted explicitly from and to JSON-like Go
values.

Document and Link

A Document is a vertex (system node, type or object). A Link is an edge which
embeds a Document and adds source, target, name and type.
*/
package data

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"devt.de/krotik/cmdb/graph/util"
)

/*
Kind is the kind of an entity.
*/
type Kind int

/*
Entity kinds
*/
const (
	KindUnknown Kind = iota
	KindSystem
	KindType
	KindObject
	KindLink
)

/*
String returns a string representation of this kind.
*/
func (k Kind) String() string {
	switch k {
	case KindSystem:
		return "system"
	case KindType:
		return "type"
	case KindObject:
		return "object"
	case KindLink:
		return "link"
	}
	return "unknown"
}

/*
Collection names
*/
const (
	CollectionSystem  = "system"
	CollectionTypes   = "types"
	CollectionObjects = "objects"
	CollectionLinks   = "links"
)

/*
Keys of the fixed system nodes
*/
const (
	SystemRoot    = "root"
	SystemObjects = "objects"
	SystemTypes   = "types"
)

/*
Ids of the fixed system nodes
*/
const (
	RootID    = CollectionSystem + "/" + SystemRoot
	ObjectsID = CollectionSystem + "/" + SystemObjects
	TypesID   = CollectionSystem + "/" + SystemTypes
)

var numericPattern = regexp.MustCompile(`^\d+$`)

/*
EntityRef is a resolved entity id.
*/
type EntityRef struct {
	Kind       Kind
	Collection string
	Key        string
}

/*
ClassifyKey determines the kind of an entity from its key.
*/
func ClassifyKey(key string) Kind {
	switch {
	case key == "":
		return KindUnknown
	case key == SystemRoot || key == SystemObjects || key == SystemTypes:
		return KindSystem
	case numericPattern.MatchString(key):
		return KindLink
	case isUUIDv4(key):
		return KindObject
	}
	return KindType
}

/*
isUUIDv4 checks if a key is a version 4 UUID in its canonical 36 character form.
*/
func isUUIDv4(key string) bool {
	if len(key) != 36 {
		return false
	}

	u, err := uuid.Parse(key)

	return err == nil && u.Version() == 4 && u.Variant() == uuid.RFC4122
}

/*
CollectionForKind returns the collection which stores entities of a given kind.
*/
func CollectionForKind(k Kind) string {
	switch k {
	case KindSystem:
		return CollectionSystem
	case KindType:
		return CollectionTypes
	case KindObject:
		return CollectionObjects
	case KindLink:
		return CollectionLinks
	}
	return ""
}

/*
ParseRef resolves an id of the form <collection>/<key> or a bare key.
*/
func ParseRef(id string) (EntityRef, error) {
	collection := ""
	key := id

	if i := strings.Index(id, "/"); i != -1 {
		collection, key = id[:i], id[i+1:]
	}

	kind := ClassifyKey(key)

	if kind == KindUnknown || strings.Contains(key, "/") {
		return EntityRef{}, &util.GraphError{Type: util.ErrUnknownID, Detail: fmt.Sprintf("unknown id '%v'", id)}
	}

	expected := CollectionForKind(kind)

	if collection == "" {
		collection = expected

	} else if collection != expected {
		return EntityRef{}, &util.GraphError{Type: util.ErrUnknownID,
			Detail: fmt.Sprintf("unknown id '%v' (key is a %v)", id, kind)}
	}

	return EntityRef{kind, collection, key}, nil
}

/*
MustParseRef resolves an id and panics if the id is not valid.
*/
func MustParseRef(id string) EntityRef {
	ref, err := ParseRef(id)
	if err != nil {
		panic(err)
	}
	return ref
}

/*
NewRef creates a reference for a key in a collection without validation.
*/
func NewRef(collection, key string) EntityRef {
	return EntityRef{ClassifyKey(key), collection, key}
}

/*
ID returns the full id of the referenced entity.
*/
func (r EntityRef) ID() string {
	if r.Key == "" {
		return ""
	}
	return r.Collection + "/" + r.Key
}

/*
IsZero checks if this reference is unset.
*/
func (r EntityRef) IsZero() bool {
	return r.Key == ""
}

/*
Is checks if this reference points to a given system node.
*/
func (r EntityRef) Is(systemKey string) bool {
	return r.Kind == KindSystem && r.Key == systemKey
}

/*
String returns a string representation of this reference.
*/
func (r EntityRef) String() string {
	return r.ID()
}
