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
Package graph contains the main API to the graph datastore.

Manager API

The main API is provided by a Manager object which can be created with the
NewGraphManager() constructor function. The manager provides CRUD
functionality for documents (system nodes, types and objects) and links.
All ids are resolved into entity references (see graph/data) at the boundary
of the manager. A link is unique by its source and its name.

Rules

Graph rules are notified after a document or link was written. Rules trigger
on global graph events. Errors of rules are collected and returned after the
write has been applied. The write itself is not undone.

Graph databases

A graph manager handles the graph storage. The storage holds one collection
per entity kind:

	system  - the fixed system nodes root, objects and types
	types   - type documents (may hold trigger definitions)
	objects - object documents (keyed by a version 4 UUID)
	links   - links (numeric key, unique by source and name)
*/
package graph

import (
	"errors"

	"devt.de/krotik/common/logutil"
)

/*
VERSION of the GraphManager
*/
const VERSION = 1

/*
logger is the logger of the graph package
*/
var logger = logutil.GetLogger("cmdb.graph")

// Graph events
//=============

/*
EventDocumentCreated is thrown when a document gets created.

Parameters: created document
*/
const EventDocumentCreated = 0x01

/*
EventDocumentUpdated is thrown when a document gets updated.

Parameters: updated document, old document
*/
const EventDocumentUpdated = 0x02

/*
EventDocumentDeleted is thrown when a document gets deleted.

Parameters: deleted document
*/
const EventDocumentDeleted = 0x03

/*
EventLinkCreated is thrown when a link gets created.

Parameters: created link
*/
const EventLinkCreated = 0x04

/*
EventLinkUpdated is thrown when a link gets updated.

Parameters: updated link, old link
*/
const EventLinkUpdated = 0x05

/*
EventLinkDeleted is thrown when a link gets deleted.

Parameters: deleted link
*/
const EventLinkDeleted = 0x06

/*
EventNames maps graph events to readable names.
*/
var EventNames = map[int]string{
	EventDocumentCreated: "document.created",
	EventDocumentUpdated: "document.updated",
	EventDocumentDeleted: "document.deleted",
	EventLinkCreated:     "link.created",
	EventLinkUpdated:     "link.updated",
	EventLinkDeleted:     "link.deleted",
}

/*
ErrEventHandled is a special error which an event handler can return to
signal that no further rules should handle the event.
*/
var ErrEventHandled = errors.New("Event handled upstream")
