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
Package cmdb contains the graph mutation engine of the CMDB.

The engine creates, updates and removes types, objects and links. It keeps
the structural invariants of the graph:

- Every type is linked from system/types.

- Every object is linked from its type and from system/objects. Both links
are named with the key of the object and carry the type key as link type.

- Link names are unique among the links of a source entity.

Mutations of objects and links fire trigger calls through the actor context
of the running function. The package also defines the messages which are
exchanged between the system functions and bootstraps the fixed skeleton of
a new graph.
*/
package cmdb

import (
	"fmt"

	"devt.de/krotik/common/logutil"
	"github.com/google/uuid"

	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/graph"
	"devt.de/krotik/cmdb/graph/data"
	"devt.de/krotik/cmdb/graph/util"
)

/*
logger is the logger of the mutation engine
*/
var logger = logutil.GetLogger("cmdb.engine")

/*
Link types of the skeleton
*/
const (
	LinkTypeType    = "type"
	LinkTypeSystem  = "system"
	LinkTypeTrigger = "trigger"
)

/*
Cmdb is the graph mutation engine.
*/
type Cmdb struct {
	gm *graph.Manager
}

/*
NewCmdb creates a new mutation engine on top of a graph manager.
*/
func NewCmdb(gm *graph.Manager) *Cmdb {
	return &Cmdb{gm}
}

/*
Manager returns the graph manager of this engine.
*/
func (c *Cmdb) Manager() *graph.Manager {
	return c.gm
}

// Read operations
// ===============

/*
ReadDocument reads a document of a system node, type or object.
*/
func (c *Cmdb) ReadDocument(id string) (*data.Document, error) {
	return c.gm.ReadDocument(id)
}

/*
ReadLink reads a link.
*/
func (c *Cmdb) ReadLink(id string) (*data.Link, error) {
	return c.gm.ReadLink(id)
}

/*
ReadLinkByName reads the link with a given name which starts at an entity.
*/
func (c *Cmdb) ReadLinkByName(from string, name string) (*data.Link, error) {
	return c.gm.FindLink(from, name)
}

/*
ReadLinkByTo reads a link between two entities.
*/
func (c *Cmdb) ReadLinkByTo(from string, to string) (*data.Link, error) {
	return c.gm.FindLinkTo(from, to)
}

/*
CheckFrom returns ErrAlreadyLink if a parent has a link with a given name.
*/
func (c *Cmdb) CheckFrom(parent *data.Document, name string) error {
	_, err := c.gm.FindLink(parent.ID(), name)

	if err == nil {
		return &util.GraphError{Type: util.ErrAlreadyLink, Detail: fmt.Sprintf("%v -> %v", parent.ID(), name)}
	} else if util.IsNotFound(err) {
		return nil
	}

	return err
}

/*
GetTypeID returns the type id of an object.
*/
func (c *Cmdb) GetTypeID(id string) (string, error) {
	link, err := c.ReadLinkByTo(data.ObjectsID, id)
	if err != nil {
		return "", err
	}

	return data.CollectionTypes + "/" + link.Type, nil
}

/*
ResolveTypeID returns the type id of an entity. Types and system nodes
resolve to themselves.
*/
func (c *Cmdb) ResolveTypeID(id string) (string, error) {
	ref, err := data.ParseRef(id)
	if err != nil {
		return "", err
	}

	if ref.Kind == data.KindType || ref.Kind == data.KindSystem {
		return ref.ID(), nil
	}

	return c.GetTypeID(ref.ID())
}

// System nodes
// ============

/*
CreateSystem creates a system node.
*/
func (c *Cmdb) CreateSystem(doc *data.Document) (*data.Document, error) {
	if doc.Ref.Kind != data.KindSystem {
		return nil, &util.GraphError{Type: util.ErrUnknownID, Detail: fmt.Sprintf("%v is not a system node", doc.ID())}
	}

	doc, err := c.gm.CreateDocument(doc)
	if err == nil {
		logger.Debug("Created system node ", doc.ID())
	}

	return doc, err
}

/*
CreateSystemChild creates a system node which is linked from a parent.
*/
func (c *Cmdb) CreateSystemChild(parent *data.Document, doc *data.Document) (*data.Document, error) {
	doc, err := c.CreateSystem(doc)
	if err == nil {
		_, err = c.createLink(parent, doc, LinkTypeSystem, doc.Key(), nil)
	}

	return doc, err
}

// Types
// =====

/*
CreateType creates a type. The key of the document is the name of the type.
*/
func (c *Cmdb) CreateType(doc *data.Document) (*data.Document, error) {
	if doc.Ref.Kind != data.KindType {
		return nil, &util.GraphError{Type: util.ErrUnknownID, Detail: fmt.Sprintf("'%v' is not a type name", doc.Key())}
	}

	types, err := c.ReadDocument(data.TypesID)
	if err != nil {
		return nil, err
	}

	if err = c.CheckFrom(types, doc.Key()); err != nil {
		return nil, err
	}

	if doc, err = c.gm.CreateDocument(doc); err != nil {
		return nil, err
	}

	if _, err = c.createLink(types, doc, LinkTypeType, doc.Key(), nil); err == nil {
		logger.Debug("Created type ", doc.ID())
	}

	return doc, err
}

/*
UpdateType stores a changed type.
*/
func (c *Cmdb) UpdateType(doc *data.Document) (*data.Document, error) {
	return c.updateDocument(doc)
}

/*
RemoveType removes a type. Objects of the type are not removed.
*/
func (c *Cmdb) RemoveType(doc *data.Document) error {
	return c.removeDocument(doc)
}

// Objects
// =======

/*
CreateObject creates an object of a type. Fires the create triggers of the
object if a context is given.
*/
func (c *Cmdb) CreateObject(ctx actor.Context, typeDoc *data.Document, doc *data.Document) (*data.Document, error) {
	objects, err := c.ReadDocument(data.ObjectsID)
	if err != nil {
		return nil, err
	}

	obj := doc.Clone()
	obj.Ref = data.NewRef(data.CollectionObjects, uuid.New().String())

	if obj, err = c.gm.CreateDocument(obj); err != nil {
		return nil, err
	}

	if _, err = c.createLink(typeDoc, obj, typeDoc.Key(), obj.Key(), nil); err == nil {
		_, err = c.createLink(objects, obj, typeDoc.Key(), obj.Key(), nil)
	}

	if err != nil {
		return nil, err
	}

	logger.Debug("Created object ", obj.ID(), " of type ", typeDoc.ID())

	if ctx != nil {
		c.fire(ctx, NewObjectTriggerCall, obj.ID(), MethodCreate)
	}

	return obj, nil
}

/*
CreateObjectWithParent creates an object of a type which is linked from a
parent with a given name. Returns ErrAlreadyLink if the parent already has
a link with this name.
*/
func (c *Cmdb) CreateObjectWithParent(ctx actor.Context, typeDoc *data.Document, parent *data.Document,
	doc *data.Document, name string) (*data.Document, error) {

	if err := c.CheckFrom(parent, name); err != nil {
		return nil, err
	}

	obj, err := c.CreateObject(ctx, typeDoc, doc)
	if err == nil {
		_, err = c.createLink(parent, obj, typeDoc.Key(), name, nil)
	}

	return obj, err
}

/*
UpdateObject stores a changed object and fires its update triggers.
*/
func (c *Cmdb) UpdateObject(ctx actor.Context, doc *data.Document) (*data.Document, error) {
	doc, err := c.updateDocument(doc)

	if err == nil && ctx != nil {
		c.fire(ctx, NewObjectTriggerCall, doc.ID(), MethodUpdate)
	}

	return doc, err
}

/*
RemoveObject removes an object. Links of the object are not removed.
*/
func (c *Cmdb) RemoveObject(doc *data.Document) error {
	return c.removeDocument(doc)
}

// Links
// =====

/*
CreateLink creates a link between two entities and fires the create
triggers of the link if a context is given.
*/
func (c *Cmdb) CreateLink(ctx actor.Context, parent *data.Document, target *data.Document, linkType string,
	name string, props data.Properties) (*data.Link, error) {

	link, err := c.createLink(parent, target, linkType, name, props)

	if err == nil && ctx != nil {
		c.fire(ctx, NewLinkTriggerCall, link.ID(), MethodCreate)
	}

	return link, err
}

/*
UpdateLink stores a link with changed properties and fires its update triggers.
*/
func (c *Cmdb) UpdateLink(ctx actor.Context, link *data.Link) (*data.Link, error) {
	link, err := c.UpdateLinkDocument(link)

	if err == nil && ctx != nil {
		c.fire(ctx, NewLinkTriggerCall, link.ID(), MethodUpdate)
	}

	return link, err
}

/*
ReplaceLink stores a link with changed properties and type. No triggers
are fired.
*/
func (c *Cmdb) ReplaceLink(ctx actor.Context, link *data.Link) (*data.Link, error) {
	return c.UpdateLinkDocument(link)
}

/*
UpdateLinkDocument stores a changed link without firing triggers.
*/
func (c *Cmdb) UpdateLinkDocument(link *data.Link) (*data.Link, error) {
	link, err := c.gm.UpdateLink(link)
	if err == nil {
		logger.Debug("Updated link ", link.ID())
	}

	return link, err
}

/*
RemoveLink removes a link.
*/
func (c *Cmdb) RemoveLink(link *data.Link) error {
	err := c.gm.RemoveLink(link.Ref)
	if err == nil {
		logger.Debug("Removed link ", link.ID())
	}

	return err
}

// Helper functions
// ================

/*
createLink checks the link name and creates a link. The storage rejects a
concurrently created link with the same name.
*/
func (c *Cmdb) createLink(parent *data.Document, target *data.Document, linkType string,
	name string, props data.Properties) (*data.Link, error) {

	if err := c.CheckFrom(parent, name); err != nil {
		return nil, err
	}

	link := data.NewLink(parent.ID(), target.ID(), linkType, name)

	if props != nil {
		link.ReplaceProperties(props)
	}

	link, err := c.gm.CreateLink(link)
	if err == nil {
		logger.Debug("Created link ", link.ID(), " ", link.From, " -> ", link.To)
	}

	return link, err
}

func (c *Cmdb) updateDocument(doc *data.Document) (*data.Document, error) {
	doc, err := c.gm.UpdateDocument(doc)
	if err == nil {
		logger.Debug("Updated ", doc.ID())
	}

	return doc, err
}

func (c *Cmdb) removeDocument(doc *data.Document) error {
	err := c.gm.RemoveDocument(doc.Ref)
	if err == nil {
		logger.Debug("Removed ", doc.ID())
	}

	return err
}

/*
fire sends a trigger call. Errors are logged and never returned.
*/
func (c *Cmdb) fire(ctx actor.Context, newCall func(string, Method) (*actor.Call, error), id string, method Method) {
	call, err := newCall(id, method)
	if err == nil {
		err = Send(ctx, call)
	}

	if err != nil {
		logger.Error("Could not fire ", method, " trigger of ", id, ": ", err)
	}
}
