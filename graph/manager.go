/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"fmt"
	"sync"

	"devt.de/krotik/cmdb/graph/data"
	"devt.de/krotik/cmdb/graph/graphstorage"
	"devt.de/krotik/cmdb/graph/util"
)

/*
Manager data structure
*/
type Manager struct {
	gs graphstorage.Storage // Graph storage of this graph manager
	gr *graphRulesManager   // Manager for graph rules
}

/*
NewGraphManager returns a new GraphManager instance. The system rules are
loaded automatically.
*/
func NewGraphManager(gs graphstorage.Storage) *Manager {
	gm := createGraphManager(gs)

	gm.SetGraphRule(&SystemRuleLogChanges{})

	return gm
}

/*
createGraphManager creates a new GraphManager instance without rules.
*/
func createGraphManager(gs graphstorage.Storage) *Manager {
	gm := &Manager{gs, &graphRulesManager{nil, make(map[string]Rule),
		make(map[int]map[string]Rule), &sync.RWMutex{}}}

	gm.gr.gm = gm

	return gm
}

/*
Name returns the name of the graph storage of this manager.
*/
func (gm *Manager) Name() string {
	return gm.gs.Name()
}

/*
SetGraphRule sets a graph rule.
*/
func (gm *Manager) SetGraphRule(rule Rule) {
	gm.gr.SetGraphRule(rule)
}

/*
RemoveGraphRule removes a graph rule.
*/
func (gm *Manager) RemoveGraphRule(name string) {
	gm.gr.RemoveGraphRule(name)
}

/*
GraphRules returns a list of all available graph rules.
*/
func (gm *Manager) GraphRules() []string {
	return gm.gr.GraphRules()
}

// Documents
// =========

/*
ReadDocument reads a document. The id can be a full id or a bare key. For
links only the document part is returned (see ReadLink).
*/
func (gm *Manager) ReadDocument(id string) (*data.Document, error) {
	ref, err := data.ParseRef(id)
	if err != nil {
		return nil, err
	}

	return gm.ReadDocumentRef(ref)
}

/*
ReadDocumentRef reads a document of a resolved reference.
*/
func (gm *Manager) ReadDocumentRef(ref data.EntityRef) (*data.Document, error) {
	sd, err := gm.gs.Read(ref.Collection, ref.Key)
	if err != nil {
		return nil, err
	}

	return toDocument(sd), nil
}

/*
CreateDocument stores a new document in the collection of its reference.
*/
func (gm *Manager) CreateDocument(doc *data.Document) (*data.Document, error) {
	if err := checkDocumentRef(doc.Ref); err != nil {
		return nil, err
	}

	sd, err := gm.gs.Create(doc.Ref.Collection, fromDocument(doc))
	if err != nil {
		return nil, err
	}

	res := toDocument(sd)

	return res, gm.gr.graphEvent(EventDocumentCreated, res)
}

/*
UpdateDocument replaces an existing document.
*/
func (gm *Manager) UpdateDocument(doc *data.Document) (*data.Document, error) {
	if err := checkDocumentRef(doc.Ref); err != nil {
		return nil, err
	}

	old, err := gm.ReadDocumentRef(doc.Ref)
	if err != nil {
		return nil, err
	}

	sd, err := gm.gs.Update(doc.Ref.Collection, doc.Ref.Key, fromDocument(doc))
	if err != nil {
		return nil, err
	}

	res := toDocument(sd)

	return res, gm.gr.graphEvent(EventDocumentUpdated, res, old)
}

/*
RemoveDocument removes a document.
*/
func (gm *Manager) RemoveDocument(ref data.EntityRef) error {
	if err := checkDocumentRef(ref); err != nil {
		return err
	}

	old, err := gm.ReadDocumentRef(ref)
	if err == nil {
		if err = gm.gs.Remove(ref.Collection, ref.Key); err == nil {
			err = gm.gr.graphEvent(EventDocumentDeleted, old)
		}
	}

	return err
}

// Links
// =====

/*
ReadLink reads a link.
*/
func (gm *Manager) ReadLink(id string) (*data.Link, error) {
	ref, err := data.ParseRef(id)
	if err != nil {
		return nil, err
	}

	if ref.Kind != data.KindLink {
		return nil, &util.GraphError{Type: util.ErrUnknownID, Detail: fmt.Sprintf("%v is not a link", id)}
	}

	sd, err := gm.gs.Read(ref.Collection, ref.Key)
	if err != nil {
		return nil, err
	}

	return toLink(sd), nil
}

/*
CreateLink stores a new link. The storage assigns the key of the link.
Returns ErrAlreadyLink if the source already has a link with the same name.
*/
func (gm *Manager) CreateLink(link *data.Link) (*data.Link, error) {
	if link.From == "" || link.To == "" || link.Name == "" {
		return nil, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("link requires source, target and name: %v", link)}
	}

	sd, err := gm.gs.Create(data.CollectionLinks, fromLink(link))
	if err != nil {
		return nil, err
	}

	res := toLink(sd)

	return res, gm.gr.graphEvent(EventLinkCreated, res)
}

/*
UpdateLink replaces an existing link.
*/
func (gm *Manager) UpdateLink(link *data.Link) (*data.Link, error) {
	if link.Ref.Kind != data.KindLink {
		return nil, &util.GraphError{Type: util.ErrUnknownID, Detail: fmt.Sprintf("%v is not a link", link.ID())}
	}

	old, err := gm.ReadLink(link.ID())
	if err != nil {
		return nil, err
	}

	sd, err := gm.gs.Update(data.CollectionLinks, link.Key(), fromLink(link))
	if err != nil {
		return nil, err
	}

	res := toLink(sd)

	return res, gm.gr.graphEvent(EventLinkUpdated, res, old)
}

/*
RemoveLink removes a link.
*/
func (gm *Manager) RemoveLink(ref data.EntityRef) error {
	if ref.Kind != data.KindLink {
		return &util.GraphError{Type: util.ErrUnknownID, Detail: fmt.Sprintf("%v is not a link", ref.ID())}
	}

	old, err := gm.ReadLink(ref.ID())
	if err == nil {
		if err = gm.gs.Remove(data.CollectionLinks, ref.Key); err == nil {
			err = gm.gr.graphEvent(EventLinkDeleted, old)
		}
	}

	return err
}

/*
FindLink finds the link with a given name which starts at a given entity.
Returns ErrNoLink if there is no such link.
*/
func (gm *Manager) FindLink(from string, name string) (*data.Link, error) {
	sd, err := gm.gs.FindEdge(from, name)
	if err != nil {
		return nil, err
	}

	return toLink(sd), nil
}

/*
FindLinkTo finds a link between two entities. Returns ErrNoLink if there
is no such link.
*/
func (gm *Manager) FindLinkTo(from string, to string) (*data.Link, error) {
	sd, err := gm.gs.FindEdgeTo(from, to)
	if err != nil {
		return nil, err
	}

	return toLink(sd), nil
}

/*
LinksFrom returns all links which start at a given entity ordered by key.
*/
func (gm *Manager) LinksFrom(id string) ([]*data.Link, error) {
	sds, err := gm.gs.EdgesFrom(id)
	return toLinks(sds), err
}

/*
LinksTo returns all links which end at a given entity ordered by key.
*/
func (gm *Manager) LinksTo(id string) ([]*data.Link, error) {
	sds, err := gm.gs.EdgesTo(id)
	return toLinks(sds), err
}

// Helper functions
// ================

func checkDocumentRef(ref data.EntityRef) error {
	if ref.IsZero() || ref.Kind == data.KindLink || ref.Kind == data.KindUnknown {
		return &util.GraphError{Type: util.ErrUnknownID, Detail: fmt.Sprintf("'%v' is not a document id", ref.ID())}
	}
	return nil
}

func fromDocument(doc *data.Document) *graphstorage.StoredDocument {
	return &graphstorage.StoredDocument{
		Collection: doc.Ref.Collection,
		Key:        doc.Ref.Key,
		Revision:   doc.Revision,
		Meta:       doc.Meta,
		Properties: doc.Properties,
	}
}

func fromLink(link *data.Link) *graphstorage.StoredDocument {
	sd := fromDocument(&link.Document)
	sd.Collection = data.CollectionLinks
	sd.From = link.From
	sd.To = link.To
	sd.Name = link.Name
	sd.Type = link.Type
	return sd
}

func toDocument(sd *graphstorage.StoredDocument) *data.Document {
	props := sd.Properties
	if props == nil {
		props = make(data.Properties)
	}

	return &data.Document{
		Ref:        data.NewRef(sd.Collection, sd.Key),
		Revision:   sd.Revision,
		Meta:       sd.Meta,
		Properties: props,
	}
}

func toLink(sd *graphstorage.StoredDocument) *data.Link {
	return &data.Link{
		Document: *toDocument(sd),
		From:     sd.From,
		To:       sd.To,
		Name:     sd.Name,
		Type:     sd.Type,
	}
}

func toLinks(sds []*graphstorage.StoredDocument) []*data.Link {
	res := make([]*data.Link, 0, len(sds))
	for _, sd := range sds {
		res = append(res, toLink(sd))
	}
	return res
}
