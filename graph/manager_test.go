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
	"errors"
	"fmt"
	"testing"

	"devt.de/krotik/cmdb/graph/data"
	"devt.de/krotik/cmdb/graph/graphstorage"
	"devt.de/krotik/cmdb/graph/util"
)

const testObjectKey = "3f1c2a9e-8b7d-4c6e-9a5b-1d2e3f4a5b6c"

func TestDocumentOperations(t *testing.T) {
	gm := NewGraphManager(graphstorage.NewMemoryGraphStorage("mystorage"))

	if gm.Name() != "mystorage" {
		t.Error("Unexpected name:", gm.Name())
		return
	}

	doc := data.NewDocument(data.MustParseRef("types/host"))
	doc.SetAttr("os", data.String("linux"))

	res, err := gm.CreateDocument(doc)
	if err != nil {
		t.Error(err)
		return
	}

	if res.ID() != "types/host" || res.Revision == "" {
		t.Error("Unexpected result:", res)
		return
	}

	if _, err := gm.CreateDocument(doc); !errors.Is(err, util.ErrAlreadyExists) {
		t.Error("Unexpected result:", err)
		return
	}

	// Documents can be read with a full id or a bare key

	res, err = gm.ReadDocument("host")
	if err != nil || res.Properties["os"].String() != "linux" {
		t.Error("Unexpected result:", res, err)
		return
	}

	res.SetAttr("os", data.String("bsd"))

	if _, err := gm.UpdateDocument(res); err != nil {
		t.Error(err)
		return
	}

	res, _ = gm.ReadDocument("types/host")
	if res.Properties["os"].String() != "bsd" {
		t.Error("Unexpected result:", res)
		return
	}

	if err := gm.RemoveDocument(res.Ref); err != nil {
		t.Error(err)
		return
	}

	if _, err := gm.ReadDocument("types/host"); !util.IsNotFound(err) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := gm.ReadDocument("types/1"); !util.IsUnknown(err) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := gm.CreateDocument(data.NewDocument(data.MustParseRef("links/1"))); !util.IsUnknown(err) {
		t.Error("Unexpected result:", err)
		return
	}
}

func TestLinkOperations(t *testing.T) {
	gm := NewGraphManager(graphstorage.NewMemoryGraphStorage("mystorage"))

	obj := "objects/" + testObjectKey

	if _, err := gm.CreateLink(data.NewLink("types/host", obj, "host", "")); !errors.Is(err, util.ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}

	link, err := gm.CreateLink(data.NewLink("types/host", obj, "host", testObjectKey))
	if err != nil {
		t.Error(err)
		return
	}

	if link.ID() != "links/1" || link.Ref.Kind != data.KindLink {
		t.Error("Unexpected result:", link)
		return
	}

	if _, err := gm.CreateLink(data.NewLink("types/host", "types/disk", "x", testObjectKey)); !util.IsConflict(err) {
		t.Error("Unexpected result:", err)
		return
	}

	res, err := gm.FindLink("types/host", testObjectKey)
	if err != nil || res.To != obj {
		t.Error("Unexpected result:", res, err)
		return
	}

	res, err = gm.FindLinkTo("types/host", obj)
	if err != nil || res.ID() != "links/1" {
		t.Error("Unexpected result:", res, err)
		return
	}

	res.SetAttr("weight", data.Number(5))
	res.Type = "other"

	if _, err := gm.UpdateLink(res); err != nil {
		t.Error(err)
		return
	}

	res, err = gm.ReadLink("links/1")
	if err != nil || res.Type != "other" || res.Properties["weight"].String() != "5" {
		t.Error("Unexpected result:", res, err)
		return
	}

	if _, err := gm.ReadLink("types/host"); !util.IsUnknown(err) {
		t.Error("Unexpected result:", err)
		return
	}

	// The document part of a link can be read as a document

	doc, err := gm.ReadDocument("links/1")
	if err != nil || doc.ID() != "links/1" {
		t.Error("Unexpected result:", doc, err)
		return
	}

	from, _ := gm.LinksFrom("types/host")
	to, _ := gm.LinksTo(obj)

	if len(from) != 1 || len(to) != 1 || from[0].ID() != to[0].ID() {
		t.Error("Unexpected result:", from, to)
		return
	}

	if err := gm.RemoveLink(res.Ref); err != nil {
		t.Error(err)
		return
	}

	if _, err := gm.FindLink("types/host", testObjectKey); !errors.Is(err, util.ErrNoLink) {
		t.Error("Unexpected result:", err)
		return
	}

	if err := gm.RemoveLink(data.MustParseRef("types/host")); !util.IsUnknown(err) {
		t.Error("Unexpected result:", err)
		return
	}
}

type TestRule struct {
	events      []string
	handleError bool
}

func (r *TestRule) Name() string {
	return "testrule"
}

func (r *TestRule) Handles() []int {
	return []int{EventDocumentCreated, EventDocumentUpdated, EventDocumentDeleted,
		EventLinkCreated, EventLinkUpdated, EventLinkDeleted}
}

func (r *TestRule) Handle(gm *Manager, event int, ed ...interface{}) error {
	if r.handleError {
		return &util.GraphError{Type: util.ErrInvalidData, Detail: "Test error"}
	}

	r.events = append(r.events, fmt.Sprint(EventNames[event], " ", len(ed)))

	return nil
}

func TestRules(t *testing.T) {
	gm := NewGraphManager(graphstorage.NewMemoryGraphStorage("mystorage"))

	rule := &TestRule{}
	gm.SetGraphRule(rule)

	if res := fmt.Sprint(gm.GraphRules()); res != "[system.logchanges testrule]" {
		t.Error("Unexpected result:", res)
		return
	}

	doc, _ := gm.CreateDocument(data.NewDocument(data.MustParseRef("types/host")))
	gm.UpdateDocument(doc)
	link, _ := gm.CreateLink(data.NewLink("types/host", "system/types", "type", "host"))
	gm.UpdateLink(link)
	gm.RemoveLink(link.Ref)
	gm.RemoveDocument(doc.Ref)

	if res := fmt.Sprint(rule.events); res != "[document.created 1 document.updated 2 link.created 1 "+
		"link.updated 2 link.deleted 1 document.deleted 1]" {
		t.Error("Unexpected result:", res)
		return
	}

	// Rule errors are returned after the write was applied

	rule.handleError = true

	_, err := gm.CreateDocument(data.NewDocument(data.MustParseRef("types/disk")))
	if !errors.Is(err, util.ErrRule) {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err := gm.ReadDocument("types/disk"); err != nil {
		t.Error(err)
		return
	}

	gm.RemoveGraphRule("testrule")

	if res := fmt.Sprint(gm.GraphRules()); res != "[system.logchanges]" {
		t.Error("Unexpected result:", res)
		return
	}
}
