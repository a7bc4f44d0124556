/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package functions

import (
	"sort"

	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/cmdb"
	"devt.de/krotik/cmdb/graph/data"
	"devt.de/krotik/cmdb/graph/trigger"
	"devt.de/krotik/cmdb/graph/util"
)

/*
ObjectTrigger is the function which fires the triggers of an object. The
triggers are registered on the type of the object.
*/
type ObjectTrigger struct {
}

/*
Handle handles an ObjectMessage.
*/
func (o *ObjectTrigger) Handle(fc *FunctionContext) error {
	var msg cmdb.ObjectMessage

	if err := decodeMessage(fc, &msg); err != nil {
		return err
	}

	typeID, err := fc.Cmdb.GetTypeID(fc.Self().ID)
	if err != nil {
		return err
	}

	call, err := cmdb.NewTypeTriggerCall(typeID, msg.Method)
	if err == nil {
		err = fc.SendCall(call)
	}

	return err
}

/*
TypeTrigger is the function which calls the functions registered on a type.
The functions run on the id of the caller (the object which changed).
*/
type TypeTrigger struct {
}

/*
Handle handles a TypeMessage.
*/
func (t *TypeTrigger) Handle(fc *FunctionContext) error {
	var msg cmdb.TypeMessage

	if err := decodeMessage(fc, &msg); err != nil {
		return err
	}

	target := fc.Self().ID
	if caller := fc.Caller(); caller != nil {
		target = caller.ID
	}

	return fire(fc, fc.Document, msg.Method, target)
}

/*
LinkTrigger is the function which fires the triggers of a link. Triggers
are registered on the link between the types of both ends of the link and
are fired on both ends.

A link which starts at a function object executes the function on the
target of the link if the link has the property execute_on_create or
execute_on_update set.
*/
type LinkTrigger struct {
}

/*
Handle handles a LinkMessage. The payload of the message may carry the
link (e.g. for removed links).
*/
func (l *LinkTrigger) Handle(fc *FunctionContext) error {
	var msg cmdb.LinkMessage
	var link *data.Link

	err := decodeMessage(fc, &msg)

	if err == nil {
		if len(msg.Payload) > 0 {
			link, err = data.DecodeLink(msg.Payload)
		} else {
			link, err = fc.Cmdb.ReadLink(fc.Self().ID)
		}
	}

	if err != nil {
		return err
	}

	fromType, err := fc.Cmdb.ResolveTypeID(link.From)
	if err != nil {
		return err
	}

	toType, err := fc.Cmdb.ResolveTypeID(link.To)
	if err != nil {
		return err
	}

	typeLink, err := fc.Cmdb.ReadLinkByTo(fromType, toType)

	if err == nil {
		for _, id := range []string{link.From, link.To} {
			if err = fire(fc, &typeLink.Document, msg.Method, id); err != nil {
				return err
			}
		}

	} else if util.IsNotFound(err) {
		logger.Debug(fc.Self(), ": no trigger link between ", fromType, " and ", toType)

	} else {
		return err
	}

	if fromType == cmdb.FunctionTypeID {
		return l.execute(fc, link, msg.Method)
	}

	return nil
}

/*
execute runs the function of a function object on the target of a link.
*/
func (l *LinkTrigger) execute(fc *FunctionContext, link *data.Link, method cmdb.Method) error {
	var flag string

	switch method {
	case cmdb.MethodCreate:
		flag = cmdb.PropertyExecuteOnCreate
	case cmdb.MethodUpdate:
		flag = cmdb.PropertyExecuteOnUpdate
	default:
		return nil
	}

	if v, ok := link.Properties.Get(flag); !ok {
		return nil
	} else if b, ok := v.AsBool(); !ok || !b {
		return nil
	}

	function, err := fc.Cmdb.ReadDocument(link.From)
	if err != nil {
		return err
	}

	ft, ok := functionTypeOf(function)
	if !ok {
		logger.Debug(fc.Self(), ": ", function.ID(), " has no function type")
		return nil
	}

	call, err := cmdb.NewExecCall(ft, link.To, method)
	if err == nil {
		err = fc.SendCall(call)
	}

	return err
}

/*
fire calls all functions which are registered on a document for a method.
The functions run on a given id.
*/
func fire(fc *FunctionContext, doc *data.Document, method cmdb.Method, id string) error {
	kind, err := method.EventKind()
	if err != nil {
		return err
	}

	triggers, err := trigger.GetByType(doc, kind)
	if util.IsNotFound(err) {
		logger.Debug(fc.Self(), ": ", err)
		return nil
	} else if err != nil {
		return err
	}

	keys := make([]string, 0, len(triggers))
	for k := range triggers {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		t := triggers[k]

		call, err := cmdb.NewExecCall(actor.FunctionType{Namespace: t.Namespace, Type: t.Type}, id, method)
		if err == nil {
			err = fc.SendCall(call)
		}

		if err != nil {
			return err
		}

		logger.Debug(fc.Self(), ": fired ", kind, " trigger ", k, " on ", id)
	}

	return nil
}

/*
functionTypeOf reads the function type of a function object.
*/
func functionTypeOf(doc *data.Document) (actor.FunctionType, bool) {
	var ft actor.FunctionType

	v, ok := doc.Attr(cmdb.PropertyFunctionType)
	if !ok {
		return ft, false
	}

	m, ok := v.AsMap()
	if !ok {
		return ft, false
	}

	ns, _ := m["namespace"].AsString()
	t, _ := m["type"].AsString()

	ft.Namespace, ft.Type = ns, t

	return ft, ns != "" && t != ""
}
