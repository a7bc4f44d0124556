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
	"devt.de/krotik/cmdb/cmdb"
	"devt.de/krotik/cmdb/graph/data"
	"devt.de/krotik/cmdb/graph/trigger"
)

/*
Types is the function which manages types and creates objects. It runs
on system/types (CREATE) and on type ids.
*/
type Types struct {
}

/*
Handle handles a TypeMessage.
*/
func (t *Types) Handle(fc *FunctionContext) error {
	var msg cmdb.TypeMessage

	if err := requireKind(fc.Ref, "types function", data.KindType, data.KindSystem); err != nil {
		return err
	} else if fc.Ref.Kind == data.KindSystem && !fc.Ref.Is(data.SystemTypes) {
		return requireKind(fc.Ref, "types function", data.KindType)
	}

	if err := decodeMessage(fc, &msg); err != nil {
		return err
	}

	switch msg.Method {

	case cmdb.MethodCreate:
		if !fc.Ref.Is(data.SystemTypes) {
			return requireKind(fc.Ref, string(msg.Method))
		}

		doc, err := documentOf(msg.Payload)
		if err == nil {
			doc.Ref = data.NewRef(data.CollectionTypes, msg.Name)
			_, err = fc.Cmdb.CreateType(doc)
		}

		return err

	case cmdb.MethodCreateChild:
		if err := requireKind(fc.Ref, string(msg.Method), data.KindType); err != nil {
			return err
		}

		doc, err := documentOf(msg.Payload)
		if err != nil {
			return err
		}

		// The caller of the call is the parent of the new object

		if caller := fc.Caller(); caller != nil {
			parent, err := fc.Cmdb.ReadDocument(caller.ID)
			if err != nil {
				return err
			}

			_, err = fc.Cmdb.CreateObjectWithParent(fc.Context, fc.Document, parent, doc, msg.Name)

			return err
		}

		_, err = fc.Cmdb.CreateObject(fc.Context, fc.Document, doc)

		return err

	case cmdb.MethodUpdate:
		if err := requireKind(fc.Ref, string(msg.Method), data.KindType); err != nil {
			return err
		}

		props, err := data.DecodeProperties(msg.Payload)
		if err == nil {
			fc.Document.ReplaceProperties(props)
			_, err = fc.Cmdb.UpdateType(fc.Document)
		}

		return err

	case cmdb.MethodDelete:
		if err := requireKind(fc.Ref, string(msg.Method), data.KindType); err != nil {
			return err
		}

		return fc.Cmdb.RemoveType(fc.Document)

	case cmdb.MethodCreateTrigger, cmdb.MethodDeleteTrigger:
		if err := requireKind(fc.Ref, string(msg.Method), data.KindType); err != nil {
			return err
		}

		if err := changeTrigger(fc.Document, msg.Method, msg.Payload); err != nil {
			return err
		}

		_, err := fc.Cmdb.UpdateType(fc.Document)

		return err
	}

	return unknownMethod(fc, msg.Method)
}

/*
changeTrigger adds (CREATE_TRIGGER) or removes (DELETE_TRIGGER) the trigger
of a payload to or from a document.
*/
func changeTrigger(doc *data.Document, m cmdb.Method, payload cmdb.Payload) error {
	tm, err := cmdb.DecodeTriggerMessage(payload)
	if err != nil {
		return err
	}

	if m == cmdb.MethodCreateTrigger {
		return trigger.Add(doc, tm.Type, tm.Trigger())
	}

	return trigger.Remove(doc, tm.Type, tm.Trigger())
}
