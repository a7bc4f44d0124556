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
)

/*
Objects is the function which manages objects. CREATE_CHILD runs on any
entity which becomes the parent of the new object.
*/
type Objects struct {
}

/*
Handle handles an ObjectMessage.
*/
func (o *Objects) Handle(fc *FunctionContext) error {
	var msg cmdb.ObjectMessage

	if err := decodeMessage(fc, &msg); err != nil {
		return err
	}

	switch msg.Method {

	case cmdb.MethodCreateChild:
		typeRef, err := data.ParseRef(msg.Type)
		if err == nil {
			err = requireKind(typeRef, "object type", data.KindType)
		}
		if err != nil {
			return err
		}

		// The types function creates the object. This function is its
		// caller and therefore the parent.

		reply, err := fc.Sync.ReplyResult()
		if err != nil {
			return err
		}

		call, err := cmdb.NewCreateObjectCall(typeRef.ID(), msg.Name, msg.Payload, reply)
		if err == nil {
			err = fc.SendCall(call)
		}

		return err

	case cmdb.MethodUpdate:
		if err := requireKind(fc.Ref, string(msg.Method), data.KindObject); err != nil {
			return err
		}

		props, err := data.DecodeProperties(msg.Payload)
		if err == nil {
			fc.Document.ReplaceProperties(props)
			_, err = fc.Cmdb.UpdateObject(fc.Context, fc.Document)
		}

		return err

	case cmdb.MethodDelete:
		if err := requireKind(fc.Ref, string(msg.Method), data.KindObject); err != nil {
			return err
		}

		return fc.Cmdb.RemoveObject(fc.Document)
	}

	return unknownMethod(fc, msg.Method)
}
