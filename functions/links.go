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
	"devt.de/krotik/cmdb/graph/util"
)

/*
Links is the function which manages the links of an entity. It runs on the
source entity of the links.
*/
type Links struct {
}

/*
Handle handles a LinkMessage.
*/
func (l *Links) Handle(fc *FunctionContext) error {
	var msg cmdb.LinkMessage

	if err := decodeMessage(fc, &msg); err != nil {
		return err
	}

	switch msg.Method {

	case cmdb.MethodCreate:
		if err := fc.Cmdb.CheckFrom(fc.Document, msg.Name); err != nil {
			return err
		}

		to, err := fc.Cmdb.ReadDocument(msg.To)
		if err != nil {
			return err
		}

		props, err := propertiesOf(msg.Payload)
		if err == nil {
			_, err = fc.Cmdb.CreateLink(fc.Context, fc.Document, to, msg.Type, msg.Name, props)
		}

		return err

	case cmdb.MethodUpdate, cmdb.MethodReplace, cmdb.MethodDelete:

		// Changes of a single link are done by the advanced links function

		link, err := fc.Cmdb.ReadLinkByName(fc.Document.ID(), msg.Name)
		if err != nil {
			return err
		}

		reply, err := fc.Sync.ReplyResult()
		if err != nil {
			return err
		}

		call, err := cmdb.NewCall(cmdb.FunctionAdvancedLinks, link.ID(), &msg, reply)
		if err == nil {
			err = fc.SendCall(call)
		}

		return err

	case cmdb.MethodCreateTrigger:
		return l.createTrigger(fc, &msg)

	case cmdb.MethodDeleteTrigger:
		if err := requireKind(fc.Ref, string(msg.Method), data.KindType); err != nil {
			return err
		}

		to, err := fc.Cmdb.ReadDocument(msg.To)
		if err != nil {
			return err
		}

		link, err := fc.Cmdb.ReadLinkByName(fc.Document.ID(), to.Key())
		if err == nil {
			if err = changeTrigger(&link.Document, msg.Method, msg.Payload); err == nil {
				_, err = fc.Cmdb.UpdateLinkDocument(link)
			}
		}

		return err
	}

	return unknownMethod(fc, msg.Method)
}

/*
createTrigger registers a trigger on the link between two types. The link
is named after the target type and created if it does not exist.
*/
func (l *Links) createTrigger(fc *FunctionContext, msg *cmdb.LinkMessage) error {
	if err := requireKind(fc.Ref, string(msg.Method), data.KindType); err != nil {
		return err
	}

	tm, err := cmdb.DecodeTriggerMessage(msg.Payload)
	if err != nil {
		return err
	}

	to, err := fc.Cmdb.ReadDocument(msg.To)
	if err != nil {
		return err
	}

	link, err := fc.Cmdb.ReadLinkByName(fc.Document.ID(), to.Key())

	if err == nil {
		if err = trigger.Add(&link.Document, tm.Type, tm.Trigger()); err == nil {
			_, err = fc.Cmdb.UpdateLinkDocument(link)
		}
		return err

	} else if !util.IsNotFound(err) {
		return err
	}

	doc := data.NewDocument(data.EntityRef{})
	if err = trigger.Add(doc, tm.Type, tm.Trigger()); err == nil {
		_, err = fc.Cmdb.CreateLink(nil, fc.Document, to, cmdb.LinkTypeTrigger, to.Key(), doc.Properties)
	}

	return err
}
