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
	"encoding/json"

	"devt.de/krotik/cmdb/cmdb"
	"devt.de/krotik/cmdb/graph/data"
)

/*
AdvancedLinks is the function which changes a single link. It runs on the
link id.
*/
type AdvancedLinks struct {
}

/*
Handle handles a LinkMessage.
*/
func (a *AdvancedLinks) Handle(fc *FunctionContext) error {
	var msg cmdb.LinkMessage

	if err := decodeMessage(fc, &msg); err != nil {
		return err
	}

	switch msg.Method {

	case cmdb.MethodUpdate:
		props, err := data.DecodeProperties(msg.Payload)
		if err == nil {
			fc.Link.ReplaceProperties(props)
			_, err = fc.Cmdb.UpdateLink(fc.Context, fc.Link)
		}

		return err

	case cmdb.MethodReplace:
		link, err := data.DecodeLink(msg.Payload)
		if err != nil {
			return err
		}

		fc.Link.ReplaceProperties(link.Properties)
		if link.Type != "" {
			fc.Link.Type = link.Type
		}

		_, err = fc.Cmdb.ReplaceLink(fc.Context, fc.Link)

		return err

	case cmdb.MethodDelete:

		// The trigger call carries the link since it is processed after
		// the link was removed

		snapshot, err := json.Marshal(fc.Link)
		if err != nil {
			return err
		}

		call, err := cmdb.NewCall(cmdb.FunctionLinkTrigger, fc.Link.ID(),
			&cmdb.LinkMessage{Method: cmdb.MethodDelete, Payload: snapshot}, nil)
		if err == nil {
			err = fc.SendCall(call)
		}

		if err != nil {
			logger.Error("Could not fire DELETE trigger of ", fc.Link.ID(), ": ", err)
		}

		return fc.Cmdb.RemoveLink(fc.Link)

	case cmdb.MethodCreateTrigger, cmdb.MethodDeleteTrigger:
		err := changeTrigger(fc.Document, msg.Method, msg.Payload)
		if err == nil {
			_, err = fc.Cmdb.UpdateLinkDocument(fc.Link)
		}

		return err
	}

	return unknownMethod(fc, msg.Method)
}
