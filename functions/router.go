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
	"fmt"

	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/cmdb"
	"devt.de/krotik/cmdb/graph/query"
)

/*
Router is the function which sends a message to every element of a query.
The id of the router is the default query. The result of the router is
complete once all elements have replied.
*/
type Router struct {
}

/*
Handle handles a RouterMessage.
*/
func (r *Router) Handle(fc *FunctionContext) error {
	var msg cmdb.RouterMessage

	if err := decodeMessage(fc, &msg); err != nil {
		return err
	}

	expr := msg.Query
	if expr == "" {
		expr = fc.Self().ID
	}

	elements, err := query.Evaluate(fc.Cmdb.Manager(), expr, query.Options{Filter: msg.Filter})
	if err != nil {
		return err
	}

	logger.Debug(fc.Self(), ": routing to ", len(elements), " elements of ", expr)

	for _, e := range elements {
		reply, err := fc.Sync.ReplyResult()
		if err != nil {
			return err
		}

		call := &actor.Call{FunctionType: msg.Function, ID: e.ID, Value: msg.Value, Reply: reply}

		if err = fc.SendCall(call); err != nil {
			return err
		}
	}

	return nil
}

/*
Log is a function which only logs the messages it receives.
*/
func Log(ctx actor.Context, msg *actor.Message) {
	caller := "<ingress>"
	if c := ctx.Caller(); c != nil {
		caller = c.String()
	}

	var detail interface{} = msg.Typename

	if call, err := msg.DecodeCall(); err == nil {
		var v interface{}

		if json.Valid(call.Value) {
			detail = string(call.Value)
		} else if cmdb.Decode(call.Value, &v) == nil {
			detail = v
		}
	} else if res, err := msg.DecodeResult(); err == nil {
		detail = fmt.Sprintf("result complete:%v errors:%v", res.Complete, res.Errors)
	}

	logger.Info("Log: ", caller, " -> ", ctx.Self(), ": ", detail)
}
