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
	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/cmdb"
)

/*
Names of the state tables of the register function. The types state table
maps the key of each call of a running batch to the key of its operation.
*/
const (
	MessagesTable   = "messages-table"
	TypesStateTable = "types-state-table"
)

/*
Register is the function which runs a batch of type, object and link
messages. All type messages are run before all object messages which are
run before all link messages. Inside a phase the entries are sent in
batches: a batch ends with (and includes) the first entry which is not
async. The next batch is sent once all entries of the current batch have
replied. An error stops the batch processing.
*/
type Register struct {
}

/*
Handle handles a RegisterMessage.
*/
func (r *Register) Handle(fc *FunctionContext) error {
	var msg cmdb.RegisterMessage

	if err := decodeMessage(fc, &msg); err != nil {
		return err
	}

	if err := fc.Table(MessagesTable).Set(fc.Sync.Key(), &msg); err != nil {
		return err
	}

	return r.registerNext(fc)
}

/*
OnResult sends the next batch once the current batch is complete.
*/
func (r *Register) OnResult(fc *FunctionContext, res *actor.FunctionResult) error {
	if err := fc.Table(TypesStateTable).Remove(res.Reply.Key); err != nil {
		return err
	}

	return r.registerNext(fc)
}

/*
OnReply holds back the result while a batch is running or batches are left.
*/
func (r *Register) OnReply(fc *FunctionContext) (bool, error) {
	running, err := r.running(fc)
	if err != nil || running {
		return false, err
	}

	ec, err := fc.Sync.Container()
	if err != nil || ec == nil {
		return ec != nil, err
	}

	var msg cmdb.RegisterMessage

	ok, err := fc.Table(MessagesTable).Get(fc.Sync.Key(), &msg)
	if err != nil {
		return false, err
	}

	if ok && ec.Complete && !msg.IsEmpty() {
		return false, nil
	}

	return true, fc.Table(MessagesTable).Remove(fc.Sync.Key())
}

/*
registerNext sends the next batch of messages.
*/
func (r *Register) registerNext(fc *FunctionContext) error {
	var msg cmdb.RegisterMessage

	state := fc.Table(TypesStateTable)

	if running, err := r.running(fc); err != nil || running {
		return err
	}

	if ec, err := fc.Sync.Container(); err != nil || ec == nil || !ec.Complete {
		return err
	}

	messages := fc.Table(MessagesTable)

	if ok, err := messages.Get(fc.Sync.Key(), &msg); err != nil || !ok {
		return err
	}

	var calls []*actor.Call
	var replies []*actor.ReplyResult
	var err error

	send := func(ft actor.FunctionType, id string, m interface{}, router bool) {
		var reply *actor.ReplyResult
		var call *actor.Call

		if err != nil {
			return
		}

		if reply, err = fc.Sync.ReplyResult(); err != nil {
			return
		}

		replies = append(replies, reply)

		if router {
			call, err = newRouterCall(ft, id, m, reply)
		} else {
			call, err = cmdb.NewCall(ft, id, m, reply)
		}

		if err == nil {
			if err = state.Set(reply.Key, fc.Sync.Key()); err == nil {
				calls = append(calls, call)
			}
		}
	}

	if batch := msg.PopTypes(); len(batch) > 0 {
		for i := range batch {
			send(cmdb.FunctionTypes, batch[i].ID, &batch[i].Message, batch[i].Router)
		}

	} else if batch := msg.PopObjects(); len(batch) > 0 {
		for i := range batch {
			send(cmdb.FunctionObjects, batch[i].ID, &batch[i].Message, batch[i].Router)
		}

	} else if batch := msg.PopLinks(); len(batch) > 0 {
		for i := range batch {
			send(cmdb.FunctionLinks, batch[i].ID, &batch[i].Message, false)
		}
	}

	if err == nil {
		err = messages.Set(fc.Sync.Key(), &msg)
	}

	if err != nil {

		// Nothing was sent. Forget the batch so the operation can complete.

		for _, reply := range replies {
			fc.Table(ResultTable).Remove(reply.Key)
			fc.Table(DeadlineTable).Remove(reply.Key)
			state.Remove(reply.Key)
		}

		return err
	}

	for _, call := range calls {
		if err := fc.SendCall(call); err != nil {
			return err
		}
	}

	return nil
}

/*
running checks if a batch of the current operation is still running. Batches
of other operations at the same address are not considered.
*/
func (r *Register) running(fc *FunctionContext) (bool, error) {
	if fc.Sync.Key() == "" {
		return false, nil
	}

	return fc.Table(TypesStateTable).ContainsValue(fc.Sync.Key())
}

/*
newRouterCall creates a call which sends a message to every element of a
query. The query is the id of the router.
*/
func newRouterCall(ft actor.FunctionType, query string, m interface{}, reply *actor.ReplyResult) (*actor.Call, error) {
	val, err := cmdb.Encode(m)
	if err != nil {
		return nil, err
	}

	return cmdb.NewCall(cmdb.FunctionRouter, query, &cmdb.RouterMessage{Function: ft, Value: val}, reply)
}
