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
Package functions contains the functions which run on the actor runtime.

Every function shares the same invocation lifecycle (Base): a call starts
a new operation, a function result completes a sub-operation of a running
operation. Errors are collected per operation and the aggregated result is
delivered to the reply target once all sub-operations have replied.

The system functions (types, objects, links, advanced links, register and
router) mutate the graph. The trigger functions implement the cascade of
trigger calls which follows every mutation of an object or link.
*/
package functions

import (
	"fmt"
	"time"

	"devt.de/krotik/common/logutil"

	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/cmdb"
	"devt.de/krotik/cmdb/graph/data"
	"devt.de/krotik/cmdb/graph/util"
)

/*
logger is the logger of all functions
*/
var logger = logutil.GetLogger("cmdb.functions")

/*
EntityContext defines which entity is read for a call before the handler runs.
*/
type EntityContext int

/*
Entity contexts
*/
const (
	NoContext     EntityContext = iota // Nothing is read
	ObjectContext                      // The document with the id of the address is read
	LinkContext                        // The link with the id of the address is read
)

/*
FunctionContext is the context of a single call.
*/
type FunctionContext struct {
	actor.Context
	Sync     *Sync
	Cmdb     *cmdb.Cmdb
	Call     *actor.Call    // Decoded call (nil for results)
	Ref      data.EntityRef // Entity of the running address
	Document *data.Document // Document of the entity (object and link context)
	Link     *data.Link     // Link of the entity (link context)
}

/*
SendCall sends a call from the running function.
*/
func (fc *FunctionContext) SendCall(call *actor.Call) error {
	return cmdb.Send(fc.Context, call)
}

/*
Handler handles the calls of a function.
*/
type Handler interface {

	/*
		Handle handles a call.
	*/
	Handle(fc *FunctionContext) error
}

/*
HandlerFunc is a function which handles calls.
*/
type HandlerFunc func(fc *FunctionContext) error

/*
Handle calls the handler function.
*/
func (f HandlerFunc) Handle(fc *FunctionContext) error {
	return f(fc)
}

/*
ResultHook is an optional interface of a handler which is called after a
result of a sub-operation was recorded.
*/
type ResultHook interface {
	OnResult(fc *FunctionContext, res *actor.FunctionResult) error
}

/*
ReplyHook is an optional interface of a handler which is called before the
result of an operation is delivered. The result is only delivered if the
hook returns true.
*/
type ReplyHook interface {
	OnReply(fc *FunctionContext) (bool, error)
}

/*
Base is a function which runs a handler inside the common invocation lifecycle.
*/
type Base struct {
	ft      actor.FunctionType
	cmdb    *cmdb.Cmdb
	handler Handler
	entity  EntityContext
	timeout time.Duration
}

/*
NewBase creates a new function.
*/
func NewBase(ft actor.FunctionType, c *cmdb.Cmdb, handler Handler, entity EntityContext,
	timeout time.Duration) *Base {

	return &Base{ft, c, handler, entity, timeout}
}

/*
FunctionType returns the function type of this function.
*/
func (b *Base) FunctionType() actor.FunctionType {
	return b.ft
}

/*
Invoke runs a message.
*/
func (b *Base) Invoke(ctx actor.Context, msg *actor.Message) {
	start := time.Now()

	fc := &FunctionContext{
		Context: ctx,
		Sync:    NewSync(ctx, b.ft.String(), b.timeout),
		Cmdb:    b.cmdb,
	}

	if err := b.dispatch(fc, msg); err != nil {
		logger.Error(ctx.Self(), ": ", err)
		fc.Sync.OnException(err)
	}

	if err := b.reply(fc); err != nil {
		logger.Error(ctx.Self(), ": could not reply: ", err)
	}

	logger.Debug(ctx.Self(), ": took ", time.Since(start).Nanoseconds()/int64(time.Millisecond), " milliseconds")
}

/*
dispatch runs a message depending on its typename.
*/
func (b *Base) dispatch(fc *FunctionContext, msg *actor.Message) error {
	switch msg.Typename {

	case actor.MessageTypename:
		call, err := msg.DecodeCall()
		if err != nil {
			return err
		}

		fc.Call = call

		if err = fc.Sync.OnInit(call); err == nil {
			if err = b.loadEntity(fc); err == nil {
				err = b.handler.Handle(fc)
			}
		}

		return err

	case actor.ResultTypename:
		res, err := msg.DecodeResult()
		if err != nil {
			return err
		}

		if err = fc.Sync.OnResult(res); err == nil && fc.Sync.Key() != "" {
			if hook, ok := b.handler.(ResultHook); ok {
				err = hook.OnResult(fc, res)
			}
		}

		return err
	}

	logger.Error(fc.Self(), ": unknown typename ", msg.Typename, " (", msg, ")")

	return nil
}

/*
reply delivers the result of the current operation unless the handler
vetoes it.
*/
func (b *Base) reply(fc *FunctionContext) error {
	if hook, ok := b.handler.(ReplyHook); ok {
		if proceed, err := hook.OnReply(fc); err != nil || !proceed {
			return err
		}
	}

	return fc.Sync.OnReply()
}

/*
loadEntity reads the entity of the running address.
*/
func (b *Base) loadEntity(fc *FunctionContext) error {
	var err error

	if b.entity == NoContext {
		return nil
	}

	if fc.Ref, err = data.ParseRef(fc.Self().ID); err != nil {
		return err
	}

	switch b.entity {

	case ObjectContext:
		fc.Document, err = b.cmdb.ReadDocument(fc.Ref.ID())

	case LinkContext:
		if fc.Ref.Kind != data.KindLink {
			return &util.GraphError{Type: util.ErrUnknownID, Detail: fmt.Sprintf("%v is not a link", fc.Ref.ID())}
		}

		if fc.Link, err = b.cmdb.ReadLink(fc.Ref.ID()); err == nil {
			fc.Document = &fc.Link.Document
		}
	}

	return err
}

// Helper functions
// ================

/*
decodeMessage decodes the message of the current call.
*/
func decodeMessage(fc *FunctionContext, v interface{}) error {
	return cmdb.Decode(fc.Call.Value, v)
}

/*
documentOf decodes a document payload. An empty payload is an empty document.
*/
func documentOf(payload cmdb.Payload) (*data.Document, error) {
	if len(payload) == 0 {
		return data.NewDocument(data.EntityRef{}), nil
	}

	return data.DecodeDocument(payload)
}

/*
propertiesOf decodes a property payload. An empty payload has no properties.
*/
func propertiesOf(payload cmdb.Payload) (data.Properties, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	return data.DecodeProperties(payload)
}

/*
requireKind returns ErrUnknownID if a reference is not of one of the given kinds.
*/
func requireKind(ref data.EntityRef, op string, kinds ...data.Kind) error {
	for _, k := range kinds {
		if ref.Kind == k {
			return nil
		}
	}

	return &util.GraphError{Type: util.ErrUnknownID, Detail: fmt.Sprintf("%v not allowed on %v", op, ref.ID())}
}

/*
unknownMethod returns ErrUnknownMethod for a method.
*/
func unknownMethod(fc *FunctionContext, m cmdb.Method) error {
	return &util.GraphError{Type: util.ErrUnknownMethod, Detail: fmt.Sprintf("%v on %v", m, fc.Self())}
}
