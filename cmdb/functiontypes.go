/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cmdb

import (
	"devt.de/krotik/cmdb/actor"
)

/*
NamespaceInternal is the namespace of all system functions
*/
const NamespaceInternal = "internal"

/*
NamespaceScript is the namespace of all script functions
*/
const NamespaceScript = "script"

/*
Function type names. Each name is also the query which finds the function
object in the graph.
*/
const (
	TypeTypes         = "types.system.functions.root"
	TypeObjects       = "objects.system.functions.root"
	TypeLinks         = "links.system.functions.root"
	TypeAdvancedLinks = "advanced.links.system.functions.root"
	TypeRegister      = "register.system.functions.root"
	TypeRouter        = "router.system.functions.root"
	TypeLog           = "log.system.functions.root"
	TypeTypeTrigger   = "trigger.types.system.functions.root"
	TypeObjectTrigger = "trigger.objects.system.functions.root"
	TypeLinkTrigger   = "trigger.advanced.links.system.functions.root"
)

/*
Function types of the system functions
*/
var (
	FunctionTypes         = actor.FunctionType{Namespace: NamespaceInternal, Type: TypeTypes}
	FunctionObjects       = actor.FunctionType{Namespace: NamespaceInternal, Type: TypeObjects}
	FunctionLinks         = actor.FunctionType{Namespace: NamespaceInternal, Type: TypeLinks}
	FunctionAdvancedLinks = actor.FunctionType{Namespace: NamespaceInternal, Type: TypeAdvancedLinks}
	FunctionRegister      = actor.FunctionType{Namespace: NamespaceInternal, Type: TypeRegister}
	FunctionRouter        = actor.FunctionType{Namespace: NamespaceInternal, Type: TypeRouter}
	FunctionLog           = actor.FunctionType{Namespace: NamespaceInternal, Type: TypeLog}
	FunctionTypeTrigger   = actor.FunctionType{Namespace: NamespaceInternal, Type: TypeTypeTrigger}
	FunctionObjectTrigger = actor.FunctionType{Namespace: NamespaceInternal, Type: TypeObjectTrigger}
	FunctionLinkTrigger   = actor.FunctionType{Namespace: NamespaceInternal, Type: TypeLinkTrigger}
)

/*
NewCall creates a call of a function with an encoded message.
*/
func NewCall(ft actor.FunctionType, id string, msg interface{}, reply *actor.ReplyResult) (*actor.Call, error) {
	val, err := Encode(msg)
	if err != nil {
		return nil, err
	}

	return &actor.Call{FunctionType: ft, ID: id, Value: val, Reply: reply}, nil
}

/*
NewCreateObjectCall creates a call which creates an object of a type. The
caller of the call becomes the parent of the new object.
*/
func NewCreateObjectCall(typeID string, name string, payload Payload, reply *actor.ReplyResult) (*actor.Call, error) {
	return NewCall(FunctionTypes, typeID, &TypeMessage{Method: MethodCreateChild, Name: name, Payload: payload}, reply)
}

/*
NewCreateLinkCall creates a call which creates a link between two entities.
*/
func NewCreateLinkCall(from string, to string, name string, reply *actor.ReplyResult) (*actor.Call, error) {
	return NewCall(FunctionLinks, from, &LinkMessage{Method: MethodCreate, Name: name, To: to}, reply)
}

/*
NewObjectTriggerCall creates a call which fires the triggers of an object.
*/
func NewObjectTriggerCall(id string, method Method) (*actor.Call, error) {
	return NewCall(FunctionObjectTrigger, id, &ObjectMessage{Method: method}, nil)
}

/*
NewTypeTriggerCall creates a call which fires the triggers of a type.
*/
func NewTypeTriggerCall(typeID string, method Method) (*actor.Call, error) {
	return NewCall(FunctionTypeTrigger, typeID, &TypeMessage{Method: method}, nil)
}

/*
NewLinkTriggerCall creates a call which fires the triggers of a link.
*/
func NewLinkTriggerCall(linkID string, method Method) (*actor.Call, error) {
	return NewCall(FunctionLinkTrigger, linkID, &LinkMessage{Method: method}, nil)
}

/*
NewExecCall creates a call which executes a triggered function at an id.
*/
func NewExecCall(ft actor.FunctionType, id string, method Method) (*actor.Call, error) {
	return NewCall(ft, id, &TypeMessage{Method: method}, nil)
}

/*
Send sends a call from a running function.
*/
func Send(ctx actor.Context, call *actor.Call) error {
	self := ctx.Self()

	msg, err := actor.NewCallMessage(&self, call)
	if err == nil {
		ctx.Send(msg.Target, msg.Typename, msg.Value)
	}

	return err
}
