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
Package actor contains the actor runtime of the CMDB.

Addresses

Every function instance is addressed by a function type (namespace and type)
and an id. The id of a CMDB function is the id of the entity it works on.
Messages to the same address are processed one at a time in the order they
were sent. Messages to different addresses are processed concurrently.

Messages

A message carries either a call (MessageTypename) or a function result
(ResultTypename). Payloads are msgpack encoded. A call may carry a reply
target (ReplyResult) which names the address or egress topic which expects
the aggregated result of the call.

State

Each address owns named state tables. Tables are persisted in a StateStore
(in memory or in SQLite) and survive between invocations.
*/
package actor

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"devt.de/krotik/cmdb/graph/util"
)

/*
Message typenames
*/
const (
	MessageTypename = "cmdb/call"
	ResultTypename  = "cmdb/result"
)

/*
FunctionType identifies a function implementation.
*/
type FunctionType struct {
	Namespace string `json:"namespace" msgpack:"namespace" yaml:"namespace"`
	Type      string `json:"type" msgpack:"type" yaml:"type"`
}

/*
String returns a string representation of this function type.
*/
func (ft FunctionType) String() string {
	return ft.Namespace + "/" + ft.Type
}

/*
Address is the address of a function instance.
*/
type Address struct {
	FunctionType
	ID string `json:"id" msgpack:"id"`
}

/*
NewAddress creates a new address.
*/
func NewAddress(ft FunctionType, id string) Address {
	return Address{ft, id}
}

/*
String returns a string representation of this address.
*/
func (a Address) String() string {
	return fmt.Sprintf("%v/%v@%v", a.Namespace, a.Type, a.ID)
}

/*
ReplyResult is the reply target of a call. Key is the correlation key which
the receiver of the reply uses to find the waiting operation.
*/
type ReplyResult struct {
	Key       string `json:"key" msgpack:"key"`
	Namespace string `json:"namespace,omitempty" msgpack:"namespace"`
	Type      string `json:"type,omitempty" msgpack:"type"`
	ID        string `json:"id,omitempty" msgpack:"id"`
	Topic     string `json:"topic,omitempty" msgpack:"topic"`
	IsEgress  bool   `json:"isEgress,omitempty" msgpack:"egress"`
}

/*
Address returns the address which receives the reply.
*/
func (r *ReplyResult) Address() Address {
	return Address{FunctionType{r.Namespace, r.Type}, r.ID}
}

/*
Call is a function invocation.
*/
type Call struct {
	FunctionType
	ID    string       `json:"id" msgpack:"id"`
	Value []byte       `json:"value" msgpack:"value"`
	Reply *ReplyResult `json:"reply,omitempty" msgpack:"reply"`
}

/*
Target returns the address of the called function.
*/
func (c *Call) Target() Address {
	return Address{c.FunctionType, c.ID}
}

/*
FunctionResult is the result of a call.
*/
type FunctionResult struct {
	Complete bool         `json:"complete" msgpack:"complete"`
	Errors   []string     `json:"errors,omitempty" msgpack:"errors"`
	Reply    *ReplyResult `json:"reply,omitempty" msgpack:"reply"`
}

/*
Message is the envelope of everything which is sent between addresses.
*/
type Message struct {
	Target   Address  `msgpack:"target"`
	Caller   *Address `msgpack:"caller"`
	Typename string   `msgpack:"typename"`
	Value    []byte   `msgpack:"value"`
}

/*
NewCallMessage creates a message which carries a call.
*/
func NewCallMessage(caller *Address, call *Call) (*Message, error) {
	val, err := msgpack.Marshal(call)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}
	return &Message{call.Target(), caller, MessageTypename, val}, nil
}

/*
NewResultMessage creates a message which carries a function result.
*/
func NewResultMessage(target Address, caller *Address, res *FunctionResult) (*Message, error) {
	val, err := msgpack.Marshal(res)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}
	return &Message{target, caller, ResultTypename, val}, nil
}

/*
DecodeCall decodes the call of this message.
*/
func (m *Message) DecodeCall() (*Call, error) {
	if m.Typename != MessageTypename {
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: "message is not a call: " + m.Typename}
	}
	c := &Call{}
	if err := msgpack.Unmarshal(m.Value, c); err != nil {
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}
	return c, nil
}

/*
DecodeResult decodes the function result of this message.
*/
func (m *Message) DecodeResult() (*FunctionResult, error) {
	if m.Typename != ResultTypename {
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: "message is not a result: " + m.Typename}
	}
	r := &FunctionResult{}
	if err := msgpack.Unmarshal(m.Value, r); err != nil {
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}
	return r, nil
}

/*
DecodeFunctionResult decodes an encoded function result (e.g. from an egress record).
*/
func DecodeFunctionResult(value []byte) (*FunctionResult, error) {
	return (&Message{Typename: ResultTypename, Value: value}).DecodeResult()
}

/*
String returns a string representation of this message.
*/
func (m *Message) String() string {
	caller := "<ingress>"
	if m.Caller != nil {
		caller = m.Caller.String()
	}
	return fmt.Sprintf("Message [%v -> %v %v]", caller, m.Target, m.Typename)
}
