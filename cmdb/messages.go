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
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/graph/trigger"
	"devt.de/krotik/cmdb/graph/util"
)

/*
Method is the requested operation of a message.
*/
type Method string

/*
Known methods
*/
const (
	MethodCreate        Method = "CREATE"
	MethodCreateChild   Method = "CREATE_CHILD"
	MethodUpdate        Method = "UPDATE"
	MethodReplace       Method = "REPLACE"
	MethodDelete        Method = "DELETE"
	MethodCreateTrigger Method = "CREATE_TRIGGER"
	MethodDeleteTrigger Method = "DELETE_TRIGGER"
)

/*
EventKind returns the trigger event kind of this method.
*/
func (m Method) EventKind() (trigger.EventKind, error) {
	return trigger.KindFor(string(m))
}

/*
Payload is a JSON document which is carried by a message. It is written as
plain JSON (or YAML) and not as an encoded byte string.
*/
type Payload []byte

/*
MarshalJSON returns the JSON document.
*/
func (p Payload) MarshalJSON() ([]byte, error) {
	if len(bytes.TrimSpace(p)) == 0 {
		return []byte("null"), nil
	}
	return []byte(p), nil
}

/*
UnmarshalJSON stores a JSON document.
*/
func (p *Payload) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		*p = nil
		return nil
	}
	*p = append((*p)[0:0], b...)
	return nil
}

/*
UnmarshalYAML stores a YAML node as JSON document.
*/
func (p *Payload) UnmarshalYAML(node *yaml.Node) error {
	var v interface{}

	if err := node.Decode(&v); err != nil {
		return err
	}

	b, err := json.Marshal(v)
	if err == nil {
		*p = b
	}

	return err
}

/*
PayloadOf encodes a value as payload.
*/
func PayloadOf(v interface{}) Payload {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

/*
TypeMessage is processed by the types function.
*/
type TypeMessage struct {
	Method  Method  `json:"method" msgpack:"method" yaml:"method"`
	Name    string  `json:"name,omitempty" msgpack:"name" yaml:"name"`
	Payload Payload `json:"payload,omitempty" msgpack:"payload" yaml:"payload"`
	To      string  `json:"to,omitempty" msgpack:"to" yaml:"to"`
}

/*
ObjectMessage is processed by the objects function.
*/
type ObjectMessage struct {
	Method  Method  `json:"method" msgpack:"method" yaml:"method"`
	Type    string  `json:"type,omitempty" msgpack:"type" yaml:"type"`
	Name    string  `json:"name,omitempty" msgpack:"name" yaml:"name"`
	Payload Payload `json:"payload,omitempty" msgpack:"payload" yaml:"payload"`
}

/*
LinkMessage is processed by the links and advanced links functions.
*/
type LinkMessage struct {
	Method  Method  `json:"method" msgpack:"method" yaml:"method"`
	Name    string  `json:"name,omitempty" msgpack:"name" yaml:"name"`
	To      string  `json:"to,omitempty" msgpack:"to" yaml:"to"`
	Type    string  `json:"type,omitempty" msgpack:"type" yaml:"type"`
	Payload Payload `json:"payload,omitempty" msgpack:"payload" yaml:"payload"`
}

/*
TriggerMessage is the payload of CREATE_TRIGGER and DELETE_TRIGGER messages.
*/
type TriggerMessage struct {
	Type         trigger.EventKind `json:"type" msgpack:"type" yaml:"type"`
	Namespace    string            `json:"namespace" msgpack:"namespace" yaml:"namespace"`
	FunctionType string            `json:"functionType" msgpack:"functionType" yaml:"functionType"`
}

/*
Trigger returns the trigger of this message.
*/
func (tm *TriggerMessage) Trigger() trigger.Trigger {
	return trigger.Trigger{Namespace: tm.Namespace, Type: tm.FunctionType}
}

/*
DecodeTriggerMessage decodes the payload of a trigger message.
*/
func DecodeTriggerMessage(payload Payload) (*TriggerMessage, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, &util.GraphError{Type: util.ErrPayloadNotFound, Detail: "trigger payload not found"}
	}

	tm := &TriggerMessage{}

	if err := json.Unmarshal(payload, tm); err != nil {
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}

	if tm.Namespace == "" || tm.FunctionType == "" {
		return nil, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("trigger requires namespace and function type: %v", string(payload))}
	}

	switch tm.Type {
	case trigger.Create, trigger.Update, trigger.Delete:
	default:
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: fmt.Sprintf("unknown trigger type: %v", tm.Type)}
	}

	return tm, nil
}

// Register messages
// =================

/*
RegisterTypeMessage is a type message entry of a register batch.
*/
type RegisterTypeMessage struct {
	ID      string      `json:"id" msgpack:"id" yaml:"id"`
	Router  bool        `json:"router,omitempty" msgpack:"router" yaml:"router"`
	Async   bool        `json:"async,omitempty" msgpack:"async" yaml:"async"`
	Message TypeMessage `json:"message" msgpack:"message" yaml:"message"`
}

/*
RegisterObjectMessage is an object message entry of a register batch.
*/
type RegisterObjectMessage struct {
	ID      string        `json:"id" msgpack:"id" yaml:"id"`
	Router  bool          `json:"router,omitempty" msgpack:"router" yaml:"router"`
	Async   bool          `json:"async,omitempty" msgpack:"async" yaml:"async"`
	Message ObjectMessage `json:"message" msgpack:"message" yaml:"message"`
}

/*
RegisterLinkMessage is a link message entry of a register batch.
*/
type RegisterLinkMessage struct {
	ID      string      `json:"id" msgpack:"id" yaml:"id"`
	Async   bool        `json:"async,omitempty" msgpack:"async" yaml:"async"`
	Message LinkMessage `json:"message" msgpack:"message" yaml:"message"`
}

/*
RegisterMessage is a batch of type, object and link messages. The queues
are processed one after another. Consecutive async entries of a queue are
sent together, a non-async entry ends a batch.
*/
type RegisterMessage struct {
	TypeMessages   []RegisterTypeMessage   `json:"typeMessages,omitempty" msgpack:"typeMessages" yaml:"typeMessages"`
	ObjectMessages []RegisterObjectMessage `json:"objectMessages,omitempty" msgpack:"objectMessages" yaml:"objectMessages"`
	LinkMessages   []RegisterLinkMessage   `json:"linkMessages,omitempty" msgpack:"linkMessages" yaml:"linkMessages"`
}

/*
IsEmpty checks if all queues of this message are drained.
*/
func (rm *RegisterMessage) IsEmpty() bool {
	return len(rm.TypeMessages) == 0 && len(rm.ObjectMessages) == 0 && len(rm.LinkMessages) == 0
}

/*
PopTypes removes the next batch of type messages.
*/
func (rm *RegisterMessage) PopTypes() []RegisterTypeMessage {
	var res []RegisterTypeMessage

	for len(rm.TypeMessages) > 0 {
		m := rm.TypeMessages[0]
		rm.TypeMessages = rm.TypeMessages[1:]
		res = append(res, m)

		if !m.Async {
			break
		}
	}

	return res
}

/*
PopObjects removes the next batch of object messages.
*/
func (rm *RegisterMessage) PopObjects() []RegisterObjectMessage {
	var res []RegisterObjectMessage

	for len(rm.ObjectMessages) > 0 {
		m := rm.ObjectMessages[0]
		rm.ObjectMessages = rm.ObjectMessages[1:]
		res = append(res, m)

		if !m.Async {
			break
		}
	}

	return res
}

/*
PopLinks removes the next batch of link messages.
*/
func (rm *RegisterMessage) PopLinks() []RegisterLinkMessage {
	var res []RegisterLinkMessage

	for len(rm.LinkMessages) > 0 {
		m := rm.LinkMessages[0]
		rm.LinkMessages = rm.LinkMessages[1:]
		res = append(res, m)

		if !m.Async {
			break
		}
	}

	return res
}

/*
RouterMessage asks the router to call a function for every element of a
query. An empty query selects the id of the router call.
*/
type RouterMessage struct {
	Query    string             `json:"query,omitempty" msgpack:"query" yaml:"query"`
	Filter   string             `json:"filter,omitempty" msgpack:"filter" yaml:"filter"`
	Function actor.FunctionType `json:"function" msgpack:"function" yaml:"function"`
	Value    Payload            `json:"value,omitempty" msgpack:"value" yaml:"value"`
}

// Encoding
// ========

/*
Encode encodes a message for the bus.
*/
func Encode(v interface{}) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}
	return b, nil
}

/*
Decode decodes a message from the bus.
*/
func Decode(b []byte, v interface{}) error {
	if len(b) == 0 {
		return &util.GraphError{Type: util.ErrPayloadNotFound, Detail: "message not found"}
	}
	if err := msgpack.Unmarshal(b, v); err != nil {
		return &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}
	return nil
}

/*
DecodeJSONMessage decodes a JSON message of a function type (used at the
REST ingress) and returns its bus encoding. Unknown function types are
passed through unchanged.
*/
func DecodeJSONMessage(ft actor.FunctionType, body []byte) ([]byte, error) {
	var msg interface{}

	switch ft {
	case FunctionTypes, FunctionTypeTrigger:
		msg = &TypeMessage{}
	case FunctionObjects, FunctionObjectTrigger:
		msg = &ObjectMessage{}
	case FunctionLinks, FunctionAdvancedLinks, FunctionLinkTrigger:
		msg = &LinkMessage{}
	case FunctionRegister:
		msg = &RegisterMessage{}
	case FunctionRouter:
		msg = &RouterMessage{}
	default:
		if ft.Namespace != NamespaceScript {
			return body, nil
		}
		msg = &TypeMessage{}
	}

	if err := json.Unmarshal(body, msg); err != nil {
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}

	if rm, ok := msg.(*RouterMessage); ok {

		// The routed message is written as JSON as well

		inner, err := DecodeJSONMessage(rm.Function, rm.Value)
		if err != nil {
			return nil, err
		}
		rm.Value = inner
	}

	return Encode(msg)
}
