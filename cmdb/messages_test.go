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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"devt.de/krotik/cmdb/graph/trigger"
	"devt.de/krotik/cmdb/graph/util"
)

func TestPopBarrier(t *testing.T) {
	rm := &RegisterMessage{
		TypeMessages: []RegisterTypeMessage{
			{ID: "a", Async: true},
			{ID: "b", Async: true},
			{ID: "c"},
			{ID: "d", Async: true},
		},
		LinkMessages: []RegisterLinkMessage{{ID: "x"}, {ID: "y"}},
	}

	ids := func(ms []RegisterTypeMessage) []string {
		var res []string
		for _, m := range ms {
			res = append(res, m.ID)
		}
		return res
	}

	// The first sync entry ends a batch and is part of it

	assert.Equal(t, []string{"a", "b", "c"}, ids(rm.PopTypes()))
	assert.Equal(t, []string{"d"}, ids(rm.PopTypes()))
	assert.Empty(t, rm.PopTypes())
	assert.Empty(t, rm.PopObjects())

	assert.False(t, rm.IsEmpty())
	assert.Len(t, rm.PopLinks(), 1)
	assert.Len(t, rm.PopLinks(), 1)
	assert.True(t, rm.IsEmpty())
}

func TestRegisterMessageFormats(t *testing.T) {
	src := `
typeMessages:
  - id: system/types
    message:
      method: CREATE
      name: host
      payload:
        description: a host
objectMessages:
  - id: types/host
    async: true
    message:
      method: CREATE_CHILD
      name: h1
      payload: {ip: 10.0.0.1}
`
	var rm RegisterMessage

	require.NoError(t, yaml.Unmarshal([]byte(src), &rm))
	require.Len(t, rm.TypeMessages, 1)
	assert.Equal(t, MethodCreate, rm.TypeMessages[0].Message.Method)
	assert.JSONEq(t, `{"description":"a host"}`, string(rm.TypeMessages[0].Message.Payload))
	assert.True(t, rm.ObjectMessages[0].Async)

	// Payloads are plain JSON documents in JSON form

	b, err := json.Marshal(&rm)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"payload":{"ip":"10.0.0.1"}`)

	var rm2 RegisterMessage
	require.NoError(t, json.Unmarshal(b, &rm2))
	assert.JSONEq(t, `{"ip":"10.0.0.1"}`, string(rm2.ObjectMessages[0].Message.Payload))

	// The bus encoding keeps all fields

	enc, err := Encode(&rm2)
	require.NoError(t, err)

	var rm3 RegisterMessage
	require.NoError(t, Decode(enc, &rm3))
	assert.Equal(t, rm2.ObjectMessages, rm3.ObjectMessages)

	assert.True(t, util.IsPayload(Decode(nil, &rm3)))
	assert.True(t, util.IsPayload(Decode([]byte{0xc1}, &rm3)))
}

func TestDecodeJSONMessage(t *testing.T) {
	b, err := DecodeJSONMessage(FunctionRouter, []byte(`{
		"query": "*.root",
		"function": {"namespace": "internal", "type": "objects.system.functions.root"},
		"value": {"method": "UPDATE", "payload": {"a": 1}}
	}`))
	require.NoError(t, err)

	var rm RouterMessage
	require.NoError(t, Decode(b, &rm))
	assert.Equal(t, FunctionObjects, rm.Function)

	var om ObjectMessage
	require.NoError(t, Decode(rm.Value, &om))
	assert.Equal(t, MethodUpdate, om.Method)
	assert.JSONEq(t, `{"a":1}`, string(om.Payload))

	_, err = DecodeJSONMessage(FunctionTypes, []byte(`{"method": `))
	assert.True(t, util.IsPayload(err))

	// Messages of other functions are passed on

	b, err = DecodeJSONMessage(FunctionLog, []byte(`{"x": 1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"x": 1}`, string(b))
}

func TestTriggerMessage(t *testing.T) {
	tm, err := DecodeTriggerMessage(PayloadOf(map[string]string{
		"type": "create", "namespace": "script", "functionType": "notify"}))
	require.NoError(t, err)
	assert.Equal(t, trigger.Create, tm.Type)
	assert.Equal(t, "script/notify", tm.Trigger().Key())

	_, err = DecodeTriggerMessage(nil)
	assert.ErrorIs(t, err, util.ErrPayloadNotFound)

	_, err = DecodeTriggerMessage(Payload(`{"type": "create"}`))
	assert.ErrorIs(t, err, util.ErrInvalidData)

	_, err = DecodeTriggerMessage(Payload(`{"type": "explode", "namespace": "a", "functionType": "b"}`))
	assert.ErrorIs(t, err, util.ErrInvalidData)

	kind, err := MethodDelete.EventKind()
	require.NoError(t, err)
	assert.Equal(t, trigger.Delete, kind)

	_, err = MethodReplace.EventKind()
	assert.True(t, util.IsUnknown(err))
}
