/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package data

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"devt.de/krotik/cmdb/graph/util"
)

func fixedClock(t *testing.T, start int64) *int64 {
	now := start
	old := Now
	Now = func() int64 { return now }
	t.Cleanup(func() { Now = old })
	return &now
}

func TestValueConversion(t *testing.T) {
	v, err := FromInterface(map[string]interface{}{
		"name":  "h1",
		"cpus":  4,
		"up":    true,
		"tags":  []interface{}{"a", "b"},
		"owner": nil,
		"nested": map[interface{}]interface{}{
			1: "one",
		},
	})
	require.NoError(t, err)

	m, ok := v.AsMap()
	require.True(t, ok)

	s, ok := m["name"].AsString()
	assert.True(t, ok)
	assert.Equal(t, "h1", s)

	n, ok := m["cpus"].AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 4.0, n)

	b, ok := m["up"].AsBool()
	assert.True(t, ok)
	assert.True(t, b)

	l, ok := m["tags"].AsList()
	assert.True(t, ok)
	assert.Len(t, l, 2)

	assert.True(t, m["owner"].IsNull())

	nested, ok := m["nested"].AsMap()
	assert.True(t, ok)
	assert.Equal(t, "one", nested["1"].String())

	_, err = FromInterface(struct{}{})
	assert.ErrorIs(t, err, util.ErrInvalidData)
}

func TestValueEncoding(t *testing.T) {
	p := Properties{
		"name": String("h1"),
		"cpus": Number(4),
		"tags": List(String("a"), Bool(false)),
		"more": Map(map[string]Value{"x": Number(1.5)}),
	}

	jsonData, err := json.Marshal(p)
	require.NoError(t, err)

	var p2 Properties
	require.NoError(t, json.Unmarshal(jsonData, &p2))
	assert.Equal(t, p.Interface(), p2.Interface())

	mpData, err := msgpack.Marshal(p)
	require.NoError(t, err)

	var p3 Properties
	require.NoError(t, msgpack.Unmarshal(mpData, &p3))
	assert.True(t, Map(p).Equal(Map(p3)))

	assert.Equal(t, []string{"cpus", "more", "name", "tags"}, p.Keys())
	assert.Equal(t, `["a",false]`, p["tags"].String())
}

func TestDocument(t *testing.T) {
	now := fixedClock(t, 1000)

	doc := NewDocument(MustParseRef("types/host"))
	assert.Equal(t, Meta{1000, 1000}, doc.Meta)

	doc.SetAttr("a", String("b"))
	assert.True(t, doc.Properties.Has("a"))
	doc.SetAttr("a", Null())
	assert.False(t, doc.Properties.Has("a"))

	*now = 2000
	doc.ReplaceProperties(Properties{"x": Number(1)})
	assert.Equal(t, int64(1000), doc.Meta.Created)
	assert.Equal(t, int64(2000), doc.Meta.Updated)

	data := doc.Data()
	assert.Equal(t, "types/host", data[FieldID])
	assert.Equal(t, "host", data[FieldKey])
	assert.Equal(t, 1.0, data["x"])

	c := doc.Clone()
	c.SetAttr("y", Bool(true))
	assert.False(t, doc.Properties.Has("y"))
}

func TestDecodeDocument(t *testing.T) {
	_, err := DecodeDocument(nil)
	assert.ErrorIs(t, err, util.ErrPayloadNotFound)

	_, err = DecodeDocument([]byte("{"))
	assert.ErrorIs(t, err, util.ErrInvalidData)

	doc, err := DecodeDocument([]byte(`{"_id":"types/host","_rev":"3","_meta":{"created":5,"updated":6},"os":"linux"}`))
	require.NoError(t, err)
	assert.Equal(t, "types/host", doc.ID())
	assert.Equal(t, "3", doc.Revision)
	assert.Equal(t, Meta{5, 6}, doc.Meta)
	assert.Equal(t, map[string]interface{}{"os": "linux"}, doc.Properties.Interface())

	p, err := DecodeProperties([]byte(`{"_from":"a","_key":"b","cpus":2}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"cpus": 2.0}, p.Interface())
}

func TestLink(t *testing.T) {
	fixedClock(t, 1000)

	link := NewLink("types/host", "objects/3f1c2a9e-8b7d-4c6e-9a5b-1d2e3f4a5b6c", "host", "h1")
	link.Ref = MustParseRef("links/7")

	res, err := json.Marshal(link)
	require.NoError(t, err)

	link2, err := DecodeLink(res)
	require.NoError(t, err)

	assert.Equal(t, link.From, link2.From)
	assert.Equal(t, link.To, link2.To)
	assert.Equal(t, link.Name, link2.Name)
	assert.Equal(t, link.Type, link2.Type)
	assert.Equal(t, "links/7", link2.ID())
	assert.Empty(t, link2.Properties)

	assert.Contains(t, link.String(), "types/host -h1(host)->")
}
