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
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"devt.de/krotik/cmdb/graph/util"
)

/*
Reserved document fields which are never part of the property bag
*/
const (
	FieldID      = "_id"
	FieldKey     = "_key"
	FieldRev     = "_rev"
	FieldMeta    = "_meta"
	FieldFrom    = "_from"
	FieldTo      = "_to"
	FieldName    = "_name"
	FieldType    = "_type"
	FieldCreated = "created"
	FieldUpdated = "updated"
)

/*
Now returns the current time in milliseconds. Can be overwritten for testing.
*/
var Now = func() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

/*
Meta holds the timestamps of a document.
*/
type Meta struct {
	Created int64 `json:"created" msgpack:"created"`
	Updated int64 `json:"updated" msgpack:"updated"`
}

/*
NewMeta returns meta data for a new document.
*/
func NewMeta() Meta {
	now := Now()
	return Meta{now, now}
}

/*
Touch sets the updated timestamp to the current time.
*/
func (m *Meta) Touch() {
	m.Updated = Now()
}

/*
Document models a vertex in the graph.
*/
type Document struct {
	Ref        EntityRef
	Revision   string
	Meta       Meta
	Properties Properties
}

/*
NewDocument creates a new empty document.
*/
func NewDocument(ref EntityRef) *Document {
	return &Document{Ref: ref, Meta: NewMeta(), Properties: make(Properties)}
}

/*
ID returns the full id of this document.
*/
func (d *Document) ID() string {
	return d.Ref.ID()
}

/*
Key returns the key of this document.
*/
func (d *Document) Key() string {
	return d.Ref.Key
}

/*
Attr returns a property of this document.
*/
func (d *Document) Attr(key string) (Value, bool) {
	return d.Properties.Get(key)
}

/*
SetAttr sets a property of this document. Setting a null value removes the property.
*/
func (d *Document) SetAttr(key string, v Value) {
	if d.Properties == nil {
		d.Properties = make(Properties)
	}
	if v.IsNull() {
		delete(d.Properties, key)
		return
	}
	d.Properties[key] = v
}

/*
ReplaceProperties replaces the whole property bag and bumps the updated timestamp.
*/
func (d *Document) ReplaceProperties(p Properties) {
	if p == nil {
		p = make(Properties)
	}
	d.Properties = p.Clone()
	d.Meta.Touch()
}

/*
Clone returns a copy of this document.
*/
func (d *Document) Clone() *Document {
	c := *d
	c.Properties = d.Properties.Clone()
	return &c
}

/*
Data returns the JSON-like representation of this document.
*/
func (d *Document) Data() map[string]interface{} {
	res := d.Properties.Interface()

	if !d.Ref.IsZero() {
		res[FieldID] = d.Ref.ID()
		res[FieldKey] = d.Ref.Key
	}
	if d.Revision != "" {
		res[FieldRev] = d.Revision
	}
	res[FieldMeta] = map[string]interface{}{
		FieldCreated: d.Meta.Created,
		FieldUpdated: d.Meta.Updated,
	}

	return res
}

/*
MarshalJSON encodes this document as JSON.
*/
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data())
}

/*
String returns a string representation of this document.
*/
func (d *Document) String() string {
	return fmt.Sprintf("Document [%v rev:%v properties:%v]", d.Ref.ID(), d.Revision, d.Properties.Interface())
}

/*
Link models an edge in the graph.
*/
type Link struct {
	Document
	From string // Source entity id
	To   string // Target entity id
	Name string // Edge label (unique among edges with the same source)
	Type string // Semantic edge type
}

/*
NewLink creates a new link. The key of the link is assigned by the storage.
*/
func NewLink(from, to, linkType, name string) *Link {
	return &Link{
		Document: Document{Meta: NewMeta(), Properties: make(Properties)},
		From:     from,
		To:       to,
		Name:     name,
		Type:     linkType,
	}
}

/*
Clone returns a copy of this link.
*/
func (l *Link) Clone() *Link {
	c := *l
	c.Properties = l.Properties.Clone()
	return &c
}

/*
Data returns the JSON-like representation of this link.
*/
func (l *Link) Data() map[string]interface{} {
	res := l.Document.Data()

	res[FieldFrom] = l.From
	res[FieldTo] = l.To
	res[FieldName] = l.Name
	res[FieldType] = l.Type

	return res
}

/*
MarshalJSON encodes this link as JSON.
*/
func (l *Link) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Data())
}

/*
String returns a string representation of this link.
*/
func (l *Link) String() string {
	return fmt.Sprintf("Link [%v %v -%v(%v)-> %v properties:%v]", l.Ref.ID(), l.From,
		l.Name, l.Type, l.To, l.Properties.Interface())
}

// Decoding
// ========

/*
DecodeMap decodes a JSON payload into a map. An empty payload is an error.
*/
func DecodeMap(payload []byte) (map[string]interface{}, error) {
	var m map[string]interface{}

	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, &util.GraphError{Type: util.ErrPayloadNotFound, Detail: "payload not found"}
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	if err := dec.Decode(&m); err != nil {
		return nil, &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}

	if m == nil {
		m = make(map[string]interface{})
	}

	return m, nil
}

/*
DecodeDocument decodes a document from a JSON payload. Reserved fields are
stripped from the property bag.
*/
func DecodeDocument(payload []byte) (*Document, error) {
	m, err := DecodeMap(payload)
	if err != nil {
		return nil, err
	}

	return DocumentFromMap(m)
}

/*
DocumentFromMap creates a document from a JSON-like map. Reserved fields are
removed from the given map.
*/
func DocumentFromMap(m map[string]interface{}) (*Document, error) {
	var err error

	doc := NewDocument(EntityRef{})

	if id, ok := m[FieldID]; ok {
		if doc.Ref, err = ParseRef(fmt.Sprint(id)); err != nil {
			return nil, err
		}
	} else if key, ok := m[FieldKey]; ok {
		k := fmt.Sprint(key)
		doc.Ref = EntityRef{ClassifyKey(k), CollectionForKind(ClassifyKey(k)), k}
	}

	if rev, ok := m[FieldRev]; ok {
		doc.Revision = fmt.Sprint(rev)
	}

	if meta, ok := m[FieldMeta].(map[string]interface{}); ok {
		if v, err := FromInterface(meta[FieldCreated]); err == nil {
			if n, ok := v.AsNumber(); ok {
				doc.Meta.Created = int64(n)
			}
		}
		if v, err := FromInterface(meta[FieldUpdated]); err == nil {
			if n, ok := v.AsNumber(); ok {
				doc.Meta.Updated = int64(n)
			}
		}
	}

	for _, f := range []string{FieldID, FieldKey, FieldRev, FieldMeta} {
		delete(m, f)
	}

	doc.Properties, err = NewProperties(m)

	return doc, err
}

/*
DecodeProperties decodes a property bag from a JSON payload. Reserved fields
are stripped.
*/
func DecodeProperties(payload []byte) (Properties, error) {
	m, err := DecodeMap(payload)
	if err != nil {
		return nil, err
	}

	for _, f := range []string{FieldID, FieldKey, FieldRev, FieldMeta, FieldFrom, FieldTo, FieldName, FieldType} {
		delete(m, f)
	}

	return NewProperties(m)
}

/*
DecodeLink decodes a link from a JSON payload. Reserved fields are stripped
from the property bag.
*/
func DecodeLink(payload []byte) (*Link, error) {
	m, err := DecodeMap(payload)
	if err != nil {
		return nil, err
	}

	link := &Link{}

	str := func(field string) string {
		v, ok := m[field]
		delete(m, field)
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}

	link.From = str(FieldFrom)
	link.To = str(FieldTo)
	link.Name = str(FieldName)
	link.Type = str(FieldType)

	doc, err := DocumentFromMap(m)
	if err != nil {
		return nil, err
	}

	link.Document = *doc

	return link, nil
}
