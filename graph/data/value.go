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
	"reflect"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"devt.de/krotik/cmdb/graph/util"
)

/*
ValueKind is the tag of a property value.
*/
type ValueKind int

/*
Value kinds
*/
const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
	ValueList
	ValueMap
)

/*
Value is a single property value.
*/
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []Value
	m    map[string]Value
}

/*
Null returns the null value.
*/
func Null() Value {
	return Value{}
}

/*
String returns a string value.
*/
func String(s string) Value {
	return Value{kind: ValueString, str: s}
}

/*
Number returns a number value.
*/
func Number(n float64) Value {
	return Value{kind: ValueNumber, num: n}
}

/*
Bool returns a boolean value.
*/
func Bool(b bool) Value {
	return Value{kind: ValueBool, b: b}
}

/*
List returns a list value.
*/
func List(l ...Value) Value {
	return Value{kind: ValueList, list: l}
}

/*
Map returns a map value.
*/
func Map(m map[string]Value) Value {
	if m == nil {
		m = make(map[string]Value)
	}
	return Value{kind: ValueMap, m: m}
}

/*
Kind returns the tag of this value.
*/
func (v Value) Kind() ValueKind {
	return v.kind
}

/*
IsNull checks if this is the null value.
*/
func (v Value) IsNull() bool {
	return v.kind == ValueNull
}

/*
AsString returns the string of a string value.
*/
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == ValueString
}

/*
AsNumber returns the number of a number value.
*/
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == ValueNumber
}

/*
AsBool returns the flag of a boolean value.
*/
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == ValueBool
}

/*
AsList returns the elements of a list value.
*/
func (v Value) AsList() ([]Value, bool) {
	return v.list, v.kind == ValueList
}

/*
AsMap returns the entries of a map value.
*/
func (v Value) AsMap() (map[string]Value, bool) {
	return v.m, v.kind == ValueMap
}

/*
Interface converts this value into a JSON-like Go value.
*/
func (v Value) Interface() interface{} {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return v.num
	case ValueBool:
		return v.b
	case ValueList:
		l := make([]interface{}, len(v.list))
		for i, e := range v.list {
			l[i] = e.Interface()
		}
		return l
	case ValueMap:
		m := make(map[string]interface{}, len(v.m))
		for k, e := range v.m {
			m[k] = e.Interface()
		}
		return m
	}
	return nil
}

/*
Equal checks if two values are equal.
*/
func (v Value) Equal(other Value) bool {
	return reflect.DeepEqual(v.Interface(), other.Interface())
}

/*
String returns a string representation of this value.
*/
func (v Value) String() string {
	if v.kind == ValueString {
		return v.str
	}

	res, err := json.Marshal(v.Interface())
	if err != nil {
		return fmt.Sprint(v.Interface())
	}

	return string(res)
}

/*
FromInterface converts a JSON-like Go value into a Value. Maps with non-string
keys (as produced by YAML or script decoders) have their keys converted to strings.
*/
func FromInterface(i interface{}) (Value, error) {
	switch t := i.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null(), &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
		}
		return Number(f), nil
	case []interface{}:
		l := make([]Value, len(t))
		for idx, e := range t {
			v, err := FromInterface(e)
			if err != nil {
				return Null(), err
			}
			l[idx] = v
		}
		return List(l...), nil
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := FromInterface(e)
			if err != nil {
				return Null(), err
			}
			m[k] = v
		}
		return Map(m), nil
	case map[interface{}]interface{}:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := FromInterface(e)
			if err != nil {
				return Null(), err
			}
			m[fmt.Sprint(k)] = v
		}
		return Map(m), nil
	}

	return Null(), &util.GraphError{Type: util.ErrInvalidData,
		Detail: fmt.Sprintf("unsupported property value type %T", i)}
}

/*
MarshalJSON encodes this value as JSON.
*/
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

/*
UnmarshalJSON decodes this value from JSON.
*/
func (v *Value) UnmarshalJSON(b []byte) error {
	var i interface{}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	if err := dec.Decode(&i); err != nil {
		return &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}

	res, err := FromInterface(i)
	if err == nil {
		*v = res
	}

	return err
}

/*
EncodeMsgpack encodes this value with msgpack.
*/
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(v.Interface())
}

/*
DecodeMsgpack decodes this value from msgpack.
*/
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	i, err := dec.DecodeInterface()
	if err != nil {
		return err
	}

	res, err := FromInterface(i)
	if err == nil {
		*v = res
	}

	return err
}

/*
Properties is the open property bag of an entity.
*/
type Properties map[string]Value

/*
NewProperties converts a JSON-like map into a property bag.
*/
func NewProperties(m map[string]interface{}) (Properties, error) {
	p := make(Properties, len(m))

	for k, i := range m {
		v, err := FromInterface(i)
		if err != nil {
			return nil, err
		}
		p[k] = v
	}

	return p, nil
}

/*
Get returns a property value.
*/
func (p Properties) Get(key string) (Value, bool) {
	v, ok := p[key]
	return v, ok
}

/*
Has checks if a property exists.
*/
func (p Properties) Has(key string) bool {
	_, ok := p[key]
	return ok
}

/*
Keys returns all property names in sorted order.
*/
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

/*
Clone returns a shallow copy of this property bag.
*/
func (p Properties) Clone() Properties {
	c := make(Properties, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

/*
Interface converts this property bag into a JSON-like map.
*/
func (p Properties) Interface() map[string]interface{} {
	m := make(map[string]interface{}, len(p))
	for k, v := range p {
		m[k] = v.Interface()
	}
	return m
}
