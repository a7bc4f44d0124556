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
Package trigger contains the trigger registry of types and links.

A trigger is a reference to a function (namespace and type) which should be
invoked when an event of a certain kind happens on an entity. Triggers are
stored in the reserved property "triggers" of a type document or a link:

	triggers: {
		<event kind>: {
			"<namespace>/<type>": {namespace: <namespace>, type: <type>}
		}
	}

The map is decoded and encoded explicitly. Malformed trigger maps are
reported as invalid data.
*/
package trigger

import (
	"fmt"
	"sort"

	"devt.de/krotik/cmdb/graph/data"
	"devt.de/krotik/cmdb/graph/util"
)

/*
PropertyTriggers is the reserved property which holds the trigger map
*/
const PropertyTriggers = "triggers"

/*
EventKind is the kind of an event which fires triggers.
*/
type EventKind string

/*
Event kinds
*/
const (
	Create EventKind = "create"
	Update EventKind = "update"
	Delete EventKind = "delete"
)

/*
KindFor returns the event kind of a mutation method (CREATE, UPDATE or DELETE).
*/
func KindFor(method string) (EventKind, error) {
	switch method {
	case "CREATE":
		return Create, nil
	case "UPDATE":
		return Update, nil
	case "DELETE":
		return Delete, nil
	}

	return "", &util.GraphError{Type: util.ErrUnknownMethod, Detail: fmt.Sprintf("no event kind for method %v", method)}
}

/*
Trigger is a reference to a function.
*/
type Trigger struct {
	Namespace string `json:"namespace" msgpack:"namespace"`
	Type      string `json:"type" msgpack:"type"`
}

/*
Key returns the registry key of this trigger.
*/
func (t Trigger) Key() string {
	return t.Namespace + "/" + t.Type
}

/*
Triggers maps event kinds to registered triggers.
*/
type Triggers map[EventKind]map[string]Trigger

/*
Keys returns the sorted trigger keys of an event kind.
*/
func (ts Triggers) Keys(kind EventKind) []string {
	var res []string

	for k := range ts[kind] {
		res = append(res, k)
	}

	sort.Strings(res)

	return res
}

/*
Decode reads the trigger map from a property bag. Returns an empty map if
there are no triggers.
*/
func Decode(props data.Properties) (Triggers, error) {
	res := make(Triggers)

	val, ok := props.Get(PropertyTriggers)
	if !ok || val.IsNull() {
		return res, nil
	}

	kinds, ok := val.AsMap()
	if !ok {
		return nil, malformed("trigger map is not an object")
	}

	for kind, tval := range kinds {
		entries, ok := tval.AsMap()
		if !ok {
			return nil, malformed(fmt.Sprintf("triggers of %v are not an object", kind))
		}

		triggers := make(map[string]Trigger)

		for key, eval := range entries {
			entry, ok := eval.AsMap()
			if !ok {
				return nil, malformed(fmt.Sprintf("trigger %v is not an object", key))
			}

			ns, ok1 := entry["namespace"].AsString()
			t, ok2 := entry["type"].AsString()

			if !ok1 || !ok2 {
				return nil, malformed(fmt.Sprintf("trigger %v requires namespace and type", key))
			}

			triggers[key] = Trigger{ns, t}
		}

		res[EventKind(kind)] = triggers
	}

	return res, nil
}

/*
Encode writes a trigger map into a property bag.
*/
func Encode(props data.Properties, ts Triggers) {
	kinds := make(map[string]data.Value)

	for kind, triggers := range ts {
		entries := make(map[string]data.Value)

		for key, t := range triggers {
			entries[key] = data.Map(map[string]data.Value{
				"namespace": data.String(t.Namespace),
				"type":      data.String(t.Type),
			})
		}

		kinds[string(kind)] = data.Map(entries)
	}

	props[PropertyTriggers] = data.Map(kinds)
}

/*
Add registers a trigger on a document. Returns ErrAlreadyTrigger if the
trigger is already registered for the event kind.
*/
func Add(doc *data.Document, kind EventKind, t Trigger) error {
	ts, err := Decode(doc.Properties)
	if err != nil {
		return err
	}

	triggers, ok := ts[kind]
	if !ok {
		triggers = make(map[string]Trigger)
		ts[kind] = triggers
	}

	if _, ok := triggers[t.Key()]; ok {
		return &util.GraphError{Type: util.ErrAlreadyTrigger,
			Detail: fmt.Sprintf("%v trigger %v on %v", kind, t.Key(), doc.ID())}
	}

	triggers[t.Key()] = t

	update(doc, ts)

	return nil
}

/*
Remove removes a trigger from a document. Removing a trigger which does not
exist does nothing.
*/
func Remove(doc *data.Document, kind EventKind, t Trigger) error {
	ts, err := Decode(doc.Properties)
	if err != nil {
		return err
	}

	if _, ok := ts[kind][t.Key()]; !ok {
		return nil
	}

	delete(ts[kind], t.Key())

	update(doc, ts)

	return nil
}

/*
GetByType returns all triggers of an event kind. Returns ErrTriggerNotFound
if the document has no trigger map or no entry for the event kind.
*/
func GetByType(doc *data.Document, kind EventKind) (map[string]Trigger, error) {
	if !doc.Properties.Has(PropertyTriggers) {
		return nil, &util.GraphError{Type: util.ErrTriggerNotFound, Detail: fmt.Sprintf("no triggers on %v", doc.ID())}
	}

	ts, err := Decode(doc.Properties)
	if err != nil {
		return nil, err
	}

	triggers, ok := ts[kind]
	if !ok {
		return nil, &util.GraphError{Type: util.ErrTriggerNotFound,
			Detail: fmt.Sprintf("no %v triggers on %v", kind, doc.ID())}
	}

	return triggers, nil
}

func update(doc *data.Document, ts Triggers) {
	if doc.Properties == nil {
		doc.Properties = make(data.Properties)
	}

	Encode(doc.Properties, ts)
	doc.Meta.Touch()
}

func malformed(detail string) error {
	return &util.GraphError{Type: util.ErrInvalidData, Detail: detail}
}
