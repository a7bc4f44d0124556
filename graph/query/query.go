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
Package query contains the path query evaluator of the graph.

A path query is a dotted list of link names which is read from right to left.
It must end with the root node. For example:

	system.functions.root

selects the entity y in root -functions-> x -system-> y. A * segment matches
every link name. A query which is an entity id (e.g. objects/<uuid>) selects
this entity.

Results can be filtered with a jq expression (see github.com/itchyny/gojq)
which is applied to the JSON representation of each element. Elements for
which the first result of the filter is false or null are dropped.
*/
package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"devt.de/krotik/cmdb/graph"
	"devt.de/krotik/cmdb/graph/data"
	"devt.de/krotik/cmdb/graph/util"
)

/*
Wildcard matches every link name
*/
const Wildcard = "*"

/*
Options for a query evaluation
*/
type Options struct {
	Filter string // jq filter expression (empty for no filter)
	Limit  int    // Maximum number of results (0 for no limit)
}

/*
Element is a single query result.
*/
type Element struct {
	ID       string         `json:"id"`
	Key      string         `json:"key"`
	Type     string         `json:"type,omitempty"` // Type id of the element if known
	Link     string         `json:"link,omitempty"` // Id of the link which led to the element
	Document *data.Document `json:"document"`
}

/*
Evaluate evaluates a path query.
*/
func Evaluate(gm *graph.Manager, expression string, opts Options) ([]Element, error) {
	var filter *gojq.Code

	if opts.Filter != "" {
		q, err := gojq.Parse(opts.Filter)
		if err == nil {
			filter, err = gojq.Compile(q)
		}
		if err != nil {
			return nil, &util.GraphError{Type: util.ErrInvalidData,
				Detail: fmt.Sprintf("invalid filter %q: %v", opts.Filter, err)}
		}
	}

	candidates, err := resolve(gm, expression)
	if err != nil {
		return nil, err
	}

	var res []Element

	for _, c := range candidates {

		if opts.Limit > 0 && len(res) >= opts.Limit {
			break
		}

		doc, err := gm.ReadDocument(c.ID)
		if util.IsNotFound(err) {
			continue
		} else if err != nil {
			return nil, err
		}

		c.Document = doc
		c.Key = doc.Key()
		c.Type = typeOf(gm, doc.Ref)

		if filter != nil {
			ok, err := matches(filter, c)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}

		res = append(res, c)
	}

	return res, nil
}

/*
resolve walks the graph along a path query.
*/
func resolve(gm *graph.Manager, expression string) ([]Element, error) {
	expression = strings.TrimSpace(expression)

	if strings.Contains(expression, "/") {
		ref, err := data.ParseRef(expression)
		if err != nil {
			return nil, err
		}
		return []Element{{ID: ref.ID()}}, nil
	}

	segments := strings.Split(expression, ".")

	if segments[len(segments)-1] != data.SystemRoot {
		return nil, &util.GraphError{Type: util.ErrInvalidData,
			Detail: fmt.Sprintf("query %q must end with %v", expression, data.SystemRoot)}
	}

	current := []Element{{ID: data.RootID}}

	for i := len(segments) - 2; i >= 0; i-- {
		seg := segments[i]

		if seg == "" {
			return nil, &util.GraphError{Type: util.ErrInvalidData,
				Detail: fmt.Sprintf("query %q has an empty segment", expression)}
		}

		var next []Element
		seen := make(map[string]bool)

		for _, c := range current {
			links, err := gm.LinksFrom(c.ID)
			if err != nil {
				return nil, err
			}

			for _, l := range links {
				if (seg == Wildcard || l.Name == seg) && !seen[l.To] {
					seen[l.To] = true
					next = append(next, Element{ID: l.To, Link: l.ID()})
				}
			}
		}

		current = next
	}

	return current, nil
}

/*
typeOf returns the type id of an entity. Objects are resolved through their
link from the objects system node.
*/
func typeOf(gm *graph.Manager, ref data.EntityRef) string {
	switch ref.Kind {
	case data.KindObject:
		if l, err := gm.FindLinkTo(data.ObjectsID, ref.ID()); err == nil {
			return data.CollectionTypes + "/" + l.Type
		}
	case data.KindType, data.KindSystem:
		return ref.ID()
	}
	return ""
}

/*
matches runs a compiled filter against the JSON form of an element.
*/
func matches(filter *gojq.Code, e Element) (bool, error) {
	var input interface{}

	// Run the filter on plain JSON values

	b, err := json.Marshal(e)
	if err == nil {
		err = json.Unmarshal(b, &input)
	}
	if err != nil {
		return false, &util.GraphError{Type: util.ErrInvalidData, Detail: err.Error()}
	}

	iter := filter.Run(input)

	v, ok := iter.Next()
	if !ok {
		return false, nil
	}

	if err, ok := v.(error); ok {
		return false, &util.GraphError{Type: util.ErrInvalidData, Detail: fmt.Sprintf("filter error: %v", err)}
	}

	return v != nil && v != false, nil
}
