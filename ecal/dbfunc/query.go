/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package dbfunc

import (
	"fmt"

	"devt.de/krotik/ecal/parser"

	"devt.de/krotik/cmdb/graph/query"
)

/*
QueryFunc runs a path query with an optional jq filter.
*/
type QueryFunc struct {
}

/*
Run executes the ECAL function.
*/
func (f *QueryFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	var opts query.Options

	if arglen := len(args); arglen != 1 && arglen != 2 {
		return nil, fmt.Errorf("Function requires 1 or 2 parameters: query and optionally a filter")
	}

	if len(args) > 1 {
		opts.Filter = fmt.Sprint(args[1])
	}

	fc, err := contextOf(tid)
	if err != nil {
		return nil, err
	}

	elements, err := query.Evaluate(fc.Cmdb.Manager(), fmt.Sprint(args[0]), opts)
	if err != nil {
		return nil, err
	}

	res := make([]interface{}, 0, len(elements))

	for _, e := range elements {
		res = append(res, map[interface{}]interface{}{
			"id":       e.ID,
			"key":      e.Key,
			"type":     e.Type,
			"link":     e.Link,
			"document": DocumentToECAL(e.Document),
		})
	}

	return res, nil
}

/*
DocString returns a descriptive string.
*/
func (f *QueryFunc) DocString() (string, error) {
	return "Runs a path query and returns the found elements.", nil
}
