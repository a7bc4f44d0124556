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
	"encoding/json"
	"fmt"

	"devt.de/krotik/ecal/parser"
	"devt.de/krotik/ecal/scope"

	"devt.de/krotik/cmdb/cmdb"
)

/*
FetchFunc reads a document of the graph.
*/
type FetchFunc struct {
}

/*
Run executes the ECAL function.
*/
func (f *FetchFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("Function requires 1 parameter: document id")
	}

	fc, err := contextOf(tid)
	if err != nil {
		return nil, err
	}

	doc, err := fc.Cmdb.ReadDocument(fmt.Sprint(args[0]))
	if err != nil {
		return nil, err
	}

	return DocumentToECAL(doc), nil
}

/*
DocString returns a descriptive string.
*/
func (f *FetchFunc) DocString() (string, error) {
	return "Fetches a document from the graph.", nil
}

/*
UpdateFunc updates the properties of an object. The update is sent to the
objects function and its result becomes part of the result of the running
script function.
*/
type UpdateFunc struct {
}

/*
Run executes the ECAL function.
*/
func (f *UpdateFunc) Run(instanceID string, vs parser.Scope, is map[string]interface{}, tid uint64, args []interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("Function requires 2 parameters: object id and property map")
	}

	props, ok := args[1].(map[interface{}]interface{})
	if !ok {
		return nil, fmt.Errorf("Second parameter must be a map")
	}

	fc, err := contextOf(tid)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(scope.ConvertECALToJSONObject(props))
	if err != nil {
		return nil, err
	}

	reply, err := fc.Sync.ReplyResult()
	if err != nil {
		return nil, err
	}

	call, err := cmdb.NewCall(cmdb.FunctionObjects, fmt.Sprint(args[0]),
		&cmdb.ObjectMessage{Method: cmdb.MethodUpdate, Payload: payload}, reply)

	if err == nil {
		err = fc.SendCall(call)
	}

	return nil, err
}

/*
DocString returns a descriptive string.
*/
func (f *UpdateFunc) DocString() (string, error) {
	return "Updates the properties of an object.", nil
}
