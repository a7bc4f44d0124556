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
Package dbfunc contains the functions of the cmdb package of the ECAL stdlib.
*/
package dbfunc

import (
	"fmt"
	"sync"

	"devt.de/krotik/ecal/scope"

	"devt.de/krotik/cmdb/functions"
	"devt.de/krotik/cmdb/graph/data"
)

/*
contexts holds the function context of every running script thread
*/
var contexts = sync.Map{}

/*
Bind binds a function context to an ECAL thread. Functions which send
messages can only run in bound threads.
*/
func Bind(tid uint64, fc *functions.FunctionContext) {
	contexts.Store(tid, fc)
}

/*
Unbind removes the function context of an ECAL thread.
*/
func Unbind(tid uint64) {
	contexts.Delete(tid)
}

/*
contextOf returns the function context of an ECAL thread.
*/
func contextOf(tid uint64) (*functions.FunctionContext, error) {
	if fc, ok := contexts.Load(tid); ok {
		return fc.(*functions.FunctionContext), nil
	}

	return nil, fmt.Errorf("Function must run inside a script function")
}

/*
DocumentToECAL converts a document into an ECAL map.
*/
func DocumentToECAL(doc *data.Document) interface{} {
	if doc == nil {
		return nil
	}

	return scope.ConvertJSONToECALObject(doc.Data())
}
