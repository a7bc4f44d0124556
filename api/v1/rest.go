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
Package v1 contains version 1 of the REST API.

/document/<collection>/<key>

Read a document or link.

/query/<expression>

Run a path query (parameters filter and limit).

/function/<namespace>/<type>/<id>

Send a call to a function. The body is the JSON message of the function.

/register

Send a batch of registrations to the register function.

/result/<key>

Poll the aggregated result of a call.

/results

Websocket which streams all results and graph changes.
*/
package v1

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"devt.de/krotik/cmdb/api"
	"devt.de/krotik/cmdb/graph/util"
)

/*
APIv1 is the directory for version 1 of the API
*/
const APIv1 = "/v1"

/*
HTTPHeaderTotalCount is a special header value containing the total count of objects.
*/
const HTTPHeaderTotalCount = "X-Total-Count"

/*
V1EndpointMap is a map of urls to endpoints for version 1 of the API
*/
var V1EndpointMap = map[string]api.RestEndpointInst{
	EndpointDocument: DocumentEndpointInst,
	EndpointQuery:    QueryEndpointInst,
	EndpointFunction: FunctionEndpointInst,
	EndpointRegister: RegisterEndpointInst,
	EndpointResult:   ResultEndpointInst,
	EndpointResults:  ResultsEndpointInst,
}

// Helper functions
// ================

/*
checkResources check given resources for a GET request.
*/
func checkResources(w http.ResponseWriter, resources []string, requiredMin int, requiredMax int, errorMsg string) bool {
	if len(resources) < requiredMin {
		http.Error(w, errorMsg, http.StatusBadRequest)
		return false
	} else if requiredMax >= 0 && len(resources) > requiredMax {
		http.Error(w, "Invalid resource specification: "+strings.Join(resources[1:], "/"), http.StatusBadRequest)
		return false
	}
	return true
}

/*
Extract a positive number from a query parameter. Returns -1 and true
if the parameter was not given.
*/
func queryParamPosNum(w http.ResponseWriter, r *http.Request, param string) (int, bool) {

	val := r.URL.Query().Get(param)

	if val == "" {
		return -1, true
	}

	num, err := strconv.Atoi(val)

	if err != nil || num < 0 {
		http.Error(w, "Invalid parameter value: "+param+" should be a positive integer number", http.StatusBadRequest)
		return -1, false
	}

	return num, true
}

/*
writeError writes an error with a status code which depends on the error.
*/
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	if util.IsNotFound(err) {
		status = http.StatusNotFound
	} else if util.IsConflict(err) {
		status = http.StatusConflict
	} else if util.IsUnknown(err) || util.IsPayload(err) {
		status = http.StatusBadRequest
	}

	http.Error(w, err.Error(), status)
}

/*
writeData writes a JSON response.
*/
func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	ret := json.NewEncoder(w)
	ret.Encode(data)
}
