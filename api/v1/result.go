/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package v1

import (
	"net/http"

	"devt.de/krotik/cmdb/api"
)

/*
EndpointResult is the result endpoint URL (rooted). Handles everything under result/...
*/
const EndpointResult = api.APIRoot + APIv1 + "/result/"

/*
ResultEndpointInst creates a new endpoint handler.
*/
func ResultEndpointInst() api.RestEndpointHandler {
	return &resultEndpoint{}
}

/*
Handler object for result polling.
*/
type resultEndpoint struct {
	*api.DefaultEndpointHandler
}

/*
HandleGET returns an aggregated result.
*/
func (re *resultEndpoint) HandleGET(w http.ResponseWriter, r *http.Request, resources []string) {

	if !checkResources(w, resources, 1, 1, "Need a result key") {
		return
	}

	res, ok := api.Results.Result(resources[0])
	if !ok {
		http.Error(w, "Unknown result: "+resources[0], http.StatusNotFound)
		return
	}

	writeData(w, http.StatusOK, res)
}

/*
SwaggerDefs is used to describe the endpoint in swagger.
*/
func (re *resultEndpoint) SwaggerDefs(s map[string]interface{}) {
	api.SwaggerPath(s, "/v1/result/{key}", "get", "Return an aggregated result.",
		"Returns the aggregated result of a call. Returns 404 until all sub-operations have replied.", "Result",
		api.SwaggerParam("key", "path", "Key of the result.", true))
}
