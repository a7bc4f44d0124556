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
Package api contains general REST API definitions.

The REST API provides an interface to the CMDB. It allows querying the graph
and sending calls to the functions of the actor runtime. The API responds in
JSON if the request was successful and plain text in all other cases.

Common API definitions

/about

Endpoint which returns an object with version information.

	api_versions : List of available API versions e.g. [ "v1" ]
	product      : Name of the API provider (CMDB)
	version      : Version of the API provider
	functions    : Function types which can be called (only if a runtime is set)

/swagger.json

Dynamically generated swagger definition file. See: http://swagger.io
*/
package api

import (
	"encoding/json"
	"net/http"

	"devt.de/krotik/cmdb/config"
)

/*
EndpointAbout is the about endpoint URL (rooted). Handles about/
*/
const EndpointAbout = APIRoot + "/about/"

/*
AboutEndpointInst creates a new endpoint handler.
*/
func AboutEndpointInst() RestEndpointHandler {
	return &aboutEndpoint{}
}

/*
Handler object for about operations.
*/
type aboutEndpoint struct {
	*DefaultEndpointHandler
}

/*
HandleGET returns about data for the REST API.
*/
func (a *aboutEndpoint) HandleGET(w http.ResponseWriter, r *http.Request, resources []string) {
	data := map[string]interface{}{
		"api_versions": []string{"v1"},
		"product":      "CMDB",
		"version":      config.ProductVersion,
	}

	if Runtime != nil {
		var functions []string

		for _, ft := range Runtime.FunctionTypes() {
			functions = append(functions, ft.String())
		}

		data["functions"] = functions
	}

	w.Header().Set("content-type", "application/json; charset=utf-8")

	json.NewEncoder(w).Encode(data)
}

/*
SwaggerDefs is used to describe the endpoint in swagger.
*/
func (a *aboutEndpoint) SwaggerDefs(s map[string]interface{}) {
	SwaggerPath(s, "/about", "get", "Return information about the REST API provider.",
		"Returns available API versions, product name, product version and the callable function types.", "")
}
