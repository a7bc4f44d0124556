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
	"fmt"
	"net/http"
	"strings"

	"devt.de/krotik/cmdb/api"
	"devt.de/krotik/cmdb/graph/query"
)

/*
EndpointQuery is the query endpoint URL (rooted). Handles everything under query/...
*/
const EndpointQuery = api.APIRoot + APIv1 + "/query/"

/*
QueryEndpointInst creates a new endpoint handler.
*/
func QueryEndpointInst() api.RestEndpointHandler {
	return &queryEndpoint{}
}

/*
Handler object for path queries.
*/
type queryEndpoint struct {
	*api.DefaultEndpointHandler
}

/*
HandleGET handles a path query REST call.
*/
func (qe *queryEndpoint) HandleGET(w http.ResponseWriter, r *http.Request, resources []string) {

	if !checkResources(w, resources, 1, -1, "Need a query expression") {
		return
	}

	limit, ok := queryParamPosNum(w, r, "limit")
	if !ok {
		return
	}

	opts := query.Options{Filter: r.URL.Query().Get("filter")}
	if limit > 0 {
		opts.Limit = limit
	}

	elements, err := query.Evaluate(api.DB.Manager(), strings.Join(resources, "/"), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	if elements == nil {
		elements = []query.Element{}
	}

	w.Header().Add(HTTPHeaderTotalCount, fmt.Sprint(len(elements)))

	writeData(w, http.StatusOK, elements)
}

/*
SwaggerDefs is used to describe the endpoint in swagger.
*/
func (qe *queryEndpoint) SwaggerDefs(s map[string]interface{}) {
	api.SwaggerPath(s, "/v1/query/{expression}", "get", "Run a path query.",
		"Returns all elements of a path query (e.g. system.functions.root) or of an entity id.", "Element",
		api.SwaggerParam("expression", "path", "Path query or entity id.", true),
		api.SwaggerParam("filter", "query", "jq filter which is applied to every element.", false),
		api.SwaggerParam("limit", "query", "Maximum number of returned elements.", false))
}
