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
	"devt.de/krotik/cmdb/graph/data"
)

/*
EndpointDocument is the document endpoint URL (rooted). Handles everything under document/...
*/
const EndpointDocument = api.APIRoot + APIv1 + "/document/"

/*
DocumentEndpointInst creates a new endpoint handler.
*/
func DocumentEndpointInst() api.RestEndpointHandler {
	return &documentEndpoint{}
}

/*
Handler object for document operations.
*/
type documentEndpoint struct {
	*api.DefaultEndpointHandler
}

/*
HandleGET handles a document read REST call.
*/
func (de *documentEndpoint) HandleGET(w http.ResponseWriter, r *http.Request, resources []string) {

	if !checkResources(w, resources, 2, 2, "Need a collection and a key") {
		return
	}

	ref, err := data.ParseRef(resources[0] + "/" + resources[1])
	if err != nil {
		writeError(w, err)
		return
	}

	var res interface{}

	if ref.Kind == data.KindLink {
		res, err = api.DB.ReadLink(ref.ID())
	} else {
		res, err = api.DB.ReadDocument(ref.ID())
	}

	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}

/*
SwaggerDefs is used to describe the endpoint in swagger.
*/
func (de *documentEndpoint) SwaggerDefs(s map[string]interface{}) {
	api.SwaggerPath(s, "/v1/document/{collection}/{key}", "get", "Read a document.",
		"Returns a system node, type, object or link of the graph.", "",
		api.SwaggerParam("collection", "path", "Collection of the document (system, types, objects or links).", true),
		api.SwaggerParam("key", "path", "Key of the document.", true))
}
