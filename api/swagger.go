/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package api

import (
	"encoding/json"
	"net/http"
)

/*
EndpointSwagger is the swagger endpoint URL (rooted). Handles swagger.json/
*/
const EndpointSwagger = APIRoot + "/swagger.json/"

/*
SwaggerEndpointInst creates a new endpoint handler.
*/
func SwaggerEndpointInst() RestEndpointHandler {
	return &swaggerEndpoint{}
}

/*
Handler object for swagger operations.
*/
type swaggerEndpoint struct {
	*DefaultEndpointHandler
}

/*
HandleGET returns the swagger definition of the REST API.
*/
func (a *swaggerEndpoint) HandleGET(w http.ResponseWriter, r *http.Request, resources []string) {
	data := map[string]interface{}{
		"swagger":     "2.0",
		"host":        APIHost,
		"schemes":     APISchemes,
		"basePath":    APIRoot,
		"produces":    []string{"application/json"},
		"paths":       map[string]interface{}{},
		"definitions": swaggerDefinitions(),
	}

	a.SwaggerDefs(data)

	for _, inst := range registered {
		inst().SwaggerDefs(data)
	}

	w.Header().Set("content-type", "application/json; charset=utf-8")

	json.NewEncoder(w).Encode(data)
}

/*
SwaggerDefs is used to describe the endpoint in swagger.
*/
func (a *swaggerEndpoint) SwaggerDefs(s map[string]interface{}) {
	s["info"] = map[string]interface{}{
		"title":       "CMDB API",
		"description": "Query the CMDB graph and call its functions.",
		"version":     APIVersion,
	}
}

/*
swaggerDefinitions returns the object definitions which are shared by all endpoints.
*/
func swaggerDefinitions() map[string]interface{} {
	str := func(description string) map[string]interface{} {
		return map[string]interface{}{"description": description, "type": "string"}
	}

	return map[string]interface{}{
		"Error": str("A human readable error message."),
		"Result": map[string]interface{}{
			"description": "Aggregated result of a function call.",
			"type":        "object",
			"properties": map[string]interface{}{
				"key":      str("Key of the call."),
				"topic":    str("Egress topic of the result."),
				"complete": map[string]interface{}{"description": "True if no sub-operation failed.", "type": "boolean"},
				"errors": map[string]interface{}{
					"description": "Errors of all failed sub-operations.",
					"type":        "array",
					"items":       str("Error message."),
				},
			},
		},
		"Element": map[string]interface{}{
			"description": "Element of a query result.",
			"type":        "object",
			"properties": map[string]interface{}{
				"id":       str("Entity id."),
				"key":      str("Path key of the entity."),
				"type":     str("Id of the type of the entity."),
				"link":     str("Id of the link which leads to the entity."),
				"document": map[string]interface{}{"description": "The document of the entity.", "type": "object"},
			},
		},
	}
}

/*
SwaggerPath adds a path with a single operation to a swagger definition. The
schema is a reference to a shared definition (empty for none).
*/
func SwaggerPath(s map[string]interface{}, path string, method string, summary string,
	description string, schema string, params ...map[string]interface{}) {

	ok := map[string]interface{}{
		"description": "Successful operation.",
	}

	if schema != "" {
		ok["schema"] = map[string]interface{}{"$ref": "#/definitions/" + schema}
	}

	op := map[string]interface{}{
		"summary":     summary,
		"description": description,
		"produces": []string{
			"text/plain",
			"application/json",
		},
		"responses": map[string]interface{}{
			"200": ok,
			"default": map[string]interface{}{
				"description": "Error response",
				"schema":      map[string]interface{}{"$ref": "#/definitions/Error"},
			},
		},
	}

	if len(params) > 0 {
		op["parameters"] = params
	}

	paths := s["paths"].(map[string]interface{})

	if p, ok := paths[path]; ok {
		p.(map[string]interface{})[method] = op
	} else {
		paths[path] = map[string]interface{}{method: op}
	}
}

/*
SwaggerParam creates a swagger parameter definition.
*/
func SwaggerParam(name string, in string, description string, required bool) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          in,
		"description": description,
		"required":    required,
		"type":        "string",
	}
}
