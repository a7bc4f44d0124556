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
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/api"
	"devt.de/krotik/cmdb/cmdb"
	"devt.de/krotik/cmdb/graph/data"
)

/*
TopicAPI is the egress topic of all calls of the REST API
*/
const TopicAPI = "api"

/*
EndpointFunction is the function endpoint URL (rooted). Handles everything under function/...
*/
const EndpointFunction = api.APIRoot + APIv1 + "/function/"

/*
EndpointRegister is the register endpoint URL (rooted). Handles register/
*/
const EndpointRegister = api.APIRoot + APIv1 + "/register/"

/*
FunctionEndpointInst creates a new endpoint handler.
*/
func FunctionEndpointInst() api.RestEndpointHandler {
	return &functionEndpoint{}
}

/*
RegisterEndpointInst creates a new endpoint handler.
*/
func RegisterEndpointInst() api.RestEndpointHandler {
	return &registerEndpoint{}
}

/*
Handler object for function calls.
*/
type functionEndpoint struct {
	*api.DefaultEndpointHandler
}

/*
HandlePOST sends a call to a function.
*/
func (fe *functionEndpoint) HandlePOST(w http.ResponseWriter, r *http.Request, resources []string) {

	if !checkResources(w, resources, 3, -1, "Need a function namespace, a function type and an id") {
		return
	}

	ft := actor.FunctionType{Namespace: resources[0], Type: resources[1]}

	sendCall(w, r, ft, strings.Join(resources[2:], "/"))
}

/*
SwaggerDefs is used to describe the endpoint in swagger.
*/
func (fe *functionEndpoint) SwaggerDefs(s map[string]interface{}) {
	api.SwaggerPath(s, "/v1/function/{namespace}/{type}/{id}", "post", "Call a function.",
		"Sends the JSON message in the body to a function at an id. Returns the key of the aggregated result.", "Result",
		api.SwaggerParam("namespace", "path", "Namespace of the function (e.g. internal or script).", true),
		api.SwaggerParam("type", "path", "Type of the function.", true),
		api.SwaggerParam("id", "path", "Id of the called entity.", true),
		api.SwaggerParam("wait", "query", "Milliseconds to wait for the aggregated result.", false))
}

/*
Handler object for register calls.
*/
type registerEndpoint struct {
	*api.DefaultEndpointHandler
}

/*
HandlePOST sends a batch of registrations to the register function.
*/
func (re *registerEndpoint) HandlePOST(w http.ResponseWriter, r *http.Request, resources []string) {

	if !checkResources(w, resources, 0, 0, "") {
		return
	}

	sendCall(w, r, cmdb.FunctionRegister, data.RootID)
}

/*
SwaggerDefs is used to describe the endpoint in swagger.
*/
func (re *registerEndpoint) SwaggerDefs(s map[string]interface{}) {
	api.SwaggerPath(s, "/v1/register", "post", "Register types, objects and links.",
		"Sends a register message to the register function. Types are processed before objects and objects before links.", "Result",
		api.SwaggerParam("wait", "query", "Milliseconds to wait for the aggregated result.", false))
}

/*
sendCall sends the body of a request as call to a function. The response
holds the key of the aggregated result or the result itself if the client
waits for it.
*/
func sendCall(w http.ResponseWriter, r *http.Request, ft actor.FunctionType, id string) {

	wait, ok := queryParamPosNum(w, r, "wait")
	if !ok {
		return
	}

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Could not read request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	value, err := cmdb.DecodeJSONMessage(ft, body)
	if err != nil {
		writeError(w, err)
		return
	}

	key := uuid.New().String()

	call := &actor.Call{FunctionType: ft, ID: id, Value: value,
		Reply: &actor.ReplyResult{Key: key, Topic: TopicAPI}}

	if err := api.Runtime.Ingress(call); err != nil {
		writeError(w, err)
		return
	}

	api.Logger.Debug("Sent call to ", ft, " at ", id, " (key: ", key, ")")

	if wait > 0 {
		if res, ok := api.Results.Wait(key, time.Duration(wait)*time.Millisecond); ok {
			writeData(w, http.StatusOK, res)
			return
		}
	}

	writeData(w, http.StatusAccepted, map[string]interface{}{
		"key": key,
	})
}
