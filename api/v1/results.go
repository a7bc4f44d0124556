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
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"devt.de/krotik/cmdb/api"
)

/*
EndpointResults is the results endpoint URL (rooted). Handles websockets under results/
*/
const EndpointResults = api.APIRoot + APIv1 + "/results/"

/*
upgrader can upgrade normal requests to websocket communications
*/
var upgrader = websocket.Upgrader{
	Subprotocols:    []string{"cmdb-results"},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

/*
ResultsEndpointInst creates a new endpoint handler.
*/
func ResultsEndpointInst() api.RestEndpointHandler {
	return &resultsEndpoint{}
}

/*
Handler object for the result stream.
*/
type resultsEndpoint struct {
	*api.DefaultEndpointHandler
}

/*
HandleGET streams all results and graph changes to a websocket.
*/
func (re *resultsEndpoint) HandleGET(w http.ResponseWriter, r *http.Request, resources []string) {

	// Update the incomming connection to a websocket
	// If the upgrade fails then the client gets an HTTP error response.

	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {

		// We give details here on what went wrong

		w.Write([]byte(err.Error()))
		return
	}

	wc := NewWebsocketConnection(uuid.New().String(), conn)
	defer wc.Close("")

	wc.Init()

	api.Results.Subscribe(wc.CommID, func(event string, payload interface{}) {
		kind := "change"
		if event == api.EventResult {
			kind = "result"
		}
		wc.WriteData(kind, payload)
	})
	defer api.Results.Unsubscribe(wc.CommID)

	// The stream ends when the client hangs up or sends a close message

	for {
		data, fatal, err := wc.ReadData()

		if err != nil {
			if fatal {
				return
			}
			wc.WriteData("error", err.Error())
			continue
		}

		if _, ok := data["close"]; ok {
			wc.Close("")
			return
		}
	}
}

/*
SwaggerDefs is used to describe the endpoint in swagger.
*/
func (re *resultsEndpoint) SwaggerDefs(s map[string]interface{}) {
	// No swagger definitions for this endpoint as it only handles websocket requests
}

/*
Limits of the outbound frames of a websocket connection
*/
var (
	WebsocketQueueSize    = 256              // Frames which may wait for the writer
	WebsocketWriteTimeout = 10 * time.Second // Time a single frame may take to be written
)

/*
WebsocketConnection models a single websocket connection.

Frames are queued and written by a writer goroutine of the connection so
a slow client never blocks the sender. A client which falls behind by more
than WebsocketQueueSize frames or does not accept a frame within
WebsocketWriteTimeout is disconnected.
*/
type WebsocketConnection struct {
	CommID string
	Conn   *websocket.Conn
	RMutex *sync.Mutex

	out       chan []byte   // Queued frames
	done      chan struct{} // Closed once the connection is closed
	closeOnce *sync.Once
}

/*
NewWebsocketConnection creates a new WebsocketConnection object.
*/
func NewWebsocketConnection(commID string, c *websocket.Conn) *WebsocketConnection {
	return &WebsocketConnection{
		CommID:    commID,
		Conn:      c,
		RMutex:    &sync.Mutex{},
		out:       make(chan []byte, WebsocketQueueSize),
		done:      make(chan struct{}),
		closeOnce: &sync.Once{},
	}
}

/*
Init starts the writer of the connection and sends the init message.
*/
func (wc *WebsocketConnection) Init() {
	wc.queue([]byte(`{"type":"init_success","payload":{}}`))

	go wc.writer()
}

/*
ReadData reads data from the websocket connection.
*/
func (wc *WebsocketConnection) ReadData() (map[string]interface{}, bool, error) {
	var data map[string]interface{}
	var fatal = true

	wc.RMutex.Lock()
	_, msg, err := wc.Conn.ReadMessage()
	wc.RMutex.Unlock()

	if err == nil {
		fatal = false
		err = json.Unmarshal(msg, &data)
	}

	return data, fatal, err
}

/*
WriteData queues data for the websocket. This call never blocks.
*/
func (wc *WebsocketConnection) WriteData(kind string, payload interface{}) {
	jsonData, err := json.Marshal(map[string]interface{}{
		"commID":  wc.CommID,
		"type":    kind,
		"payload": payload,
	})

	if err != nil {
		api.Logger.Error("Could not encode websocket data: ", err)
		return
	}

	wc.queue(jsonData)
}

/*
Done returns a channel which is closed once the connection is closed.
*/
func (wc *WebsocketConnection) Done() <-chan struct{} {
	return wc.done
}

/*
Close closes the websocket connection.
*/
func (wc *WebsocketConnection) Close(msg string) {
	if wc.stop() {
		wc.hangup(msg)
	}
}

/*
stop marks the connection as closed. Returns true for the first caller.
*/
func (wc *WebsocketConnection) stop() bool {
	var first bool

	wc.closeOnce.Do(func() {
		close(wc.done)
		first = true
	})

	return first
}

/*
hangup sends a close message and closes the underlying connection.
*/
func (wc *WebsocketConnection) hangup(msg string) {
	wc.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(
			websocket.CloseNormalClosure, msg), time.Now().Add(WebsocketWriteTimeout))

	wc.Conn.Close()
}

/*
queue adds a frame to the outbound queue. A full queue closes the connection
in the background.
*/
func (wc *WebsocketConnection) queue(frame []byte) {
	select {
	case <-wc.done:
	case wc.out <- frame:
	default:
		if wc.stop() {
			api.Logger.Info("Websocket ", wc.CommID, " is too slow - closing connection")
			go wc.hangup("too slow")
		}
	}
}

/*
writer writes queued frames until the connection is closed.
*/
func (wc *WebsocketConnection) writer() {
	for {
		select {
		case <-wc.done:
			return

		case frame := <-wc.out:
			wc.Conn.SetWriteDeadline(time.Now().Add(WebsocketWriteTimeout))

			if err := wc.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				api.Logger.Debug("Websocket ", wc.CommID, " write failed: ", err)
				wc.Close("")
				return
			}
		}
	}
}
