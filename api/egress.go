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
	"fmt"
	"time"

	"devt.de/krotik/common/datautil"
	"devt.de/krotik/common/flowutil"

	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/graph"
	"devt.de/krotik/cmdb/graph/data"
)

/*
Events which are posted by the egress
*/
const (
	EventResult = "cmdb.result" // An aggregated result was delivered
	EventChange = "cmdb.change" // The graph was changed
)

/*
Result is an aggregated result of a call which was sent through the REST API.
*/
type Result struct {
	Key      string   `json:"key"`
	Topic    string   `json:"topic"`
	Complete bool     `json:"complete"`
	Errors   []string `json:"errors"`
}

/*
Change is a change of the graph.
*/
type Change struct {
	Event  string      `json:"event"`
	ID     string      `json:"id"`
	Entity interface{} `json:"entity"`
}

/*
Subscriber receives all posted results and changes.
*/
type Subscriber func(event string, payload interface{})

/*
Egress receives the results which leave the actor runtime. Results are kept
in a cache for polling clients and are posted to all waiting handlers and
subscribers.
*/
type Egress struct {
	results     *datautil.MapCache  // Cache of delivered results
	subscribers *datautil.MapCache  // Registered subscribers
	pump        *flowutil.EventPump // Event pump for results and changes
}

/*
NewEgress creates a new egress. The result cache holds at most size results
for at most maxAge seconds (0 for no limit).
*/
func NewEgress(size uint64, maxAge int64) *Egress {
	e := &Egress{
		results:     datautil.NewMapCache(size, maxAge),
		subscribers: datautil.NewMapCache(0, 0),
		pump:        flowutil.NewEventPump(),
	}

	e.pump.AddObserver(EventResult, nil, e.broadcast)
	e.pump.AddObserver(EventChange, nil, e.broadcast)

	return e
}

/*
Emit records an aggregated result.
*/
func (e *Egress) Emit(topic string, key string, value []byte) {
	fr, err := actor.DecodeFunctionResult(value)
	if err != nil {
		Logger.Error("Could not decode result ", key, ": ", err)
		return
	}

	res := &Result{Key: key, Topic: topic, Complete: fr.Complete, Errors: fr.Errors}
	if res.Errors == nil {
		res.Errors = []string{}
	}

	e.results.Put(key, res)

	Logger.Debug("Result ", key, " on ", topic, " complete: ", res.Complete)

	e.pump.PostEvent(resultEvent(key), res)
	e.pump.PostEvent(EventResult, res)
}

/*
Result returns a cached result.
*/
func (e *Egress) Result(key string) (*Result, bool) {
	if res, ok := e.results.Get(key); ok {
		return res.(*Result), true
	}

	return nil, false
}

/*
Wait waits for the result of a key. Returns false if the result did not
arrive within the timeout.
*/
func (e *Egress) Wait(key string, timeout time.Duration) (*Result, bool) {
	c := make(chan *Result, 1)
	event := resultEvent(key)

	e.pump.AddObserver(event, nil, func(event string, source interface{}) {
		select {
		case c <- source.(*Result):
		default:
		}
	})
	defer e.pump.RemoveObservers(event, nil)

	// The result may have arrived before the observer was added

	if res, ok := e.Result(key); ok {
		return res, true
	}

	select {
	case res := <-c:
		return res, true
	case <-time.After(timeout):
	}

	return e.Result(key)
}

/*
Subscribe registers a subscriber under an id.
*/
func (e *Egress) Subscribe(id string, s Subscriber) {
	e.subscribers.Put(id, s)
}

/*
Unsubscribe removes a subscriber.
*/
func (e *Egress) Unsubscribe(id string) {
	e.subscribers.Remove(id)
}

/*
broadcast sends a posted event to all subscribers.
*/
func (e *Egress) broadcast(event string, source interface{}) {
	for _, s := range e.subscribers.GetAll() {
		s.(Subscriber)(event, source)
	}
}

/*
ChangeRule returns a graph rule which posts all graph changes.
*/
func (e *Egress) ChangeRule() graph.Rule {
	return &changeRule{e}
}

/*
resultEvent returns the event of a single result.
*/
func resultEvent(key string) string {
	return fmt.Sprintf("%v.%v", EventResult, key)
}

/*
changeRule is a graph rule which posts every graph change to the egress.
*/
type changeRule struct {
	egress *Egress
}

/*
Name returns the name of the rule.
*/
func (r *changeRule) Name() string {
	return "api.changes"
}

/*
Handles returns a list of events which are handled by this rule.
*/
func (r *changeRule) Handles() []int {
	return []int{graph.EventDocumentCreated, graph.EventDocumentUpdated, graph.EventDocumentDeleted,
		graph.EventLinkCreated, graph.EventLinkUpdated, graph.EventLinkDeleted}
}

/*
Handle handles an event.
*/
func (r *changeRule) Handle(gm *graph.Manager, event int, ed ...interface{}) error {
	c := &Change{Event: graph.EventNames[event]}

	switch obj := ed[0].(type) {
	case *data.Document:
		c.ID, c.Entity = obj.ID(), obj
	case *data.Link:
		c.ID, c.Entity = obj.ID(), obj
	default:
		return nil
	}

	r.egress.pump.PostEvent(EventChange, c)

	return nil
}
