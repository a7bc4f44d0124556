/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"sort"
	"strings"
	"sync"

	"devt.de/krotik/cmdb/graph/data"
	"devt.de/krotik/cmdb/graph/util"
)

/*
GraphRulesManager data structure
*/
type graphRulesManager struct {
	gm       *Manager                // GraphManager which provides events
	rules    map[string]Rule         // Map of graph rules
	eventMap map[int]map[string]Rule // Map of events to graph rules
	lock     *sync.RWMutex           // Lock for rule maps
}

/*
Rule models a graph rule.
*/
type Rule interface {

	/*
	   Name returns the name of the rule.
	*/
	Name() string

	/*
		Handles returns a list of events which are handled by this rule.
	*/
	Handles() []int

	/*
		Handle handles an event. The written document or link has already
		been applied to the storage.
	*/
	Handle(gm *Manager, event int, data ...interface{}) error
}

/*
graphEvent main event handler which receives all graph related events.
*/
func (gr *graphRulesManager) graphEvent(event int, data ...interface{}) error {
	var errors []string

	gr.lock.RLock()
	rules := make([]Rule, 0, len(gr.eventMap[event]))
	for _, name := range sortedRuleNames(gr.eventMap[event]) {
		rules = append(rules, gr.eventMap[event][name])
	}
	gr.lock.RUnlock()

	for _, rule := range rules {

		// Handle the event

		err := rule.Handle(gr.gm, event, data...)

		if err != nil {
			if err == ErrEventHandled {
				break
			}
			errors = append(errors, err.Error())
		}
	}

	if errors != nil {
		return &util.GraphError{Type: util.ErrRule, Detail: strings.Join(errors, ";")}
	}

	return nil
}

/*
SetGraphRule sets a GraphRule.
*/
func (gr *graphRulesManager) SetGraphRule(rule Rule) {
	gr.lock.Lock()
	defer gr.lock.Unlock()

	gr.rules[rule.Name()] = rule

	for _, handledEvent := range rule.Handles() {

		rules, ok := gr.eventMap[handledEvent]
		if !ok {
			rules = make(map[string]Rule)
			gr.eventMap[handledEvent] = rules
		}

		rules[rule.Name()] = rule
	}
}

/*
RemoveGraphRule removes a GraphRule.
*/
func (gr *graphRulesManager) RemoveGraphRule(name string) {
	gr.lock.Lock()
	defer gr.lock.Unlock()

	delete(gr.rules, name)

	for _, rules := range gr.eventMap {
		delete(rules, name)
	}
}

/*
GraphRules returns a list of all available graph rules.
*/
func (gr *graphRulesManager) GraphRules() []string {
	gr.lock.RLock()
	defer gr.lock.RUnlock()

	return sortedRuleNames(gr.rules)
}

func sortedRuleNames(rules map[string]Rule) []string {
	ret := make([]string, 0, len(rules))

	for rule := range rules {
		ret = append(ret, rule)
	}

	sort.StringSlice(ret).Sort()

	return ret
}

// System rule SystemRuleLogChanges
// ================================

/*
SystemRuleLogChanges is a system rule which logs all graph changes at debug level.
*/
type SystemRuleLogChanges struct {
}

/*
Name returns the name of the rule.
*/
func (r *SystemRuleLogChanges) Name() string {
	return "system.logchanges"
}

/*
Handles returns a list of events which are handled by this rule.
*/
func (r *SystemRuleLogChanges) Handles() []int {
	return []int{EventDocumentCreated, EventDocumentUpdated, EventDocumentDeleted,
		EventLinkCreated, EventLinkUpdated, EventLinkDeleted}
}

/*
Handle handles an event.
*/
func (r *SystemRuleLogChanges) Handle(gm *Manager, event int, ed ...interface{}) error {
	switch obj := ed[0].(type) {
	case *data.Document:
		logger.Debug(EventNames[event], ": ", obj.ID())
	case *data.Link:
		logger.Debug(EventNames[event], ": ", obj.ID(), " (", obj.From, " -> ", obj.To, ")")
	}
	return nil
}
