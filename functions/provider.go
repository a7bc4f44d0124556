/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package functions

import (
	"time"

	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/cmdb"
)

/*
Provider registers functions on an actor runtime.
*/
type Provider struct {
	rt           *actor.Runtime
	cmdb         *cmdb.Cmdb
	replyTimeout time.Duration
}

/*
NewProvider creates a new function provider. Sub-operations which do not
reply within the reply timeout are reaped if a reaper runs (0 for no timeout).
*/
func NewProvider(rt *actor.Runtime, c *cmdb.Cmdb, replyTimeout time.Duration) *Provider {
	return &Provider{rt, c, replyTimeout}
}

/*
Cmdb returns the mutation engine of the provided functions.
*/
func (p *Provider) Cmdb() *cmdb.Cmdb {
	return p.cmdb
}

/*
Register registers a handler as function.
*/
func (p *Provider) Register(ft actor.FunctionType, handler Handler, entity EntityContext) {
	p.rt.Register(ft, NewBase(ft, p.cmdb, handler, entity, p.replyTimeout))
}

/*
RegisterSystemFunctions registers all system and trigger functions.
*/
func (p *Provider) RegisterSystemFunctions() {
	p.Register(cmdb.FunctionTypes, &Types{}, ObjectContext)
	p.Register(cmdb.FunctionObjects, &Objects{}, ObjectContext)
	p.Register(cmdb.FunctionLinks, &Links{}, ObjectContext)
	p.Register(cmdb.FunctionAdvancedLinks, &AdvancedLinks{}, LinkContext)
	p.Register(cmdb.FunctionRegister, &Register{}, NoContext)
	p.Register(cmdb.FunctionRouter, &Router{}, NoContext)

	p.Register(cmdb.FunctionObjectTrigger, &ObjectTrigger{}, NoContext)
	p.Register(cmdb.FunctionTypeTrigger, &TypeTrigger{}, ObjectContext)
	p.Register(cmdb.FunctionLinkTrigger, &LinkTrigger{}, NoContext)

	p.rt.Register(cmdb.FunctionLog, actor.FunctionFunc(Log))
}
