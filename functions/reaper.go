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
	"fmt"
	"time"

	"devt.de/krotik/common/timeutil"
	"github.com/vmihailenco/msgpack/v5"

	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/graph/util"
)

/*
Reaper completes sub-operations which did not reply before their deadline.
The owner of an expired sub-operation receives an incomplete result with a
timeout error. The deadline entry is taken out of the state store before
the result is sent so every sub-operation is reaped at most once.
*/
type Reaper struct {
	rt       *actor.Runtime
	interval int              // Sweep interval in seconds
	cron     *timeutil.Cron   // Cron which runs the sweeps
	Now      func() time.Time // Clock of the reaper
}

/*
NewReaper creates a new reaper which sweeps every interval seconds.
*/
func NewReaper(rt *actor.Runtime, interval int) *Reaper {
	if interval < 1 {
		interval = 1
	}

	return &Reaper{rt, interval, nil, time.Now}
}

/*
Start starts the sweeps.
*/
func (r *Reaper) Start() error {
	spec := fmt.Sprintf("*%%%v * * * * *", r.interval)

	if r.interval >= 60 {
		spec = fmt.Sprintf("0 *%%%v * * * *", r.interval/60)
	}

	cron := timeutil.NewCron()

	if err := cron.Register(spec, func() {
		if n := r.Sweep(); n > 0 {
			logger.Info("Reaper: ", n, " sub-operations timed out")
		}
	}); err != nil {
		return err
	}

	cron.Start()
	r.cron = cron

	return nil
}

/*
Stop stops the sweeps.
*/
func (r *Reaper) Stop() {
	if r.cron != nil {
		r.cron.Stop()
		r.cron = nil
	}
}

/*
Sweep reaps all expired sub-operations. Returns the number of reaped
sub-operations.
*/
func (r *Reaper) Sweep() int {
	type expired struct {
		addr actor.Address
		key  string
	}

	var candidates []expired
	var count int

	store := r.rt.Store()
	now := r.Now().UnixNano() / int64(time.Millisecond)

	err := store.Scan(DeadlineTable, func(addr actor.Address, key string, value []byte) bool {
		var deadline int64

		if err := msgpack.Unmarshal(value, &deadline); err != nil {
			logger.Error("Reaper: invalid deadline of ", addr, " ", key, ": ", err)
		} else if deadline <= now {
			candidates = append(candidates, expired{addr, key})
		}

		return true
	})

	if err != nil {
		logger.Error("Reaper: could not scan deadlines: ", err)
		return 0
	}

	for _, c := range candidates {

		// The owner may have received the result since the scan

		_, ok, err := store.Take(c.addr, DeadlineTable, c.key)
		if err != nil {
			logger.Error("Reaper: could not take deadline of ", c.addr, " ", c.key, ": ", err)
			continue
		} else if !ok {
			continue
		}

		res := &actor.FunctionResult{
			Complete: false,
			Errors: []string{(&util.GraphError{Type: util.ErrTimeout,
				Detail: fmt.Sprintf("no reply for %v", c.key)}).Error()},
			Reply: &actor.ReplyResult{Key: c.key},
		}

		msg, err := actor.NewResultMessage(c.addr, nil, res)
		if err != nil {
			logger.Error("Reaper: ", err)
			continue
		}

		logger.Debug("Reaper: sub-operation ", c.key, " of ", c.addr, " timed out")

		r.rt.Send(msg)
		count++
	}

	return count
}
