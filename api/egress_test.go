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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/graph"
	"devt.de/krotik/cmdb/graph/data"
	"devt.de/krotik/cmdb/graph/graphstorage"
)

func emit(t *testing.T, e *Egress, key string, res *actor.FunctionResult) {
	msg, err := actor.NewResultMessage(actor.Address{}, nil, res)
	require.NoError(t, err)
	e.Emit("api", key, msg.Value)
}

func TestEgress(t *testing.T) {
	e := NewEgress(10, 0)

	var lock sync.Mutex
	var events []string

	e.Subscribe("s1", func(event string, payload interface{}) {
		lock.Lock()
		defer lock.Unlock()

		if r, ok := payload.(*Result); ok {
			events = append(events, event+" "+r.Key)
		}
	})

	_, ok := e.Result("k1")
	assert.False(t, ok)

	emit(t, e, "k1", &actor.FunctionResult{Complete: true})

	res, ok := e.Result("k1")
	require.True(t, ok)
	assert.True(t, res.Complete)
	assert.Equal(t, "api", res.Topic)
	assert.Equal(t, []string{}, res.Errors)

	// Waiting for a result which is already there

	res, ok = e.Wait("k1", time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, "k1", res.Key)

	// Waiting for a result which arrives later

	msg, err := actor.NewResultMessage(actor.Address{}, nil, &actor.FunctionResult{Complete: false, Errors: []string{"err"}})
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		e.Emit("api", "k2", msg.Value)
	}()

	res, ok = e.Wait("k2", 10*time.Second)
	require.True(t, ok)
	assert.False(t, res.Complete)
	assert.Equal(t, []string{"err"}, res.Errors)

	// Waiting for a result which never arrives

	_, ok = e.Wait("k3", 10*time.Millisecond)
	assert.False(t, ok)

	// Undecodable results are dropped

	e.Emit("api", "k4", []byte{0xff})
	_, ok = e.Result("k4")
	assert.False(t, ok)

	e.Unsubscribe("s1")
	emit(t, e, "k5", &actor.FunctionResult{Complete: true})

	lock.Lock()
	assert.Equal(t, []string{EventResult + " k1", EventResult + " k2"}, events)
	lock.Unlock()
}

func TestChangeRule(t *testing.T) {
	e := NewEgress(10, 0)

	var changes []*Change

	e.Subscribe("s1", func(event string, payload interface{}) {
		if c, ok := payload.(*Change); ok {
			assert.Equal(t, EventChange, event)
			changes = append(changes, c)
		}
	})

	gm := graph.NewGraphManager(graphstorage.NewMemoryGraphStorage("test"))
	gm.SetGraphRule(e.ChangeRule())

	doc := data.NewDocument(data.NewRef(data.CollectionTypes, "host"))
	_, err := gm.CreateDocument(doc)
	require.NoError(t, err)

	require.Len(t, changes, 1)
	assert.Equal(t, "document.created", changes[0].Event)
	assert.Equal(t, "types/host", changes[0].ID)
}
