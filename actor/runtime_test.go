/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package actor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	counterType = FunctionType{"test", "counter"}
	echoType    = FunctionType{"test", "echo"}
)

func TestMessageEncoding(t *testing.T) {
	call := &Call{FunctionType: echoType, ID: "a", Value: []byte("x"),
		Reply: &ReplyResult{Key: "k", Namespace: "test", Type: "counter", ID: "b"}}

	caller := NewAddress(counterType, "b")

	msg, err := NewCallMessage(&caller, call)
	require.NoError(t, err)
	assert.Equal(t, NewAddress(echoType, "a"), msg.Target)
	assert.Equal(t, "Message [test/counter@b -> test/echo@a cmdb/call]", msg.String())

	res, err := msg.DecodeCall()
	require.NoError(t, err)
	assert.Equal(t, call, res)
	assert.Equal(t, caller, res.Reply.Address())

	_, err = msg.DecodeResult()
	assert.Error(t, err)

	msg, err = NewResultMessage(caller, nil, &FunctionResult{Complete: false, Errors: []string{"e"}})
	require.NoError(t, err)

	fr, err := msg.DecodeResult()
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, fr.Errors)

	fr, err = DecodeFunctionResult(msg.Value)
	require.NoError(t, err)
	assert.False(t, fr.Complete)
}

func TestPerAddressSerialization(t *testing.T) {
	rt := NewRuntime(NewMemoryStateStore(), nil, 8)

	var running int32
	var overlap int32

	var lock sync.Mutex
	order := make(map[string][]string)

	rt.Register(counterType, FunctionFunc(func(ctx Context, msg *Message) {
		if atomic.AddInt32(&running, 1) > 1 {
			atomic.StoreInt32(&overlap, 1)
		}
		time.Sleep(time.Millisecond)

		call, err := msg.DecodeCall()
		require.NoError(t, err)

		var n int
		tab := ctx.Table("state")
		tab.Get("count", &n)
		tab.Set("count", n+1)

		lock.Lock()
		order[ctx.Self().ID] = append(order[ctx.Self().ID], string(call.Value))
		lock.Unlock()

		atomic.AddInt32(&running, -1)
	}))

	for i := 0; i < 20; i++ {
		rt.Ingress(&Call{FunctionType: counterType, ID: "a", Value: []byte(fmt.Sprint(i))})
	}

	rt.WaitIdle()

	assert.Equal(t, int32(0), overlap)

	var n int
	ok, err := NewTable(rt.Store(), NewAddress(counterType, "a"), "state").Get("count", &n)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 20, n)

	// Messages to one address are processed in order

	for i, v := range order["a"] {
		assert.Equal(t, fmt.Sprint(i), v)
	}
}

func TestConcurrencyAcrossAddresses(t *testing.T) {
	rt := NewRuntime(NewMemoryStateStore(), nil, 4)

	release := make(chan bool)
	started := make(chan bool, 4)

	rt.Register(counterType, FunctionFunc(func(ctx Context, msg *Message) {
		started <- true
		<-release
	}))

	for i := 0; i < 4; i++ {
		rt.Ingress(&Call{FunctionType: counterType, ID: fmt.Sprint(i)})
	}

	// All four addresses run at the same time

	for i := 0; i < 4; i++ {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("addresses did not run concurrently")
		}
	}

	close(release)
	rt.WaitIdle()
}

func TestSendAndEgress(t *testing.T) {
	egress := NewChannelEgress(10)
	rt := NewRuntime(NewMemoryStateStore(), egress, 2)

	rt.Register(echoType, FunctionFunc(func(ctx Context, msg *Message) {
		call, _ := msg.DecodeCall()
		out, _ := NewResultMessage(call.Reply.Address(), nil, &FunctionResult{Complete: true, Reply: call.Reply})
		ctx.Send(out.Target, out.Typename, out.Value)
	}))

	rt.Register(counterType, FunctionFunc(func(ctx Context, msg *Message) {
		if msg.Typename == MessageTypename {
			assert.Nil(t, ctx.Caller())

			call, _ := msg.DecodeCall()
			ctx.Table("calls").Set("k1", call.Reply)

			out, _ := NewCallMessage(nil, &Call{FunctionType: echoType, ID: "e",
				Reply: &ReplyResult{Key: "k1", Namespace: counterType.Namespace, Type: counterType.Type, ID: ctx.Self().ID}})
			ctx.Send(out.Target, out.Typename, out.Value)
			return
		}

		assert.Equal(t, NewAddress(echoType, "e"), *ctx.Caller())

		res, _ := msg.DecodeResult()

		var reply ReplyResult
		ok, _ := ctx.Table("calls").Take(res.Reply.Key, &reply)
		assert.True(t, ok)

		ctx.Egress(reply.Topic, reply.Key, msg.Value)
	}))

	rt.Ingress(&Call{FunctionType: counterType, ID: "c", Reply: &ReplyResult{Key: "root", Topic: "out"}})
	rt.WaitIdle()

	records := egress.Drain()
	require.Len(t, records, 1)
	assert.Equal(t, "out", records[0].Topic)
	assert.Equal(t, "root", records[0].Key)

	fr, err := DecodeFunctionResult(records[0].Value)
	require.NoError(t, err)
	assert.True(t, fr.Complete)
}

func TestUnknownFunctionType(t *testing.T) {
	egress := NewChannelEgress(10)
	rt := NewRuntime(NewMemoryStateStore(), egress, 2)

	var results []*FunctionResult
	var lock sync.Mutex

	rt.Register(counterType, FunctionFunc(func(ctx Context, msg *Message) {
		if msg.Typename == ResultTypename {
			res, _ := msg.DecodeResult()
			lock.Lock()
			results = append(results, res)
			lock.Unlock()
			return
		}
		out, _ := NewCallMessage(nil, &Call{FunctionType: FunctionType{"x", "y"}, ID: "1",
			Reply: &ReplyResult{Key: "k", Namespace: "test", Type: "counter", ID: "c"}})
		ctx.Send(out.Target, out.Typename, out.Value)
	}))

	// Ingress calls get their error through the egress

	rt.Ingress(&Call{FunctionType: FunctionType{"x", "y"}, ID: "1", Reply: &ReplyResult{Key: "r", Topic: "api"}})

	// Calls from other functions get an error result

	rt.Ingress(&Call{FunctionType: counterType, ID: "c"})

	// Calls without reply are dropped

	rt.Ingress(&Call{FunctionType: FunctionType{"x", "y"}, ID: "2"})

	rt.WaitIdle()

	records := egress.Drain()
	require.Len(t, records, 1)
	fr, _ := DecodeFunctionResult(records[0].Value)
	assert.False(t, fr.Complete)
	assert.Contains(t, fr.Errors[0], "Unknown function type: x/y")

	require.Len(t, results, 1)
	assert.Equal(t, "k", results[0].Reply.Key)
	assert.False(t, results[0].Complete)

	assert.True(t, rt.IsRegistered(counterType))
	assert.False(t, rt.IsRegistered(FunctionType{"x", "y"}))
	assert.Equal(t, []FunctionType{counterType}, rt.FunctionTypes())
}

func TestPanicRecovery(t *testing.T) {
	rt := NewRuntime(NewMemoryStateStore(), nil, 1)

	var calls int32

	rt.Register(counterType, FunctionFunc(func(ctx Context, msg *Message) {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("boom")
		}
	}))

	rt.Ingress(&Call{FunctionType: counterType, ID: "a"})
	rt.Ingress(&Call{FunctionType: counterType, ID: "a"})
	rt.WaitIdle()

	assert.Equal(t, int32(2), calls)

	rt.Shutdown()
	rt.Ingress(&Call{FunctionType: counterType, ID: "a"})
	rt.WaitIdle()

	assert.Equal(t, int32(2), calls)
	assert.True(t, rt.IsRegistered(counterType))
	assert.False(t, rt.IsRegistered(echoType))
}
