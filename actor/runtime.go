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
	"runtime/debug"
	"sort"
	"sync"

	"devt.de/krotik/common/logutil"
)

/*
logger is the logger of the actor runtime
*/
var logger = logutil.GetLogger("cmdb.actor")

/*
DefaultWorkerCount is the default number of concurrently running invocations
*/
const DefaultWorkerCount = 4

/*
Function is a function implementation. A function instance is invoked with
one message at a time.
*/
type Function interface {

	/*
		Invoke processes a message.
	*/
	Invoke(ctx Context, msg *Message)
}

/*
FunctionFunc is an adapter to use an ordinary function as a Function.
*/
type FunctionFunc func(ctx Context, msg *Message)

/*
Invoke calls f(ctx, msg).
*/
func (f FunctionFunc) Invoke(ctx Context, msg *Message) {
	f(ctx, msg)
}

/*
Context is the context of a single invocation.
*/
type Context interface {

	/*
		Self returns the address of the invoked function.
	*/
	Self() Address

	/*
		Caller returns the address of the sender or nil for ingress messages.
	*/
	Caller() *Address

	/*
		Send sends a message to another address. The invoked function is the caller.
	*/
	Send(target Address, typename string, value []byte)

	/*
		Egress emits a record to an egress topic.
	*/
	Egress(topic string, key string, value []byte)

	/*
		Table returns a state table of the invoked function.
	*/
	Table(name string) *Table
}

/*
mailbox holds the pending messages of an address.
*/
type mailbox struct {
	queue   []*Message
	running bool
}

/*
Runtime delivers messages to function instances.
*/
type Runtime struct {
	functions map[FunctionType]Function // Registered functions
	store     StateStore                // State of all addresses
	egress    Egress                    // Egress for results which leave the runtime

	lock      *sync.Mutex           // Lock for mailboxes and counters
	mailboxes map[Address]*mailbox  // Pending messages per address
	slots     chan struct{}         // Worker slots
	pending   int                   // Number of queued or running messages
	idle      *sync.Cond            // Condition which signals pending == 0
	sendHook  func(msg *Message)    // Hook which is called for every sent message
	funcLock  *sync.RWMutex         // Lock for function map
	closed    bool                  // Flag if the runtime no longer accepts messages
}

/*
NewRuntime creates a new runtime.
*/
func NewRuntime(store StateStore, egress Egress, workerCount int) *Runtime {
	if workerCount < 1 {
		workerCount = DefaultWorkerCount
	}
	if egress == nil {
		egress = NullEgress{}
	}

	lock := &sync.Mutex{}

	return &Runtime{
		functions: make(map[FunctionType]Function),
		store:     store,
		egress:    egress,
		lock:      lock,
		mailboxes: make(map[Address]*mailbox),
		slots:     make(chan struct{}, workerCount),
		idle:      sync.NewCond(lock),
		funcLock:  &sync.RWMutex{},
	}
}

/*
Register registers a function implementation for a function type.
*/
func (rt *Runtime) Register(ft FunctionType, f Function) {
	rt.funcLock.Lock()
	defer rt.funcLock.Unlock()

	rt.functions[ft] = f
}

/*
IsRegistered checks if a function type has an implementation.
*/
func (rt *Runtime) IsRegistered(ft FunctionType) bool {
	rt.funcLock.RLock()
	defer rt.funcLock.RUnlock()

	_, ok := rt.functions[ft]
	return ok
}

/*
FunctionTypes returns all registered function types sorted by namespace and type.
*/
func (rt *Runtime) FunctionTypes() []FunctionType {
	rt.funcLock.RLock()
	defer rt.funcLock.RUnlock()

	res := make([]FunctionType, 0, len(rt.functions))
	for ft := range rt.functions {
		res = append(res, ft)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].String() < res[j].String()
	})

	return res
}

/*
Store returns the state store of this runtime.
*/
func (rt *Runtime) Store() StateStore {
	return rt.store
}

/*
SetEgress sets the egress of this runtime.
*/
func (rt *Runtime) SetEgress(egress Egress) {
	rt.lock.Lock()
	defer rt.lock.Unlock()

	rt.egress = egress
}

/*
SetSendHook sets a hook which observes every sent message (used for tracing).
*/
func (rt *Runtime) SetSendHook(hook func(msg *Message)) {
	rt.lock.Lock()
	defer rt.lock.Unlock()

	rt.sendHook = hook
}

/*
Ingress sends a call from outside the runtime (no caller).
*/
func (rt *Runtime) Ingress(call *Call) error {
	msg, err := NewCallMessage(nil, call)
	if err == nil {
		rt.Send(msg)
	}
	return err
}

/*
Send queues a message for its target address.
*/
func (rt *Runtime) Send(msg *Message) {
	rt.lock.Lock()
	defer rt.lock.Unlock()

	if rt.closed {
		logger.Warning("Dropping message after shutdown: ", msg)
		return
	}

	if rt.sendHook != nil {
		rt.sendHook(msg)
	}

	mb, ok := rt.mailboxes[msg.Target]
	if !ok {
		mb = &mailbox{}
		rt.mailboxes[msg.Target] = mb
	}

	mb.queue = append(mb.queue, msg)
	rt.pending++

	if !mb.running {
		mb.running = true
		go rt.drain(msg.Target)
	}
}

/*
WaitIdle blocks until no message is queued or running.
*/
func (rt *Runtime) WaitIdle() {
	rt.lock.Lock()
	defer rt.lock.Unlock()

	for rt.pending > 0 {
		rt.idle.Wait()
	}
}

/*
Shutdown stops accepting new messages and waits until all pending messages
have been processed.
*/
func (rt *Runtime) Shutdown() {
	rt.WaitIdle()

	rt.lock.Lock()
	rt.closed = true
	rt.lock.Unlock()
}

/*
drain processes the messages of an address one by one. Each message
occupies a worker slot while it runs.
*/
func (rt *Runtime) drain(addr Address) {
	for {
		rt.slots <- struct{}{}

		rt.lock.Lock()
		mb := rt.mailboxes[addr]

		if len(mb.queue) == 0 {
			mb.running = false
			delete(rt.mailboxes, addr)
			rt.lock.Unlock()
			<-rt.slots
			return
		}

		msg := mb.queue[0]
		mb.queue[0] = nil
		mb.queue = mb.queue[1:]
		rt.lock.Unlock()

		rt.invoke(msg)

		<-rt.slots

		rt.lock.Lock()
		rt.pending--
		if rt.pending == 0 {
			rt.idle.Broadcast()
		}
		rt.lock.Unlock()
	}
}

/*
invoke runs a single message.
*/
func (rt *Runtime) invoke(msg *Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("Function %v panicked: %v\n%s", msg.Target, r, debug.Stack()))
		}
	}()

	rt.funcLock.RLock()
	f, ok := rt.functions[msg.Target.FunctionType]
	rt.funcLock.RUnlock()

	if !ok {
		rt.rejectUnknown(msg)
		return
	}

	f.Invoke(&invocationContext{rt, msg.Target, msg.Caller}, msg)
}

/*
rejectUnknown handles a message for an unregistered function type. Calls
which expect a reply get an incomplete result so the waiting operation
can finish.
*/
func (rt *Runtime) rejectUnknown(msg *Message) {
	detail := fmt.Sprintf("Unknown function type: %v", msg.Target.FunctionType)

	logger.Error(detail, " (", msg, ")")

	if msg.Typename != MessageTypename {
		return
	}

	call, err := msg.DecodeCall()
	if err != nil || call.Reply == nil {
		return
	}

	res := &FunctionResult{Complete: false, Errors: []string{detail}, Reply: call.Reply}

	if msg.Caller == nil {
		if out, err := NewResultMessage(Address{}, nil, res); err == nil {
			rt.lock.Lock()
			egress := rt.egress
			rt.lock.Unlock()
			egress.Emit(call.Reply.Topic, call.Reply.Key, out.Value)
		}
		return
	}

	if out, err := NewResultMessage(call.Reply.Address(), &msg.Target, res); err == nil {
		rt.Send(out)
	}
}

/*
invocationContext is the Context implementation of the runtime.
*/
type invocationContext struct {
	rt     *Runtime
	self   Address
	caller *Address
}

func (ic *invocationContext) Self() Address {
	return ic.self
}

func (ic *invocationContext) Caller() *Address {
	return ic.caller
}

func (ic *invocationContext) Send(target Address, typename string, value []byte) {
	self := ic.self
	ic.rt.Send(&Message{target, &self, typename, value})
}

func (ic *invocationContext) Egress(topic string, key string, value []byte) {
	ic.rt.lock.Lock()
	egress := ic.rt.egress
	ic.rt.lock.Unlock()

	egress.Emit(topic, key, value)
}

func (ic *invocationContext) Table(name string) *Table {
	return NewTable(ic.rt.store, ic.self, name)
}
