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
	"errors"
	"time"

	"devt.de/krotik/common/errorutil"
	"github.com/google/uuid"

	"devt.de/krotik/cmdb/actor"
)

/*
Names of the state tables of the reply aggregator
*/
const (
	ReplyTable    = "reply-table"
	ErrorsTable   = "errors-table"
	ResultTable   = "result-table"
	DeadlineTable = "deadline-table"
)

/*
ErrorContainer collects the errors of an operation and all its sub-operations.
*/
type ErrorContainer struct {
	Complete bool     `msgpack:"complete"`
	Errors   []string `msgpack:"errors"`
}

/*
NewErrorContainer creates a new complete error container.
*/
func NewErrorContainer() *ErrorContainer {
	return &ErrorContainer{Complete: true}
}

/*
Append adds an error. The container is no longer complete.
*/
func (ec *ErrorContainer) Append(e string) {
	ec.Complete = false
	ec.Errors = append(ec.Errors, e)
}

/*
AppendAll adds a list of errors.
*/
func (ec *ErrorContainer) AppendAll(errs []string) {
	for _, e := range errs {
		ec.Append(e)
	}
}

/*
ToFunctionResult creates the function result of this container.
*/
func (ec *ErrorContainer) ToFunctionResult(reply *actor.ReplyResult) *actor.FunctionResult {
	return &actor.FunctionResult{Complete: ec.Complete, Errors: ec.Errors, Reply: reply}
}

/*
Err returns all collected errors as a single error or nil if the container
is complete.
*/
func (ec *ErrorContainer) Err() error {
	return ResultError(ec.ToFunctionResult(nil))
}

/*
ResultError returns the errors of a function result as a single error or
nil if the result is complete.
*/
func ResultError(res *actor.FunctionResult) error {
	if res.Complete {
		return nil
	}

	ce := errorutil.NewCompositeError()
	for _, e := range res.Errors {
		ce.Add(errors.New(e))
	}

	return ce
}

/*
Sync correlates the replies of sub-operations with the operation which
started them. All state lives in the tables of the running address so an
operation can span any number of invocations:

reply-table maps an operation key to the reply target of the operation.

errors-table maps an operation key to its error container.

result-table maps the key of each outstanding sub-operation to the key of
its parent operation.

deadline-table maps the key of each outstanding sub-operation to the time
(in milliseconds) after which it is reaped. Only used if a reply timeout is set.
*/
type Sync struct {
	ctx     actor.Context
	topic   string        // Egress topic for replies to the outside
	timeout time.Duration // Reply timeout for sub-operations (0 for none)
	key     string        // Key of the current operation
}

/*
NewSync creates a new reply aggregator for an invocation.
*/
func NewSync(ctx actor.Context, topic string, timeout time.Duration) *Sync {
	return &Sync{ctx: ctx, topic: topic, timeout: timeout}
}

/*
Key returns the key of the current operation.
*/
func (s *Sync) Key() string {
	return s.key
}

/*
OnInit starts a new operation for a call.
*/
func (s *Sync) OnInit(call *actor.Call) error {
	if call.Reply != nil {
		s.key = call.Reply.Key

		reply := *call.Reply
		reply.IsEgress = s.ctx.Caller() == nil

		if err := s.ctx.Table(ReplyTable).Set(s.key, &reply); err != nil {
			return err
		}

	} else {
		s.key = uuid.New().String()
	}

	return s.ctx.Table(ErrorsTable).Set(s.key, NewErrorContainer())
}

/*
ReplyResult returns a reply target for a new sub-operation of the current
operation.
*/
func (s *Sync) ReplyResult() (*actor.ReplyResult, error) {
	child := uuid.New().String()

	if err := s.ctx.Table(ResultTable).Set(child, s.key); err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		deadline := time.Now().Add(s.timeout).UnixNano() / int64(time.Millisecond)

		if err := s.ctx.Table(DeadlineTable).Set(child, deadline); err != nil {
			return nil, err
		}
	}

	self := s.ctx.Self()

	return &actor.ReplyResult{
		Key:       child,
		Namespace: self.Namespace,
		Type:      self.Type,
		ID:        self.ID,
		Topic:     s.topic,
	}, nil
}

/*
OnResult records the result of a sub-operation. Results of unknown
sub-operations (e.g. late replies after a timeout) are ignored.
*/
func (s *Sync) OnResult(res *actor.FunctionResult) error {
	if res.Reply == nil {
		return nil
	}

	var key string

	ok, err := s.ctx.Table(ResultTable).Take(res.Reply.Key, &key)
	if err != nil || !ok {
		if err == nil {
			logger.Debug(s.ctx.Self(), ": ignoring result of unknown sub-operation ", res.Reply.Key)
		}
		return err
	}

	s.key = key

	if err := s.ctx.Table(DeadlineTable).Remove(res.Reply.Key); err != nil {
		return err
	}

	if res.Complete {
		return nil
	}

	return s.update(func(ec *ErrorContainer) {
		ec.AppendAll(res.Errors)
	})
}

/*
OnException records an error of the current operation.
*/
func (s *Sync) OnException(err error) {
	if s.key == "" {
		return
	}

	if uerr := s.update(func(ec *ErrorContainer) {
		ec.Append(err.Error())
	}); uerr != nil {
		logger.Error(s.ctx.Self(), ": could not record error ", err, ": ", uerr)
	}
}

/*
Container returns the error container of the current operation or nil if
there is no running operation.
*/
func (s *Sync) Container() (*ErrorContainer, error) {
	if s.key == "" {
		return nil, nil
	}

	ec := &ErrorContainer{}

	ok, err := s.ctx.Table(ErrorsTable).Get(s.key, ec)
	if err != nil || !ok {
		return nil, err
	}

	return ec, nil
}

/*
OnReply delivers the result of the current operation if no sub-operation
is outstanding. The reply target is taken out of the reply table before
the result is sent so a result is delivered at most once.
*/
func (s *Sync) OnReply() error {
	ec, err := s.Container()
	if err != nil || ec == nil {
		return err
	}

	outstanding, err := s.ctx.Table(ResultTable).ContainsValue(s.key)
	if err != nil || outstanding {
		return err
	}

	if err = s.ctx.Table(ErrorsTable).Remove(s.key); err != nil {
		return err
	}

	reply := &actor.ReplyResult{}

	ok, err := s.ctx.Table(ReplyTable).Take(s.key, reply)
	if err != nil || !ok {
		return err
	}

	res := ec.ToFunctionResult(reply)

	if !reply.IsEgress {
		self := s.ctx.Self()

		msg, err := actor.NewResultMessage(reply.Address(), &self, res)
		if err == nil {
			s.ctx.Send(msg.Target, msg.Typename, msg.Value)
		}

		return err
	}

	msg, err := actor.NewResultMessage(actor.Address{}, nil, res)
	if err == nil {
		s.ctx.Egress(reply.Topic, reply.Key, msg.Value)
	}

	return err
}

func (s *Sync) update(f func(ec *ErrorContainer)) error {
	ec, err := s.Container()
	if err != nil || ec == nil {
		return err
	}

	f(ec)

	return s.ctx.Table(ErrorsTable).Set(s.key, ec)
}
