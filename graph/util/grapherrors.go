/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package util contains utility classes for the graph storage.

GraphError

Models a graph related error. Low-level errors should be wrapped in a GraphError
before they are returned to a client. The Type of a GraphError is one of the
error types below and can be used for equality checks. Error types are grouped
into classes which the functions of the CMDB use to decide how a failure is
handled:

not-found - an entity, link or trigger does not exist

conflict - an entity, link or trigger already exists

unknown - an id has the wrong shape for an operation or a method is not supported

payload - a message payload is empty or malformed
*/
package util

import (
	"errors"
	"fmt"
)

/*
GraphError is a graph related error
*/
type GraphError struct {
	Type   error  // Error type (to be used for equal checks)
	Detail string // Details of this error
}

/*
NewGraphError creates a new GraphError.
*/
func NewGraphError(t error, detail string) *GraphError {
	return &GraphError{t, detail}
}

/*
Error returns a human-readable string representation of this error.
*/
func (ge *GraphError) Error() string {
	if ge.Detail != "" {
		return fmt.Sprintf("GraphError: %v (%v)", ge.Type, ge.Detail)
	}

	return fmt.Sprintf("GraphError: %v", ge.Type)
}

/*
Unwrap returns the error type so errors.Is can be used on a GraphError.
*/
func (ge *GraphError) Unwrap() error {
	return ge.Type
}

/*
Graph storage related error types
*/
var (
	ErrOpening  = errors.New("Failed to open graph storage")
	ErrClosing  = errors.New("Failed to close graph storage")
	ErrReadOnly = errors.New("Failed write to readonly storage")
)

/*
Graph related error types
*/
var (
	ErrInvalidData = errors.New("Invalid data")
	ErrReading     = errors.New("Could not read graph information")
	ErrWriting     = errors.New("Could not write graph information")
	ErrRule        = errors.New("Graph rule error")
)

/*
CMDB related error types
*/
var (
	ErrNotFound        = errors.New("Entity not found")
	ErrNoLink          = errors.New("Link not found")
	ErrTriggerNotFound = errors.New("Trigger not found")
	ErrAlreadyLink     = errors.New("Link already exists")
	ErrAlreadyExists   = errors.New("Entity already exists")
	ErrAlreadyTrigger  = errors.New("Trigger already exists")
	ErrUnknownID       = errors.New("Unknown id")
	ErrUnknownMethod   = errors.New("Unknown method")
	ErrPayloadNotFound = errors.New("Payload not found")
	ErrTimeout         = errors.New("Reply timeout")
)

/*
IsNotFound checks if a given error signals a missing entity, link or trigger.
*/
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoLink) ||
		errors.Is(err, ErrTriggerNotFound)
}

/*
IsConflict checks if a given error signals an existing link or trigger.
*/
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyLink) || errors.Is(err, ErrAlreadyTrigger) ||
		errors.Is(err, ErrAlreadyExists)
}

/*
IsUnknown checks if a given error signals an unsupported id or method.
*/
func IsUnknown(err error) bool {
	return errors.Is(err, ErrUnknownID) || errors.Is(err, ErrUnknownMethod)
}

/*
IsPayload checks if a given error signals an empty or malformed payload.
*/
func IsPayload(err error) bool {
	return errors.Is(err, ErrPayloadNotFound) || errors.Is(err, ErrInvalidData)
}
