/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package util

import (
	"errors"
	"fmt"
	"testing"
)

func TestGraphError(t *testing.T) {

	err := &GraphError{ErrAlreadyLink, "system/root -> foo"}

	if err.Error() != "GraphError: Link already exists (system/root -> foo)" {
		t.Error("Unexpected result:", err)
		return
	}

	err = NewGraphError(ErrNotFound, "")

	if err.Error() != "GraphError: Entity not found" {
		t.Error("Unexpected result:", err)
		return
	}

	if !errors.Is(err, ErrNotFound) {
		t.Error("GraphError should unwrap to its type")
		return
	}

	wrapped := fmt.Errorf("while reading: %w", err)

	if !IsNotFound(wrapped) || IsConflict(wrapped) {
		t.Error("Unexpected classification of wrapped error:", wrapped)
		return
	}
}

func TestErrorClasses(t *testing.T) {

	if !IsConflict(NewGraphError(ErrAlreadyTrigger, "")) || !IsConflict(NewGraphError(ErrAlreadyLink, "")) {
		t.Error("Conflicts not detected")
		return
	}

	if !IsUnknown(NewGraphError(ErrUnknownMethod, "FOO")) || !IsUnknown(NewGraphError(ErrUnknownID, "x")) {
		t.Error("Unknown errors not detected")
		return
	}

	if !IsPayload(NewGraphError(ErrPayloadNotFound, "")) || IsPayload(NewGraphError(ErrNoLink, "")) {
		t.Error("Payload errors not detected")
		return
	}

	if !IsNotFound(NewGraphError(ErrTriggerNotFound, "")) {
		t.Error("Missing trigger should be a not-found error")
		return
	}
}
