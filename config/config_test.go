/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"testing"
)

const testconf = "testconfig"

func TestConfig(t *testing.T) {

	Config = nil

	ioutil.WriteFile(testconf, []byte(`{
    "EnableScripts": true,
    "ReplyTimeout": 2000
}`), 0644)

	defer func() {
		if err := os.Remove(testconf); err != nil {
			fmt.Print("Could not remove test config file:", err.Error())
		}
	}()

	if err := LoadConfigFile(testconf); err != nil {
		t.Error(err)
		return
	}

	if res := Str(EnableScripts); res != "true" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Bool(EnableScripts); !res {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Int(ReplyTimeout); res != 2000 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Int(HTTPPort); fmt.Sprint(res) != DefaultConfig[HTTPPort] {
		t.Error("Unexpected result:", res)
		return
	}

	LoadDefaultConfig()

	if res := Str(EnableScripts); res != "false" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Int(WorkerCount); res != 8 {
		t.Error("Unexpected result:", res)
		return
	}

	Config[HTTPPort] = "123"

	if res := Int(HTTPPort); fmt.Sprint(res) == DefaultConfig[HTTPPort] {
		t.Error("Unexpected result:", res)
		return
	}

	if DefaultConfig[HTTPPort] != "9090" {
		t.Error("Default config was changed")
		return
	}
}
