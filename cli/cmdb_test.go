/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devt.de/krotik/cmdb/cmdb"
	"devt.de/krotik/cmdb/config"
)

type request struct {
	method string
	uri    string
	body   string
}

/*
startFakeServer starts a server which records all requests and answers
with a fixed status.
*/
func startFakeServer(t *testing.T, status int, answer string) (string, *[]request) {
	var reqs []request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := ioutil.ReadAll(r.Body)
		reqs = append(reqs, request{r.Method, r.URL.RequestURI(), string(body)})

		w.WriteHeader(status)
		w.Write([]byte(answer))
	}))
	t.Cleanup(srv.Close)

	return strings.TrimPrefix(srv.URL, "http://"), &reqs
}

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer

	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "cmdb", cmd.Use)

	for _, name := range []string{"server", "send", "register", "query", "result"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	host := cmd.PersistentFlags().Lookup("host")
	require.NotNil(t, host)
	assert.Equal(t, "localhost:9090", host.DefValue)
}

func TestSend(t *testing.T) {
	host, reqs := startFakeServer(t, http.StatusOK, `{"key":"k1","complete":true}`)

	out, err := run(t, "--host", host, "send", cmdb.NamespaceInternal, cmdb.TypeTypes, "system/types",
		`{"method": "CREATE", "name": "host"}`, "--wait", "500")
	require.NoError(t, err)
	assert.Equal(t, `{"key":"k1","complete":true}`+"\n", out)

	require.Len(t, *reqs, 1)
	assert.Equal(t, http.MethodPost, (*reqs)[0].method)
	assert.Equal(t, "/cmdb/v1/function/internal/"+cmdb.TypeTypes+"/system/types?wait=500", (*reqs)[0].uri)
	assert.Equal(t, `{"method": "CREATE", "name": "host"}`, (*reqs)[0].body)

	_, err = run(t, "--host", host, "send", "internal", "x", "y", `{"method": `)
	assert.EqualError(t, err, `invalid message JSON: {"method": `)
	assert.Len(t, *reqs, 1)

	_, err = run(t, "--host", host, "send", "internal", "x")
	assert.Error(t, err)
}

func TestRegisterFile(t *testing.T) {
	host, reqs := startFakeServer(t, http.StatusAccepted, `{"key":"k2"}`)

	file := filepath.Join(t.TempDir(), "register.yaml")
	require.NoError(t, ioutil.WriteFile(file, []byte(`
typeMessages:
  - id: system/types
    message:
      method: CREATE
      name: host
objectMessages:
  - id: system/root
    message:
      method: CREATE_CHILD
      type: host
      name: h1
      payload:
        ip: 10.0.0.1
`), 0600))

	out, err := run(t, "--host", host, "register", file)
	require.NoError(t, err)
	assert.Contains(t, out, "k2")

	require.Len(t, *reqs, 1)
	assert.Equal(t, "/cmdb/v1/register/", (*reqs)[0].uri)

	var rm cmdb.RegisterMessage
	require.NoError(t, json.Unmarshal([]byte((*reqs)[0].body), &rm))
	require.Len(t, rm.TypeMessages, 1)
	assert.Equal(t, "host", rm.TypeMessages[0].Message.Name)
	require.Len(t, rm.ObjectMessages, 1)
	assert.JSONEq(t, `{"ip": "10.0.0.1"}`, string(rm.ObjectMessages[0].Message.Payload))

	_, err = run(t, "--host", host, "register", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestQueryAndResult(t *testing.T) {
	host, reqs := startFakeServer(t, http.StatusOK, `[]`)

	out, err := run(t, "--host", host, "query", "*.root", "--filter", `.type == "types/host"`, "--limit", "3")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	require.Len(t, *reqs, 1)
	assert.Equal(t, "/cmdb/v1/query/*.root?filter=.type+%3D%3D+%22types%2Fhost%22&limit=3", (*reqs)[0].uri)

	_, err = run(t, "--host", host, "result", "k1")
	require.NoError(t, err)
	assert.Equal(t, "/cmdb/v1/result/k1", (*reqs)[1].uri)

	// Error responses are returned as errors

	host, _ = startFakeServer(t, http.StatusNotFound, "Unknown result: k1\n")

	_, err = run(t, "--host", host, "result", "k1")
	assert.EqualError(t, err, "404 Not Found: Unknown result: k1")
}

func TestServerCommand(t *testing.T) {
	var started bool

	orig := startServer
	startServer = func() {
		started = true
	}
	defer func() {
		startServer = orig
		config.Config = nil
	}()

	file := filepath.Join(t.TempDir(), "test.config.json")

	_, err := run(t, "server", "--config", file)
	require.NoError(t, err)
	assert.True(t, started)

	// A missing config file is created with the defaults

	assert.Equal(t, "9090", config.Str(config.HTTPPort))

	content, err := ioutil.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), config.HTTPPort)
}
