/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package ecal

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/cmdb"
	"devt.de/krotik/cmdb/ecal/dbfunc"
	"devt.de/krotik/cmdb/functions"
	"devt.de/krotik/cmdb/graph"
	"devt.de/krotik/cmdb/graph/data"
	"devt.de/krotik/cmdb/graph/graphstorage"
	"devt.de/krotik/cmdb/graph/query"
	"devt.de/krotik/cmdb/graph/trigger"
	"devt.de/krotik/cmdb/graph/util"
)

const tagScript = `
doc := cmdb.fetch(id)
cmdb.update(id, {"checked": method, "name": doc._key})
`

const inventoryScript = `
hosts := cmdb.query("*.root", '.type == "types/host"')
for h in hosts {
    cmdb.update(h.id, {"inventory": id})
}
`

const failScript = `
raise("broken")
`

type testEnv struct {
	c      *cmdb.Cmdb
	rt     *actor.Runtime
	egress *actor.ChannelEgress
	si     *ScriptingInterpreter
}

func writeScript(t *testing.T, dir string, name string, content string) {
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name+ScriptSuffix), []byte(content), 0600))
}

func newTestEnv(t *testing.T) *testEnv {
	dir := filepath.Join(t.TempDir(), "scripts")

	c := cmdb.NewCmdb(graph.NewGraphManager(graphstorage.NewMemoryGraphStorage("test")))
	require.NoError(t, c.Bootstrap())

	egress := actor.NewChannelEgress(1000)
	rt := actor.NewRuntime(actor.NewMemoryStateStore(), egress, 4)

	p := functions.NewProvider(rt, c, 0)
	p.RegisterSystemFunctions()

	si := NewScriptingInterpreter(dir, "info", 0)
	require.NoError(t, si.Init())

	writeScript(t, dir, "tag", tagScript)
	writeScript(t, dir, "inventory", inventoryScript)
	writeScript(t, dir, "fail", failScript)

	require.NoError(t, si.Register(p))

	return &testEnv{c, rt, egress, si}
}

func (e *testEnv) call(t *testing.T, ft actor.FunctionType, id string, msg interface{}) *actor.FunctionResult {
	key := uuid.New().String()

	call, err := cmdb.NewCall(ft, id, msg, &actor.ReplyResult{Key: key, Topic: "test"})
	require.NoError(t, err)
	require.NoError(t, e.rt.Ingress(call))

	e.rt.WaitIdle()

	for _, r := range e.egress.Drain() {
		if r.Key == key {
			res, err := actor.DecodeFunctionResult(r.Value)
			require.NoError(t, err)
			return res
		}
	}

	require.Fail(t, "no result")

	return nil
}

func (e *testEnv) mustCall(t *testing.T, ft actor.FunctionType, id string, msg interface{}) {
	res := e.call(t, ft, id, msg)
	require.True(t, res.Complete, "%v", res.Errors)
}

func (e *testEnv) createHost(t *testing.T, name string) string {
	e.mustCall(t, cmdb.FunctionObjects, data.RootID, &cmdb.ObjectMessage{Method: cmdb.MethodCreateChild,
		Type: "host", Name: name, Payload: cmdb.Payload(`{"ip": "10.0.0.1"}`)})

	res, err := query.Evaluate(e.c.Manager(), name+".root", query.Options{})
	require.NoError(t, err)
	require.Len(t, res, 1)

	return res[0].ID
}

func script(name string) actor.FunctionType {
	return actor.FunctionType{Namespace: cmdb.NamespaceScript, Type: name}
}

func TestScripts(t *testing.T) {
	e := newTestEnv(t)

	scripts, err := e.si.Scripts()
	require.NoError(t, err)
	assert.Equal(t, []string{"fail", "inventory", "tag"}, scripts)

	e.mustCall(t, cmdb.FunctionTypes, data.TypesID, &cmdb.TypeMessage{Method: cmdb.MethodCreate, Name: "host"})

	h1 := e.createHost(t, "h1")

	// The script updates the object it runs on

	e.mustCall(t, script("tag"), h1, &cmdb.TypeMessage{Method: cmdb.MethodUpdate})

	doc, err := e.c.ReadDocument(h1)
	require.NoError(t, err)
	assert.Equal(t, doc.Key(), doc.Properties["name"].String())
	assert.Equal(t, "UPDATE", doc.Properties["checked"].String())

	// Errors of sub-operations become part of the script result

	res := e.call(t, script("tag"), data.TypesID, &cmdb.TypeMessage{Method: cmdb.MethodUpdate})
	assert.False(t, res.Complete)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], util.ErrUnknownID.Error())

	// Script errors

	res = e.call(t, script("fail"), h1, nil)
	assert.False(t, res.Complete)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "broken")

	// Removed scripts

	require.NoError(t, os.Remove(filepath.Join(e.si.Dir, "fail"+ScriptSuffix)))

	res = e.call(t, script("fail"), h1, nil)
	assert.False(t, res.Complete)
	assert.Contains(t, res.Errors[0], util.ErrNotFound.Error())

	res = e.call(t, script("unknown"), h1, nil)
	assert.False(t, res.Complete)
	assert.Contains(t, res.Errors[0], "Unknown function type")
}

func TestScriptQuery(t *testing.T) {
	e := newTestEnv(t)

	for _, name := range []string{"host", "switch"} {
		e.mustCall(t, cmdb.FunctionTypes, data.TypesID, &cmdb.TypeMessage{Method: cmdb.MethodCreate, Name: name})
	}

	h1, h2 := e.createHost(t, "h1"), e.createHost(t, "h2")

	e.mustCall(t, cmdb.FunctionObjects, data.RootID, &cmdb.ObjectMessage{Method: cmdb.MethodCreateChild,
		Type: "switch", Name: "s1"})

	e.mustCall(t, script("inventory"), "run1", nil)

	for _, id := range []string{h1, h2} {
		doc, err := e.c.ReadDocument(id)
		require.NoError(t, err)
		assert.Equal(t, "run1", doc.Properties["inventory"].String())
	}

	res, err := query.Evaluate(e.c.Manager(), "s1.root", query.Options{})
	require.NoError(t, err)
	require.Len(t, res, 1)
	_, ok := res[0].Document.Properties["inventory"]
	assert.False(t, ok)
}

func TestScriptTrigger(t *testing.T) {
	e := newTestEnv(t)

	e.mustCall(t, cmdb.FunctionTypes, data.TypesID, &cmdb.TypeMessage{Method: cmdb.MethodCreate, Name: "host"})

	e.mustCall(t, cmdb.FunctionTypes, "types/host", &cmdb.TypeMessage{Method: cmdb.MethodCreateTrigger,
		Payload: cmdb.PayloadOf(map[string]string{
			"type":         string(trigger.Create),
			"namespace":    cmdb.NamespaceScript,
			"functionType": "tag",
		})})

	// Creating an object runs the script on the new object

	h1 := e.createHost(t, "h1")

	doc, err := e.c.ReadDocument(h1)
	require.NoError(t, err)
	assert.Equal(t, "CREATE", doc.Properties["checked"].String())
}

func TestStdlibOutsideScripts(t *testing.T) {
	AddCmdbStdlibFunctions()

	_, err := (&dbfunc.UpdateFunc{}).Run("", nil, nil, 0, []interface{}{"x", map[interface{}]interface{}{}})
	assert.EqualError(t, err, "Function must run inside a script function")

	si := NewScriptingInterpreter(t.TempDir(), "", 10)
	assert.EqualError(t, si.Handle(nil), "Interpreter was not initialized")
}
