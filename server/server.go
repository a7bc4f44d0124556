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
Package server contains the code for the CMDB server.
*/
package server

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/common/httputil"
	"devt.de/krotik/common/lockutil"
	"devt.de/krotik/common/logutil"

	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/api"
	v1 "devt.de/krotik/cmdb/api/v1"
	"devt.de/krotik/cmdb/cmdb"
	"devt.de/krotik/cmdb/config"
	"devt.de/krotik/cmdb/ecal"
	"devt.de/krotik/cmdb/functions"
	"devt.de/krotik/cmdb/graph"
	"devt.de/krotik/cmdb/graph/graphstorage"
)

/*
Using custom consolelogger type so we can test log.Fatal calls with unit tests. Overwrite
these if the server should not call os.Exit on a fatal error.
*/
type consolelogger func(v ...interface{})

var fatal = consolelogger(log.Fatal)
var print = consolelogger(log.Print)

/*
Base path for all file (used by unit tests)
*/
var basepath = ""

/*
StartServer runs the CMDB server. The server uses config.Config for all its configuration
parameters.
*/
func StartServer() {
	StartServerWithSingleOp(nil)
}

/*
StartServerWithSingleOp runs the CMDB server. If the singleOperation function is
not nil then the server executes the function and exists if the function returns true.
*/
func StartServerWithSingleOp(singleOperation func(*cmdb.Cmdb) bool) {
	var err error
	var gs graphstorage.Storage
	var ss actor.StateStore

	print(fmt.Sprintf("CMDB %v", config.ProductVersion))

	// Ensure we have a configuration - use the default configuration if nothing was set

	if config.Config == nil {
		config.LoadDefaultConfig()
	}

	// Setup logging

	level := logutil.StringToLoglevel(config.Str(config.LogLevel))
	if level == "" {
		fatal("Unknown log level: ", config.Str(config.LogLevel))
		return
	}

	logutil.ClearLogSinks()
	logutil.GetLogger("").AddLogSink(level, logutil.SimpleFormatter(), os.Stderr)

	// Create graph storage

	if config.Bool(config.MemoryOnlyStorage) {

		print("Starting memory only datastore")

		gs = graphstorage.NewMemoryGraphStorage(config.MemoryOnlyStorage)

	} else {

		loc := filepath.Join(basepath, config.Str(config.LocationDatastore))

		print("Starting datastore in ", loc)

		// Ensure path for database exists

		ensurePath(loc)

		gs, err = graphstorage.NewDiskGraphStorage(loc, false)
		if err != nil {
			fatal("Failed to open graph storage: ", err)
			return
		}
	}

	defer func() {

		print("Closing datastore")

		if err := gs.Close(); err != nil {
			fatal(err)
			return
		}

		os.RemoveAll(filepath.Join(basepath, config.Str(config.LockFile)))
	}()

	// Create state store

	if config.Bool(config.MemoryOnlyState) {

		print("Starting memory only state store")

		ss = actor.NewMemoryStateStore()

	} else {

		loc := filepath.Join(basepath, config.Str(config.LocationStateStore))

		print("Starting state store in ", loc)

		ss, err = actor.NewSQLiteStateStore(loc)
		if err != nil {
			fatal("Failed to open state store: ", err)
			return
		}
	}

	defer func() {

		print("Closing state store")

		if err := ss.Close(); err != nil {
			fatal(err)
		}
	}()

	// Create the mutation engine

	print("Creating Cmdb instance")

	gm := graph.NewGraphManager(gs)
	db := cmdb.NewCmdb(gm)

	if config.Bool(config.EnableBootstrap) {

		print("Bootstrapping graph")

		if err = db.Bootstrap(); err != nil {
			fatal("Failed to bootstrap graph: ", err)
			return
		}
	}

	// Handle single operation - these are operations which work on the Cmdb
	// and then exit.

	if singleOperation != nil && singleOperation(db) {
		return
	}

	// Create the actor runtime and register all functions

	results := api.NewEgress(uint64(config.Int(config.ResultCacheSize)), config.Int(config.ResultCacheMaxAge))
	gm.SetGraphRule(results.ChangeRule())

	rt := actor.NewRuntime(ss, results, int(config.Int(config.WorkerCount)))

	replyTimeout := time.Duration(config.Int(config.ReplyTimeout)) * time.Millisecond

	provider := functions.NewProvider(rt, db, replyTimeout)
	provider.RegisterSystemFunctions()

	if config.Bool(config.EnableScripts) {
		loc := filepath.Join(basepath, config.Str(config.LocationScripts))

		print("Loading scripts from ", loc)

		// Scripts know no warning level

		scriptLevel := strings.ToLower(config.Str(config.LogLevel))
		if scriptLevel == "warning" {
			scriptLevel = "error"
		}

		si := ecal.NewScriptingInterpreter(loc, scriptLevel, config.Int(config.ScriptCacheMaxAge))

		if err = si.Init(); err == nil {
			err = si.Register(provider)
		}

		if err != nil {
			fatal("Failed to load scripts: ", err)
			return
		}
	}

	var reaper *functions.Reaper

	if replyTimeout > 0 {
		interval := int(config.Int(config.ReaperInterval))

		print(fmt.Sprintf("Starting reaper (reply timeout: %v, interval: %vs)", replyTimeout, interval))

		reaper = functions.NewReaper(rt, interval)

		if err = reaper.Start(); err != nil {
			fatal("Failed to start reaper: ", err)
			return
		}
	}

	defer func() {
		if reaper != nil {
			reaper.Stop()
		}
		rt.Shutdown()
	}()

	// Setting API parameters

	api.APIHost = config.Str(config.HTTPHost) + ":" + config.Str(config.HTTPPort)
	api.Runtime = rt
	api.DB = db
	api.Results = results

	// Register REST endpoints

	api.RegisterRestEndpoints(api.GeneralEndpointMap)
	api.RegisterRestEndpoints(v1.V1EndpointMap)

	// Start HTTP server and enable REST API

	hs := &httputil.HTTPServer{}

	var wg sync.WaitGroup
	wg.Add(1)

	port := config.Str(config.HTTPPort)

	print("Starting server on: ", api.APIHost)

	go hs.RunHTTPServer(":"+port, &wg)

	// Wait until the server has started

	wg.Wait()

	// HTTP Server has started

	if hs.LastError != nil {
		fatal(hs.LastError)
		return
	}

	// Create a lockfile so the server can be shut down

	lf := lockutil.NewLockFile(filepath.Join(basepath, config.Str(config.LockFile)), time.Duration(2)*time.Second)

	lf.Start()

	go func() {

		// Check if the lockfile watcher is running and
		// call shutdown once it has finished

		for lf.WatcherRunning() {
			time.Sleep(time.Duration(1) * time.Second)
		}

		print("Lockfile was modified")

		hs.Shutdown()
	}()

	// Add to the wait group so we can wait for the shutdown

	wg.Add(1)

	print("Waiting for shutdown")
	wg.Wait()

	print("Shutting down")
}

/*
ensurePath ensures that a given relative path exists.
*/
func ensurePath(path string) {
	if res, _ := fileutil.PathExists(path); !res {
		if err := os.MkdirAll(path, 0770); err != nil {
			fatal("Could not create directory:", err.Error())
			return
		}
	}
}
