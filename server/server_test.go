/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package server

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/common/httputil"

	"devt.de/krotik/cmdb/cmdb"
	"devt.de/krotik/cmdb/config"
	"devt.de/krotik/cmdb/graph/data"
)

const testdb = "testdb"

const testport = "9191"

const invalidFileName = "**" + string(rune(0x0))

var logLock = &sync.Mutex{}
var printLog = []string{}
var errorLog = []string{}

var printLogging = false

func TestMain(m *testing.M) {
	flag.Parse()

	basepath = testdb + "/"

	// Log all print and error messages

	print = func(v ...interface{}) {
		if printLogging {
			fmt.Println(v...)
		}
		logLock.Lock()
		printLog = append(printLog, fmt.Sprint(v...))
		logLock.Unlock()
	}
	fatal = func(v ...interface{}) {
		if printLogging {
			fmt.Println(v...)
		}
		logLock.Lock()
		errorLog = append(errorLog, fmt.Sprint(v...))
		logLock.Unlock()
	}

	defer func() {
		fatal = log.Fatal
		basepath = ""
	}()

	if res, _ := fileutil.PathExists(testdb); res {
		if err := os.RemoveAll(testdb); err != nil {
			fmt.Print("Could not remove test directory:", err.Error())
		}
	}

	ensurePath(testdb)

	// Run the tests

	res := m.Run()

	if res, _ := fileutil.PathExists(testdb); res {
		if err := os.RemoveAll(testdb); err != nil {
			fmt.Print("Could not remove test directory:", err.Error())
		}
	}

	os.Exit(res)
}

func TestMainNormalCase(t *testing.T) {

	// Make sure to reset the DefaultServeMux

	defer func() { http.DefaultServeMux = http.NewServeMux() }()

	// Make sure to remove any files

	defer func() {
		if err := os.RemoveAll(testdb); err != nil {
			fmt.Print("Could not remove test directory:", err.Error())
		}
		time.Sleep(time.Duration(100) * time.Millisecond)
		ensurePath(testdb)
	}()

	resetLogs()

	errorChan := make(chan error)

	// Load default configuration

	config.LoadDefaultConfig()

	config.Config[config.HTTPPort] = testport
	config.Config[config.ReplyTimeout] = 5000
	config.Config[config.EnableScripts] = true
	config.Config[config.LogLevel] = "Error"

	// Provide a script function

	ensurePath(filepath.Join(testdb, "scripts"))
	ioutil.WriteFile(filepath.Join(testdb, "scripts", "mark.ecal"),
		[]byte(`cmdb.update(id, {"marked": method})`), 0600)

	// Kick off main function

	go func() {
		runServer()
		errorChan <- nil
	}()

	if !waitForLog("Waiting for shutdown") {
		t.Error("Server did not start:", errorLog)
		return
	}

	// Talk to the running server

	base := fmt.Sprintf("http://localhost:%v/cmdb", testport)

	if res := post(t, base+"/v1/function/internal/types.system.functions.root/system/types?wait=5000",
		`{"method": "CREATE", "name": "host"}`); !strings.Contains(res, `"complete":true`) {
		t.Error("Unexpected result:", res)
	}

	if res := post(t, base+"/v1/function/internal/objects.system.functions.root/system/root?wait=5000",
		`{"method": "CREATE_CHILD", "type": "host", "name": "h1"}`); !strings.Contains(res, `"complete":true`) {
		t.Error("Unexpected result:", res)
	}

	resp, err := http.Get(base + "/v1/query/h1.root")
	if err != nil {
		t.Error(err)
		return
	}

	var elements []map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&elements)
	resp.Body.Close()

	if err != nil || len(elements) != 1 {
		t.Error("Unexpected query result:", elements, err)
		return
	}

	id := fmt.Sprint(elements[0]["id"])

	if res := post(t, base+"/v1/function/script/mark/"+id+"?wait=5000",
		`{"method": "UPDATE"}`); !strings.Contains(res, `"complete":true`) {
		t.Error("Unexpected result:", res)
	}

	resp, err = http.Get(base + "/v1/document/" + id)
	if err != nil {
		t.Error(err)
		return
	}

	body, _ := ioutil.ReadAll(resp.Body)
	resp.Body.Close()

	if !strings.Contains(string(body), `"marked":"UPDATE"`) {
		t.Error("Unexpected document:", string(body))
		return
	}

	// To exit the main function the lock watcher thread
	// has to recognise that the lockfile was modified

	shutdown := make(chan bool)

	go func() {
		filename := filepath.Join(testdb, config.Str(config.LockFile))

		for {
			select {
			case <-shutdown:
				return
			default:
			}

			// Do a normal shutdown with a log file - don't check for errors

			shutdownWithLogFile(filename)

			time.Sleep(time.Duration(200) * time.Millisecond)
		}
	}()

	// Wait for the main function to end

	if err := <-errorChan; err != nil || len(errorLog) != 0 {
		t.Error("Unexpected ending of main thread:", err, errorLog)
		return
	}

	close(shutdown)

	// Check the print log

	logString := strings.Join(printLog, "\n")

	if runtime.GOOS == "windows" {

		// Very primitive but good enough

		logString = strings.Replace(logString, "\\", "/", -1)
	}

	if logString != `
CMDB `[1:]+config.ProductVersion+`
Starting datastore in testdb/db
Starting state store in testdb/state.db
Creating Cmdb instance
Bootstrapping graph
Loading scripts from testdb/scripts
Starting reaper (reply timeout: 5s, interval: 5s)
Starting server on: localhost:`+testport+`
Waiting for shutdown
Lockfile was modified
Shutting down
Closing state store
Closing datastore` {
		t.Error("Unexpected log:", logString)
		return
	}

	// The graph was persisted

	resetLogs()

	config.Config[config.EnableBootstrap] = false

	var found bool

	StartServerWithSingleOp(func(c *cmdb.Cmdb) bool {
		_, err := c.ReadDocument(data.TypesID)
		found = err == nil
		return true
	})

	if !found {
		t.Error("Bootstrapped graph was not persisted:", errorLog)
	}

	config.Config = nil
}

func TestMainErrorCases(t *testing.T) {

	// Make sure to reset the DefaultServeMux

	defer func() { http.DefaultServeMux = http.NewServeMux() }()

	// Make sure to remove any files

	defer func() {
		if err := os.RemoveAll(testdb); err != nil {
			fmt.Print("Could not remove test directory:", err.Error())
		}
		time.Sleep(time.Duration(100) * time.Millisecond)
		ensurePath(testdb)
	}()

	// Setup config and logs

	config.LoadDefaultConfig()

	resetLogs()

	// Test unknown log level

	config.Config[config.LogLevel] = "Loud"

	runServer()

	if len(errorLog) != 1 || !strings.Contains(errorLog[0], "Unknown log level: Loud") {
		t.Error("Unexpected error:", errorLog)
		return
	}

	config.Config[config.LogLevel] = "Error"

	resetLogs()

	// Test db access error

	config.Config[config.LocationDatastore] = invalidFileName

	runServer()

	if len(errorLog) != 2 ||
		!strings.Contains(errorLog[0], "Could not create directory") ||
		!strings.Contains(errorLog[1], "Failed to open graph storage") {
		t.Error("Unexpected error:", errorLog)
		return
	}

	resetLogs()

	// Test state store error

	config.Config[config.MemoryOnlyStorage] = true
	config.Config[config.LocationStateStore] = filepath.Join("nonexistent", "state.db")

	runServer()

	if len(errorLog) != 1 || !strings.Contains(errorLog[0], "Failed to open state store") {
		t.Error("Unexpected error:", errorLog)
		return
	}

	resetLogs()

	// Test script folder error

	config.Config[config.MemoryOnlyState] = true
	config.Config[config.EnableScripts] = true
	config.Config[config.LocationScripts] = invalidFileName

	runServer()

	if len(errorLog) != 1 || !strings.Contains(errorLog[0], "Failed to load scripts") {
		t.Error("Unexpected error:", errorLog)
		return
	}

	config.Config[config.EnableScripts] = false

	resetLogs()

	// Test port which is already in use

	config.Config[config.HTTPPort] = testport

	ths := httputil.HTTPServer{}
	go ths.RunHTTPServer(":"+testport, nil)

	time.Sleep(time.Duration(1) * time.Second)

	runServer()

	ths.Shutdown()

	time.Sleep(time.Duration(1) * time.Second)

	if ths.Running {
		t.Error("Server should not be running")
		return
	}

	if len(errorLog) != 1 || !strings.Contains(errorLog[0], "listen tcp :"+testport) {
		t.Error("Unexpected error:", errorLog)
		return
	}

	config.Config = nil

	SOPExecuted := false

	// Test single operation

	StartServerWithSingleOp(func(c *cmdb.Cmdb) bool {
		SOPExecuted = true
		return true
	})

	if !SOPExecuted {
		t.Error("Single operation function was not executed")
		return
	}

	config.Config = nil
}

func resetLogs() {
	logLock.Lock()
	defer logLock.Unlock()

	printLog = []string{}
	errorLog = []string{}
}

/*
waitForLog waits until a given line was printed.
*/
func waitForLog(line string) bool {
	for i := 0; i < 100; i++ {
		logLock.Lock()
		for _, l := range printLog {
			if l == line {
				logLock.Unlock()
				return true
			}
		}
		logLock.Unlock()

		time.Sleep(100 * time.Millisecond)
	}

	return false
}

func post(t *testing.T, url string, body string) string {
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Error(err)
		return ""
	}
	defer resp.Body.Close()

	res, _ := ioutil.ReadAll(resp.Body)

	return string(res)
}

func shutdownWithLogFile(filename string) error {

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0660)
	defer file.Close()
	if err != nil {
		fmt.Println(errorLog)
		return err
	}

	_, err = file.Write([]byte("a"))
	if err != nil {
		return err
	}

	return nil
}

/*
Run the server and capture the output.
*/
func runServer() (string, error) {

	defer func() {
		if r := recover(); r != nil {
			fmt.Println("Server execution caused a panic.")
			out, err := ioutil.ReadFile("out.txt")
			if err != nil {
				fmt.Println(err)
			}
			fmt.Println(out)
		}
	}()

	// Exchange stderr to a file

	origStdErr := os.Stderr

	outFile, err := os.Create("out.txt")
	if err != nil {
		return "", err
	}
	defer func() {
		outFile.Close()
		os.RemoveAll("out.txt")

		// Put Stderr back

		os.Stderr = origStdErr
		log.SetOutput(os.Stderr)
	}()

	os.Stderr = outFile
	log.SetOutput(outFile)

	StartServer()

	// Reset flags

	outFile.Sync()

	out, err := ioutil.ReadFile("out.txt")
	if err != nil {
		return "", err
	}

	return string(out), nil
}
