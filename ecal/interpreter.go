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
Package ecal runs script functions written in the event condition action
language (ECAL).

Every file <type>.ecal in the script folder is a function of the script
namespace. A script runs with the variables id, method, caller and document
in scope and can use the cmdb package of the ECAL stdlib:

	cmdb.fetch(id)               - Read a document
	cmdb.update(id, properties)  - Update the properties of an object
	cmdb.query(expr [, filter])  - Run a path query
*/
package ecal

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"devt.de/krotik/common/datautil"
	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/common/logutil"
	"devt.de/krotik/ecal/interpreter"
	"devt.de/krotik/ecal/parser"
	"devt.de/krotik/ecal/scope"
	"devt.de/krotik/ecal/stdlib"
	"devt.de/krotik/ecal/util"

	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/cmdb"
	"devt.de/krotik/cmdb/ecal/dbfunc"
	"devt.de/krotik/cmdb/functions"
	graphutil "devt.de/krotik/cmdb/graph/util"
)

/*
ScriptSuffix is the file suffix of scripts
*/
const ScriptSuffix = ".ecal"

/*
logger is the logger of the script functions
*/
var logger = logutil.GetLogger("cmdb.ecal")

/*
threadCounter provides the ECAL thread ids of all interpreters
*/
var threadCounter uint64

/*
stdlibOnce guards the registration of the cmdb stdlib package
*/
var stdlibOnce sync.Once

/*
ScriptingInterpreter models a ECAL script interpreter instance.
*/
type ScriptingInterpreter struct {
	Dir      string // Root dir for scripts
	LogLevel string // Log level string (Debug, Info, Error)

	erp     *interpreter.ECALRuntimeProvider
	sources *datautil.MapCache // Cache of script sources
}

/*
NewScriptingInterpreter returns a new ECAL scripting interpreter. Script
sources are cached for cacheAge seconds (0 to read them on every call).
*/
func NewScriptingInterpreter(scriptFolder string, logLevel string, cacheAge int64) *ScriptingInterpreter {
	si := &ScriptingInterpreter{
		Dir:      scriptFolder,
		LogLevel: logLevel,
	}

	if cacheAge > 0 {
		si.sources = datautil.NewMapCache(0, cacheAge)
	}

	return si
}

/*
Init creates the runtime of the interpreter. The script folder is created
if it does not exist.
*/
func (si *ScriptingInterpreter) Init() error {
	if ok, _ := fileutil.PathExists(si.Dir); !ok {
		if err := os.MkdirAll(si.Dir, 0770); err != nil {
			return err
		}
	}

	var l util.Logger = &scriptLogger{}

	if si.LogLevel != "" {
		ll, err := util.NewLogLevelLogger(l, si.LogLevel)
		if err != nil {
			return err
		}
		l = ll
	}

	si.erp = interpreter.NewECALRuntimeProvider("cmdb-runtime", &util.FileImportLocator{Root: si.Dir}, l)

	AddCmdbStdlibFunctions()

	return nil
}

/*
Scripts returns the function types of all scripts in the script folder.
*/
func (si *ScriptingInterpreter) Scripts() ([]string, error) {
	var res []string

	files, err := ioutil.ReadDir(si.Dir)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ScriptSuffix) {
			res = append(res, strings.TrimSuffix(f.Name(), ScriptSuffix))
		}
	}

	sort.Strings(res)

	return res, nil
}

/*
Register registers all scripts of the script folder as functions.
*/
func (si *ScriptingInterpreter) Register(p *functions.Provider) error {
	scripts, err := si.Scripts()

	if err == nil {
		for _, s := range scripts {
			p.Register(actor.FunctionType{Namespace: cmdb.NamespaceScript, Type: s}, si, functions.NoContext)
			logger.Info("Registered script function ", cmdb.NamespaceScript, "/", s)
		}
	}

	return err
}

/*
Handle runs the script of a script function.
*/
func (si *ScriptingInterpreter) Handle(fc *functions.FunctionContext) error {
	var msg cmdb.TypeMessage

	if si.erp == nil {
		return fmt.Errorf("Interpreter was not initialized")
	}

	self := fc.Self()

	src, err := si.source(self.Type)
	if err != nil {
		return err
	}

	if len(fc.Call.Value) > 0 {
		if err := cmdb.Decode(fc.Call.Value, &msg); err != nil {
			return err
		}
	}

	ast, err := parser.ParseWithRuntime(self.Type+ScriptSuffix, src, si.erp)
	if err == nil {
		err = ast.Runtime.Validate()
	}
	if err != nil {
		return err
	}

	vs := scope.NewScope(scope.GlobalScope)
	vs.SetValue("id", self.ID)
	vs.SetValue("method", string(msg.Method))
	vs.SetValue("caller", nil)
	vs.SetValue("document", nil)

	if c := fc.Caller(); c != nil {
		vs.SetValue("caller", c.String())
	}

	doc, err := fc.Cmdb.ReadDocument(self.ID)
	if err == nil {
		vs.SetValue("document", dbfunc.DocumentToECAL(doc))
	} else if !graphutil.IsNotFound(err) {
		logger.Debug(self, ": no document for ", self.ID, ": ", err)
	}

	tid := atomic.AddUint64(&threadCounter, 1)

	dbfunc.Bind(tid, fc)
	defer dbfunc.Unbind(tid)

	res, err := ast.Runtime.Eval(vs, make(map[string]interface{}), tid)

	if err != nil {

		// Include a traceback if possible

		if ss, ok := err.(util.TraceableRuntimeError); ok {
			err = fmt.Errorf("%v\n  %v", err.Error(), strings.Join(ss.GetTraceString(), "\n  "))
		}

		return err
	}

	logger.Debug(self, ": script returned ", res)

	return nil
}

/*
source returns the source of a script.
*/
func (si *ScriptingInterpreter) source(name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", &graphutil.GraphError{Type: graphutil.ErrUnknownID,
			Detail: fmt.Sprintf("invalid script name %q", name)}
	}

	if si.sources != nil {
		if src, ok := si.sources.Get(name); ok {
			return src.(string), nil
		}
	}

	content, err := ioutil.ReadFile(filepath.Join(si.Dir, name+ScriptSuffix))
	if err != nil {
		if os.IsNotExist(err) {
			err = &graphutil.GraphError{Type: graphutil.ErrNotFound,
				Detail: fmt.Sprintf("script %v not found", name)}
		}
		return "", err
	}

	if si.sources != nil {
		si.sources.Put(name, string(content))
	}

	return string(content), nil
}

/*
AddCmdbStdlibFunctions adds the cmdb package to the ECAL stdlib.
*/
func AddCmdbStdlibFunctions() {
	stdlibOnce.Do(func() {
		stdlib.AddStdlibPkg("cmdb", "CMDB related functions")

		stdlib.AddStdlibFunc("cmdb", "fetch", &dbfunc.FetchFunc{})
		stdlib.AddStdlibFunc("cmdb", "update", &dbfunc.UpdateFunc{})
		stdlib.AddStdlibFunc("cmdb", "query", &dbfunc.QueryFunc{})
	})
}

/*
scriptLogger forwards the log output of scripts.
*/
type scriptLogger struct {
}

/*
LogError adds a new error log message.
*/
func (sl *scriptLogger) LogError(m ...interface{}) {
	logger.Error(m...)
}

/*
LogInfo adds a new info log message.
*/
func (sl *scriptLogger) LogInfo(m ...interface{}) {
	logger.Info(m...)
}

/*
LogDebug adds a new debug log message.
*/
func (sl *scriptLogger) LogDebug(m ...interface{}) {
	logger.Debug(m...)
}
