/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cmdb

import (
	"devt.de/krotik/cmdb/actor"
	"devt.de/krotik/cmdb/graph/data"
	"devt.de/krotik/cmdb/graph/query"
	"devt.de/krotik/cmdb/graph/util"
)

/*
Names of the skeleton types and objects
*/
const (
	TypeFunctionContainer = "function-container"
	TypeFunction          = "function"

	FunctionTypeID = data.CollectionTypes + "/" + TypeFunction

	ObjectFunctions = "functions"
	ObjectSystem    = "system"
)

/*
Properties of function objects
*/
const (
	PropertyDescription     = "description"
	PropertyFunctionType    = "function_type"
	PropertyExecuteOnCreate = "execute_on_create"
	PropertyExecuteOnUpdate = "execute_on_update"
)

/*
Bootstrap makes sure that the skeleton of the graph exists. Entities which
already exist are not touched, running it twice creates nothing new.

Bootstraps of independent processes on the same storage are not mutually
exclusive. The storage rejects duplicate links so a lost race shows up as
a conflict error.
*/
func (c *Cmdb) Bootstrap() error {
	root, err := c.readOrCreate(data.RootID, func() (*data.Document, error) {
		return c.CreateSystem(data.NewDocument(data.MustParseRef(data.RootID)))
	})
	if err != nil {
		return err
	}

	for _, id := range []string{data.ObjectsID, data.TypesID} {
		ref := data.MustParseRef(id)

		if _, err = c.readOrCreate(id, func() (*data.Document, error) {
			return c.CreateSystemChild(root, data.NewDocument(ref))
		}); err != nil {
			return err
		}
	}

	var container, function *data.Document

	for _, t := range []struct {
		name string
		doc  **data.Document
	}{{TypeFunctionContainer, &container}, {TypeFunction, &function}} {
		ref := data.NewRef(data.CollectionTypes, t.name)

		if *t.doc, err = c.readOrCreate(ref.ID(), func() (*data.Document, error) {
			return c.CreateType(data.NewDocument(ref))
		}); err != nil {
			return err
		}
	}

	functions, err := c.bootstrapObject(ObjectFunctions+"."+data.SystemRoot, function, root, ObjectFunctions, nil)
	if err != nil {
		return err
	}

	system, err := c.bootstrapObject(ObjectSystem+"."+ObjectFunctions+"."+data.SystemRoot, container,
		functions, ObjectSystem, nil)
	if err != nil {
		return err
	}

	for _, f := range []struct {
		name   string
		ft     actor.FunctionType
		parent string
	}{
		{"types", FunctionTypes, ""},
		{"objects", FunctionObjects, ""},
		{"links", FunctionLinks, ""},
		{"advanced", FunctionAdvancedLinks, "links"},
		{"register", FunctionRegister, ""},
		{"router", FunctionRouter, ""},
	} {
		parent := system

		if f.parent != "" {
			if parent, err = c.findObject(f.parent + "." + ObjectSystem + "." + ObjectFunctions + "." + data.SystemRoot); err != nil {
				return err
			}
		}

		if _, err = c.bootstrapObject(f.ft.Type, function, parent, f.name, FunctionProperties(f.ft)); err != nil {
			return err
		}
	}

	return nil
}

/*
FunctionProperties returns the properties of a function object.
*/
func FunctionProperties(ft actor.FunctionType) data.Properties {
	return data.Properties{
		PropertyDescription: data.String("system function"),
		PropertyFunctionType: data.Map(map[string]data.Value{
			"namespace": data.String(ft.Namespace),
			"type":      data.String(ft.Type),
		}),
	}
}

/*
readOrCreate reads a document and creates it if it does not exist.
*/
func (c *Cmdb) readOrCreate(id string, create func() (*data.Document, error)) (*data.Document, error) {
	doc, err := c.ReadDocument(id)

	if util.IsNotFound(err) {
		logger.Info("Bootstrap: creating ", id)
		doc, err = create()
	}

	return doc, err
}

/*
bootstrapObject finds an object with a query and creates it if the query
has no result.
*/
func (c *Cmdb) bootstrapObject(q string, typeDoc *data.Document, parent *data.Document,
	name string, props data.Properties) (*data.Document, error) {

	doc, err := c.findObject(q)

	if util.IsNotFound(err) {
		logger.Info("Bootstrap: creating ", q)

		doc = data.NewDocument(data.EntityRef{})
		if props != nil {
			doc.Properties = props
		}

		doc, err = c.CreateObjectWithParent(nil, typeDoc, parent, doc, name)
	}

	return doc, err
}

/*
findObject returns the first element of a query.
*/
func (c *Cmdb) findObject(q string) (*data.Document, error) {
	res, err := query.Evaluate(c.gm, q, query.Options{Limit: 1})
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, &util.GraphError{Type: util.ErrNotFound, Detail: q}
	}

	return c.ReadDocument(res[0].ID)
}
