/*
 * CMDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package actor

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"devt.de/krotik/cmdb/graph/util"
)

const stateSchema = `
CREATE TABLE IF NOT EXISTS state (
	namespace TEXT NOT NULL,
	type      TEXT NOT NULL,
	id        TEXT NOT NULL,
	tbl       TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     BLOB NOT NULL,
	PRIMARY KEY (namespace, type, id, tbl, key)
);
CREATE INDEX IF NOT EXISTS idx_state_tbl ON state(tbl);
`

/*
SQLiteStateStore is a StateStore which persists all state in a SQLite database.
*/
type SQLiteStateStore struct {
	db *sql.DB
}

/*
NewSQLiteStateStore opens or creates a SQLite state store. Use ":memory:"
for a store which is not persisted.
*/
func NewSQLiteStateStore(path string) (*SQLiteStateStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err == nil {
		err = db.Ping()
	}
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrOpening, Detail: err.Error()}
	}

	// SQLite supports a single writer - a single connection also keeps
	// in-memory databases alive

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000", stateSchema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, &util.GraphError{Type: util.ErrOpening, Detail: fmt.Sprintf("%v: %v", stmt, err)}
		}
	}

	return &SQLiteStateStore{db}, nil
}

/*
Get returns an entry of a table.
*/
func (ss *SQLiteStateStore) Get(addr Address, table string, key string) ([]byte, bool, error) {
	var val []byte

	err := ss.db.QueryRow(`SELECT value FROM state WHERE namespace = ? AND type = ? AND id = ? AND tbl = ? AND key = ?`,
		addr.Namespace, addr.Type, addr.ID, table, key).Scan(&val)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	return val, true, nil
}

/*
Set stores an entry of a table.
*/
func (ss *SQLiteStateStore) Set(addr Address, table string, key string, value []byte) error {
	_, err := ss.db.Exec(`INSERT OR REPLACE INTO state (namespace, type, id, tbl, key, value) VALUES (?, ?, ?, ?, ?, ?)`,
		addr.Namespace, addr.Type, addr.ID, table, key, value)

	return ss.writeError(err)
}

/*
Remove removes an entry of a table.
*/
func (ss *SQLiteStateStore) Remove(addr Address, table string, key string) error {
	_, err := ss.db.Exec(`DELETE FROM state WHERE namespace = ? AND type = ? AND id = ? AND tbl = ? AND key = ?`,
		addr.Namespace, addr.Type, addr.ID, table, key)

	return ss.writeError(err)
}

/*
Take reads and removes an entry in one transaction.
*/
func (ss *SQLiteStateStore) Take(addr Address, table string, key string) ([]byte, bool, error) {
	tx, err := ss.db.Begin()
	if err != nil {
		return nil, false, ss.writeError(err)
	}
	defer tx.Rollback()

	var val []byte

	err = tx.QueryRow(`SELECT value FROM state WHERE namespace = ? AND type = ? AND id = ? AND tbl = ? AND key = ?`,
		addr.Namespace, addr.Type, addr.ID, table, key).Scan(&val)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	if _, err = tx.Exec(`DELETE FROM state WHERE namespace = ? AND type = ? AND id = ? AND tbl = ? AND key = ?`,
		addr.Namespace, addr.Type, addr.ID, table, key); err == nil {
		err = tx.Commit()
	}

	if err != nil {
		return nil, false, ss.writeError(err)
	}

	return val, true, nil
}

/*
Entries returns all entries of a table.
*/
func (ss *SQLiteStateStore) Entries(addr Address, table string) (map[string][]byte, error) {
	rows, err := ss.db.Query(`SELECT key, value FROM state WHERE namespace = ? AND type = ? AND id = ? AND tbl = ?`,
		addr.Namespace, addr.Type, addr.ID, table)
	if err != nil {
		return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}
	defer rows.Close()

	res := make(map[string][]byte)

	for rows.Next() {
		var k string
		var v []byte

		if err := rows.Scan(&k, &v); err != nil {
			return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
		}

		res[k] = v
	}

	if err := rows.Err(); err != nil {
		return nil, &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	return res, nil
}

/*
Scan iterates over a table of all addresses.
*/
func (ss *SQLiteStateStore) Scan(table string, fn func(addr Address, key string, value []byte) bool) error {
	type entry struct {
		addr  Address
		key   string
		value []byte
	}

	rows, err := ss.db.Query(`SELECT namespace, type, id, key, value FROM state WHERE tbl = ? ORDER BY namespace, type, id, key`, table)
	if err != nil {
		return &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	// Rows are collected first since the single connection is needed by
	// the callback

	var entries []entry

	for rows.Next() {
		var e entry

		if err := rows.Scan(&e.addr.Namespace, &e.addr.Type, &e.addr.ID, &e.key, &e.value); err != nil {
			rows.Close()
			return &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
		}

		entries = append(entries, e)
	}

	err = rows.Err()
	rows.Close()

	if err != nil {
		return &util.GraphError{Type: util.ErrReading, Detail: err.Error()}
	}

	for _, e := range entries {
		if !fn(e.addr, e.key, e.value) {
			break
		}
	}

	return nil
}

/*
Close closes the store.
*/
func (ss *SQLiteStateStore) Close() error {
	if err := ss.db.Close(); err != nil {
		return &util.GraphError{Type: util.ErrClosing, Detail: err.Error()}
	}
	return nil
}

func (ss *SQLiteStateStore) writeError(err error) error {
	if err != nil {
		return &util.GraphError{Type: util.ErrWriting, Detail: err.Error()}
	}
	return nil
}
