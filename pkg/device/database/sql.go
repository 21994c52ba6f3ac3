/* Copyright 2025 Parceltrack Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/parceltrack/parceltrack/pkg/device/utils"
	"github.com/pkg/errors"
)

// SQLCommon is the minimal interface required by a db connection
type SQLCommon interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Prepare(query string) (*sql.Stmt, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// sqlDb is an interface implemented by *sql.DB
type sqlDb interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// sqlTx is an interface implemented by *sql.Tx
type sqlTx interface {
	Commit() error
	Rollback() error
}

// DB contains information about the current database connection.
// A transaction is also represented as a DB so that queries can be
// composed regardless of whether they run inside one.
type DB struct {
	Conn     SQLCommon
	Filepath string
}

// Begin begins a transaction
func (d *DB) Begin() (*DB, error) {
	return d.BeginTx(context.Background())
}

// BeginTx begins a transaction bound to the given context
func (d *DB) BeginTx(ctx context.Context) (*DB, error) {
	if db, ok := d.Conn.(sqlDb); ok && db != nil {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}

		return &DB{Conn: tx, Filepath: d.Filepath}, nil
	}

	return nil, errors.New("cannot begin a transaction within a transaction")
}

// Commit commits a transaction
func (d *DB) Commit() error {
	if tx, ok := d.Conn.(sqlTx); ok && tx != nil {
		return tx.Commit()
	}

	return errors.New("invalid transaction")
}

// Rollback rolls back a transaction
func (d *DB) Rollback() error {
	if tx, ok := d.Conn.(sqlTx); ok && tx != nil {
		return tx.Rollback()
	}

	return errors.New("invalid transaction")
}

// Exec executes a sql
func (d *DB) Exec(query string, values ...interface{}) (sql.Result, error) {
	return d.Conn.Exec(query, values...)
}

// Prepare prepares a sql
func (d *DB) Prepare(query string) (*sql.Stmt, error) {
	return d.Conn.Prepare(query)
}

// Query queries rows
func (d *DB) Query(query string, values ...interface{}) (*sql.Rows, error) {
	return d.Conn.Query(query, values...)
}

// QueryRow queries a row
func (d *DB) QueryRow(query string, values ...interface{}) *sql.Row {
	return d.Conn.QueryRow(query, values...)
}

// Close closes a db connection
func (d *DB) Close() error {
	if db, ok := d.Conn.(*sql.DB); ok {
		return db.Close()
	}

	return errors.New("can't close db")
}

// sqlDB returns the underlying connection pool, or nil inside a transaction
func (d *DB) sqlDB() *sql.DB {
	db, _ := d.Conn.(*sql.DB)
	return db
}

// dsn builds the connection string. Transactions take the write lock when they
// begin so that two writers never deadlock on a lock upgrade.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return fmt.Sprintf("%s%s_busy_timeout=5000&_txlock=immediate&_foreign_keys=1", path, sep)
}

// Open initializes a new connection to the sqlite database. The pool holds a
// single connection so that the store is the only lock boundary between the
// sync scheduler and local mutations.
func Open(path string) (*DB, error) {
	if !strings.HasPrefix(path, "file:") {
		dir := filepath.Dir(path)
		if err := utils.EnsureDir(dir); err != nil {
			return nil, errors.Wrapf(err, "creating database directory at %s", dir)
		}
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, errors.Wrap(err, "opening db connection")
	}

	db.SetMaxOpenConns(1)

	// Ping to verify connection and trigger WAL mode on file databases
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}

	if !strings.HasPrefix(path, "file:") {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "enabling WAL mode")
		}
	}

	return &DB{Conn: db, Filepath: path}, nil
}
