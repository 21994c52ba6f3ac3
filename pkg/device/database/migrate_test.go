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
	"testing"
	"testing/fstest"

	"github.com/parceltrack/parceltrack/pkg/assert"
)

func TestValidateMigrationFilename(t *testing.T) {
	testCases := []struct {
		name    string
		wantErr bool
	}{
		{name: "001-init.sql", wantErr: false},
		{name: "012-add-revision.sql", wantErr: false},
		{name: "001-init.txt", wantErr: true},
		{name: "001.sql", wantErr: true},
		{name: "01-init.sql", wantErr: true},
		{name: "0a1-init.sql", wantErr: true},
		{name: "001-.sql", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateMigrationFilename(tc.name)
			assert.Equal(t, err != nil, tc.wantErr, "error mismatch")
		})
	}
}

func TestCheckMigrationFiles(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		fsys := fstest.MapFS{
			"001-init.sql":     {Data: []byte("-- +migrate Up\nSELECT 1;")},
			"002-revision.sql": {Data: []byte("-- +migrate Up\nSELECT 1;")},
			"migrations.go":    {Data: []byte("package migrations")},
		}

		filenames, err := checkMigrationFiles(fsys)
		if err != nil {
			t.Fatal(err)
		}

		assert.DeepEqual(t, filenames, []string{"001-init.sql", "002-revision.sql"}, "filenames mismatch")
	})

	t.Run("duplicate version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"001-init.sql":  {Data: []byte("-- +migrate Up\nSELECT 1;")},
			"001-other.sql": {Data: []byte("-- +migrate Up\nSELECT 1;")},
		}

		_, err := checkMigrationFiles(fsys)
		assert.NotEqual(t, err, nil, "expected an error for a duplicate version")
	})
}

func TestMigrate(t *testing.T) {
	db := InitTestMemoryDB(t)

	var count int
	MustScan(t, "counting applied migrations", db.QueryRow("SELECT count(*) FROM migrations"), &count)
	assert.Equal(t, count, 3, "applied migration count mismatch")

	// running again is a no-op
	if err := Migrate(db); err != nil {
		t.Fatal(err)
	}
	MustScan(t, "counting applied migrations again", db.QueryRow("SELECT count(*) FROM migrations"), &count)
	assert.Equal(t, count, 3, "applied migration count mismatch after rerun")

	var revision int
	MustExec(t, "inserting a parcel", db, "INSERT INTO parcels (sync_id) VALUES ('p1')")
	MustScan(t, "reading revision", db.QueryRow("SELECT revision FROM parcels WHERE sync_id = 'p1'"), &revision)
	assert.Equal(t, revision, 0, "default revision mismatch")

	var tombstone bool
	MustScan(t, "reading tombstone", db.QueryRow("SELECT tombstone FROM parcels WHERE sync_id = 'p1'"), &tombstone)
	assert.Equal(t, tombstone, false, "default tombstone mismatch")
}

func TestMigrateInTransaction(t *testing.T) {
	db := InitTestMemoryDB(t)

	tx, err := db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	assert.NotEqual(t, Migrate(tx), nil, "expected an error when migrating inside a transaction")
}
