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
	"io/fs"
	"net/http"
	"strings"

	"github.com/parceltrack/parceltrack/pkg/device/database/migrations"
	"github.com/parceltrack/parceltrack/pkg/log"
	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
)

var (
	// MigrationTableName is the name of the table that keeps track of migrations
	MigrationTableName = "migrations"
)

// validateMigrationFilename checks if filename follows format: NNN-description.sql
func validateMigrationFilename(name string) error {
	if !strings.HasSuffix(name, ".sql") {
		return errors.Errorf("invalid migration filename: must end with .sql")
	}

	name = strings.TrimSuffix(name, ".sql")
	parts := strings.SplitN(name, "-", 2)
	if len(parts) != 2 {
		return errors.Errorf("invalid migration filename: must be NNN-description.sql")
	}

	version, description := parts[0], parts[1]

	if len(version) != 3 {
		return errors.Errorf("invalid migration filename: version must be 3 digits, got %s", version)
	}
	for _, c := range version {
		if c < '0' || c > '9' {
			return errors.Errorf("invalid migration filename: version must be numeric, got %s", version)
		}
	}

	if description == "" {
		return errors.Errorf("invalid migration filename: description is required")
	}

	return nil
}

// checkMigrationFiles validates every sql file in the given filesystem and
// rejects duplicate versions
func checkMigrationFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, errors.Wrap(err, "reading migration directory")
	}

	var filenames []string
	seen := make(map[string]string)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		if err := validateMigrationFilename(name); err != nil {
			return nil, err
		}

		version := name[:3]
		if existing, found := seen[version]; found {
			return nil, errors.Errorf("duplicate migration version %s: %s and %s", version, existing, name)
		}
		seen[version] = name

		filenames = append(filenames, name)
	}

	return filenames, nil
}

// Migrate applies the embedded migrations that have not run yet
func Migrate(db *DB) error {
	return runMigrations(db, migrations.Files)
}

func runMigrations(db *DB, fsys fs.FS) error {
	conn := db.sqlDB()
	if conn == nil {
		return errors.New("migrations cannot run inside a transaction")
	}

	filenames, err := checkMigrationFiles(fsys)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"files": filenames,
	}).Debug("Database migration files.")

	ms := migrate.MigrationSet{TableName: MigrationTableName}
	src := &migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(fsys)}

	n, err := ms.Exec(conn, "sqlite3", src, migrate.Up)
	if err != nil {
		return errors.Wrap(err, "applying migrations")
	}

	if n > 0 {
		log.WithFields(log.Fields{
			"applied": n,
		}).Info("Migrate success.")
	}

	return nil
}
