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
	"fmt"
	"time"

	"github.com/parceltrack/parceltrack/pkg/log"
	"github.com/pkg/errors"
	"github.com/robfig/cron"
)

// Checkpoint writes the WAL back into the main database file and truncates it
func Checkpoint(db *DB) error {
	if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.Wrap(err, "checkpointing WAL")
	}

	return nil
}

// Vacuum rebuilds the database file to reclaim space left by deleted rows
func Vacuum(db *DB) error {
	if _, err := db.Exec("VACUUM"); err != nil {
		return errors.Wrap(err, "vacuuming database")
	}

	return nil
}

func every(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}

// StartMaintenance periodically checkpoints the WAL and vacuums the database so
// that a long-running agent does not let the files grow unbounded. It returns a
// function that stops the jobs.
func StartMaintenance(db *DB, walEvery, vacuumEvery time.Duration) (func(), error) {
	c := cron.New()

	if err := c.AddFunc(every(walEvery), func() {
		if err := Checkpoint(db); err != nil {
			log.ErrorWrap(err, "WAL checkpoint failed")
			return
		}

		log.Debug("WAL checkpoint completed.")
	}); err != nil {
		return nil, errors.Wrap(err, "scheduling WAL checkpoint")
	}

	if err := c.AddFunc(every(vacuumEvery), func() {
		if err := Vacuum(db); err != nil {
			log.ErrorWrap(err, "VACUUM failed")
			return
		}

		log.Info("VACUUM completed.")
	}); err != nil {
		return nil, errors.Wrap(err, "scheduling VACUUM")
	}

	c.Start()

	return c.Stop, nil
}
