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
	"github.com/pkg/errors"
)

// PendingCounts is the number of rows waiting to be sent to the server
type PendingCounts struct {
	Parcels int
	Sms     int
	Acks    int
}

// Total returns the number of pending rows of any kind
func (c PendingCounts) Total() int {
	return c.Parcels + c.Sms + c.Acks
}

// CountPending counts the rows that the next sync cycle will push
func CountPending(db *DB) (PendingCounts, error) {
	var ret PendingCounts

	if err := db.QueryRow("SELECT count(*) FROM parcels WHERE dirty_flag != 0").Scan(&ret.Parcels); err != nil {
		return ret, errors.Wrap(err, "counting dirty parcels")
	}
	if err := db.QueryRow("SELECT count(*) FROM sms WHERE dirty_flag != 0").Scan(&ret.Sms); err != nil {
		return ret, errors.Wrap(err, "counting dirty sms")
	}
	if err := db.QueryRow(`SELECT (SELECT count(*) FROM parcels WHERE parcel_status) +
		(SELECT count(*) FROM users WHERE user_status)`).Scan(&ret.Acks); err != nil {
		return ret, errors.Wrap(err, "counting acknowledgments")
	}

	return ret, nil
}

// DayReport summarizes the parcel workflow of a facility on a given day
type DayReport struct {
	Day                string
	ScannedIn          int
	ScannedOutPin      int
	ScannedOutID       int
	Returned           int
	AwaitingScanIn     int
	ReadyForCollection int
}

// GetDayReport builds the report for the given day in YYYY-MM-DD form. A zero
// facility id reports on every facility.
func GetDayReport(db *DB, facilityID int64, day string) (DayReport, error) {
	ret := DayReport{Day: day}

	err := db.QueryRow(`SELECT
		COALESCE(SUM(substr(scan_in_datetime, 1, 10) = ?), 0),
		COALESCE(SUM(parcel_status_id = ? AND substr(scan_out_datetime, 1, 10) = ?), 0),
		COALESCE(SUM(parcel_status_id = ? AND substr(scan_out_datetime, 1, 10) = ?), 0),
		COALESCE(SUM(parcel_status_id = ? AND substr(scan_out_datetime, 1, 10) = ?), 0),
		COALESCE(SUM(parcel_status_id = ?), 0),
		COALESCE(SUM(parcel_status_id = ?), 0)
		FROM parcels
		WHERE (? = 0 OR facility_id = ?)`,
		day,
		StatusScannedOutPin, day,
		StatusScannedOutID, day,
		StatusReturned, day,
		StatusAwaitingScanIn,
		StatusScannedIn,
		facilityID, facilityID,
	).Scan(&ret.ScannedIn, &ret.ScannedOutPin, &ret.ScannedOutID, &ret.Returned, &ret.AwaitingScanIn,
		&ret.ReadyForCollection)
	if err != nil {
		return ret, errors.Wrap(err, "querying day report")
	}

	return ret, nil
}
