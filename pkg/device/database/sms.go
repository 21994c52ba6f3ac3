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

const smsColumns = "sync_id, parcel_id, parcel_sync_id, cellphone, sms_created_datetime, sms_type_id, dirty_flag"

// InsertSms inserts a new sms row
func InsertSms(db *DB, s Sms) error {
	_, err := db.Exec("INSERT INTO sms ("+smsColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		s.SyncID, s.ParcelID, s.ParcelSyncID, s.Cellphone, s.SmsCreatedDatetime, s.SmsTypeID, s.DirtyFlag)
	if err != nil {
		return errors.Wrapf(err, "inserting sms %s", s.SyncID)
	}

	return nil
}

// DirtySms returns all sms rows that have not been confirmed by the server.
// The parcel id is taken from the parcel row when the sms was created before
// the parcel had one.
func DirtySms(db *DB) ([]Sms, error) {
	rows, err := db.Query(`SELECT s.sync_id, COALESCE(s.parcel_id, p.parcel_id), s.parcel_sync_id, s.cellphone,
		s.sms_created_datetime, s.sms_type_id, s.dirty_flag
		FROM sms AS s LEFT JOIN parcels AS p ON p.sync_id = s.parcel_sync_id
		WHERE s.dirty_flag != 0
		ORDER BY s.sms_created_datetime, s.sync_id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying dirty sms")
	}
	defer rows.Close()

	var ret []Sms
	for rows.Next() {
		var s Sms
		if err := rows.Scan(&s.SyncID, &s.ParcelID, &s.ParcelSyncID, &s.Cellphone, &s.SmsCreatedDatetime,
			&s.SmsTypeID, &s.DirtyFlag); err != nil {
			return nil, errors.Wrap(err, "scanning a dirty sms")
		}

		ret = append(ret, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating dirty sms")
	}

	return ret, nil
}

// DeleteSms deletes the sms row with the given sync id
func DeleteSms(db *DB, syncID string) error {
	if _, err := db.Exec("DELETE FROM sms WHERE sync_id = ?", syncID); err != nil {
		return errors.Wrapf(err, "deleting sms %s", syncID)
	}

	return nil
}
