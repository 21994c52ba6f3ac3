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
	"strings"

	"github.com/pkg/errors"
)

const parcelColumns = `sync_id, parcel_id, title, first_name, surname, cellphone, id_number, date_of_birth, gender,
	due_date, barcode, dispatch_ref, consignment_no, passcode, scan_in_datetime, scan_in_by_user_id,
	logged_in_datetime, scan_out_datetime, scan_out_by_user_id, parcel_status_id, device_id, facility_id,
	dirty_flag, parcel_status, revision, tombstone`

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanParcel(s scanner) (Parcel, error) {
	var p Parcel

	err := s.Scan(&p.SyncID, &p.ParcelID, &p.Title, &p.FirstName, &p.Surname, &p.Cellphone, &p.IDNumber,
		&p.DateOfBirth, &p.Gender, &p.DueDate, &p.Barcode, &p.DispatchRef, &p.ConsignmentNo, &p.Passcode,
		&p.ScanInDatetime, &p.ScanInByUserID, &p.LoggedInDatetime, &p.ScanOutDatetime, &p.ScanOutByUserID,
		&p.ParcelStatusID, &p.DeviceID, &p.FacilityID, &p.DirtyFlag, &p.ParcelStatus, &p.Revision, &p.Tombstone)

	return p, err
}

func (p Parcel) values() []interface{} {
	return []interface{}{p.SyncID, p.ParcelID, p.Title, p.FirstName, p.Surname, p.Cellphone, p.IDNumber,
		p.DateOfBirth, p.Gender, p.DueDate, p.Barcode, p.DispatchRef, p.ConsignmentNo, p.Passcode,
		p.ScanInDatetime, p.ScanInByUserID, p.LoggedInDatetime, p.ScanOutDatetime, p.ScanOutByUserID,
		p.ParcelStatusID, p.DeviceID, p.FacilityID, p.DirtyFlag, p.ParcelStatus, p.Revision, p.Tombstone}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// GetParcel finds a parcel by its sync id
func GetParcel(db *DB, syncID string) (Parcel, error) {
	row := db.QueryRow(fmt.Sprintf("SELECT %s FROM parcels WHERE sync_id = ?", parcelColumns), syncID)

	p, err := scanParcel(row)
	if err != nil {
		return p, errors.Wrapf(err, "finding parcel %s", syncID)
	}

	return p, nil
}

// FindParcelByBarcode finds the parcel with the given barcode in the given status.
// When a barcode was reused, the parcel due earliest is returned.
func FindParcelByBarcode(db *DB, barcode string, statusID int) (Parcel, error) {
	row := db.QueryRow(fmt.Sprintf(`SELECT %s FROM parcels
		WHERE barcode = ? AND parcel_status_id = ?
		ORDER BY due_date, sync_id LIMIT 1`, parcelColumns), barcode, statusID)

	p, err := scanParcel(row)
	if err != nil {
		return p, errors.Wrapf(err, "finding parcel by barcode %s", barcode)
	}

	return p, nil
}

// DirtyParcels returns all parcels with a pending local change
func DirtyParcels(db *DB) ([]Parcel, error) {
	rows, err := db.Query(fmt.Sprintf("SELECT %s FROM parcels WHERE dirty_flag != 0 ORDER BY sync_id", parcelColumns))
	if err != nil {
		return nil, errors.Wrap(err, "querying dirty parcels")
	}
	defer rows.Close()

	var ret []Parcel
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning a dirty parcel")
		}

		ret = append(ret, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating dirty parcels")
	}

	return ret, nil
}

// UpsertParcel inserts the parcel or replaces the row with the same sync id
func UpsertParcel(db *DB, p Parcel) error {
	query := fmt.Sprintf("INSERT OR REPLACE INTO parcels (%s) VALUES (%s)", parcelColumns, placeholders(26))
	if _, err := db.Exec(query, p.values()...); err != nil {
		return errors.Wrapf(err, "upserting parcel %s", p.SyncID)
	}

	return nil
}

// UpdateParcel overwrites every field of the parcel with the same sync id.
// It returns false if no such parcel exists.
func UpdateParcel(db *DB, p Parcel) (bool, error) {
	vals := p.values()
	args := append(vals[1:], p.SyncID)

	res, err := db.Exec(`UPDATE parcels SET parcel_id = ?, title = ?, first_name = ?, surname = ?, cellphone = ?,
		id_number = ?, date_of_birth = ?, gender = ?, due_date = ?, barcode = ?, dispatch_ref = ?, consignment_no = ?,
		passcode = ?, scan_in_datetime = ?, scan_in_by_user_id = ?, logged_in_datetime = ?, scan_out_datetime = ?,
		scan_out_by_user_id = ?, parcel_status_id = ?, device_id = ?, facility_id = ?, dirty_flag = ?,
		parcel_status = ?, revision = ?, tombstone = ?
		WHERE sync_id = ?`, args...)
	if err != nil {
		return false, errors.Wrapf(err, "updating parcel %s", p.SyncID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "counting updated parcels")
	}

	return n > 0, nil
}

// DeleteParcel hard-deletes the parcel with the given sync id
func DeleteParcel(db *DB, syncID string) error {
	if _, err := db.Exec("DELETE FROM parcels WHERE sync_id = ?", syncID); err != nil {
		return errors.Wrapf(err, "deleting parcel %s", syncID)
	}

	return nil
}

// InsertParcelTombstone inserts a row carrying only the sync id and a set
// acknowledgment flag
func InsertParcelTombstone(db *DB, syncID string) error {
	if _, err := db.Exec("INSERT OR REPLACE INTO parcels (sync_id, parcel_status, tombstone) VALUES (?, ?, ?)", syncID, true, true); err != nil {
		return errors.Wrapf(err, "inserting tombstone for parcel %s", syncID)
	}

	return nil
}

// ClearParcelDirty marks the parcel clean and acknowledged, provided that it was
// not changed again since the given revision was read. It returns false if
// the row moved on.
func ClearParcelDirty(db *DB, syncID string, revision int) (bool, error) {
	res, err := db.Exec("UPDATE parcels SET dirty_flag = 0, parcel_status = ? WHERE sync_id = ? AND revision = ?",
		true, syncID, revision)
	if err != nil {
		return false, errors.Wrapf(err, "clearing dirty flag of parcel %s", syncID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "counting cleared parcels")
	}

	return n > 0, nil
}

// AckedParcels returns the sync ids of parcels whose acknowledgment flag is set
func AckedParcels(db *DB) ([]string, error) {
	return querySyncIDs(db, "SELECT sync_id FROM parcels WHERE parcel_status ORDER BY sync_id")
}

// ResolveParcelAcks clears the acknowledgment flag of the given parcels once the
// server has received it. Tombstones have nothing left to report and are purged.
func ResolveParcelAcks(db *DB, syncIDs []string) error {
	for _, id := range syncIDs {
		if _, err := db.Exec("DELETE FROM parcels WHERE sync_id = ? AND tombstone", id); err != nil {
			return errors.Wrapf(err, "purging tombstone of parcel %s", id)
		}

		if _, err := db.Exec("UPDATE parcels SET parcel_status = ? WHERE sync_id = ?", false, id); err != nil {
			return errors.Wrapf(err, "resolving acknowledgment of parcel %s", id)
		}
	}

	return nil
}

func querySyncIDs(db *DB, query string, args ...interface{}) ([]string, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying sync ids")
	}
	defer rows.Close()

	var ret []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scanning a sync id")
		}

		ret = append(ret, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating sync ids")
	}

	return ret, nil
}
