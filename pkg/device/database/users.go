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

	"github.com/pkg/errors"
)

const userColumns = `sync_id, user_id, first_name, surname, login_id, password, role_id, device_id, facility_id,
	dirty_flag, user_status, revision, tombstone`

func scanUser(s scanner) (User, error) {
	var u User

	err := s.Scan(&u.SyncID, &u.UserID, &u.FirstName, &u.Surname, &u.LoginID, &u.Password, &u.RoleID,
		&u.DeviceID, &u.FacilityID, &u.DirtyFlag, &u.UserStatus, &u.Revision, &u.Tombstone)

	return u, err
}

func (u User) values() []interface{} {
	return []interface{}{u.SyncID, u.UserID, u.FirstName, u.Surname, u.LoginID, u.Password, u.RoleID,
		u.DeviceID, u.FacilityID, u.DirtyFlag, u.UserStatus, u.Revision, u.Tombstone}
}

// GetUser finds a user by its sync id
func GetUser(db *DB, syncID string) (User, error) {
	row := db.QueryRow(fmt.Sprintf("SELECT %s FROM users WHERE sync_id = ?", userColumns), syncID)

	u, err := scanUser(row)
	if err != nil {
		return u, errors.Wrapf(err, "finding user %s", syncID)
	}

	return u, nil
}

// FindUserByLoginID finds a user by the login id an operator types in
func FindUserByLoginID(db *DB, loginID string) (User, error) {
	row := db.QueryRow(fmt.Sprintf("SELECT %s FROM users WHERE login_id = ? LIMIT 1", userColumns), loginID)

	u, err := scanUser(row)
	if err != nil {
		return u, errors.Wrapf(err, "finding user by login id %s", loginID)
	}

	return u, nil
}

// UpsertUser inserts the user or replaces the row with the same sync id
func UpsertUser(db *DB, u User) error {
	query := fmt.Sprintf("INSERT OR REPLACE INTO users (%s) VALUES (%s)", userColumns, placeholders(13))
	if _, err := db.Exec(query, u.values()...); err != nil {
		return errors.Wrapf(err, "upserting user %s", u.SyncID)
	}

	return nil
}

// UpdateUser overwrites every field of the user with the same sync id.
// It returns false if no such user exists.
func UpdateUser(db *DB, u User) (bool, error) {
	vals := u.values()
	args := append(vals[1:], u.SyncID)

	res, err := db.Exec(`UPDATE users SET user_id = ?, first_name = ?, surname = ?, login_id = ?, password = ?,
		role_id = ?, device_id = ?, facility_id = ?, dirty_flag = ?, user_status = ?, revision = ?, tombstone = ?
		WHERE sync_id = ?`, args...)
	if err != nil {
		return false, errors.Wrapf(err, "updating user %s", u.SyncID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "counting updated users")
	}

	return n > 0, nil
}

// DeleteUser hard-deletes the user with the given sync id
func DeleteUser(db *DB, syncID string) error {
	if _, err := db.Exec("DELETE FROM users WHERE sync_id = ?", syncID); err != nil {
		return errors.Wrapf(err, "deleting user %s", syncID)
	}

	return nil
}

// InsertUserTombstone inserts a row carrying only the sync id and a set
// acknowledgment flag
func InsertUserTombstone(db *DB, syncID string) error {
	if _, err := db.Exec("INSERT OR REPLACE INTO users (sync_id, user_status, tombstone) VALUES (?, ?, ?)", syncID, true, true); err != nil {
		return errors.Wrapf(err, "inserting tombstone for user %s", syncID)
	}

	return nil
}

// AckedUsers returns the sync ids of users whose acknowledgment flag is set
func AckedUsers(db *DB) ([]string, error) {
	return querySyncIDs(db, "SELECT sync_id FROM users WHERE user_status ORDER BY sync_id")
}

// ResolveUserAcks clears the acknowledgment flag of the given users and purges
// their tombstones
func ResolveUserAcks(db *DB, syncIDs []string) error {
	for _, id := range syncIDs {
		if _, err := db.Exec("DELETE FROM users WHERE sync_id = ? AND tombstone", id); err != nil {
			return errors.Wrapf(err, "purging tombstone of user %s", id)
		}

		if _, err := db.Exec("UPDATE users SET user_status = ? WHERE sync_id = ?", false, id); err != nil {
			return errors.Wrapf(err, "resolving acknowledgment of user %s", id)
		}
	}

	return nil
}
