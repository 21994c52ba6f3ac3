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
	"database/sql"

	"github.com/parceltrack/parceltrack/pkg/device/dirty"
)

// Parcel status identifiers
const (
	// StatusAwaitingScanIn is a parcel that has been dispatched but not received
	StatusAwaitingScanIn = 2
	// StatusScannedIn is a parcel ready for collection
	StatusScannedIn = 3
	// StatusScannedOutPin is a parcel collected with its passcode
	StatusScannedOutPin = 4
	// StatusScannedOutID is a parcel collected with the patient's id number
	StatusScannedOutID = 5
	// StatusReturned is a parcel sent back without collection
	StatusReturned = 6
)

// Sms types
const (
	// SmsTypeScanIn notifies the patient that a parcel is ready
	SmsTypeScanIn = 1
	// SmsTypeScanOut confirms a collection
	SmsTypeScanOut = 2
	// SmsTypeReturn notifies the patient that a parcel was returned
	SmsTypeReturn = 3
)

// Parcel is a medical parcel row. Every field except SyncID is nullable so
// that a tombstone can carry nothing but its key and acknowledgment flag.
type Parcel struct {
	SyncID           string
	ParcelID         sql.NullInt64
	Title            sql.NullString
	FirstName        sql.NullString
	Surname          sql.NullString
	Cellphone        sql.NullString
	IDNumber         sql.NullString
	DateOfBirth      sql.NullString
	Gender           sql.NullString
	DueDate          sql.NullString
	Barcode          sql.NullString
	DispatchRef      sql.NullString
	ConsignmentNo    sql.NullString
	Passcode         sql.NullString
	ScanInDatetime   sql.NullString
	ScanInByUserID   sql.NullInt64
	LoggedInDatetime sql.NullString
	ScanOutDatetime  sql.NullString
	ScanOutByUserID  sql.NullInt64
	ParcelStatusID   sql.NullInt64
	DeviceID         sql.NullInt64
	FacilityID       sql.NullInt64
	DirtyFlag        dirty.Local
	ParcelStatus     bool
	Revision         int
	// Tombstone marks a row kept only to acknowledge a server-side delete
	Tombstone bool
}

// IsTombstone returns true if the row stands in for a deleted parcel
func (p Parcel) IsTombstone() bool {
	return p.Tombstone
}

// User is a facility operator row
type User struct {
	SyncID     string
	UserID     sql.NullInt64
	FirstName  sql.NullString
	Surname    sql.NullString
	LoginID    sql.NullString
	Password   sql.NullString
	RoleID     sql.NullInt64
	DeviceID   sql.NullInt64
	FacilityID sql.NullInt64
	DirtyFlag  dirty.Local
	UserStatus bool
	Revision   int
	Tombstone  bool
}

// IsTombstone returns true if the row stands in for a deleted user
func (u User) IsTombstone() bool {
	return u.Tombstone
}

// Sms is an outbound notification created alongside a parcel mutation
type Sms struct {
	SyncID             string
	ParcelID           sql.NullInt64
	ParcelSyncID       string
	Cellphone          sql.NullString
	SmsCreatedDatetime string
	SmsTypeID          int
	DirtyFlag          dirty.Local
}

// Device is the single registration row of this installation
type Device struct {
	DeviceID        int64
	FacilityID      int64
	PartnerID       sql.NullInt64
	DevicePassword  string
	MACAddress      string
	SyncIntervalSec int
	RegisteredAt    string
}

// NullString returns a NullString that is null for an empty string
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullInt returns a NullInt64 that is null for zero
func NullInt(i int64) sql.NullInt64 {
	return sql.NullInt64{Int64: i, Valid: i != 0}
}
