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

package syncer

import (
	"github.com/parceltrack/parceltrack/pkg/device/client"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/device/dirty"
)

func parcelToPayload(p database.Parcel) client.ParcelPayload {
	return client.ParcelPayload{
		SyncID:           p.SyncID,
		ParcelID:         p.ParcelID.Int64,
		Title:            p.Title.String,
		FirstName:        p.FirstName.String,
		Surname:          p.Surname.String,
		Cellphone:        p.Cellphone.String,
		IDNumber:         p.IDNumber.String,
		DateOfBirth:      client.Date(p.DateOfBirth.String),
		Gender:           p.Gender.String,
		DueDate:          client.Date(p.DueDate.String),
		Barcode:          p.Barcode.String,
		DispatchRef:      p.DispatchRef.String,
		ConsignmentNo:    p.ConsignmentNo.String,
		Passcode:         p.Passcode.String,
		ScanInDatetime:   p.ScanInDatetime.String,
		ScanInByUserID:   p.ScanInByUserID.Int64,
		LoggedInDatetime: p.LoggedInDatetime.String,
		ScanOutDatetime:  p.ScanOutDatetime.String,
		ScanOutByUserID:  p.ScanOutByUserID.Int64,
		ParcelStatusID:   p.ParcelStatusID.Int64,
		DeviceID:         p.DeviceID.Int64,
		FacilityID:       p.FacilityID.Int64,
		DirtyFlag:        dirty.LocalToWire(p.DirtyFlag),
		ParcelStatus:     p.ParcelStatus,
	}
}

// parcelFromPayload builds a clean row from a pulled parcel
func parcelFromPayload(p client.ParcelPayload) database.Parcel {
	return database.Parcel{
		SyncID:           p.SyncID,
		ParcelID:         database.NullInt(p.ParcelID),
		Title:            database.NullString(p.Title),
		FirstName:        database.NullString(p.FirstName),
		Surname:          database.NullString(p.Surname),
		Cellphone:        database.NullString(p.Cellphone),
		IDNumber:         database.NullString(p.IDNumber),
		DateOfBirth:      database.NullString(string(p.DateOfBirth)),
		Gender:           database.NullString(p.Gender),
		DueDate:          database.NullString(string(p.DueDate)),
		Barcode:          database.NullString(p.Barcode),
		DispatchRef:      database.NullString(p.DispatchRef),
		ConsignmentNo:    database.NullString(p.ConsignmentNo),
		Passcode:         database.NullString(p.Passcode),
		ScanInDatetime:   database.NullString(p.ScanInDatetime),
		ScanInByUserID:   database.NullInt(p.ScanInByUserID),
		LoggedInDatetime: database.NullString(p.LoggedInDatetime),
		ScanOutDatetime:  database.NullString(p.ScanOutDatetime),
		ScanOutByUserID:  database.NullInt(p.ScanOutByUserID),
		ParcelStatusID:   database.NullInt(p.ParcelStatusID),
		DeviceID:         database.NullInt(p.DeviceID),
		FacilityID:       database.NullInt(p.FacilityID),
		DirtyFlag:        dirty.Clean,
		ParcelStatus:     true,
	}
}

// keepLocalState carries the workflow fields of a locally changed parcel over
// a pulled one. Identity and patient fields follow the server.
func keepLocalState(pulled, local database.Parcel) database.Parcel {
	pulled.Passcode = local.Passcode
	pulled.ScanInDatetime = local.ScanInDatetime
	pulled.ScanInByUserID = local.ScanInByUserID
	pulled.LoggedInDatetime = local.LoggedInDatetime
	pulled.ScanOutDatetime = local.ScanOutDatetime
	pulled.ScanOutByUserID = local.ScanOutByUserID
	pulled.ParcelStatusID = local.ParcelStatusID
	pulled.DirtyFlag = local.DirtyFlag

	return pulled
}

func userFromPayload(u client.UserPayload) database.User {
	return database.User{
		SyncID:     u.SyncID,
		UserID:     database.NullInt(u.UserID),
		FirstName:  database.NullString(u.FirstName),
		Surname:    database.NullString(u.Surname),
		LoginID:    database.NullString(u.LoginID),
		Password:   database.NullString(u.Password),
		RoleID:     database.NullInt(u.RoleID),
		DeviceID:   database.NullInt(u.DeviceID),
		FacilityID: database.NullInt(u.FacilityID),
		DirtyFlag:  dirty.Clean,
		UserStatus: true,
	}
}

func smsToPayload(s database.Sms) client.SmsPayload {
	return client.SmsPayload{
		SyncID:             s.SyncID,
		ParcelID:           s.ParcelID.Int64,
		Cellphone:          s.Cellphone.String,
		SmsCreatedDateTime: s.SmsCreatedDatetime,
		SmsTypeID:          s.SmsTypeID,
		DirtyFlag:          dirty.LocalToWire(s.DirtyFlag),
	}
}

func ackEntries(syncIDs []string) []client.AckEntry {
	ret := make([]client.AckEntry, 0, len(syncIDs))
	for _, id := range syncIDs {
		ret = append(ret, client.AckEntry{SyncID: id, Status: true})
	}

	return ret
}
