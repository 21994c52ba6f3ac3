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

package parcel

import (
	"context"
	"strings"

	"github.com/parceltrack/parceltrack/pkg/device/client"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/device/dirty"
	"github.com/parceltrack/parceltrack/pkg/device/utils"
	"github.com/pkg/errors"
)

// NewParcel holds the fields of a parcel registered on the device
type NewParcel struct {
	Title         string
	FirstName     string
	Surname       string
	Cellphone     string
	IDNumber      string
	DateOfBirth   string
	Gender        string
	DueDate       string
	Barcode       string
	DispatchRef   string
	ConsignmentNo string
	DeviceID      int64
	FacilityID    int64
}

func (n NewParcel) validate() error {
	if strings.TrimSpace(n.Barcode) == "" {
		return errors.Wrap(ErrInvalidParcel, "barcode is required")
	}
	if strings.TrimSpace(n.Surname) == "" {
		return errors.Wrap(ErrInvalidParcel, "surname is required")
	}

	return nil
}

func normalizeDate(field, s string) (string, error) {
	d, err := client.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return "", errors.Wrapf(ErrInvalidParcel, "%s: %v", field, err)
	}

	return string(d), nil
}

// Register creates a parcel awaiting scan-in. The server has not seen it yet,
// so it is queued for a full upsert.
func (a *Applier) Register(ctx context.Context, n NewParcel) (database.Parcel, error) {
	if err := n.validate(); err != nil {
		return database.Parcel{}, err
	}

	dob, err := normalizeDate("date of birth", n.DateOfBirth)
	if err != nil {
		return database.Parcel{}, err
	}
	due, err := normalizeDate("due date", n.DueDate)
	if err != nil {
		return database.Parcel{}, err
	}

	syncID, err := utils.GenerateUUID()
	if err != nil {
		return database.Parcel{}, &StorageError{Op: "register", Err: err}
	}

	p := database.Parcel{
		SyncID:         syncID,
		Title:          database.NullString(n.Title),
		FirstName:      database.NullString(n.FirstName),
		Surname:        database.NullString(n.Surname),
		Cellphone:      database.NullString(n.Cellphone),
		IDNumber:       database.NullString(n.IDNumber),
		DateOfBirth:    database.NullString(dob),
		Gender:         database.NullString(n.Gender),
		DueDate:        database.NullString(due),
		Barcode:        database.NullString(strings.TrimSpace(n.Barcode)),
		DispatchRef:    database.NullString(n.DispatchRef),
		ConsignmentNo:  database.NullString(n.ConsignmentNo),
		ParcelStatusID: database.NullInt(database.StatusAwaitingScanIn),
		DeviceID:       database.NullInt(n.DeviceID),
		FacilityID:     database.NullInt(n.FacilityID),
		DirtyFlag:      dirty.New,
		Revision:       1,
	}

	tx, err := a.DB.BeginTx(ctx)
	if err != nil {
		return p, &StorageError{Op: "register", Err: errors.Wrap(err, "beginning a transaction")}
	}

	if err := database.UpsertParcel(tx, p); err != nil {
		tx.Rollback()
		return p, &StorageError{Op: "register", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return p, &StorageError{Op: "register", Err: errors.Wrap(err, "committing transaction")}
	}

	return p, nil
}
