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

// Package parcel applies the parcel workflow to the local store. Every
// operation is local only; the sync scheduler pushes the result later.
package parcel

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"strings"

	"github.com/parceltrack/parceltrack/pkg/clock"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/device/dirty"
	"github.com/parceltrack/parceltrack/pkg/device/utils"
	"github.com/pkg/errors"
)

// CredentialKind is what the patient presents at collection
type CredentialKind int

const (
	// CredentialID is the patient's id number
	CredentialID CredentialKind = iota + 1
	// CredentialPin is the passcode issued at scan-in
	CredentialPin
)

func (k CredentialKind) String() string {
	switch k {
	case CredentialID:
		return "id"
	case CredentialPin:
		return "pin"
	default:
		return "unknown"
	}
}

// ParseCredentialKind parses "id" or "pin"
func ParseCredentialKind(s string) (CredentialKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "id":
		return CredentialID, nil
	case "pin", "passcode":
		return CredentialPin, nil
	default:
		return 0, errors.Errorf("unknown credential kind %q", s)
	}
}

// Applier runs the parcel workflow operations against the local store
type Applier struct {
	DB    *database.DB
	Clock clock.Clock

	// afterStateWrite runs between the parcel update and the sms insert
	afterStateWrite func(tx *database.DB) error
}

// New returns an applier on the given store
func New(db *database.DB, c clock.Clock) *Applier {
	return &Applier{DB: db, Clock: c}
}

// transition describes one workflow step
type transition struct {
	op             string
	expectedStatus int
	smsType        int
	mutate         func(p *database.Parcel, now string) error
}

func (a *Applier) now() string {
	return clock.Timestamp(a.Clock)
}

// apply finds the parcel, mutates it and queues its sms in one transaction
func (a *Applier) apply(ctx context.Context, barcode string, t transition) (database.Parcel, error) {
	tx, err := a.DB.BeginTx(ctx)
	if err != nil {
		return database.Parcel{}, &StorageError{Op: t.op, Err: errors.Wrap(err, "beginning a transaction")}
	}

	p, err := a.applyTx(tx, barcode, t)
	if err != nil {
		tx.Rollback()
		return database.Parcel{}, err
	}

	if err := tx.Commit(); err != nil {
		return database.Parcel{}, &StorageError{Op: t.op, Err: errors.Wrap(err, "committing transaction")}
	}

	return p, nil
}

func (a *Applier) applyTx(tx *database.DB, barcode string, t transition) (database.Parcel, error) {
	p, err := database.FindParcelByBarcode(tx, barcode, t.expectedStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, ErrNotFound
		}

		return p, &StorageError{Op: t.op, Err: err}
	}

	now := a.now()
	if err := t.mutate(&p, now); err != nil {
		return p, err
	}

	// A parcel registered locally keeps asking for a full upsert until it is pushed.
	if p.DirtyFlag != dirty.New {
		p.DirtyFlag = dirty.Modified
	}
	p.Revision++

	if _, err := database.UpdateParcel(tx, p); err != nil {
		return p, &StorageError{Op: t.op, Err: err}
	}

	if a.afterStateWrite != nil {
		if err := a.afterStateWrite(tx); err != nil {
			return p, &StorageError{Op: t.op, Err: err}
		}
	}

	smsID, err := utils.GenerateUUID()
	if err != nil {
		return p, &StorageError{Op: t.op, Err: err}
	}

	sms := database.Sms{
		SyncID:             smsID,
		ParcelID:           p.ParcelID,
		ParcelSyncID:       p.SyncID,
		Cellphone:          p.Cellphone,
		SmsCreatedDatetime: now,
		SmsTypeID:          t.smsType,
		DirtyFlag:          dirty.New,
	}
	if err := database.InsertSms(tx, sms); err != nil {
		return p, &StorageError{Op: t.op, Err: err}
	}

	return p, nil
}

// ScanIn receives a dispatched parcel at the facility and issues its passcode
func (a *Applier) ScanIn(ctx context.Context, barcode string, operatorID int64) (database.Parcel, error) {
	return a.apply(ctx, barcode, transition{
		op:             "scan-in",
		expectedStatus: database.StatusAwaitingScanIn,
		smsType:        database.SmsTypeScanIn,
		mutate: func(p *database.Parcel, now string) error {
			passcode, err := utils.GeneratePasscode()
			if err != nil {
				return &StorageError{Op: "scan-in", Err: err}
			}

			p.ScanInDatetime = database.NullString(now)
			p.ScanInByUserID = database.NullInt(operatorID)
			p.LoggedInDatetime = database.NullString(now)
			p.Passcode = database.NullString(passcode)
			p.ParcelStatusID = database.NullInt(database.StatusScannedIn)

			return nil
		},
	})
}

// matches compares a presented credential with the stored one
func matches(stored sql.NullString, input string) bool {
	input = strings.TrimSpace(input)
	if !stored.Valid || stored.String == "" || input == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(stored.String), []byte(input)) == 1
}

// ScanOut hands a parcel to the patient after checking the presented credential
func (a *Applier) ScanOut(ctx context.Context, barcode string, operatorID int64, kind CredentialKind, input string) (database.Parcel, error) {
	return a.apply(ctx, barcode, transition{
		op:             "scan-out",
		expectedStatus: database.StatusScannedIn,
		smsType:        database.SmsTypeScanOut,
		mutate: func(p *database.Parcel, now string) error {
			var status int64

			switch kind {
			case CredentialID:
				if !matches(p.IDNumber, input) {
					return ErrInvalidCredential
				}
				status = database.StatusScannedOutID
			case CredentialPin:
				if !matches(p.Passcode, input) {
					return ErrInvalidCredential
				}
				status = database.StatusScannedOutPin
			default:
				return errors.Wrapf(ErrInvalidCredential, "unknown credential kind %d", kind)
			}

			p.ScanOutDatetime = database.NullString(now)
			p.ScanOutByUserID = database.NullInt(operatorID)
			p.ParcelStatusID = database.NullInt(status)

			return nil
		},
	})
}

// Return marks an uncollected parcel as sent back
func (a *Applier) Return(ctx context.Context, barcode string, operatorID int64) (database.Parcel, error) {
	return a.apply(ctx, barcode, transition{
		op:             "return",
		expectedStatus: database.StatusScannedIn,
		smsType:        database.SmsTypeReturn,
		mutate: func(p *database.Parcel, now string) error {
			p.ScanOutDatetime = database.NullString(now)
			p.ScanOutByUserID = database.NullInt(operatorID)
			p.ParcelStatusID = database.NullInt(database.StatusReturned)

			return nil
		},
	})
}
