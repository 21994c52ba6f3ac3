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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/parceltrack/parceltrack/pkg/assert"
	"github.com/parceltrack/parceltrack/pkg/clock"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/device/dirty"
	"github.com/pkg/errors"
)

func setupParcel(t *testing.T, db *database.DB, syncID, barcode string, status int64) database.Parcel {
	p := database.Parcel{
		SyncID:         syncID,
		ParcelID:       database.NullInt(900),
		FirstName:      database.NullString("Thandi"),
		Surname:        database.NullString("Mokoena"),
		Cellphone:      database.NullString("0821234567"),
		IDNumber:       database.NullString("8001015009087"),
		DueDate:        database.NullString("2024-03-20"),
		Barcode:        database.NullString(barcode),
		ParcelStatusID: database.NullInt(status),
		FacilityID:     database.NullInt(7),
	}

	if err := database.UpsertParcel(db, p); err != nil {
		t.Fatal(errors.Wrap(err, "setting up parcel"))
	}

	return p
}

func countSms(t *testing.T, db *database.DB) int {
	var count int
	database.MustScan(t, "counting sms", db.QueryRow("SELECT count(*) FROM sms"), &count)
	return count
}

func newTestApplier(t *testing.T) (*Applier, *clock.Mock) {
	db := database.InitTestMemoryDB(t)
	c := clock.NewMock()

	return New(db, c), c
}

func TestScanIn(t *testing.T) {
	a, c := newTestApplier(t)
	setupParcel(t, a.DB, "p1", "BC001", database.StatusAwaitingScanIn)

	got, err := a.ScanIn(context.Background(), "BC001", 11)
	if err != nil {
		t.Fatal(err)
	}

	stored, err := database.GetParcel(a.DB, "p1")
	if err != nil {
		t.Fatal(err)
	}
	assert.DeepEqual(t, stored, got, "returned parcel should match the stored one")

	now := c.Now().UTC().Format(time.RFC3339)
	assert.Equal(t, stored.ScanInDatetime.String, now, "scan-in datetime mismatch")
	assert.Equal(t, stored.LoggedInDatetime.String, now, "logged-in datetime mismatch")
	assert.Equal(t, stored.ScanInByUserID.Int64, int64(11), "scan-in operator mismatch")
	assert.Equal(t, stored.ParcelStatusID.Int64, int64(database.StatusScannedIn), "status mismatch")
	assert.Equal(t, stored.DirtyFlag, dirty.Modified, "dirty flag mismatch")
	assert.Equal(t, stored.Revision, 1, "revision mismatch")
	assert.Equal(t, len(stored.Passcode.String), 5, "passcode length mismatch")
	assert.Equal(t, stored.ScanOutDatetime.Valid, false, "scan-out datetime should not be set")

	var smsType, smsDirty int
	var parcelSyncID, createdAt string
	database.MustScan(t, "reading sms", a.DB.QueryRow("SELECT sms_type_id, dirty_flag, parcel_sync_id, sms_created_datetime FROM sms"),
		&smsType, &smsDirty, &parcelSyncID, &createdAt)
	assert.Equal(t, smsType, database.SmsTypeScanIn, "sms type mismatch")
	assert.Equal(t, smsDirty, int(dirty.New), "sms dirty flag mismatch")
	assert.Equal(t, parcelSyncID, "p1", "sms parcel mismatch")
	assert.Equal(t, createdAt, now, "sms created datetime mismatch")
	assert.Equal(t, countSms(t, a.DB), 1, "sms count mismatch")
}

func TestScanInNotFound(t *testing.T) {
	a, _ := newTestApplier(t)
	setupParcel(t, a.DB, "p1", "BC001", database.StatusScannedIn)

	testCases := []string{"BC001", "BC404"}

	for _, barcode := range testCases {
		t.Run(barcode, func(t *testing.T) {
			_, err := a.ScanIn(context.Background(), barcode, 11)
			assert.Equal(t, errors.Is(err, ErrNotFound), true, "expected ErrNotFound")
		})
	}

	assert.Equal(t, countSms(t, a.DB), 0, "no sms should be created")
}

func TestScanOut(t *testing.T) {
	testCases := []struct {
		kind           CredentialKind
		input          string
		expectedStatus int64
	}{
		{kind: CredentialID, input: "8001015009087", expectedStatus: database.StatusScannedOutID},
		{kind: CredentialID, input: " 8001015009087 ", expectedStatus: database.StatusScannedOutID},
		{kind: CredentialPin, input: "04217", expectedStatus: database.StatusScannedOutPin},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s %q", tc.kind, tc.input), func(t *testing.T) {
			a, c := newTestApplier(t)
			p := setupParcel(t, a.DB, "p1", "BC001", database.StatusScannedIn)
			p.Passcode = database.NullString("04217")
			if err := database.UpsertParcel(a.DB, p); err != nil {
				t.Fatal(err)
			}

			got, err := a.ScanOut(context.Background(), "BC001", 12, tc.kind, tc.input)
			if err != nil {
				t.Fatal(err)
			}

			assert.Equal(t, got.ParcelStatusID.Int64, tc.expectedStatus, "status mismatch")
			assert.Equal(t, got.ScanOutDatetime.String, c.Now().UTC().Format(time.RFC3339), "scan-out datetime mismatch")
			assert.Equal(t, got.ScanOutByUserID.Int64, int64(12), "scan-out operator mismatch")
			assert.Equal(t, got.ScanInDatetime.Valid, false, "scan-in datetime should be untouched")
			assert.Equal(t, got.DirtyFlag, dirty.Modified, "dirty flag mismatch")

			var smsType int
			database.MustScan(t, "reading sms", a.DB.QueryRow("SELECT sms_type_id FROM sms"), &smsType)
			assert.Equal(t, smsType, database.SmsTypeScanOut, "sms type mismatch")
		})
	}
}

func TestScanOutInvalidCredential(t *testing.T) {
	testCases := []struct {
		kind  CredentialKind
		input string
	}{
		{kind: CredentialID, input: "9999999999999"},
		{kind: CredentialID, input: ""},
		{kind: CredentialPin, input: "00000"},
		{kind: CredentialPin, input: ""},
		{kind: CredentialKind(9), input: "8001015009087"},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s %q", tc.kind, tc.input), func(t *testing.T) {
			a, _ := newTestApplier(t)
			before := setupParcel(t, a.DB, "p1", "BC001", database.StatusScannedIn)

			_, err := a.ScanOut(context.Background(), "BC001", 12, tc.kind, tc.input)
			assert.Equal(t, errors.Is(err, ErrInvalidCredential), true, "expected ErrInvalidCredential")

			after, err := database.GetParcel(a.DB, "p1")
			if err != nil {
				t.Fatal(err)
			}
			assert.DeepEqual(t, after, before, "parcel should not be mutated")
			assert.Equal(t, countSms(t, a.DB), 0, "no sms should be created")
		})
	}
}

func TestReturn(t *testing.T) {
	a, c := newTestApplier(t)
	setupParcel(t, a.DB, "p1", "BC001", database.StatusScannedIn)

	got, err := a.Return(context.Background(), "BC001", 13)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, got.ParcelStatusID.Int64, int64(database.StatusReturned), "status mismatch")
	assert.Equal(t, got.ScanOutDatetime.String, c.Now().UTC().Format(time.RFC3339), "datetime mismatch")
	assert.Equal(t, got.ScanOutByUserID.Int64, int64(13), "operator mismatch")

	var smsType int
	database.MustScan(t, "reading sms", a.DB.QueryRow("SELECT sms_type_id FROM sms"), &smsType)
	assert.Equal(t, smsType, database.SmsTypeReturn, "sms type mismatch")

	_, err = a.Return(context.Background(), "BC001", 13)
	assert.Equal(t, errors.Is(err, ErrNotFound), true, "a returned parcel cannot be returned again")
}

func TestMutationAtomicity(t *testing.T) {
	a, _ := newTestApplier(t)
	before := setupParcel(t, a.DB, "p1", "BC001", database.StatusAwaitingScanIn)

	a.afterStateWrite = func(tx *database.DB) error {
		// the state write is visible inside the transaction
		var status int64
		if err := tx.QueryRow("SELECT parcel_status_id FROM parcels WHERE sync_id = 'p1'").Scan(&status); err != nil {
			return err
		}
		if status != database.StatusScannedIn {
			return errors.Errorf("unexpected status %d inside the transaction", status)
		}

		return errors.New("disk I/O error")
	}

	_, err := a.ScanIn(context.Background(), "BC001", 11)

	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected a StorageError, got %v", err)
	}
	assert.Equal(t, storageErr.Op, "scan-in", "op mismatch")
	assert.Equal(t, storageErr.Err.Error(), "disk I/O error", "injected failure should be reported")

	after, err := database.GetParcel(a.DB, "p1")
	if err != nil {
		t.Fatal(err)
	}
	assert.DeepEqual(t, after, before, "parcel should be in its pre-mutation state")
	assert.Equal(t, countSms(t, a.DB), 0, "no sms should be created")
}

func TestMutationKeepsNewFlag(t *testing.T) {
	a, _ := newTestApplier(t)

	p, err := a.Register(context.Background(), NewParcel{Barcode: "BC001", Surname: "Mokoena", FacilityID: 7})
	if err != nil {
		t.Fatal(err)
	}

	got, err := a.ScanIn(context.Background(), "BC001", 11)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, got.SyncID, p.SyncID, "sync id mismatch")
	assert.Equal(t, got.DirtyFlag, dirty.New, "an unpushed parcel should stay new")
	assert.Equal(t, got.Revision, 2, "revision mismatch")
}

func TestConcurrentMutations(t *testing.T) {
	a, _ := newTestApplier(t)

	n := 20
	for i := 0; i < n; i++ {
		setupParcel(t, a.DB, fmt.Sprintf("p%d", i), fmt.Sprintf("BC%03d", i), database.StatusAwaitingScanIn)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			if _, err := a.ScanIn(context.Background(), fmt.Sprintf("BC%03d", i), 11); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	var scanned int
	database.MustScan(t, "counting scanned parcels", a.DB.QueryRow("SELECT count(*) FROM parcels WHERE parcel_status_id = ? AND dirty_flag = ?",
		database.StatusScannedIn, dirty.Modified), &scanned)
	assert.Equal(t, scanned, n, "scanned parcel count mismatch")
	assert.Equal(t, countSms(t, a.DB), n, "sms count mismatch")
}

func TestParseCredentialKind(t *testing.T) {
	testCases := []struct {
		input    string
		expected CredentialKind
		wantErr  bool
	}{
		{input: "id", expected: CredentialID},
		{input: "ID", expected: CredentialID},
		{input: "pin", expected: CredentialPin},
		{input: "passcode", expected: CredentialPin},
		{input: "face", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseCredentialKind(tc.input)
			assert.Equal(t, err != nil, tc.wantErr, "error mismatch")
			assert.Equal(t, got, tc.expected, "kind mismatch")
		})
	}
}
