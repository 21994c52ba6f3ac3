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
	"testing"

	"github.com/parceltrack/parceltrack/pkg/assert"
	"github.com/parceltrack/parceltrack/pkg/device/dirty"
	"github.com/pkg/errors"
)

func newTestParcel(syncID, barcode string, statusID int64) Parcel {
	return Parcel{
		SyncID:         syncID,
		ParcelID:       NullInt(100),
		FirstName:      NullString("Thandi"),
		Surname:        NullString("Mokoena"),
		Cellphone:      NullString("0821234567"),
		IDNumber:       NullString("8001015009087"),
		DueDate:        NullString("2024-03-20"),
		Barcode:        NullString(barcode),
		ParcelStatusID: NullInt(statusID),
		FacilityID:     NullInt(7),
	}
}

func TestUpsertParcel(t *testing.T) {
	db := InitTestMemoryDB(t)

	p := newTestParcel("p1", "BC001", StatusAwaitingScanIn)
	if err := UpsertParcel(db, p); err != nil {
		t.Fatal(err)
	}

	p.Surname = NullString("Dlamini")
	p.DirtyFlag = dirty.Modified
	if err := UpsertParcel(db, p); err != nil {
		t.Fatal(err)
	}

	var count int
	MustScan(t, "counting parcels", db.QueryRow("SELECT count(*) FROM parcels"), &count)
	assert.Equal(t, count, 1, "parcel count mismatch")

	got, err := GetParcel(db, "p1")
	if err != nil {
		t.Fatal(err)
	}
	assert.DeepEqual(t, got, p, "parcel mismatch")
}

func TestUpdateParcel(t *testing.T) {
	db := InitTestMemoryDB(t)

	p := newTestParcel("p1", "BC001", StatusAwaitingScanIn)
	if err := UpsertParcel(db, p); err != nil {
		t.Fatal(err)
	}

	p.ParcelStatusID = NullInt(StatusScannedIn)
	ok, err := UpdateParcel(db, p)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, ok, true, "expected the parcel to be updated")

	got, err := GetParcel(db, "p1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got.ParcelStatusID.Int64, int64(StatusScannedIn), "status mismatch")

	ok, err = UpdateParcel(db, newTestParcel("missing", "BC404", StatusAwaitingScanIn))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, ok, false, "expected no row to be updated")
}

func TestFindParcelByBarcode(t *testing.T) {
	db := InitTestMemoryDB(t)

	later := newTestParcel("p1", "BC001", StatusScannedIn)
	later.DueDate = NullString("2024-04-01")
	earlier := newTestParcel("p2", "BC001", StatusScannedIn)
	earlier.DueDate = NullString("2024-03-01")
	other := newTestParcel("p3", "BC001", StatusAwaitingScanIn)

	for _, p := range []Parcel{later, earlier, other} {
		if err := UpsertParcel(db, p); err != nil {
			t.Fatal(err)
		}
	}

	got, err := FindParcelByBarcode(db, "BC001", StatusScannedIn)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got.SyncID, "p2", "expected the parcel due earliest")

	_, err = FindParcelByBarcode(db, "BC001", StatusReturned)
	assert.Equal(t, errors.Is(err, sql.ErrNoRows), true, "expected no rows")
}

func TestParcelTombstone(t *testing.T) {
	db := InitTestMemoryDB(t)

	if err := UpsertParcel(db, newTestParcel("p1", "BC001", StatusScannedIn)); err != nil {
		t.Fatal(err)
	}

	if err := DeleteParcel(db, "p1"); err != nil {
		t.Fatal(err)
	}
	if err := InsertParcelTombstone(db, "p1"); err != nil {
		t.Fatal(err)
	}

	got, err := GetParcel(db, "p1")
	if err != nil {
		t.Fatal(err)
	}
	assert.DeepEqual(t, got, Parcel{SyncID: "p1", ParcelStatus: true, Tombstone: true}, "tombstone mismatch")
	assert.Equal(t, got.IsTombstone(), true, "expected a tombstone")
}

func TestClearParcelDirty(t *testing.T) {
	db := InitTestMemoryDB(t)

	p := newTestParcel("p1", "BC001", StatusScannedIn)
	p.DirtyFlag = dirty.Modified
	p.Revision = 3
	if err := UpsertParcel(db, p); err != nil {
		t.Fatal(err)
	}

	ok, err := ClearParcelDirty(db, "p1", 2)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, ok, false, "expected a stale revision not to clear the row")

	got, err := GetParcel(db, "p1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got.DirtyFlag, dirty.Modified, "dirty flag should be kept")

	ok, err = ClearParcelDirty(db, "p1", 3)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, ok, true, "expected the current revision to clear the row")

	got, err = GetParcel(db, "p1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got.DirtyFlag, dirty.Clean, "dirty flag mismatch")
	assert.Equal(t, got.ParcelStatus, true, "ack flag mismatch")
}

func TestDirtyParcels(t *testing.T) {
	db := InitTestMemoryDB(t)

	a := newTestParcel("a", "BC001", StatusScannedIn)
	a.DirtyFlag = dirty.Modified
	b := newTestParcel("b", "BC002", StatusScannedIn)
	c := newTestParcel("c", "BC003", StatusAwaitingScanIn)
	c.DirtyFlag = dirty.New

	for _, p := range []Parcel{c, b, a} {
		if err := UpsertParcel(db, p); err != nil {
			t.Fatal(err)
		}
	}

	got, err := DirtyParcels(db)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(got), 2, "dirty parcel count mismatch")
	assert.Equal(t, got[0].SyncID, "a", "first dirty parcel mismatch")
	assert.Equal(t, got[1].SyncID, "c", "second dirty parcel mismatch")
}

func TestResolveParcelAcks(t *testing.T) {
	db := InitTestMemoryDB(t)

	live := newTestParcel("live", "BC001", StatusScannedIn)
	live.ParcelStatus = true
	if err := UpsertParcel(db, live); err != nil {
		t.Fatal(err)
	}
	if err := InsertParcelTombstone(db, "gone"); err != nil {
		t.Fatal(err)
	}

	acked, err := AckedParcels(db)
	if err != nil {
		t.Fatal(err)
	}
	assert.DeepEqual(t, acked, []string{"gone", "live"}, "acked parcels mismatch")

	if err := ResolveParcelAcks(db, acked); err != nil {
		t.Fatal(err)
	}

	var count int
	MustScan(t, "counting tombstones", db.QueryRow("SELECT count(*) FROM parcels WHERE sync_id = 'gone'"), &count)
	assert.Equal(t, count, 0, "tombstone should be purged")

	got, err := GetParcel(db, "live")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got.ParcelStatus, false, "ack flag should be cleared")
	assert.Equal(t, got.Barcode.String, "BC001", "live parcel should be kept")
}

func TestResolveParcelAcksSparseRow(t *testing.T) {
	db := InitTestMemoryDB(t)

	// a pulled row may arrive with no parcel id, barcode or status yet
	sparse := Parcel{SyncID: "sparse", FirstName: NullString("Thandi"), ParcelStatus: true}
	if err := UpsertParcel(db, sparse); err != nil {
		t.Fatal(err)
	}
	if err := InsertParcelTombstone(db, "gone"); err != nil {
		t.Fatal(err)
	}

	if err := ResolveParcelAcks(db, []string{"gone", "sparse"}); err != nil {
		t.Fatal(err)
	}

	var count int
	MustScan(t, "counting parcels", db.QueryRow("SELECT count(*) FROM parcels"), &count)
	assert.Equal(t, count, 1, "only the tombstone should be purged")

	got, err := GetParcel(db, "sparse")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got.IsTombstone(), false, "sparse row is not a tombstone")
	assert.Equal(t, got.ParcelStatus, false, "ack flag should be cleared")
	assert.Equal(t, got.FirstName.String, "Thandi", "first name mismatch")
}

func TestUpsertParcelOverTombstone(t *testing.T) {
	db := InitTestMemoryDB(t)

	if err := InsertParcelTombstone(db, "p1"); err != nil {
		t.Fatal(err)
	}
	if err := UpsertParcel(db, newTestParcel("p1", "BC001", StatusScannedIn)); err != nil {
		t.Fatal(err)
	}

	got, err := GetParcel(db, "p1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got.IsTombstone(), false, "upserted row should replace the tombstone")
}
