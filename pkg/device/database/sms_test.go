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
	"testing"

	"github.com/parceltrack/parceltrack/pkg/assert"
	"github.com/parceltrack/parceltrack/pkg/device/dirty"
)

func TestDirtySms(t *testing.T) {
	db := InitTestMemoryDB(t)

	p := newTestParcel("p1", "BC001", StatusScannedIn)
	p.ParcelID = NullInt(555)
	if err := UpsertParcel(db, p); err != nil {
		t.Fatal(err)
	}

	rows := []Sms{
		{SyncID: "s2", ParcelSyncID: "p1", Cellphone: NullString("0821234567"), SmsCreatedDatetime: "2024-03-15T10:00:00Z", SmsTypeID: SmsTypeScanOut, DirtyFlag: dirty.New},
		{SyncID: "s1", ParcelSyncID: "p1", Cellphone: NullString("0821234567"), SmsCreatedDatetime: "2024-03-15T09:00:00Z", SmsTypeID: SmsTypeScanIn, DirtyFlag: dirty.New},
		{SyncID: "s3", ParcelSyncID: "p1", SmsCreatedDatetime: "2024-03-15T08:00:00Z", SmsTypeID: SmsTypeScanIn, DirtyFlag: dirty.Clean},
	}
	for _, s := range rows {
		if err := InsertSms(db, s); err != nil {
			t.Fatal(err)
		}
	}

	got, err := DirtySms(db)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(got), 2, "dirty sms count mismatch")
	assert.Equal(t, got[0].SyncID, "s1", "sms should be ordered by creation time")
	assert.Equal(t, got[0].ParcelID.Int64, int64(555), "parcel id should be taken from the parcel")
	assert.Equal(t, got[1].SyncID, "s2", "second sms mismatch")

	if err := DeleteSms(db, "s1"); err != nil {
		t.Fatal(err)
	}

	got, err = DirtySms(db)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(got), 1, "dirty sms count after delete mismatch")
}
