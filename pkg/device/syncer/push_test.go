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
	"context"
	"net/http"
	"testing"

	"github.com/parceltrack/parceltrack/pkg/assert"
	"github.com/parceltrack/parceltrack/pkg/clock"
	"github.com/parceltrack/parceltrack/pkg/device/client"
	"github.com/parceltrack/parceltrack/pkg/device/credential"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/device/dirty"
	"github.com/pkg/errors"
)

func insertSms(t *testing.T, db *database.DB, syncID, parcelSyncID string) {
	s := database.Sms{
		SyncID:             syncID,
		ParcelSyncID:       parcelSyncID,
		Cellphone:          database.NullString("0731112222"),
		SmsCreatedDatetime: "2024-03-15T09:30:00Z",
		SmsTypeID:          database.SmsTypeScanIn,
		DirtyFlag:          dirty.New,
	}

	if err := database.InsertSms(db, s); err != nil {
		t.Fatal(errors.Wrap(err, "inserting sms"))
	}
}

func TestPushDirtyPartialAck(t *testing.T) {
	e, srv := setupEngine(t)
	insertParcel(t, e.DB, "A", dirty.Modified, 2)
	insertParcel(t, e.DB, "B", dirty.Modified, 2)
	srv.SetParcelOutcome("B", false)

	res, err := e.PushDirty(context.Background())
	if err != nil {
		t.Fatal(errors.Wrap(err, "pushing"))
	}

	assert.Equal(t, res.Acknowledged, 1, "acknowledged mismatch")
	assert.Equal(t, res.Skipped, 1, "skipped mismatch")

	a := mustGetParcel(t, e.DB, "A")
	assert.Equal(t, a.DirtyFlag, dirty.Clean, "A should be clean")
	assert.Equal(t, a.ParcelStatus, true, "A should be flagged for acknowledgment")

	b := mustGetParcel(t, e.DB, "B")
	assert.Equal(t, b.DirtyFlag, dirty.Modified, "B should stay dirty")
	assert.Equal(t, b.ParcelStatus, false, "B should not be flagged")

	pushes := srv.Pushes()
	assert.Equal(t, len(pushes), 1, "push count mismatch")
	assert.Equal(t, len(pushes[0].Parcels), 2, "pushed parcel count mismatch")
	assert.Equal(t, pushes[0].Parcels[0].DirtyFlag, 2, "wire dirty flag mismatch")
}

func TestPushDirtyNothingPending(t *testing.T) {
	e, srv := setupEngine(t)
	insertParcel(t, e.DB, "A", dirty.Clean, 1)

	res, err := e.PushDirty(context.Background())
	if err != nil {
		t.Fatal(errors.Wrap(err, "pushing"))
	}

	assert.DeepEqual(t, res, Result{}, "result mismatch")
	assert.Equal(t, srv.Calls("/sync/updateclouddata"), 0, "no call should be made")
}

func TestPushDirtySms(t *testing.T) {
	e, srv := setupEngine(t)
	insertParcel(t, e.DB, "A", dirty.Modified, 2)
	insertSms(t, e.DB, "s1", "A")
	insertSms(t, e.DB, "s2", "A")
	srv.SetSmsOutcome("s2", false)

	if _, err := e.PushDirty(context.Background()); err != nil {
		t.Fatal(errors.Wrap(err, "pushing"))
	}

	assert.Equal(t, countRows(t, e.DB, "sms", "s1"), 0, "accepted sms should be deleted")
	assert.Equal(t, countRows(t, e.DB, "sms", "s2"), 1, "rejected sms should be kept")

	pushed := srv.Pushes()[0].Sms
	assert.Equal(t, len(pushed), 2, "pushed sms count mismatch")
	assert.Equal(t, pushed[0].ParcelID, int64(500), "sms should carry the parcel id")
}

type pushHook struct {
	Remote
	before func()
}

func (r pushHook) UpdateCloudData(ctx context.Context, token string, id client.DeviceIdentity, req client.PushRequest) (client.PushResponse, error) {
	r.before()
	return r.Remote.UpdateCloudData(ctx, token, id, req)
}

func TestPushDirtyRevisionGuard(t *testing.T) {
	e, _ := setupEngine(t)
	p := insertParcel(t, e.DB, "A", dirty.Modified, 2)

	// a mutation lands while the push is in flight
	e.Client = pushHook{
		Remote: e.Client,
		before: func() {
			p.ParcelStatusID = database.NullInt(database.StatusReturned)
			p.Revision = 3
			if _, err := database.UpdateParcel(e.DB, p); err != nil {
				t.Error(errors.Wrap(err, "mutating parcel"))
			}
		},
	}

	res, err := e.PushDirty(context.Background())
	if err != nil {
		t.Fatal(errors.Wrap(err, "pushing"))
	}

	assert.Equal(t, res.Acknowledged, 0, "acknowledged mismatch")

	got := mustGetParcel(t, e.DB, "A")
	assert.Equal(t, got.DirtyFlag, dirty.Modified, "parcel should stay dirty")
	assert.Equal(t, got.ParcelStatusID.Int64, int64(database.StatusReturned), "later mutation should be kept")
}

func TestPushDirtyIdempotent(t *testing.T) {
	e, srv := setupEngine(t)
	insertParcel(t, e.DB, "A", dirty.Modified, 2)
	insertParcel(t, e.DB, "B", dirty.New, 1)
	insertSms(t, e.DB, "s1", "A")
	srv.SetParcelOutcome("A", false)
	srv.SetParcelOutcome("B", false)
	srv.SetSmsOutcome("s1", false)

	for i := 0; i < 2; i++ {
		if _, err := e.PushDirty(context.Background()); err != nil {
			t.Fatal(errors.Wrapf(err, "pushing %d", i))
		}
	}

	pushes := srv.Pushes()
	assert.Equal(t, len(pushes), 2, "push count mismatch")
	assert.DeepEqual(t, pushes[1], pushes[0], "pushes should be identical")

	srv.SetParcelOutcome("A", true)
	srv.SetParcelOutcome("B", true)
	srv.SetSmsOutcome("s1", true)
	for i := 0; i < 2; i++ {
		if _, err := e.PushDirty(context.Background()); err != nil {
			t.Fatal(errors.Wrapf(err, "pushing %d", i))
		}
	}

	assert.Equal(t, len(srv.Pushes()), 3, "clean rows should not be pushed again")
	assert.Equal(t, len(srv.Parcels()), 2, "server parcel count mismatch")
	assert.Equal(t, len(srv.Sms()), 1, "server sms count mismatch")
}

func TestPushDirtyAuthExpired(t *testing.T) {
	e, srv := setupEngine(t)
	insertParcel(t, e.DB, "A", dirty.Modified, 2)
	srv.ExpireToken()

	_, err := e.PushDirty(context.Background())
	assert.Equal(t, errors.Is(err, client.ErrAuthExpired), true, "error mismatch")

	_, err = e.Store.Get(credential.KeyAuthToken)
	assert.Equal(t, err, credential.ErrNotFound, "token should be removed")
	assert.Equal(t, mustGetParcel(t, e.DB, "A").DirtyFlag, dirty.Modified, "parcel should stay dirty")

	// the next cycle logs in again and succeeds
	if err := e.Authenticate(context.Background()); err != nil {
		t.Fatal(errors.Wrap(err, "authenticating"))
	}
	if _, err := e.PushDirty(context.Background()); err != nil {
		t.Fatal(errors.Wrap(err, "pushing"))
	}
	assert.Equal(t, mustGetParcel(t, e.DB, "A").DirtyFlag, dirty.Clean, "parcel should be clean")
}

func TestPushDirtyUnreachable(t *testing.T) {
	e, srv := setupEngine(t)
	insertParcel(t, e.DB, "A", dirty.Modified, 2)
	insertSms(t, e.DB, "s1", "A")
	srv.Fail("/sync/updateclouddata", http.StatusServiceUnavailable)

	_, err := e.PushDirty(context.Background())
	assert.Equal(t, errors.Is(err, client.ErrUnreachable), true, "error mismatch")

	assert.Equal(t, mustGetParcel(t, e.DB, "A").DirtyFlag, dirty.Modified, "parcel should stay dirty")
	assert.Equal(t, countRows(t, e.DB, "sms", "s1"), 1, "sms should be kept")

	token, err := e.Store.Get(credential.KeyAuthToken)
	if err != nil {
		t.Fatal(errors.Wrap(err, "reading token"))
	}
	assert.Equal(t, token, srv.Token(), "token should be kept")
}

func TestPushAck(t *testing.T) {
	e, srv := setupEngine(t)
	insertParcel(t, e.DB, "A", dirty.Clean, 1)
	database.MustExec(t, "flagging A", e.DB, "UPDATE parcels SET parcel_status = 1 WHERE sync_id = ?", "A")
	if err := database.InsertParcelTombstone(e.DB, "X"); err != nil {
		t.Fatal(errors.Wrap(err, "inserting tombstone"))
	}
	if err := database.InsertUserTombstone(e.DB, "u1"); err != nil {
		t.Fatal(errors.Wrap(err, "inserting user tombstone"))
	}

	res, err := e.PushAck(context.Background())
	if err != nil {
		t.Fatal(errors.Wrap(err, "pushing acknowledgments"))
	}

	assert.Equal(t, res.Acknowledged, 3, "acknowledged mismatch")

	pushes := srv.StatusPushes()
	assert.Equal(t, len(pushes), 1, "status push count mismatch")
	assert.DeepEqual(t, pushes[0], client.StatusRequest{
		ParcelStatus: []client.AckEntry{{SyncID: "A", Status: true}, {SyncID: "X", Status: true}},
		UserStatus:   []client.AckEntry{{SyncID: "u1", Status: true}},
	}, "status request mismatch")

	assert.Equal(t, mustGetParcel(t, e.DB, "A").ParcelStatus, false, "flag should be cleared")
	assert.Equal(t, countRows(t, e.DB, "parcels", "X"), 0, "tombstone should be purged")
	assert.Equal(t, countRows(t, e.DB, "users", "u1"), 0, "user tombstone should be purged")

	// nothing left to report
	if _, err := e.PushAck(context.Background()); err != nil {
		t.Fatal(errors.Wrap(err, "pushing acknowledgments again"))
	}
	assert.Equal(t, srv.Calls("/sync/updatecloudstatus"), 1, "no further call should be made")
}

func TestPushAckFailureKeepsFlags(t *testing.T) {
	e, srv := setupEngine(t)
	if err := database.InsertParcelTombstone(e.DB, "X"); err != nil {
		t.Fatal(errors.Wrap(err, "inserting tombstone"))
	}
	srv.Fail("/sync/updatecloudstatus", http.StatusBadGateway)

	_, err := e.PushAck(context.Background())
	assert.Equal(t, errors.Is(err, client.ErrUnreachable), true, "error mismatch")
	assert.DeepEqual(t, mustGetParcel(t, e.DB, "X"), database.Parcel{SyncID: "X", ParcelStatus: true, Tombstone: true}, "tombstone should be kept")
}

func TestPushWithoutRemote(t *testing.T) {
	db := database.InitTestMemoryDB(t)
	e := New(db, client.New("http://127.0.0.1:1", "test", 0), setupStore(t), clock.NewMock())
	if err := e.Store.Set(credential.KeyAuthToken, "token"); err != nil {
		t.Fatal(errors.Wrap(err, "setting token"))
	}
	insertParcel(t, db, "A", dirty.Modified, 2)

	_, err := e.PushDirty(context.Background())
	assert.Equal(t, errors.Is(err, client.ErrUnreachable), true, "error mismatch")
}
