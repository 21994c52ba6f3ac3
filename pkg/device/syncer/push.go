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

	"github.com/parceltrack/parceltrack/pkg/device/client"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/log"
	"github.com/pkg/errors"
)

// PushAck reports the pulled changes that were applied locally. Once the
// server has them, the acknowledgment flags are cleared and tombstones purged.
func (e *Engine) PushAck(ctx context.Context) (Result, error) {
	var ret Result

	parcels, err := database.AckedParcels(e.DB)
	if err != nil {
		return ret, errors.Wrap(err, "reading acknowledged parcels")
	}
	users, err := database.AckedUsers(e.DB)
	if err != nil {
		return ret, errors.Wrap(err, "reading acknowledged users")
	}

	req := client.StatusRequest{
		ParcelStatus: ackEntries(parcels),
		UserStatus:   ackEntries(users),
	}
	if req.IsEmpty() {
		return ret, nil
	}

	id, token, err := e.session()
	if err != nil {
		return ret, err
	}

	if err := e.Client.UpdateCloudStatus(ctx, token, id, req); err != nil {
		e.checkAuth(err)
		return ret, errors.Wrap(err, "pushing acknowledgments")
	}

	if err := e.inTx(ctx, func(tx *database.DB) error {
		if err := database.ResolveParcelAcks(tx, parcels); err != nil {
			return err
		}
		return database.ResolveUserAcks(tx, users)
	}); err != nil {
		return ret, errors.Wrap(err, "resolving acknowledgments")
	}

	ret.Acknowledged = len(parcels) + len(users)

	log.WithFields(log.Fields{
		"parcels": len(parcels),
		"users":   len(users),
	}).Info("pushed acknowledgments")

	return ret, nil
}

// PushDirty sends the locally changed parcels and the pending sms. Rows the
// server accepts are marked clean, unless they changed again while the push
// was in flight. Rejected rows stay dirty and are sent again next cycle.
func (e *Engine) PushDirty(ctx context.Context) (Result, error) {
	var ret Result

	parcels, err := database.DirtyParcels(e.DB)
	if err != nil {
		return ret, errors.Wrap(err, "reading dirty parcels")
	}
	sms, err := database.DirtySms(e.DB)
	if err != nil {
		return ret, errors.Wrap(err, "reading dirty sms")
	}

	if len(parcels) == 0 && len(sms) == 0 {
		return ret, nil
	}

	id, token, err := e.session()
	if err != nil {
		return ret, err
	}

	req := client.PushRequest{
		Parcels: make([]client.ParcelPayload, 0, len(parcels)),
		Sms:     make([]client.SmsPayload, 0, len(sms)),
	}
	revisions := make(map[string]int, len(parcels))
	for _, p := range parcels {
		req.Parcels = append(req.Parcels, parcelToPayload(p))
		revisions[p.SyncID] = p.Revision
	}
	sent := make(map[string]bool, len(sms))
	for _, s := range sms {
		req.Sms = append(req.Sms, smsToPayload(s))
		sent[s.SyncID] = true
	}

	resp, err := e.Client.UpdateCloudData(ctx, token, id, req)
	if err != nil {
		e.checkAuth(err)
		return ret, errors.Wrap(err, "pushing dirty rows")
	}

	if err := e.inTx(ctx, func(tx *database.DB) error {
		for _, s := range resp.ParcelStatus {
			rev, ok := revisions[s.SyncID]
			if !ok || !s.Status {
				continue
			}

			cleared, err := database.ClearParcelDirty(tx, s.SyncID, rev)
			if err != nil {
				return err
			}
			if cleared {
				ret.Acknowledged++
			}
		}

		for _, s := range resp.SmsStatus {
			if !sent[s.SyncID] || !s.Status {
				continue
			}

			if err := database.DeleteSms(tx, s.SyncID); err != nil {
				return err
			}
			ret.Acknowledged++
		}

		return nil
	}); err != nil {
		return ret, errors.Wrap(err, "applying push outcome")
	}

	ret.Skipped = len(parcels) + len(sms) - ret.Acknowledged

	log.WithFields(log.Fields{
		"parcels":  len(parcels),
		"sms":      len(sms),
		"accepted": ret.Acknowledged,
		"pending":  ret.Skipped,
	}).Info("pushed dirty rows")

	return ret, nil
}
