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
	"database/sql"
	"fmt"

	"github.com/parceltrack/parceltrack/pkg/device/client"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/device/dirty"
	"github.com/parceltrack/parceltrack/pkg/log"
	"github.com/pkg/errors"
)

// PullDelta fetches the server's changes and merges them into the local store.
// Each table is applied in a single transaction. A table that fails to apply
// does not keep the other from being applied; its rows come again in a later
// delta.
func (e *Engine) PullDelta(ctx context.Context) (Result, error) {
	var ret Result

	id, token, err := e.session()
	if err != nil {
		return ret, err
	}

	delta, err := e.Client.GetCloudData(ctx, token, id)
	if err != nil {
		e.checkAuth(err)
		return ret, errors.Wrap(err, "pulling delta")
	}

	if delta.IsEmpty() {
		return ret, nil
	}

	var parcels, users Result
	parcelErr := e.inTx(ctx, func(tx *database.DB) error {
		for _, p := range delta.Parcels {
			if err := e.applyParcel(tx, p, &parcels); err != nil {
				return err
			}
		}
		return nil
	})
	if parcelErr == nil {
		ret.add(parcels)
	}

	userErr := e.inTx(ctx, func(tx *database.DB) error {
		for _, u := range delta.Users {
			if err := applyUser(tx, u, &users); err != nil {
				return err
			}
		}
		return nil
	})
	if userErr == nil {
		ret.add(users)
	}

	if parcelErr != nil {
		return ret, errors.Wrap(parcelErr, "applying pulled parcels")
	}
	if userErr != nil {
		return ret, errors.Wrap(userErr, "applying pulled users")
	}

	log.WithFields(log.Fields{
		"parcels": len(delta.Parcels),
		"users":   len(delta.Users),
		"applied": ret.Applied,
		"skipped": ret.Skipped,
	}).Info("pulled delta")

	return ret, nil
}

func (e *Engine) inTx(ctx context.Context, fn func(tx *database.DB) error) error {
	tx, err := e.DB.BeginTx(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing a transaction")
	}

	return nil
}

func (e *Engine) applyParcel(tx *database.DB, p client.ParcelPayload, ret *Result) error {
	flag := dirty.RemoteFromWire(p.DirtyFlag)

	switch flag {
	case dirty.NoOp:
		ret.Skipped++
		return nil
	case dirty.Upsert, dirty.Update:
		if reason := invalidDates(p); reason != "" {
			ret.warn(&IntegrityWarning{Table: "parcels", SyncID: p.SyncID, Flag: p.DirtyFlag, Reason: reason})
			return nil
		}

		row, err := mergeParcel(tx, parcelFromPayload(p))
		if err != nil {
			return err
		}

		if flag == dirty.Update {
			ok, err := database.UpdateParcel(tx, row)
			if err != nil {
				return err
			}
			if ok {
				ret.Applied++
				return nil
			}
		}

		if err := database.UpsertParcel(tx, row); err != nil {
			return err
		}
	case dirty.Delete:
		if err := database.DeleteParcel(tx, p.SyncID); err != nil {
			return err
		}
		if err := database.InsertParcelTombstone(tx, p.SyncID); err != nil {
			return err
		}
	default:
		ret.warn(&IntegrityWarning{Table: "parcels", SyncID: p.SyncID, Flag: p.DirtyFlag})
		return nil
	}

	ret.Applied++
	return nil
}

func invalidDates(p client.ParcelPayload) string {
	if !p.DateOfBirth.Valid() {
		return fmt.Sprintf("invalid dateOfBirth %q", string(p.DateOfBirth))
	}
	if !p.DueDate.Valid() {
		return fmt.Sprintf("invalid dueDate %q", string(p.DueDate))
	}

	return ""
}

// mergeParcel resolves a pulled parcel against the local row. A parcel with
// an unpushed local change keeps its workflow state and stays dirty.
func mergeParcel(tx *database.DB, pulled database.Parcel) (database.Parcel, error) {
	local, err := database.GetParcel(tx, pulled.SyncID)
	if errors.Cause(err) == sql.ErrNoRows {
		pulled.Revision = 1
		return pulled, nil
	} else if err != nil {
		return pulled, err
	}

	pulled.Revision = local.Revision + 1
	if local.DirtyFlag.IsDirty() && !local.IsTombstone() {
		pulled = keepLocalState(pulled, local)

		log.WithFields(log.Fields{
			"syncId": pulled.SyncID,
			"dirty":  local.DirtyFlag.String(),
		}).Debug("kept local state of pulled parcel")
	}

	return pulled, nil
}

func applyUser(tx *database.DB, u client.UserPayload, ret *Result) error {
	flag := dirty.RemoteFromWire(u.DirtyFlag)

	switch flag {
	case dirty.NoOp:
		ret.Skipped++
		return nil
	case dirty.Upsert, dirty.Update:
		row := userFromPayload(u)
		row.Revision = 1

		local, err := database.GetUser(tx, u.SyncID)
		if err == nil {
			row.Revision = local.Revision + 1
		} else if errors.Cause(err) != sql.ErrNoRows {
			return err
		}

		if flag == dirty.Update {
			ok, err := database.UpdateUser(tx, row)
			if err != nil {
				return err
			}
			if ok {
				ret.Applied++
				return nil
			}
		}

		if err := database.UpsertUser(tx, row); err != nil {
			return err
		}
	case dirty.Delete:
		if err := database.DeleteUser(tx, u.SyncID); err != nil {
			return err
		}
		if err := database.InsertUserTombstone(tx, u.SyncID); err != nil {
			return err
		}
	default:
		ret.warn(&IntegrityWarning{Table: "users", SyncID: u.SyncID, Flag: u.DirtyFlag})
		return nil
	}

	ret.Applied++
	return nil
}
