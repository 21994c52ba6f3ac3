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
	"time"

	"github.com/parceltrack/parceltrack/pkg/device/client"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/pkg/errors"
)

// Report is the day summary shown to facility staff
type Report struct {
	database.DayReport
	Pending database.PendingCounts
}

// Report summarizes the given day for a facility along with the rows still
// waiting to be synchronized
func (a *Applier) Report(ctx context.Context, facilityID int64, day time.Time) (Report, error) {
	var ret Report

	if err := ctx.Err(); err != nil {
		return ret, err
	}

	dr, err := database.GetDayReport(a.DB, facilityID, day.UTC().Format(client.DateLayout))
	if err != nil {
		return ret, &StorageError{Op: "report", Err: err}
	}

	pending, err := database.CountPending(a.DB)
	if err != nil {
		return ret, &StorageError{Op: "report", Err: errors.Wrap(err, "counting pending rows")}
	}

	ret.DayReport = dr
	ret.Pending = pending

	return ret, nil
}
