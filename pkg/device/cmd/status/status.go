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

package status

import (
	"time"

	"github.com/fatih/color"
	"github.com/parceltrack/parceltrack/pkg/clock"
	"github.com/parceltrack/parceltrack/pkg/device/client"
	"github.com/parceltrack/parceltrack/pkg/device/credential"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/device/devctx"
	"github.com/parceltrack/parceltrack/pkg/device/infra"
	"github.com/parceltrack/parceltrack/pkg/device/log"
	"github.com/parceltrack/parceltrack/pkg/device/parcel"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  # today's report
  parceltrack status

  # a past day
  parceltrack status --day 2026-10-01`

var dayFlag string

// NewCmd returns a new status command
func NewCmd(ctx devctx.DeviceCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show the day report and the rows waiting to be synced",
		Example: example,
		Args:    cobra.NoArgs,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVar(&dayFlag, "day", "", "day to report on (YYYY-MM-DD, defaults to today)")

	return cmd
}

func getDay(c clock.Clock) (time.Time, error) {
	if dayFlag == "" {
		return c.Now(), nil
	}

	t, err := time.Parse(client.DateLayout, dayFlag)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing day %q", dayFlag)
	}

	return t, nil
}

func printDevice(ctx devctx.DeviceCtx) (int64, error) {
	info, err := credential.GetDeviceInfo(ctx.Store)
	if errors.Cause(err) == credential.ErrNotFound {
		log.Warnf("device is not registered\n")
		return 0, nil
	} else if err != nil {
		return 0, errors.Wrap(err, "reading device info")
	}

	session := "none"
	if _, err := ctx.Store.Get(credential.KeyAuthToken); err == nil {
		session = "active"
	}

	log.Infof("device %d, facility %d, session %s\n", info.DeviceID, info.FacilityID, session)

	return info.FacilityID, nil
}

func printReport(r parcel.Report) {
	log.Plainf("%s\n", color.New(color.Bold).Sprint(r.Day))
	log.Countf(r.ScannedIn, "scanned in")
	log.Countf(r.ScannedOutPin, "collected with pin")
	log.Countf(r.ScannedOutID, "collected with id")
	log.Countf(r.Returned, "returned")
	log.Countf(r.AwaitingScanIn, "awaiting scan-in")
	log.Countf(r.ReadyForCollection, "ready for collection")
}

func printPending(p database.PendingCounts) {
	if p.Total() == 0 {
		log.Successf("everything is synced\n")
		return
	}

	log.Warnf("pending: %d parcels, %d sms, %d acknowledgments\n", p.Parcels, p.Sms, p.Acks)
}

func newRun(ctx devctx.DeviceCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		c := clock.OrNew(ctx.Clock)

		day, err := getDay(c)
		if err != nil {
			return err
		}

		facilityID, err := printDevice(ctx)
		if err != nil {
			return err
		}

		r, err := parcel.New(ctx.DB, c).Report(cmd.Context(), facilityID, day)
		if err != nil {
			return errors.Wrap(err, "building the report")
		}

		printReport(r)
		printPending(r.Pending)

		return nil
	}
}
