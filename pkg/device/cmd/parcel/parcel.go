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
	"github.com/parceltrack/parceltrack/pkg/clock"
	"github.com/parceltrack/parceltrack/pkg/device/credential"
	"github.com/parceltrack/parceltrack/pkg/device/devctx"
	"github.com/parceltrack/parceltrack/pkg/device/infra"
	"github.com/parceltrack/parceltrack/pkg/device/log"
	"github.com/parceltrack/parceltrack/pkg/device/parcel"
	"github.com/parceltrack/parceltrack/pkg/device/syncer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  parceltrack parcel add --barcode 6001234567890 --surname Khumalo \
    --first-name Thandi --cellphone 0821234567 --due 2026-11-01`

var input parcel.NewParcel

// NewCmd returns a new parcel command
func NewCmd(ctx devctx.DeviceCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parcel",
		Short: "Manage parcels on this device",
	}

	add := &cobra.Command{
		Use:     "add",
		Short:   "Register a parcel awaiting scan-in",
		Example: example,
		Args:    cobra.NoArgs,
		RunE:    newAddRun(ctx),
	}

	f := add.Flags()
	f.StringVar(&input.Barcode, "barcode", "", "parcel barcode")
	f.StringVar(&input.Title, "title", "", "patient title")
	f.StringVar(&input.FirstName, "first-name", "", "patient first name")
	f.StringVar(&input.Surname, "surname", "", "patient surname")
	f.StringVar(&input.Cellphone, "cellphone", "", "patient cellphone number")
	f.StringVar(&input.IDNumber, "id-number", "", "patient id number")
	f.StringVar(&input.DateOfBirth, "dob", "", "patient date of birth (YYYY-MM-DD)")
	f.StringVar(&input.Gender, "gender", "", "patient gender")
	f.StringVar(&input.DueDate, "due", "", "collection due date (YYYY-MM-DD)")
	f.StringVar(&input.DispatchRef, "dispatch-ref", "", "dispatch reference")
	f.StringVar(&input.ConsignmentNo, "consignment", "", "consignment number")

	cmd.AddCommand(add)

	return cmd
}

func newAddRun(ctx devctx.DeviceCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		info, err := credential.GetDeviceInfo(ctx.Store)
		if errors.Cause(err) == credential.ErrNotFound {
			return syncer.ErrNotRegistered
		} else if err != nil {
			return errors.Wrap(err, "reading device info")
		}

		n := input
		n.DeviceID = info.DeviceID
		n.FacilityID = info.FacilityID

		p, err := parcel.New(ctx.DB, clock.OrNew(ctx.Clock)).Register(cmd.Context(), n)
		if err != nil {
			return errors.Wrap(err, "registering parcel")
		}

		log.Successf("added %s (%s)\n", log.Barcode(p.Barcode.String), p.SyncID)

		return nil
	}
}
