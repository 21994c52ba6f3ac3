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

package scan

import (
	"github.com/parceltrack/parceltrack/pkg/clock"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/device/devctx"
	"github.com/parceltrack/parceltrack/pkg/device/infra"
	"github.com/parceltrack/parceltrack/pkg/device/log"
	"github.com/parceltrack/parceltrack/pkg/device/operator"
	"github.com/parceltrack/parceltrack/pkg/device/parcel"
	"github.com/parceltrack/parceltrack/pkg/device/ui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  # receive a parcel at the facility
  parceltrack scan in 6001234567890

  # hand a parcel over after checking the passcode
  parceltrack scan out 6001234567890 --credential pin --value 12345

  # send an uncollected parcel back
  parceltrack scan return 6001234567890`

var (
	operatorFlag   int64
	credentialFlag string
	valueFlag      string
)

// NewCmd returns a new scan command
func NewCmd(ctx devctx.DeviceCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scan",
		Short:   "Record a parcel scan",
		Example: example,
	}

	cmd.PersistentFlags().Int64Var(&operatorFlag, "operator", 0, "operator user id (defaults to the signed in operator)")

	out := &cobra.Command{
		Use:   "out <barcode>",
		Short: "Hand a parcel over to the patient",
		Args:  cobra.ExactArgs(1),
		RunE:  newOutRun(ctx),
	}
	out.Flags().StringVar(&credentialFlag, "credential", "pin", "credential presented by the patient (id or pin)")
	out.Flags().StringVar(&valueFlag, "value", "", "the id number or passcode")

	cmd.AddCommand(&cobra.Command{
		Use:   "in <barcode>",
		Short: "Receive a parcel at the facility",
		Args:  cobra.ExactArgs(1),
		RunE:  newInRun(ctx),
	})
	cmd.AddCommand(out)
	cmd.AddCommand(&cobra.Command{
		Use:   "return <barcode>",
		Short: "Return an uncollected parcel",
		Args:  cobra.ExactArgs(1),
		RunE:  newReturnRun(ctx),
	})

	return cmd
}

func newApplier(ctx devctx.DeviceCtx) *parcel.Applier {
	return parcel.New(ctx.DB, clock.OrNew(ctx.Clock))
}

func printParcel(action string, p database.Parcel) {
	log.Successf("%s %s (%s %s)\n", action, log.Barcode(p.Barcode.String), p.FirstName.String, p.Surname.String)
}

func newInRun(ctx devctx.DeviceCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		operatorID, err := operator.ID(ctx.Store, operatorFlag)
		if err != nil {
			return errors.Wrap(err, "resolving operator")
		}

		p, err := newApplier(ctx).ScanIn(cmd.Context(), args[0], operatorID)
		if err != nil {
			return errors.Wrap(err, "scanning in")
		}

		printParcel("scanned in", p)
		log.Plainf("the passcode will be sent to %s\n", p.Cellphone.String)

		return nil
	}
}

func getValue() (string, error) {
	if valueFlag != "" {
		return valueFlag, nil
	}

	var v string
	if err := ui.PromptPassword("id number or passcode", &v); err != nil {
		return "", errors.Wrap(err, "getting credential")
	}

	return v, nil
}

func newOutRun(ctx devctx.DeviceCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		operatorID, err := operator.ID(ctx.Store, operatorFlag)
		if err != nil {
			return errors.Wrap(err, "resolving operator")
		}

		kind, err := parcel.ParseCredentialKind(credentialFlag)
		if err != nil {
			return err
		}

		value, err := getValue()
		if err != nil {
			return err
		}

		p, err := newApplier(ctx).ScanOut(cmd.Context(), args[0], operatorID, kind, value)
		if err != nil {
			return errors.Wrap(err, "scanning out")
		}

		printParcel("collected", p)

		return nil
	}
}

func newReturnRun(ctx devctx.DeviceCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		operatorID, err := operator.ID(ctx.Store, operatorFlag)
		if err != nil {
			return errors.Wrap(err, "resolving operator")
		}

		p, err := newApplier(ctx).Return(cmd.Context(), args[0], operatorID)
		if err != nil {
			return errors.Wrap(err, "returning")
		}

		printParcel("returned", p)

		return nil
	}
}
