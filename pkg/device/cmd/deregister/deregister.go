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

package deregister

import (
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/device/devctx"
	"github.com/parceltrack/parceltrack/pkg/device/infra"
	"github.com/parceltrack/parceltrack/pkg/device/log"
	"github.com/parceltrack/parceltrack/pkg/device/operator"
	"github.com/parceltrack/parceltrack/pkg/device/registration"
	"github.com/parceltrack/parceltrack/pkg/device/ui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  parceltrack deregister

  # skip the confirmation
  parceltrack deregister --yes`

var (
	yesFlag      bool
	operatorFlag int64
)

// NewCmd returns a new deregister command
func NewCmd(ctx devctx.DeviceCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deregister",
		Short:   "Remove this device from its facility and wipe local data",
		Example: example,
		Args:    cobra.NoArgs,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.BoolVarP(&yesFlag, "yes", "y", false, "do not ask for confirmation")
	f.Int64Var(&operatorFlag, "operator", 0, "operator user id (defaults to the signed in operator)")

	return cmd
}

func confirm(ctx devctx.DeviceCtx) (bool, error) {
	if yesFlag {
		return true, nil
	}

	pending, err := database.CountPending(ctx.DB)
	if err != nil {
		return false, errors.Wrap(err, "counting pending rows")
	}
	if pending.Total() > 0 {
		log.Warnf("%d rows have not been synced and will be lost\n", pending.Total())
	}

	return ui.Confirm("deregister this device?", false)
}

func newRun(ctx devctx.DeviceCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		userID, err := operator.ID(ctx.Store, operatorFlag)
		if err != nil {
			return errors.Wrap(err, "resolving operator")
		}

		ok, err := confirm(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if err := registration.Deregister(cmd.Context(), ctx, userID); err != nil {
			return errors.Wrap(err, "deregistering")
		}

		log.Successf("device deregistered. Local data was wiped\n")

		return nil
	}
}
