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

package logout

import (
	"github.com/parceltrack/parceltrack/pkg/device/devctx"
	"github.com/parceltrack/parceltrack/pkg/device/infra"
	"github.com/parceltrack/parceltrack/pkg/device/log"
	"github.com/parceltrack/parceltrack/pkg/device/operator"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  parceltrack logout`

// NewCmd returns a new logout command
func NewCmd(ctx devctx.DeviceCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "logout",
		Short:   "Sign the current operator out",
		Example: example,
		RunE:    newRun(ctx),
	}

	return cmd
}

// Do signs the current operator out
func Do(ctx devctx.DeviceCtx) error {
	if _, err := operator.Current(ctx.Store); err != nil {
		return err
	}

	if err := operator.Logout(ctx.Store); err != nil {
		return errors.Wrap(err, "signing out")
	}

	return nil
}

func newRun(ctx devctx.DeviceCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		err := Do(ctx)
		if errors.Cause(err) == operator.ErrNotLoggedIn {
			log.Errorf("not signed in\n")
			return nil
		} else if err != nil {
			return errors.Wrap(err, "logging out")
		}

		log.Successf("signed out\n")

		return nil
	}
}
