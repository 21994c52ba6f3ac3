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

package login

import (
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
  # sign in as an operator
  parceltrack login

  # refresh the device session with the server
  parceltrack login --device`

var (
	usernameFlag string
	passwordFlag string
	deviceFlag   bool
)

// NewCmd returns a new login command
func NewCmd(ctx devctx.DeviceCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Sign in an operator, or the device itself with --device",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVarP(&usernameFlag, "username", "u", "", "operator login id")
	f.StringVarP(&passwordFlag, "password", "p", "", "operator password")
	f.BoolVar(&deviceFlag, "device", false, "log the device in with the server instead of an operator")

	return cmd
}

func getCredentials() (string, string, error) {
	username := usernameFlag
	if username == "" {
		if err := ui.PromptInput("login id", &username); err != nil {
			return "", "", errors.Wrap(err, "getting login id")
		}
	}

	password := passwordFlag
	if password == "" {
		if err := ui.PromptPassword("password", &password); err != nil {
			return "", "", errors.Wrap(err, "getting password")
		}
	}

	return username, password, nil
}

func newRun(ctx devctx.DeviceCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if deviceFlag {
			if err := registration.Login(cmd.Context(), ctx); err != nil {
				return errors.Wrap(err, "logging the device in")
			}

			log.Successf("device logged in\n")
			return nil
		}

		username, password, err := getCredentials()
		if err != nil {
			return err
		}

		info, err := operator.Login(ctx.DB, ctx.Store, username, password)
		if err != nil {
			return errors.Wrap(err, "signing in")
		}

		log.Successf("signed in as %s %s\n", info.FirstName, info.Surname)

		return nil
	}
}
