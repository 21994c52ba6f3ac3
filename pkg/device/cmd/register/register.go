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

package register

import (
	"github.com/parceltrack/parceltrack/pkg/device/devctx"
	"github.com/parceltrack/parceltrack/pkg/device/infra"
	"github.com/parceltrack/parceltrack/pkg/device/log"
	"github.com/parceltrack/parceltrack/pkg/device/registration"
	"github.com/parceltrack/parceltrack/pkg/device/ui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  # register with the key issued by the facility
  parceltrack register --key REG-KEY

  # use the key from the config file
  parceltrack register`

var (
	keyFlag string
	macFlag string
)

// NewCmd returns a new register command
func NewCmd(ctx devctx.DeviceCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "register",
		Short:   "Register this device with a facility",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVarP(&keyFlag, "key", "k", "", "registration key issued by the facility (defaults to value in config)")
	f.StringVar(&macFlag, "mac", "", "hardware address to register (defaults to the first network interface)")

	return cmd
}

func getKey(ctx devctx.DeviceCtx) (string, error) {
	if keyFlag != "" {
		return keyFlag, nil
	}
	if ctx.RegistrationKey != "" {
		return ctx.RegistrationKey, nil
	}

	var key string
	if err := ui.PromptInput("registration key", &key); err != nil {
		return "", errors.Wrap(err, "getting registration key")
	}

	return key, nil
}

func newRun(ctx devctx.DeviceCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		key, err := getKey(ctx)
		if err != nil {
			return err
		}

		d, err := registration.RegisterDevice(cmd.Context(), ctx, registration.Payload{
			RegistrationKey: key,
			MACAddress:      macFlag,
		})
		if err != nil {
			return errors.Wrap(err, "registering the device")
		}

		log.Successf("registered as device %d of facility %d\n", d.DeviceID, d.FacilityID)

		if err := registration.Login(cmd.Context(), ctx); err != nil {
			log.Warnf("could not log in yet: %s\n", err.Error())
			return nil
		}

		log.Successf("logged in\n")

		return nil
	}
}
