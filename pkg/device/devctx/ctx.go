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

// Package devctx defines the runtime context shared by device commands
package devctx

import (
	"path/filepath"
	"time"

	"github.com/parceltrack/parceltrack/pkg/clock"
	"github.com/parceltrack/parceltrack/pkg/device/client"
	"github.com/parceltrack/parceltrack/pkg/device/consts"
	"github.com/parceltrack/parceltrack/pkg/device/credential"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/device/utils"
	"github.com/pkg/errors"
)

// Paths contain directory definitions
type Paths struct {
	Home   string
	Config string
	Data   string
	State  string
}

// DeviceCtx holds the information of the current runtime
type DeviceCtx struct {
	Paths           Paths
	Version         string
	APIEndpoint     string
	RegistrationKey string
	SyncInterval    time.Duration
	RequestTimeout  time.Duration
	LogLevel        string
	LogFile         string
	DB              *database.DB
	Store           credential.Store
	Clock           clock.Clock
	Client          *client.Client
}

const redacted = "[redacted]"

// Mask hides a secret, keeping only whether it is set
func Mask(s string) string {
	if s == "" {
		return ""
	}

	return redacted
}

// Redact replaces private information from the context with placeholder values
func Redact(ctx DeviceCtx) DeviceCtx {
	ctx.RegistrationKey = Mask(ctx.RegistrationKey)

	return ctx
}

// RedactDeviceInfo hides the device password
func RedactDeviceInfo(info credential.DeviceInfo) credential.DeviceInfo {
	info.DevicePassword = Mask(info.DevicePassword)

	return info
}

// InitDirs creates the parceltrack directories if they don't already exist
func InitDirs(paths Paths) error {
	if paths.Config != "" {
		if err := utils.EnsureDir(filepath.Join(paths.Config, consts.DirName)); err != nil {
			return errors.Wrap(err, "initializing config dir")
		}
	}
	if paths.Data != "" {
		if err := utils.EnsureDir(filepath.Join(paths.Data, consts.DirName)); err != nil {
			return errors.Wrap(err, "initializing data dir")
		}
	}
	if paths.State != "" {
		if err := utils.EnsureDir(filepath.Join(paths.State, consts.DirName)); err != nil {
			return errors.Wrap(err, "initializing state dir")
		}
	}

	return nil
}
