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

// Package infra sets up the local environment of a device: directories, the
// config file, the database and the runtime context
package infra

import (
	"path/filepath"

	"github.com/parceltrack/parceltrack/pkg/clock"
	"github.com/parceltrack/parceltrack/pkg/device/client"
	"github.com/parceltrack/parceltrack/pkg/device/config"
	"github.com/parceltrack/parceltrack/pkg/device/consts"
	"github.com/parceltrack/parceltrack/pkg/device/credential"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/device/devctx"
	"github.com/parceltrack/parceltrack/pkg/device/log"
	"github.com/parceltrack/parceltrack/pkg/device/utils"
	"github.com/parceltrack/parceltrack/pkg/dirs"
	jsonlog "github.com/parceltrack/parceltrack/pkg/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// RunEFunc is a function type of parceltrack commands
type RunEFunc func(*cobra.Command, []string) error

// Options are the values that shape the context before the config is read
type Options struct {
	Version string
	// DefaultEndpoint is written to a new config file
	DefaultEndpoint string
	// APIEndpoint overrides the configured endpoint for this run
	APIEndpoint string
	DBPath      string
	LogLevel    string
}

func getDBPath(paths devctx.Paths, customPath string) string {
	if customPath != "" {
		return customPath
	}

	return filepath.Join(paths.Data, consts.DirName, consts.DBFileName)
}

// newBaseCtx creates a minimal context with paths and a database connection
func newBaseCtx(opts Options) (devctx.DeviceCtx, error) {
	paths := devctx.Paths{
		Home:   dirs.Home,
		Config: dirs.ConfigHome,
		Data:   dirs.DataHome,
		State:  dirs.StateHome,
	}

	if err := devctx.InitDirs(paths); err != nil {
		return devctx.DeviceCtx{}, errors.Wrap(err, "creating the parceltrack dirs")
	}

	db, err := database.Open(getDBPath(paths, opts.DBPath))
	if err != nil {
		return devctx.DeviceCtx{}, errors.Wrap(err, "connecting to db")
	}

	return devctx.DeviceCtx{
		Paths:   paths,
		Version: opts.Version,
		DB:      db,
	}, nil
}

// Init initializes the device environment and returns a new context. A new
// config file gets the override endpoint if one is given, otherwise the
// default one.
func Init(opts Options) (*devctx.DeviceCtx, error) {
	ctx, err := newBaseCtx(opts)
	if err != nil {
		return nil, errors.Wrap(err, "initializing a context")
	}

	endpoint := opts.APIEndpoint
	if endpoint == "" {
		endpoint = opts.DefaultEndpoint
	}
	if err := initConfigFile(ctx, endpoint); err != nil {
		ctx.DB.Close()
		return nil, errors.Wrap(err, "generating the config file")
	}

	if err := database.Migrate(ctx.DB); err != nil {
		ctx.DB.Close()
		return nil, errors.Wrap(err, "running migrations")
	}

	ctx, err = setupCtx(ctx, opts)
	if err != nil {
		ctx.DB.Close()
		return nil, errors.Wrap(err, "setting up the context")
	}

	log.Debug("context: %+v\n", devctx.Redact(ctx))

	return &ctx, nil
}

// setupCtx enriches the base context with values from the config file
func setupCtx(ctx devctx.DeviceCtx, opts Options) (devctx.DeviceCtx, error) {
	cf, err := config.Load(ctx.Paths, config.Params{
		APIEndpoint: opts.APIEndpoint,
		LogLevel:    opts.LogLevel,
	})
	if err != nil {
		return ctx, errors.Wrap(err, "loading config")
	}

	jsonlog.SetLevel(cf.LogLevel)

	ret := devctx.DeviceCtx{
		Paths:           ctx.Paths,
		Version:         ctx.Version,
		DB:              ctx.DB,
		APIEndpoint:     cf.APIEndpoint,
		RegistrationKey: cf.RegistrationKey,
		SyncInterval:    cf.SyncInterval(),
		RequestTimeout:  cf.RequestTimeout(),
		LogLevel:        cf.LogLevel,
		LogFile:         cf.LogFile,
		Store:           credential.NewSystemStore(ctx.DB),
		Clock:           clock.New(),
		Client:          client.New(cf.APIEndpoint, ctx.Version, cf.RequestTimeout()),
	}

	return ret, nil
}

// initConfigFile populates a new config file if it does not exist yet
func initConfigFile(ctx devctx.DeviceCtx, apiEndpoint string) error {
	path := config.GetPath(ctx.Paths)
	ok, err := utils.FileExists(path)
	if err != nil {
		return errors.Wrap(err, "checking if config exists")
	}
	if ok {
		return nil
	}

	if err := config.Write(ctx.Paths, config.Default(apiEndpoint)); err != nil {
		return errors.Wrap(err, "writing config")
	}

	return nil
}

// LogFilePath returns the path of the agent log file
func LogFilePath(ctx devctx.DeviceCtx) string {
	if ctx.LogFile != "" {
		return ctx.LogFile
	}

	return filepath.Join(ctx.Paths.State, consts.DirName, consts.LogFilename)
}
