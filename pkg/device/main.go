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

package main

import (
	"os"
	"strings"

	"github.com/parceltrack/parceltrack/pkg/device/infra"
	"github.com/parceltrack/parceltrack/pkg/device/log"
	"github.com/pkg/errors"

	// commands
	"github.com/parceltrack/parceltrack/pkg/device/cmd/agent"
	"github.com/parceltrack/parceltrack/pkg/device/cmd/deregister"
	"github.com/parceltrack/parceltrack/pkg/device/cmd/login"
	"github.com/parceltrack/parceltrack/pkg/device/cmd/logout"
	"github.com/parceltrack/parceltrack/pkg/device/cmd/parcel"
	"github.com/parceltrack/parceltrack/pkg/device/cmd/register"
	"github.com/parceltrack/parceltrack/pkg/device/cmd/root"
	"github.com/parceltrack/parceltrack/pkg/device/cmd/scan"
	"github.com/parceltrack/parceltrack/pkg/device/cmd/status"
	"github.com/parceltrack/parceltrack/pkg/device/cmd/sync"
	"github.com/parceltrack/parceltrack/pkg/device/cmd/version"
)

// apiEndpoint and versionTag are populated during link time
var apiEndpoint string
var versionTag = "master"

// parseFlag extracts the value of a persistent flag from the command line
// arguments regardless of where it appears. Returns an empty string if not
// found.
func parseFlag(args []string, name string) string {
	prefix := "--" + name
	for i, arg := range args {
		if strings.HasPrefix(arg, prefix+"=") {
			return strings.TrimPrefix(arg, prefix+"=")
		}
		if arg == prefix && i+1 < len(args) {
			return args[i+1]
		}
	}

	return ""
}

func main() {
	// persistent flags shape the context, which must exist before cobra
	// parses the command line
	args := os.Args[1:]

	ctx, err := infra.Init(infra.Options{
		Version:         versionTag,
		DefaultEndpoint: apiEndpoint,
		APIEndpoint:     parseFlag(args, "apiEndpoint"),
		DBPath:          parseFlag(args, "dbPath"),
		LogLevel:        parseFlag(args, "logLevel"),
	})
	if err != nil {
		log.Errorf("%s\n", errors.Wrap(err, "initializing context").Error())
		os.Exit(1)
	}
	defer ctx.DB.Close()

	root.Register(register.NewCmd(*ctx))
	root.Register(login.NewCmd(*ctx))
	root.Register(logout.NewCmd(*ctx))
	root.Register(scan.NewCmd(*ctx))
	root.Register(parcel.NewCmd(*ctx))
	root.Register(sync.NewCmd(*ctx))
	root.Register(agent.NewCmd(*ctx))
	root.Register(status.NewCmd(*ctx))
	root.Register(deregister.NewCmd(*ctx))
	root.Register(version.NewCmd(*ctx))

	if err := root.Execute(); err != nil {
		log.Errorf("%s\n", err.Error())
		ctx.DB.Close()
		os.Exit(1)
	}
}
