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

//go:build linux || darwin || freebsd || android

package dirs

import (
	"path/filepath"
)

var (
	envConfigHome = "XDG_CONFIG_HOME"
	envDataHome   = "XDG_DATA_HOME"
	envStateHome  = "XDG_STATE_HOME"

	// envRoot puts every directory under one root, e.g. on a kiosk device
	// that mounts persistent storage at a fixed path
	envRoot = "PARCELTRACK_HOME"
)

func initDirs() {
	Home = getHomeDir()

	if root := readPath(envRoot, ""); root != "" {
		ConfigHome = readPath(envConfigHome, filepath.Join(root, "config"))
		DataHome = readPath(envDataHome, filepath.Join(root, "data"))
		StateHome = readPath(envStateHome, filepath.Join(root, "state"))
		return
	}

	ConfigHome = readPath(envConfigHome, filepath.Join(Home, ".config"))
	DataHome = readPath(envDataHome, filepath.Join(Home, ".local", "share"))
	StateHome = readPath(envStateHome, filepath.Join(Home, ".local", "state"))
}
