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

// Package consts provides definitions of constants
package consts

var (
	// DirName is the name of the directory containing parceltrack files
	DirName = "parceltrack"
	// DBFileName is a filename for the local SQLite database
	DBFileName = "parceltrack.db"
	// ConfigFilename is the name of the config file
	ConfigFilename = "parceltrackrc"
	// EnvFilename is the name of the optional env file next to the config file
	EnvFilename = ".env"
	// LogFilename is the default name of the agent log file
	LogFilename = "agent.log"

	// DefaultAPIEndpoint is the API endpoint used when none is configured
	DefaultAPIEndpoint = "http://localhost:5000/api"
	// DefaultRequestTimeoutSec is the default timeout of a single server call
	DefaultRequestTimeoutSec = 30
)
