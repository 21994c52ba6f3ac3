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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parceltrack/parceltrack/pkg/assert"
	"github.com/parceltrack/parceltrack/pkg/device/consts"
	"github.com/parceltrack/parceltrack/pkg/device/devctx"
	"github.com/pkg/errors"
)

func setupPaths(t *testing.T) devctx.Paths {
	paths := devctx.Paths{Config: t.TempDir()}
	if err := devctx.InitDirs(paths); err != nil {
		t.Fatal(errors.Wrap(err, "initializing dirs"))
	}

	return paths
}

func clearEnv(t *testing.T) {
	for _, k := range []string{envAPIEndpoint, envLogLevel, envSyncInterval, envRequestTimeout} {
		t.Setenv(k, "")
	}
}

func TestReadWrite(t *testing.T) {
	paths := setupPaths(t)
	cf := Config{
		APIEndpoint:       "https://api.example.com",
		RegistrationKey:   "REG-KEY",
		SyncIntervalSec:   60,
		RequestTimeoutSec: 10,
		LogLevel:          "debug",
	}

	if err := Write(paths, cf); err != nil {
		t.Fatal(errors.Wrap(err, "writing config"))
	}

	got, err := Read(paths)
	if err != nil {
		t.Fatal(errors.Wrap(err, "reading config"))
	}

	assert.Equal(t, got, cf, "config mismatch")
	assert.Equal(t, got.SyncInterval(), time.Minute, "sync interval mismatch")
	assert.Equal(t, got.RequestTimeout(), 10*time.Second, "timeout mismatch")
}

func TestLoad(t *testing.T) {
	testCases := []struct {
		name     string
		env      map[string]string
		params   Params
		expected Config
	}{
		{
			name:     "file only",
			expected: Config{APIEndpoint: "https://file.example.com", SyncIntervalSec: 15, RequestTimeoutSec: 30, LogLevel: "info"},
		},
		{
			name: "env overrides file",
			env: map[string]string{
				envAPIEndpoint:    "https://env.example.com",
				envSyncInterval:   "90",
				envRequestTimeout: "5",
			},
			expected: Config{APIEndpoint: "https://env.example.com", SyncIntervalSec: 90, RequestTimeoutSec: 5, LogLevel: "info"},
		},
		{
			name:     "params override env",
			env:      map[string]string{envAPIEndpoint: "https://env.example.com", envLogLevel: "warn"},
			params:   Params{APIEndpoint: "https://flag.example.com", LogLevel: "debug"},
			expected: Config{APIEndpoint: "https://flag.example.com", SyncIntervalSec: 15, RequestTimeoutSec: 30, LogLevel: "debug"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			paths := setupPaths(t)
			if err := Write(paths, Config{APIEndpoint: "https://file.example.com", SyncIntervalSec: 15, LogLevel: "info"}); err != nil {
				t.Fatal(errors.Wrap(err, "writing config"))
			}

			got, err := Load(paths, tc.params)
			if err != nil {
				t.Fatal(errors.Wrap(err, "loading config"))
			}

			assert.Equal(t, got, tc.expected, "config mismatch")
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(envAPIEndpoint)

	paths := setupPaths(t)
	if err := Write(paths, Default("")); err != nil {
		t.Fatal(errors.Wrap(err, "writing config"))
	}

	envPath := filepath.Join(paths.Config, consts.DirName, consts.EnvFilename)
	if err := os.WriteFile(envPath, []byte(envAPIEndpoint+"=https://dotenv.example.com\n"), 0600); err != nil {
		t.Fatal(errors.Wrap(err, "writing env file"))
	}
	t.Cleanup(func() { os.Unsetenv(envAPIEndpoint) })

	got, err := Load(paths, Params{})
	if err != nil {
		t.Fatal(errors.Wrap(err, "loading config"))
	}

	assert.Equal(t, got.APIEndpoint, "https://dotenv.example.com", "endpoint mismatch")
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		name     string
		cf       Config
		env      map[string]string
		expected error
	}{
		{name: "endpoint", cf: Config{APIEndpoint: "not a url"}, expected: ErrEndpointInvalid},
		{name: "negative interval", cf: Config{APIEndpoint: "https://a.example.com", SyncIntervalSec: -1}, expected: ErrIntervalInvalid},
		{name: "env interval", cf: Config{APIEndpoint: "https://a.example.com"}, env: map[string]string{envSyncInterval: "soon"}, expected: ErrIntervalInvalid},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			paths := setupPaths(t)
			if err := Write(paths, tc.cf); err != nil {
				t.Fatal(errors.Wrap(err, "writing config"))
			}

			_, err := Load(paths, Params{})
			assert.Equal(t, errors.Cause(err), tc.expected, "error mismatch")
		})
	}
}

func TestDefault(t *testing.T) {
	assert.Equal(t, Default("").APIEndpoint, consts.DefaultAPIEndpoint, "default endpoint mismatch")
	assert.Equal(t, Default("https://a.example.com").APIEndpoint, "https://a.example.com", "endpoint mismatch")
}
