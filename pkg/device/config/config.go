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

// Package config reads and writes the device configuration file
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/parceltrack/parceltrack/pkg/device/consts"
	"github.com/parceltrack/parceltrack/pkg/device/devctx"
	"github.com/parceltrack/parceltrack/pkg/device/utils"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	envAPIEndpoint    = "PARCELTRACK_API_ENDPOINT"
	envLogLevel       = "PARCELTRACK_LOG_LEVEL"
	envSyncInterval   = "PARCELTRACK_SYNC_INTERVAL"
	envRequestTimeout = "PARCELTRACK_REQUEST_TIMEOUT"
)

var (
	// ErrEndpointInvalid is an error for a configuration with an invalid API endpoint
	ErrEndpointInvalid = errors.New("Invalid API endpoint")
	// ErrIntervalInvalid is an error for a configuration with a negative interval or timeout
	ErrIntervalInvalid = errors.New("Invalid interval")
)

// Config holds the device configuration
type Config struct {
	APIEndpoint       string `yaml:"apiEndpoint"`
	RegistrationKey   string `yaml:"registrationKey,omitempty"`
	SyncIntervalSec   int    `yaml:"syncIntervalSec,omitempty"`
	RequestTimeoutSec int    `yaml:"requestTimeoutSec"`
	LogLevel          string `yaml:"logLevel"`
	LogFile           string `yaml:"logFile,omitempty"`
}

// Params are values given on the command line. They take precedence over the
// environment and the config file.
type Params struct {
	APIEndpoint string
	LogLevel    string
}

// Default returns the config written on the first run
func Default(apiEndpoint string) Config {
	if apiEndpoint == "" {
		apiEndpoint = consts.DefaultAPIEndpoint
	}

	return Config{
		APIEndpoint:       apiEndpoint,
		RequestTimeoutSec: consts.DefaultRequestTimeoutSec,
		LogLevel:          "info",
	}
}

// SyncInterval returns the configured sleep between sync cycles. Zero means
// the interval issued to the device at registration is used.
func (c Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSec) * time.Second
}

// RequestTimeout returns the timeout of a single server call
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// getOrEnv returns value if non-empty, otherwise env var, otherwise default
func getOrEnv(value, envKey, defaultVal string) string {
	if value != "" {
		return value
	}
	if env := os.Getenv(envKey); env != "" {
		return env
	}
	return defaultVal
}

func getIntOrEnv(envKey string, defaultVal int) (int, error) {
	env := os.Getenv(envKey)
	if env == "" {
		return defaultVal, nil
	}

	v, err := strconv.Atoi(env)
	if err != nil {
		return 0, errors.Wrapf(ErrIntervalInvalid, "%s=%q", envKey, env)
	}

	return v, nil
}

// GetPath returns the path to the config file
func GetPath(paths devctx.Paths) string {
	return filepath.Join(paths.Config, consts.DirName, consts.ConfigFilename)
}

// loadEnvFile loads the env file next to the config file, if any. Variables
// already set in the environment are kept.
func loadEnvFile(paths devctx.Paths) error {
	path := filepath.Join(paths.Config, consts.DirName, consts.EnvFilename)

	ok, err := utils.FileExists(path)
	if err != nil {
		return errors.Wrap(err, "checking env file")
	}
	if !ok {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "loading env file %s", path)
	}

	return nil
}

// Read reads the config file
func Read(paths devctx.Paths) (Config, error) {
	var ret Config

	b, err := os.ReadFile(GetPath(paths))
	if err != nil {
		return ret, errors.Wrap(err, "reading config file")
	}

	if err := yaml.Unmarshal(b, &ret); err != nil {
		return ret, errors.Wrap(err, "unmarshalling config")
	}

	return ret, nil
}

// Load reads the config file and resolves it against the env file, the
// environment and the command line, in increasing order of precedence
func Load(paths devctx.Paths, p Params) (Config, error) {
	if err := loadEnvFile(paths); err != nil {
		return Config{}, err
	}

	cf, err := Read(paths)
	if err != nil {
		return Config{}, err
	}

	cf.APIEndpoint = getOrEnv(p.APIEndpoint, envAPIEndpoint, cf.APIEndpoint)
	cf.LogLevel = getOrEnv(p.LogLevel, envLogLevel, cf.LogLevel)

	if cf.SyncIntervalSec, err = getIntOrEnv(envSyncInterval, cf.SyncIntervalSec); err != nil {
		return Config{}, err
	}
	if cf.RequestTimeoutSec, err = getIntOrEnv(envRequestTimeout, cf.RequestTimeoutSec); err != nil {
		return Config{}, err
	}
	if cf.RequestTimeoutSec == 0 {
		cf.RequestTimeoutSec = consts.DefaultRequestTimeoutSec
	}

	if err := validate(cf); err != nil {
		return Config{}, err
	}

	return cf, nil
}

func validate(c Config) error {
	u, err := url.ParseRequestURI(c.APIEndpoint)
	if err != nil || u.Host == "" {
		return errors.Wrapf(ErrEndpointInvalid, "'%s'", c.APIEndpoint)
	}
	if c.SyncIntervalSec < 0 {
		return errors.Wrapf(ErrIntervalInvalid, "sync interval %d", c.SyncIntervalSec)
	}
	if c.RequestTimeoutSec < 0 {
		return errors.Wrapf(ErrIntervalInvalid, "request timeout %d", c.RequestTimeoutSec)
	}

	return nil
}

// Write writes the config to the config file
func Write(paths devctx.Paths, cf Config) error {
	b, err := yaml.Marshal(cf)
	if err != nil {
		return errors.Wrap(err, "marshalling config into YAML")
	}

	if err := utils.WriteFileAtomic(GetPath(paths), b, 0600); err != nil {
		return errors.Wrap(err, "writing the config file")
	}

	return nil
}
