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

// Package syncer exchanges changes between the local store and the remote
// authority. Each phase is safe to retry: a failed phase leaves the local
// store as it was and the next cycle picks the work up again.
package syncer

import (
	"context"
	"fmt"

	"github.com/parceltrack/parceltrack/pkg/clock"
	"github.com/parceltrack/parceltrack/pkg/device/client"
	"github.com/parceltrack/parceltrack/pkg/device/credential"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/log"
	"github.com/pkg/errors"
)

// ErrNotRegistered is returned when the device has no identity or token to
// sync with
var ErrNotRegistered = errors.New("device is not registered or not logged in")

// IntegrityWarning describes a pulled row that could not be applied
type IntegrityWarning struct {
	Table  string
	SyncID string
	Flag   int
	// Reason is set when the flag is valid but a field is not
	Reason string
}

func (w *IntegrityWarning) Error() string {
	if w.Reason != "" {
		return fmt.Sprintf("%s for %s %s", w.Reason, w.Table, w.SyncID)
	}

	return fmt.Sprintf("unknown dirty flag %d for %s %s", w.Flag, w.Table, w.SyncID)
}

func (w *IntegrityWarning) log() {
	fields := log.Fields{
		"table":  w.Table,
		"syncId": w.SyncID,
		"flag":   w.Flag,
	}
	if w.Reason != "" {
		fields["reason"] = w.Reason
	}

	log.WithFields(fields).Warn("skipping pulled row")
}

// Remote is the subset of the server API used for syncing
type Remote interface {
	DeviceLogin(ctx context.Context, id client.DeviceIdentity) (string, error)
	GetCloudData(ctx context.Context, token string, id client.DeviceIdentity) (client.PullResponse, error)
	UpdateCloudStatus(ctx context.Context, token string, id client.DeviceIdentity, req client.StatusRequest) error
	UpdateCloudData(ctx context.Context, token string, id client.DeviceIdentity, req client.PushRequest) (client.PushResponse, error)
}

// Result summarizes one phase
type Result struct {
	// Applied is the number of pulled rows written locally
	Applied int
	// Acknowledged is the number of rows the server confirmed
	Acknowledged int
	// Skipped is the number of rows left untouched or for a later cycle
	Skipped  int
	Warnings []*IntegrityWarning
}

func (r *Result) add(o Result) {
	r.Applied += o.Applied
	r.Acknowledged += o.Acknowledged
	r.Skipped += o.Skipped
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// warn records a pulled row that was skipped
func (r *Result) warn(w *IntegrityWarning) {
	w.log()
	r.Warnings = append(r.Warnings, w)
	r.Skipped++
}

// Engine runs the sync phases
type Engine struct {
	DB     *database.DB
	Client Remote
	Store  credential.Store
	Clock  clock.Clock
}

// New returns an engine
func New(db *database.DB, remote Remote, store credential.Store, c clock.Clock) *Engine {
	return &Engine{
		DB:     db,
		Client: remote,
		Store:  store,
		Clock:  c,
	}
}

func (e *Engine) identity() (client.DeviceIdentity, error) {
	info, err := credential.GetDeviceInfo(e.Store)
	if errors.Cause(err) == credential.ErrNotFound {
		return client.DeviceIdentity{}, ErrNotRegistered
	} else if err != nil {
		return client.DeviceIdentity{}, errors.Wrap(err, "reading device info")
	}

	if info.DeviceID == 0 || info.FacilityID == 0 || info.DevicePassword == "" {
		return client.DeviceIdentity{}, ErrNotRegistered
	}

	return client.DeviceIdentity{
		DeviceID:       info.DeviceID,
		FacilityID:     info.FacilityID,
		DevicePassword: info.DevicePassword,
		MACAddress:     info.MACAddress,
	}, nil
}

// session returns the identity and bearer token to sync with
func (e *Engine) session() (client.DeviceIdentity, string, error) {
	id, err := e.identity()
	if err != nil {
		return id, "", err
	}

	token, err := e.Store.Get(credential.KeyAuthToken)
	if errors.Cause(err) == credential.ErrNotFound || (err == nil && token == "") {
		return id, "", ErrNotRegistered
	} else if err != nil {
		return id, "", errors.Wrap(err, "reading auth token")
	}

	return id, token, nil
}

// checkAuth forgets the token if the server rejected it so that the next
// cycle logs in again
func (e *Engine) checkAuth(err error) {
	if !errors.Is(err, client.ErrAuthExpired) {
		return
	}

	if rmErr := e.Store.Remove(credential.KeyAuthToken); rmErr != nil {
		log.ErrorWrap(rmErr, "removing expired auth token")
	}
}

// Authenticate logs the device in and stores a fresh bearer token
func (e *Engine) Authenticate(ctx context.Context) error {
	id, err := e.identity()
	if err != nil {
		return err
	}

	token, err := e.Client.DeviceLogin(ctx, id)
	if err != nil {
		e.checkAuth(err)
		return errors.Wrap(err, "authenticating")
	}

	if err := e.Store.Set(credential.KeyAuthToken, token); err != nil {
		return errors.Wrap(err, "saving auth token")
	}

	return nil
}
