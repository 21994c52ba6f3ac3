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

// Package registration manages the lifecycle of this device with the server
package registration

import (
	"context"

	"github.com/parceltrack/parceltrack/pkg/clock"
	"github.com/parceltrack/parceltrack/pkg/device/client"
	"github.com/parceltrack/parceltrack/pkg/device/credential"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/device/devctx"
	"github.com/parceltrack/parceltrack/pkg/device/macaddr"
	"github.com/parceltrack/parceltrack/pkg/device/syncer"
	"github.com/parceltrack/parceltrack/pkg/log"
	"github.com/pkg/errors"
)

var (
	// ErrAlreadyRegistered is returned when registering a device that has an identity
	ErrAlreadyRegistered = errors.New("device is already registered")
	// ErrMissingKey is returned when no registration key is given
	ErrMissingKey = errors.New("registration key is required")
	// ErrNotConfirmed is returned when the server does not confirm a deregistration
	ErrNotConfirmed = errors.New("server did not confirm the deregistration")
)

// Payload is the input to RegisterDevice
type Payload struct {
	RegistrationKey string
	// MACAddress defaults to the address of the first usable interface
	MACAddress string
}

// IsRegistered returns true if the device has a stored identity
func IsRegistered(dctx devctx.DeviceCtx) (bool, error) {
	_, err := credential.GetDeviceInfo(dctx.Store)
	if errors.Cause(err) == credential.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, errors.Wrap(err, "reading device info")
	}

	return true, nil
}

// RegisterDevice registers this installation with the facility that issued
// the key and stores the identity the server returns
func RegisterDevice(ctx context.Context, dctx devctx.DeviceCtx, p Payload) (database.Device, error) {
	if p.RegistrationKey == "" {
		return database.Device{}, ErrMissingKey
	}

	ok, err := IsRegistered(dctx)
	if err != nil {
		return database.Device{}, err
	}
	if ok {
		return database.Device{}, ErrAlreadyRegistered
	}

	mac := p.MACAddress
	if mac == "" {
		mac = macaddr.Get()
	}

	resp, err := dctx.Client.RegisterDevice(ctx, p.RegistrationKey, mac)
	if err != nil {
		return database.Device{}, err
	}

	d := database.Device{
		DeviceID:        resp.ID,
		FacilityID:      resp.FacilityID,
		PartnerID:       database.NullInt(resp.PartnerID),
		DevicePassword:  resp.DevicePassword,
		MACAddress:      mac,
		SyncIntervalSec: resp.SyncIntervalInSec,
		RegisteredAt:    clock.Timestamp(dctx.Clock),
	}
	if err := database.SaveDevice(dctx.DB, d); err != nil {
		return d, err
	}

	if err := credential.SetDeviceInfo(dctx.Store, credential.DeviceInfo{
		DeviceID:       d.DeviceID,
		FacilityID:     d.FacilityID,
		DevicePassword: d.DevicePassword,
		MACAddress:     mac,
	}); err != nil {
		return d, errors.Wrap(err, "saving device info")
	}

	log.WithFields(log.Fields{
		"deviceId":   d.DeviceID,
		"facilityId": d.FacilityID,
	}).Info("registered device")

	return database.GetDevice(dctx.DB)
}

func identity(info credential.DeviceInfo) client.DeviceIdentity {
	return client.DeviceIdentity{
		DeviceID:       info.DeviceID,
		FacilityID:     info.FacilityID,
		DevicePassword: info.DevicePassword,
		MACAddress:     info.MACAddress,
	}
}

func newEngine(dctx devctx.DeviceCtx) *syncer.Engine {
	return syncer.New(dctx.DB, dctx.Client, dctx.Store, dctx.Clock)
}

// Login exchanges the stored device credential for a bearer token
func Login(ctx context.Context, dctx devctx.DeviceCtx) error {
	return newEngine(dctx).Authenticate(ctx)
}

// Deregister removes this device from the server on behalf of the given
// operator. Once the server confirms, every local row and credential is wiped.
func Deregister(ctx context.Context, dctx devctx.DeviceCtx, userID int64) error {
	info, err := credential.GetDeviceInfo(dctx.Store)
	if errors.Cause(err) == credential.ErrNotFound {
		return syncer.ErrNotRegistered
	} else if err != nil {
		return errors.Wrap(err, "reading device info")
	}

	token, err := dctx.Store.Get(credential.KeyAuthToken)
	if errors.Cause(err) == credential.ErrNotFound {
		if err := Login(ctx, dctx); err != nil {
			return err
		}
		token, err = dctx.Store.Get(credential.KeyAuthToken)
	}
	if err != nil {
		return errors.Wrap(err, "reading auth token")
	}

	ok, err := dctx.Client.Deregister(ctx, token, identity(info), userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotConfirmed
	}

	if err := wipe(dctx); err != nil {
		return err
	}

	log.WithFields(log.Fields{"deviceId": info.DeviceID}).Info("deregistered device")

	return nil
}

func wipe(dctx devctx.DeviceCtx) error {
	tx, err := dctx.DB.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}
	if err := database.Wipe(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing a transaction")
	}

	for _, key := range []string{credential.KeyAuthToken, credential.KeyUserInfo, credential.KeyDeviceInfo} {
		if err := dctx.Store.Remove(key); err != nil {
			return errors.Wrapf(err, "removing %s", key)
		}
	}

	return nil
}
