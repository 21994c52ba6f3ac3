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

package database

import (
	"github.com/pkg/errors"
)

// DefaultSyncIntervalSec is the sync interval of a device that did not get one
// at registration
const DefaultSyncIntervalSec = 37

// GetDevice returns the registration row of this installation
func GetDevice(db *DB) (Device, error) {
	var d Device

	err := db.QueryRow(`SELECT device_id, facility_id, partner_id, device_password, mac_address,
		sync_interval_sec, registered_at FROM device WHERE id = 1`).
		Scan(&d.DeviceID, &d.FacilityID, &d.PartnerID, &d.DevicePassword, &d.MACAddress,
			&d.SyncIntervalSec, &d.RegisteredAt)
	if err != nil {
		return d, errors.Wrap(err, "finding device")
	}

	return d, nil
}

// SaveDevice writes the registration row, replacing any previous one
func SaveDevice(db *DB, d Device) error {
	if d.SyncIntervalSec <= 0 {
		d.SyncIntervalSec = DefaultSyncIntervalSec
	}

	_, err := db.Exec(`INSERT OR REPLACE INTO device
		(id, device_id, facility_id, partner_id, device_password, mac_address, sync_interval_sec, registered_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)`,
		d.DeviceID, d.FacilityID, d.PartnerID, d.DevicePassword, d.MACAddress, d.SyncIntervalSec, d.RegisteredAt)
	if err != nil {
		return errors.Wrap(err, "saving device")
	}

	return nil
}

// Wipe deletes every synced and local row. It is used when the device is
// deregistered.
func Wipe(db *DB) error {
	for _, table := range []string{"sms", "parcels", "users", "device"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			return errors.Wrapf(err, "deleting rows in %s", table)
		}
	}

	return nil
}
