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

// Package credential stores the device identity and the tokens derived from it
package credential

import (
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/pkg/errors"
)

const (
	// KeyDeviceInfo holds the device identity returned at registration
	KeyDeviceInfo = "DeviceInfo"
	// KeyAuthToken holds the bearer token returned by device login
	KeyAuthToken = "AuthToken"
	// KeyUserInfo holds the operator logged in on the device
	KeyUserInfo = "UserInfo"
)

// ErrNotFound is an error for a missing credential
var ErrNotFound = errors.New("credential not found")

// Store reads and writes credentials by key
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// SystemStore keeps credentials in the system table of the local store
type SystemStore struct {
	DB *database.DB
}

// NewSystemStore returns a store backed by the given database
func NewSystemStore(db *database.DB) *SystemStore {
	return &SystemStore{DB: db}
}

// Get returns the value of the given key
func (s *SystemStore) Get(key string) (string, error) {
	var val string
	if err := database.GetSystem(s.DB, key, &val); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}

		return "", errors.Wrapf(err, "reading credential %s", key)
	}

	return val, nil
}

// Set stores the value of the given key
func (s *SystemStore) Set(key, value string) error {
	if err := database.UpdateSystem(s.DB, key, value); err != nil {
		return errors.Wrapf(err, "writing credential %s", key)
	}

	return nil
}

// Remove deletes the given key. Removing a missing key is not an error.
func (s *SystemStore) Remove(key string) error {
	if err := database.DeleteSystem(s.DB, key); err != nil {
		return errors.Wrapf(err, "removing credential %s", key)
	}

	return nil
}

// MemoryStore keeps credentials in memory
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryStore returns an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]string{}}
}

// Get returns the value of the given key
func (s *MemoryStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	val, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}

	return val, nil
}

// Set stores the value of the given key
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

// Remove deletes the given key
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// DeviceInfo is the device identity stored under KeyDeviceInfo
type DeviceInfo struct {
	DeviceID       int64  `json:"deviceId"`
	FacilityID     int64  `json:"facilityId"`
	DevicePassword string `json:"devicePassword"`
	MACAddress     string `json:"macAddress"`
}

// UserInfo is the logged in operator stored under KeyUserInfo
type UserInfo struct {
	SyncID     string `json:"syncId"`
	UserID     int64  `json:"userId"`
	LoginID    string `json:"loginId"`
	FirstName  string `json:"firstName"`
	Surname    string `json:"surname"`
	RoleID     int64  `json:"roleId"`
	FacilityID int64  `json:"facilityId"`
}

func getJSON(s Store, key string, dest interface{}) error {
	val, err := s.Get(key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return errors.Wrapf(err, "decoding credential %s", key)
	}

	return nil
}

func setJSON(s Store, key string, val interface{}) error {
	b, err := json.Marshal(val)
	if err != nil {
		return errors.Wrapf(err, "encoding credential %s", key)
	}

	return s.Set(key, string(b))
}

// GetDeviceInfo returns the stored device identity
func GetDeviceInfo(s Store) (DeviceInfo, error) {
	var ret DeviceInfo
	err := getJSON(s, KeyDeviceInfo, &ret)
	return ret, err
}

// SetDeviceInfo stores the device identity
func SetDeviceInfo(s Store, info DeviceInfo) error {
	return setJSON(s, KeyDeviceInfo, info)
}

// GetUserInfo returns the logged in operator
func GetUserInfo(s Store) (UserInfo, error) {
	var ret UserInfo
	err := getJSON(s, KeyUserInfo, &ret)
	return ret, err
}

// SetUserInfo stores the logged in operator
func SetUserInfo(s Store, info UserInfo) error {
	return setJSON(s, KeyUserInfo, info)
}
