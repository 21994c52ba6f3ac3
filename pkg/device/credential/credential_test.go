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

package credential

import (
	"testing"

	"github.com/parceltrack/parceltrack/pkg/assert"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/pkg/errors"
)

func TestStores(t *testing.T) {
	testCases := []struct {
		name  string
		store func(t *testing.T) Store
	}{
		{
			name: "system",
			store: func(t *testing.T) Store {
				return NewSystemStore(database.InitTestMemoryDB(t))
			},
		},
		{
			name: "memory",
			store: func(t *testing.T) Store {
				return NewMemoryStore()
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.store(t)

			_, err := s.Get(KeyAuthToken)
			assert.Equal(t, errors.Is(err, ErrNotFound), true, "expected ErrNotFound for a missing key")

			if err := s.Set(KeyAuthToken, "tok"); err != nil {
				t.Fatal(err)
			}
			val, err := s.Get(KeyAuthToken)
			if err != nil {
				t.Fatal(err)
			}
			assert.Equal(t, val, "tok", "value mismatch")

			if err := s.Remove(KeyAuthToken); err != nil {
				t.Fatal(err)
			}
			if err := s.Remove(KeyAuthToken); err != nil {
				t.Fatal(errors.Wrap(err, "removing a missing key"))
			}

			_, err = s.Get(KeyAuthToken)
			assert.Equal(t, errors.Is(err, ErrNotFound), true, "expected ErrNotFound after removal")
		})
	}
}

func TestDeviceInfo(t *testing.T) {
	s := NewMemoryStore()

	_, err := GetDeviceInfo(s)
	assert.Equal(t, errors.Is(err, ErrNotFound), true, "expected ErrNotFound before registration")

	info := DeviceInfo{DeviceID: 42, FacilityID: 7, DevicePassword: "pw", MACAddress: "02:00:00:00:00:00"}
	if err := SetDeviceInfo(s, info); err != nil {
		t.Fatal(err)
	}

	got, err := GetDeviceInfo(s)
	if err != nil {
		t.Fatal(err)
	}
	assert.DeepEqual(t, got, info, "device info mismatch")
}

func TestUserInfoCorrupt(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Set(KeyUserInfo, "{not json"); err != nil {
		t.Fatal(err)
	}

	_, err := GetUserInfo(s)
	assert.NotEqual(t, err, nil, "expected a decoding error")
	assert.Equal(t, errors.Is(err, ErrNotFound), false, "a corrupt value is not a missing one")
}
