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

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// DateLayout is the canonical representation of a calendar date
const DateLayout = "2006-01-02"

// Date is a calendar date in YYYY-MM-DD form. It accepts a plain date string,
// an RFC 3339 timestamp, or a {year, month, day} object and always serializes
// to the plain form. An empty Date serializes to null.
//
// A value that is not a date decodes without error and keeps its raw text so
// that one bad row does not fail the whole payload. Check it with Valid.
type Date string

type dateParts struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

var dateLayouts = []string{DateLayout, time.RFC3339Nano, "2006-01-02T15:04:05"}

// ParseDate normalizes a date string
func ParseDate(s string) (Date, error) {
	if s == "" {
		return "", nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date(t.Format(DateLayout)), nil
		}
	}

	return "", errors.Errorf("invalid date %q", s)
}

// Valid returns true if the date is empty or in YYYY-MM-DD form
func (d Date) Valid() bool {
	if d == "" {
		return true
	}

	_, err := time.Parse(DateLayout, string(d))
	return err == nil
}

func parseDateJSON(b []byte) (Date, error) {
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", errors.Wrap(err, "decoding date string")
		}

		parsed, err := ParseDate(s)
		if err != nil {
			return Date(s), err
		}

		return parsed, nil
	case '{':
		var p dateParts
		if err := json.Unmarshal(b, &p); err != nil {
			return "", errors.Wrap(err, "decoding date object")
		}

		t := time.Date(p.Year, time.Month(p.Month), p.Day, 0, 0, 0, 0, time.UTC)
		if p.Month < 1 || p.Month > 12 || t.Day() != p.Day {
			return Date(fmt.Sprintf("%04d-%02d-%02d", p.Year, p.Month, p.Day)), errors.New("invalid date")
		}

		return Date(t.Format(DateLayout)), nil
	default:
		return "", errors.New("invalid date")
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)

	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = ""
		return nil
	}

	parsed, err := parseDateJSON(b)
	if err != nil && parsed == "" {
		parsed = Date(b)
	}

	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	if d == "" {
		return []byte("null"), nil
	}

	return json.Marshal(string(d))
}

// ParcelPayload is a parcel as exchanged with the server
type ParcelPayload struct {
	SyncID           string `json:"syncId"`
	ParcelID         int64  `json:"parcelId"`
	Title            string `json:"title"`
	FirstName        string `json:"firstName"`
	Surname          string `json:"surname"`
	Cellphone        string `json:"cellphone"`
	IDNumber         string `json:"idNumber"`
	DateOfBirth      Date   `json:"dateOfBirth"`
	Gender           string `json:"gender"`
	DueDate          Date   `json:"dueDate"`
	Barcode          string `json:"barcode"`
	DispatchRef      string `json:"dispatchRef"`
	ConsignmentNo    string `json:"consignmentNo"`
	Passcode         string `json:"passcode"`
	ScanInDatetime   string `json:"scanInDatetime"`
	ScanInByUserID   int64  `json:"scanInByUserId"`
	LoggedInDatetime string `json:"loggedInDatetime"`
	ScanOutDatetime  string `json:"scanOutDatetime"`
	ScanOutByUserID  int64  `json:"scanOutByUserId"`
	ParcelStatusID   int64  `json:"parcelStatusId"`
	DeviceID         int64  `json:"deviceId"`
	FacilityID       int64  `json:"facilityId"`
	DirtyFlag        int    `json:"dirtyFlag"`
	ParcelStatus     bool   `json:"parcelStatus"`
}

// UserPayload is an operator as exchanged with the server
type UserPayload struct {
	SyncID     string `json:"syncId"`
	UserID     int64  `json:"userId"`
	FirstName  string `json:"firstName"`
	Surname    string `json:"surname"`
	LoginID    string `json:"loginId"`
	Password   string `json:"password"`
	RoleID     int64  `json:"roleId"`
	DeviceID   int64  `json:"deviceId"`
	FacilityID int64  `json:"facilityId"`
	DirtyFlag  int    `json:"dirtyFlag"`
	UserStatus bool   `json:"userStatus"`
}

// SmsPayload is an outbound notification sent to the server
type SmsPayload struct {
	SyncID             string `json:"syncId"`
	ParcelID           int64  `json:"parcelId"`
	Cellphone          string `json:"cellphone"`
	SmsCreatedDateTime string `json:"smsCreatedDateTime"`
	SmsTypeID          int    `json:"smsTypeId"`
	DirtyFlag          int    `json:"dirtyFlag"`
}

// PullResponse is the delta returned by the server
type PullResponse struct {
	Parcels []ParcelPayload `json:"parcels"`
	Users   []UserPayload   `json:"users"`
}

// IsEmpty returns true if the delta carries nothing
func (r PullResponse) IsEmpty() bool {
	return len(r.Parcels) == 0 && len(r.Users) == 0
}

// PushRequest carries the locally changed rows
type PushRequest struct {
	Parcels []ParcelPayload `json:"parcels"`
	Sms     []SmsPayload    `json:"smSs"`
}

// StatusEntry is the outcome of one pushed row
type StatusEntry struct {
	SyncID string `json:"syncId"`
	Status bool   `json:"status"`
}

// PushResponse reports which pushed rows the server accepted
type PushResponse struct {
	ParcelStatus []StatusEntry `json:"parcelStatus"`
	SmsStatus    []StatusEntry `json:"smsStatus"`
}

// AckEntry reports that a pulled change was applied on the device
type AckEntry struct {
	SyncID string `json:"SyncId"`
	Status bool   `json:"Status"`
}

// StatusRequest is the acknowledgment payload
type StatusRequest struct {
	ParcelStatus []AckEntry `json:"ParcelStatus"`
	UserStatus   []AckEntry `json:"UserStatus"`
}

// IsEmpty returns true if there is nothing to acknowledge
func (r StatusRequest) IsEmpty() bool {
	return len(r.ParcelStatus) == 0 && len(r.UserStatus) == 0
}

// RegisterResponse is the device identity issued at registration
type RegisterResponse struct {
	DevicePassword    string `json:"devicePassword"`
	ID                int64  `json:"id"`
	FacilityID        int64  `json:"facilityId"`
	PartnerID         int64  `json:"partnerId,omitempty"`
	SyncIntervalInSec int    `json:"syncIntervalInSec,omitempty"`
}
