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
	"context"
	"strings"

	"github.com/pkg/errors"
)

// DeviceIdentity identifies a registered device in request headers
type DeviceIdentity struct {
	DeviceID       int64
	FacilityID     int64
	DevicePassword string
	MACAddress     string
}

// RegisterDevice registers this installation with a facility registration key
func (c *Client) RegisterDevice(ctx context.Context, registrationKey, macAddress string) (RegisterResponse, error) {
	var resp RegisterResponse

	headers := []header{
		{name: "registrationKey", value: registrationKey},
		{name: "macAddress", value: macAddress},
	}
	if err := c.doJSON(ctx, "/device/registerdevice", headers, nil, &resp); err != nil {
		return resp, errors.Wrap(err, "registering device")
	}

	if resp.ID == 0 || resp.DevicePassword == "" {
		return resp, errors.New("registration response is missing the device identity")
	}

	return resp, nil
}

// parseToken extracts the bearer token from a raw login response
func parseToken(body []byte) string {
	s := strings.TrimSpace(string(body))
	return strings.Trim(s, `"`)
}

// DeviceLogin exchanges the device credential for a bearer token
func (c *Client) DeviceLogin(ctx context.Context, id DeviceIdentity) (string, error) {
	headers := []header{
		int64Header("deviceId", id.DeviceID),
		{name: "devicePassword", value: id.DevicePassword},
		{name: "macAddress", value: id.MACAddress},
	}

	body, err := c.doReq(ctx, "/device/devicelogin", headers, nil)
	if err != nil {
		return "", errors.Wrap(err, "logging in device")
	}

	token := parseToken(body)
	if token == "" {
		return "", errors.New("login response is missing the token")
	}

	return token, nil
}

// Deregister removes this device from the server. It returns true if the
// server confirmed the removal.
func (c *Client) Deregister(ctx context.Context, token string, id DeviceIdentity, userID int64) (bool, error) {
	headers := []header{
		int64Header("deviceId", id.DeviceID),
		{name: "devicePassword", value: id.DevicePassword},
		int64Header("userId", userID),
		{name: "macAddress", value: id.MACAddress},
		bearer(token),
	}

	body, err := c.doReq(ctx, "/device/deregistration", headers, nil)
	if err != nil {
		return false, errors.Wrap(err, "deregistering device")
	}

	return strings.TrimSpace(string(body)) == "true", nil
}

// GetCloudData pulls the delta the server has for this device
func (c *Client) GetCloudData(ctx context.Context, token string, id DeviceIdentity) (PullResponse, error) {
	var resp PullResponse

	headers := []header{
		int64Header("deviceId", id.DeviceID),
		int64Header("facilityId", id.FacilityID),
		bearer(token),
	}
	if err := c.doJSON(ctx, "/sync/getclouddata", headers, nil, &resp); err != nil {
		return resp, errors.Wrap(err, "pulling cloud data")
	}

	return resp, nil
}

// UpdateCloudStatus reports which pulled changes were applied on the device
func (c *Client) UpdateCloudStatus(ctx context.Context, token string, id DeviceIdentity, req StatusRequest) error {
	headers := []header{
		int64Header("deviceId", id.DeviceID),
		bearer(token),
	}
	if err := c.doJSON(ctx, "/sync/updatecloudstatus", headers, req, nil); err != nil {
		return errors.Wrap(err, "pushing cloud status")
	}

	return nil
}

// UpdateCloudData pushes locally changed rows
func (c *Client) UpdateCloudData(ctx context.Context, token string, id DeviceIdentity, req PushRequest) (PushResponse, error) {
	var resp PushResponse

	headers := []header{
		int64Header("deviceId", id.DeviceID),
		bearer(token),
	}
	if err := c.doJSON(ctx, "/sync/updateclouddata", headers, req, &resp); err != nil {
		return resp, errors.Wrap(err, "pushing cloud data")
	}

	return resp, nil
}
