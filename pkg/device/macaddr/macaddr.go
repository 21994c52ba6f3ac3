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

// Package macaddr reads the hardware address the device identifies itself with
package macaddr

import (
	"net"
)

// Fallback is returned when no hardware address can be read
const Fallback = "02:00:00:00:00:00"

// interfaces is replaced in tests
var interfaces = net.Interfaces

// Get returns the hardware address of the first interface that is up and not
// a loopback, or Fallback.
func Get() string {
	ifaces, err := interfaces()
	if err != nil {
		return Fallback
	}

	return pick(ifaces)
}

func pick(ifaces []net.Interface) string {
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}

		return iface.HardwareAddr.String()
	}

	return Fallback
}
