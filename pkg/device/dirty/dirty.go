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

// Package dirty defines the two meanings carried by a row's dirty flag.
//
// A Local flag is written by the device and describes a change that still has
// to be pushed. A Remote flag arrives in a pull payload and describes what the
// server wants applied locally. Both share the integer range 0..3 on the wire
// but must never be compared with each other.
package dirty

import "fmt"

// Local is a pending change recorded by the device
type Local int

const (
	// Clean means nothing is pending
	Clean Local = 0
	// New means the row was created locally and needs a full upsert
	New Local = 1
	// Modified means the row was changed locally and needs an update by key
	Modified Local = 2
	// Deleted means the row was deleted locally
	Deleted Local = 3
)

// IsDirty returns true if the row has a pending change
func (l Local) IsDirty() bool {
	return l != Clean
}

func (l Local) String() string {
	switch l {
	case Clean:
		return "clean"
	case New:
		return "new"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("local(%d)", int(l))
	}
}

// Remote is the change a pull payload asks the device to apply
type Remote int

const (
	// NoOp asks for nothing
	NoOp Remote = 0
	// Upsert asks for an insert-or-replace of the whole row
	Upsert Remote = 1
	// Update asks for an update of the row by its key
	Update Remote = 2
	// Delete asks for the row to be removed and a tombstone left behind
	Delete Remote = 3
)

// Valid returns true if the flag is one the device knows how to apply
func (r Remote) Valid() bool {
	return r >= NoOp && r <= Delete
}

func (r Remote) String() string {
	switch r {
	case NoOp:
		return "noop"
	case Upsert:
		return "upsert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("remote(%d)", int(r))
	}
}

// RemoteFromWire converts a flag received from the server
func RemoteFromWire(v int) Remote {
	return Remote(v)
}

// LocalToWire converts a local flag for the push payload
func LocalToWire(l Local) int {
	return int(l)
}
