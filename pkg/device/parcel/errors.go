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

package parcel

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is an error for a barcode that matches no parcel in the
	// status the operation expects
	ErrNotFound = errors.New("parcel not found")
	// ErrInvalidCredential is an error for an id number or passcode that does
	// not match the parcel
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrInvalidParcel is an error for a parcel registration missing required fields
	ErrInvalidParcel = errors.New("invalid parcel")
)

// StorageError is an error for a failed local transaction. No part of the
// operation was applied.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *StorageError) Unwrap() error {
	return e.Err
}
