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

// Package clock provides the time source of the device. Workflow timestamps
// are read through it so that tests can pin them.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time
type Clock interface {
	Now() time.Time
}

type system struct{}

func (system) Now() time.Time {
	return time.Now()
}

// New returns the system clock
func New() Clock {
	return system{}
}

// OrNew returns c, or the system clock when c is nil
func OrNew(c Clock) Clock {
	if c == nil {
		return New()
	}

	return c
}

// Timestamp returns the current time in the form stored on workflow rows
func Timestamp(c Clock) string {
	return c.Now().UTC().Format(time.RFC3339)
}

// Mock is a clock that only moves when told to
type Mock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewMock returns a mock clock. Its time starts at 2024-03-15 09:30:00 UTC,
// a Friday during facility opening hours.
func NewMock() *Mock {
	return &Mock{
		now: time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC),
	}
}

// SetNow sets the current time
func (m *Mock) SetNow(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock forward
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Now returns the mocked time
func (m *Mock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.now
}
