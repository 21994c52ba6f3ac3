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

package remotetest

import (
	"github.com/parceltrack/parceltrack/pkg/device/client"
)

// QueueDelta schedules a delta to be served by the next pull
func (s *Server) QueueDelta(d client.PullResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deltas = append(s.deltas, d)
}

// SetParcelOutcome sets whether a pushed parcel is accepted. Parcels are
// accepted unless told otherwise.
func (s *Server) SetParcelOutcome(syncID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.parcelOutcomes[syncID] = ok
}

// SetSmsOutcome sets whether a pushed sms is accepted
func (s *Server) SetSmsOutcome(syncID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.smsOutcomes[syncID] = ok
}

// Fail makes every request to the path answer with the given status until
// Recover is called
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[path] = status
}

// Recover removes every scripted failure
func (s *Server) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = map[string]int{}
}

// ExpireToken invalidates the issued bearer token
func (s *Server) ExpireToken() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
}

// Token returns the currently valid bearer token
func (s *Server) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token
}

// Calls returns how many requests were made to the path
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[path]
}

// Pushes returns the data pushes received so far
func (s *Server) Pushes() []client.PushRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]client.PushRequest(nil), s.pushes...)
}

// StatusPushes returns the acknowledgment pushes received so far
func (s *Server) StatusPushes() []client.StatusRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]client.StatusRequest(nil), s.statusPushes...)
}

// Parcels returns the parcels the server accepted, by sync id
func (s *Server) Parcels() map[string]client.ParcelPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make(map[string]client.ParcelPayload, len(s.parcels))
	for k, v := range s.parcels {
		ret[k] = v
	}

	return ret
}

// Sms returns the sms the server accepted, by sync id
func (s *Server) Sms() map[string]client.SmsPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make(map[string]client.SmsPayload, len(s.sms))
	for k, v := range s.sms {
		ret[k] = v
	}

	return ret
}

// Deregistered returns true if the device was deregistered
func (s *Server) Deregistered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deregistered
}
