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

// Package remotetest provides an in-memory remote authority for tests. It
// implements the device and sync endpoints, records what devices send, and
// lets tests script deltas, per-row outcomes and failures.
package remotetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/parceltrack/parceltrack/pkg/device/client"
)

// Server is an in-memory remote authority
type Server struct {
	*httptest.Server

	mu sync.Mutex

	registrationKey string
	deviceID        int64
	facilityID      int64
	devicePassword  string
	syncIntervalSec int
	token           string
	tokenSeq        int

	deltas         []client.PullResponse
	parcelOutcomes map[string]bool
	smsOutcomes    map[string]bool
	failures       map[string]int

	parcels      map[string]client.ParcelPayload
	sms          map[string]client.SmsPayload
	pushes       []client.PushRequest
	statusPushes []client.StatusRequest
	calls        map[string]int
	deregistered bool
}

// Config holds the identity the server issues at registration
type Config struct {
	RegistrationKey string
	DeviceID        int64
	FacilityID      int64
	DevicePassword  string
	SyncIntervalSec int
}

// DefaultConfig returns the identity used by most tests
func DefaultConfig() Config {
	return Config{
		RegistrationKey: "REG-KEY",
		DeviceID:        42,
		FacilityID:      7,
		DevicePassword:  "device-secret",
	}
}

// New starts a server with the given identity
func New(cfg Config) *Server {
	s := &Server{
		registrationKey: cfg.RegistrationKey,
		deviceID:        cfg.DeviceID,
		facilityID:      cfg.FacilityID,
		devicePassword:  cfg.DevicePassword,
		syncIntervalSec: cfg.SyncIntervalSec,
		parcelOutcomes:  map[string]bool{},
		smsOutcomes:     map[string]bool{},
		failures:        map[string]int{},
		parcels:         map[string]client.ParcelPayload{},
		sms:             map[string]client.SmsPayload{},
		calls:           map[string]int{},
	}

	s.Server = httptest.NewServer(s.router())

	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.record)
	r.Use(s.inject)

	r.HandleFunc("/device/registerdevice", s.registerDevice).Methods(http.MethodPost)
	r.HandleFunc("/device/devicelogin", s.deviceLogin).Methods(http.MethodPost)
	r.HandleFunc("/device/deregistration", s.authorized(s.deregister)).Methods(http.MethodPost)
	r.HandleFunc("/sync/getclouddata", s.authorized(s.getCloudData)).Methods(http.MethodPost)
	r.HandleFunc("/sync/updatecloudstatus", s.authorized(s.updateCloudStatus)).Methods(http.MethodPost)
	r.HandleFunc("/sync/updateclouddata", s.authorized(s.updateCloudData)).Methods(http.MethodPost)

	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// inject answers with a scripted failure status for the path, if any
func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.failures[r.URL.Path]
		s.mu.Unlock()

		if ok {
			http.Error(w, http.StatusText(status), status)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorized(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		token := s.token
		deviceID := s.deviceID
		s.mu.Unlock()

		if token == "" || r.Header.Get("Authorization") != fmt.Sprintf("Bearer %s", token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("deviceId") != strconv.FormatInt(deviceID, 10) {
			http.Error(w, "unknown device", http.StatusBadRequest)
			return
		}

		h(w, r)
	}
}

func respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) registerDevice(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Header.Get("registrationKey") != s.registrationKey {
		http.Error(w, "invalid registration key", http.StatusBadRequest)
		return
	}
	if r.Header.Get("macAddress") == "" {
		http.Error(w, "missing mac address", http.StatusBadRequest)
		return
	}

	s.deregistered = false

	respondJSON(w, client.RegisterResponse{
		DevicePassword:    s.devicePassword,
		ID:                s.deviceID,
		FacilityID:        s.facilityID,
		SyncIntervalInSec: s.syncIntervalSec,
	})
}

func (s *Server) deviceLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deregistered ||
		r.Header.Get("deviceId") != strconv.FormatInt(s.deviceID, 10) ||
		r.Header.Get("devicePassword") != s.devicePassword ||
		r.Header.Get("macAddress") == "" {
		http.Error(w, "invalid device credential", http.StatusUnauthorized)
		return
	}

	s.tokenSeq++
	s.token = fmt.Sprintf("token-%d", s.tokenSeq)

	fmt.Fprintf(w, "%q", s.token)
}

func (s *Server) deregister(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, err := strconv.ParseInt(r.Header.Get("userId"), 10, 64)
	if err != nil || userID <= 0 || r.Header.Get("devicePassword") != s.devicePassword {
		fmt.Fprint(w, "false")
		return
	}

	s.deregistered = true
	s.token = ""

	fmt.Fprint(w, "true")
}

func (s *Server) getCloudData(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Header.Get("facilityId") != strconv.FormatInt(s.facilityID, 10) {
		http.Error(w, "unknown facility", http.StatusBadRequest)
		return
	}

	resp := client.PullResponse{Parcels: []client.ParcelPayload{}, Users: []client.UserPayload{}}
	if len(s.deltas) > 0 {
		resp = s.deltas[0]
		s.deltas = s.deltas[1:]
	}

	respondJSON(w, resp)
}

func (s *Server) updateCloudStatus(w http.ResponseWriter, r *http.Request) {
	var req client.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.statusPushes = append(s.statusPushes, req)
	s.mu.Unlock()

	respondJSON(w, true)
}

func (s *Server) updateCloudData(w http.ResponseWriter, r *http.Request) {
	var req client.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pushes = append(s.pushes, req)

	resp := client.PushResponse{ParcelStatus: []client.StatusEntry{}, SmsStatus: []client.StatusEntry{}}
	for _, p := range req.Parcels {
		ok := outcome(s.parcelOutcomes, p.SyncID)
		if ok {
			s.parcels[p.SyncID] = p
		}
		resp.ParcelStatus = append(resp.ParcelStatus, client.StatusEntry{SyncID: p.SyncID, Status: ok})
	}
	for _, m := range req.Sms {
		ok := outcome(s.smsOutcomes, m.SyncID)
		if ok {
			s.sms[m.SyncID] = m
		}
		resp.SmsStatus = append(resp.SmsStatus, client.StatusEntry{SyncID: m.SyncID, Status: ok})
	}

	respondJSON(w, resp)
}

func outcome(outcomes map[string]bool, syncID string) bool {
	ok, found := outcomes[syncID]
	if !found {
		return true
	}

	return ok
}
