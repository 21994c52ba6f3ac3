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

// Package operator signs facility staff in and out of the device. Operators
// are matched against the users pulled from the server.
package operator

import (
	"crypto/subtle"
	"database/sql"
	"strings"

	"github.com/parceltrack/parceltrack/pkg/device/credential"
	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidLogin is returned when the login id or password does not match
	ErrInvalidLogin = errors.New("invalid login id or password")
	// ErrNotLoggedIn is returned when no operator is signed in
	ErrNotLoggedIn = errors.New("no operator is logged in")
)

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

func isBcryptHash(s string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}

	return false
}

// checkPassword compares the input with a stored bcrypt hash or plain secret
func checkPassword(stored, input string) bool {
	if stored == "" || input == "" {
		return false
	}

	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(input)) == 1
}

// Login signs the operator in and stores who is signed in
func Login(db *database.DB, store credential.Store, loginID, password string) (credential.UserInfo, error) {
	loginID = strings.TrimSpace(loginID)
	if loginID == "" {
		return credential.UserInfo{}, ErrInvalidLogin
	}

	u, err := database.FindUserByLoginID(db, loginID)
	if errors.Cause(err) == sql.ErrNoRows {
		return credential.UserInfo{}, ErrInvalidLogin
	} else if err != nil {
		return credential.UserInfo{}, errors.Wrap(err, "finding operator")
	}

	if !checkPassword(u.Password.String, password) {
		return credential.UserInfo{}, ErrInvalidLogin
	}

	info := credential.UserInfo{
		SyncID:     u.SyncID,
		UserID:     u.UserID.Int64,
		LoginID:    u.LoginID.String,
		FirstName:  u.FirstName.String,
		Surname:    u.Surname.String,
		RoleID:     u.RoleID.Int64,
		FacilityID: u.FacilityID.Int64,
	}
	if err := credential.SetUserInfo(store, info); err != nil {
		return info, errors.Wrap(err, "saving user info")
	}

	return info, nil
}

// Current returns the signed in operator
func Current(store credential.Store) (credential.UserInfo, error) {
	info, err := credential.GetUserInfo(store)
	if errors.Cause(err) == credential.ErrNotFound {
		return info, ErrNotLoggedIn
	} else if err != nil {
		return info, errors.Wrap(err, "reading user info")
	}

	return info, nil
}

// Logout signs the current operator out
func Logout(store credential.Store) error {
	if err := store.Remove(credential.KeyUserInfo); err != nil {
		return errors.Wrap(err, "removing user info")
	}

	return nil
}

// ID returns the given operator id if positive, otherwise the id of the
// signed in operator
func ID(store credential.Store, override int64) (int64, error) {
	if override > 0 {
		return override, nil
	}

	info, err := Current(store)
	if err != nil {
		return 0, err
	}

	return info.UserID, nil
}
