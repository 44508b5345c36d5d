/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"errors"
	"net/http"

	"chatters/internal/domain"
)

// errorBody is the JSON error envelope of the API.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// APIError is returned by Client for non-2xx responses. It unwraps to the
// domain sentinel named by Code, if any.
type APIError struct {
	Status  int
	Code    string
	Message string
	err     error
}

func (e *APIError) Error() string { return e.Message }
func (e *APIError) Unwrap() error { return e.err }

type errorCode struct {
	err    error
	code   string
	status int
}

var errorCodes = []errorCode{
	{domain.ErrDuplicateTableNumber, "duplicate_table_number", http.StatusConflict},
	{domain.ErrTableNumberRequired, "table_number_required", http.StatusBadRequest},
	{domain.ErrZoneNameRequired, "zone_name_required", http.StatusBadRequest},
	{domain.ErrInvalidShape, "invalid_shape", http.StatusBadRequest},
	{domain.ErrVenueRequired, "venue_required", http.StatusBadRequest},
	{domain.ErrInvalidID, "invalid_id", http.StatusBadRequest},
	{domain.ErrTableNotFound, "table_not_found", http.StatusNotFound},
	{domain.ErrZoneNotFound, "zone_not_found", http.StatusNotFound},
	{domain.ErrVenueNotFound, "venue_not_found", http.StatusNotFound},
}

// statusFor maps an error onto an HTTP status and stable code.
func statusFor(err error) (int, string) {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.status, ec.code
		}
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge, "body_too_large"
	}
	return http.StatusInternalServerError, "internal"
}

// errorFromResponse rebuilds a client side error from the envelope.
func errorFromResponse(status int, body errorBody) error {
	e := &APIError{Status: status, Code: body.Code, Message: body.Error}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	for _, ec := range errorCodes {
		if ec.code == body.Code {
			e.err = ec.err
			break
		}
	}
	return e
}
