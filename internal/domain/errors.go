/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import "errors"

var (
	ErrVenueRequired        = errors.New("venue id required")
	ErrTableNumberRequired  = errors.New("table number required")
	ErrDuplicateTableNumber = errors.New("table number already in use")
	ErrTableNotFound        = errors.New("table not found")
	ErrZoneNotFound         = errors.New("zone not found")
	ErrZoneNameRequired     = errors.New("zone name required")
	ErrInvalidShape         = errors.New("invalid table shape")
	ErrInvalidContainer     = errors.New("container size must be positive")
	ErrConfirmationRequired = errors.New("zone contains tables; confirmation required")
	ErrSaveInProgress       = errors.New("save already in progress")
	ErrEditModeRequired     = errors.New("edit mode required")
	ErrEditModeActive       = errors.New("not available while editing")
	ErrInvalidID            = errors.New("invalid id")
	ErrVenueNotFound        = errors.New("venue not found")
)

// IsValidation reports whether err is a synchronous input rejection that
// never mutates state.
func IsValidation(err error) bool {
	return errors.Is(err, ErrTableNumberRequired) ||
		errors.Is(err, ErrDuplicateTableNumber) ||
		errors.Is(err, ErrZoneNameRequired) ||
		errors.Is(err, ErrInvalidShape) ||
		errors.Is(err, ErrVenueRequired) ||
		errors.Is(err, ErrInvalidID)
}
