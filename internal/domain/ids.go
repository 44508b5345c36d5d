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

import (
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix marks ids of rows created locally and not yet persisted.
const TempIDPrefix = "temp-"

// NewTempID returns a fresh temporary id.
func NewTempID() string { return TempIDPrefix + uuid.NewString() }

// IsTempID reports whether id was issued by NewTempID (or is empty).
func IsTempID(id string) bool { return id == "" || strings.HasPrefix(id, TempIDPrefix) }

// NewID returns a persistent id for stores that assign ids client-side.
func NewID() string { return uuid.NewString() }
