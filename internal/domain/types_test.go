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
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseShape(t *testing.T) {
	for _, s := range Shapes() {
		got, err := ParseShape(strings.ToUpper(s.String()))
		if err != nil || got != s {
			t.Fatalf("ParseShape(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseShape("hexagon"); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape, got %v", err)
	}
}

func TestTableJSONOmitsPixelPosition(t *testing.T) {
	tb := Table{ID: "t1", VenueID: "v1", Number: "5", Shape: ShapeCircle, XPercent: 12.5, Width: 56, Height: 56, X: 150, Y: 80}
	b, err := json.Marshal(tb)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"shape":"circle"`) {
		t.Fatalf("expected shape name in JSON, got %s", s)
	}
	if strings.Contains(s, `"X"`) || strings.Contains(s, "150") {
		t.Fatalf("pixel position leaked into JSON: %s", s)
	}

	var back Table
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Shape != ShapeCircle || back.Number != "5" {
		t.Fatalf("unexpected decoded table: %+v", back)
	}
}

func TestTempIDs(t *testing.T) {
	id := NewTempID()
	if !IsTempID(id) {
		t.Fatalf("expected %q to be temporary", id)
	}
	if IsTempID(NewID()) {
		t.Fatalf("persistent id reported as temporary")
	}
	if !IsTempID("") {
		t.Fatalf("empty id should count as unsaved")
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(ErrDuplicateTableNumber) {
		t.Fatalf("duplicate number should be a validation error")
	}
	if IsValidation(ErrSaveInProgress) {
		t.Fatalf("save in progress is not a validation error")
	}
}
