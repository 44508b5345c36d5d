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

// Core data model for venue floor plans. Positions are persisted as
// percentages of the editor container; pixel positions only live in memory.

import (
	"fmt"
	"strings"
)

// Venue is the boundary for all layout operations.
type Venue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Zone is a named subdivision of a venue floor (e.g. "Patio", "Main Dining").
type Zone struct {
	ID      string `json:"id"`
	VenueID string `json:"venue_id"`
	Name    string `json:"name"`
	Order   int    `json:"order"`
}

// ZoneUpdate carries the fields of a partial zone update; nil means unchanged.
type ZoneUpdate struct {
	Name  *string `json:"name,omitempty"`
	Order *int    `json:"order,omitempty"`
}

// Shape is the closed set of table outlines.
type Shape int

const (
	ShapeSquare Shape = iota + 1
	ShapeCircle
	ShapeRectangle
)

var shapeNames = map[Shape]string{
	ShapeSquare:    "square",
	ShapeCircle:    "circle",
	ShapeRectangle: "rectangle",
}

// Shapes lists all known shapes in display order.
func Shapes() []Shape { return []Shape{ShapeSquare, ShapeCircle, ShapeRectangle} }

func (s Shape) String() string {
	if n, ok := shapeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// Valid reports whether s is one of the known shapes.
func (s Shape) Valid() bool {
	_, ok := shapeNames[s]
	return ok
}

// ParseShape converts the persisted name into a Shape.
func ParseShape(name string) (Shape, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for s, sn := range shapeNames {
		if sn == n {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidShape, name)
}

func (s Shape) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShape, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Shape) UnmarshalText(b []byte) error {
	v, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Table is a single guest table placed on the floor plan.
//
// XPercent/YPercent are the persisted, resolution-independent position.
// X/Y are the pixel position derived from them at load time for the current
// container size; all interactive edits happen on X/Y.
type Table struct {
	ID       string  `json:"id"`
	VenueID  string  `json:"venue_id"`
	ZoneID   string  `json:"zone_id,omitempty"`
	Number   string  `json:"table_number"`
	Shape    Shape   `json:"shape"`
	XPercent float64 `json:"x_percent"`
	YPercent float64 `json:"y_percent"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`

	X float64 `json:"-"`
	Y float64 `json:"-"`
}
