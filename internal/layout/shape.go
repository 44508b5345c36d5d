/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package layout

import (
	"math"

	"chatters/internal/domain"
	"chatters/internal/geom"
)

// Sizing defaults in world pixels.
const (
	DefaultGrid  = 5.0
	MinTableSize = 40.0
)

// fitFunc adjusts a proposed width/height for a shape given the handle in use.
type fitFunc func(w, h float64, handle Handle) (float64, float64)

type shapeSpec struct {
	size geom.Size
	fit  fitFunc
}

var shapeTable = map[domain.Shape]shapeSpec{
	domain.ShapeSquare:    {size: geom.Size{W: 56, H: 56}, fit: fitEqualSides},
	domain.ShapeCircle:    {size: geom.Size{W: 56, H: 56}, fit: fitEqualSides},
	domain.ShapeRectangle: {size: geom.Size{W: 96, H: 56}, fit: fitFree},
}

// DefaultSize is the size a freshly added table of the given shape gets.
// Unknown shapes fall back to the square size.
func DefaultSize(s domain.Shape) geom.Size {
	if info, ok := shapeTable[s]; ok {
		return info.size
	}
	return shapeTable[domain.ShapeSquare].size
}

func fitFree(w, h float64, _ Handle) (float64, float64) { return w, h }

// fitEqualSides keeps width and height equal. Side handles drive the side
// they move; corners take the larger of the two.
func fitEqualSides(w, h float64, handle Handle) (float64, float64) {
	horiz := handle&(HandleE|HandleW) != 0
	vert := handle&(HandleN|HandleS) != 0
	switch {
	case horiz && !vert:
		return w, w
	case vert && !horiz:
		return h, h
	default:
		side := math.Max(w, h)
		return side, side
	}
}
