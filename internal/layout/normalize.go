/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package layout implements the floor plan editing engine: coordinate
// normalization, magnetic snapping, viewport zoom/pan and shape-aware
// resize and drag gestures. Everything here is UI-agnostic and deterministic.
package layout

import (
	"chatters/internal/domain"
	"chatters/internal/geom"
)

// ToPercent converts a pixel offset into a percentage of containerSize.
// A non-positive container yields 0.
func ToPercent(px, containerSize float64) float64 {
	if containerSize <= 0 {
		return 0
	}
	return px / containerSize * 100
}

// ToPixels converts a percentage of containerSize back into pixels.
func ToPixels(percent, containerSize float64) float64 {
	if containerSize <= 0 {
		return 0
	}
	return percent / 100 * containerSize
}

// ClampPercent limits p to [0,100].
func ClampPercent(p float64) float64 { return geom.Clamp(p, 0, 100) }

// TableToPixels derives the in-memory pixel position from the persisted
// percentages. Used at load time only.
func TableToPixels(t domain.Table, container geom.Size) domain.Table {
	t.X = ToPixels(t.XPercent, container.W)
	t.Y = ToPixels(t.YPercent, container.H)
	return t
}

// TableToPercent stores the pixel position as clamped percentages. Used at
// save time only.
func TableToPercent(t domain.Table, container geom.Size) domain.Table {
	t.XPercent = ClampPercent(ToPercent(t.X, container.W))
	t.YPercent = ClampPercent(ToPercent(t.Y, container.H))
	return t
}

// TableRect returns the world-space rectangle of a table.
func TableRect(t domain.Table) geom.Rect { return geom.R(t.X, t.Y, t.Width, t.Height) }
