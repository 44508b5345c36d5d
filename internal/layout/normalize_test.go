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
	"testing"

	"chatters/internal/domain"
	"chatters/internal/geom"
)

func TestNormalizeRoundTrip(t *testing.T) {
	sizes := []float64{1, 37.5, 800, 1366, 4096.25}
	for _, size := range sizes {
		for p := 0.0; p <= 100; p += 0.37 {
			back := ToPercent(ToPixels(p, size), size)
			if math.Abs(back-p) > 1e-6 {
				t.Fatalf("round trip size=%v p=%v got %v", size, p, back)
			}
		}
	}
}

func TestNormalizeDegenerateContainer(t *testing.T) {
	if got := ToPercent(50, 0); got != 0 {
		t.Fatalf("ToPercent with zero container = %v, want 0", got)
	}
	if got := ToPixels(50, -10); got != 0 {
		t.Fatalf("ToPixels with negative container = %v, want 0", got)
	}
}

func TestTableConversions(t *testing.T) {
	container := geom.Size{W: 1000, H: 500}
	tb := domain.Table{XPercent: 25, YPercent: 50, Width: 56, Height: 56}
	px := TableToPixels(tb, container)
	if px.X != 250 || px.Y != 250 {
		t.Fatalf("unexpected pixel position: %v,%v", px.X, px.Y)
	}

	px.X = 1200 // dragged past the right edge
	px.Y = -20
	pc := TableToPercent(px, container)
	if pc.XPercent != 100 || pc.YPercent != 0 {
		t.Fatalf("expected clamped percentages, got %v,%v", pc.XPercent, pc.YPercent)
	}
}
