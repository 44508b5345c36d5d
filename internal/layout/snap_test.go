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
	"testing"

	"chatters/internal/geom"
)

func TestResolveSnap_LeftEdgeScenario(t *testing.T) {
	// Table 1 sits at (100,100,56,56); Table 2 is dropped at (105,100).
	sibling := geom.R(100, 100, 56, 56)
	moving := geom.R(105, 100, 56, 56)

	res := ResolveSnap(moving, []geom.Rect{sibling}, SnapOptions{Distance: 10})
	if res.Pos.X != 100 || res.Pos.Y != 100 {
		t.Fatalf("expected snap to (100,100), got %+v", res.Pos)
	}
	if !res.SnappedX || !res.SnappedY {
		t.Fatalf("expected both axes snapped: %+v", res)
	}
	var vOK bool
	for _, g := range res.Guides {
		if g.Orientation == "vertical" && g.Kind == "edge" && g.Position == 100 {
			vOK = true
		}
	}
	if !vOK {
		t.Fatalf("expected vertical edge guide at x=100, got %+v", res.Guides)
	}
}

func TestResolveSnap_Idempotent(t *testing.T) {
	siblings := []geom.Rect{geom.R(100, 100, 56, 56), geom.R(300, 104, 96, 56)}
	moving := geom.R(103, 240, 56, 56)

	first := ResolveSnap(moving, siblings, SnapOptions{})
	second := ResolveSnap(moving.Moved(first.Pos), siblings, SnapOptions{})
	if first.Pos != second.Pos {
		t.Fatalf("snap drifted: %+v then %+v", first.Pos, second.Pos)
	}
}

func TestResolveSnap_ThresholdPreventsSnap(t *testing.T) {
	sibling := geom.R(100, 100, 56, 56)
	moving := geom.R(111, 400, 56, 56) // 11px away horizontally, far vertically

	res := ResolveSnap(moving, []geom.Rect{sibling}, SnapOptions{Distance: 10})
	if res.Pos != moving.Min() || res.SnappedX || res.SnappedY {
		t.Fatalf("expected no snapping outside threshold; got %+v", res)
	}
	if len(res.Guides) != 0 {
		t.Fatalf("expected no guides when no snap")
	}
}

func TestResolveSnap_ThresholdIsInclusive(t *testing.T) {
	res := ResolveSnap(geom.R(110, 400, 56, 56), []geom.Rect{geom.R(100, 100, 56, 56)}, SnapOptions{Distance: 10})
	if res.Pos.X != 100 {
		t.Fatalf("expected snap at exactly the threshold, got %+v", res.Pos)
	}
}

func TestResolveSnap_FirstMatchWinsWithinSibling(t *testing.T) {
	// Top edges are 8px apart, centers only 2px; top is tested first.
	sibling := geom.R(500, 92, 56, 60)
	moving := geom.R(100, 100, 56, 40)

	res := ResolveSnap(moving, []geom.Rect{sibling}, SnapOptions{Distance: 10})
	if res.Pos.Y != 92 {
		t.Fatalf("expected top-edge alignment at y=92, got %v", res.Pos.Y)
	}
}

func TestResolveSnap_CenterAlignment(t *testing.T) {
	// Sibling center x = 148; moving center x = 151 with both edges far off.
	sibling := geom.R(100, 100, 96, 56)
	moving := geom.R(131, 400, 40, 40)

	res := ResolveSnap(moving, []geom.Rect{sibling}, SnapOptions{Distance: 10})
	if res.Pos.X != 128 {
		t.Fatalf("expected center alignment to x=128, got %v", res.Pos.X)
	}
	if len(res.Guides) != 1 || res.Guides[0].Kind != "center" {
		t.Fatalf("expected a single center guide, got %+v", res.Guides)
	}
}

func TestResolveSnap_Policies(t *testing.T) {
	siblings := []geom.Rect{geom.R(100, 0, 56, 56), geom.R(108, 200, 56, 56)}
	moving := geom.R(103, 600, 56, 56) // 3px from the first, 5px from the second

	closest := ResolveSnap(moving, siblings, SnapOptions{Policy: PolicyClosest})
	if closest.Pos.X != 100 {
		t.Fatalf("closest policy: expected x=100, got %v", closest.Pos.X)
	}
	last := ResolveSnap(moving, siblings, SnapOptions{Policy: PolicyLastMatch})
	if last.Pos.X != 108 {
		t.Fatalf("last-match policy: expected x=108, got %v", last.Pos.X)
	}
}

func TestParseSnapPolicy(t *testing.T) {
	if ParseSnapPolicy("last_match") != PolicyLastMatch {
		t.Fatalf("expected last_match to parse")
	}
	if ParseSnapPolicy("bogus") != PolicyClosest {
		t.Fatalf("expected fallback to closest")
	}
	if PolicyLastMatch.String() != "last_match" {
		t.Fatalf("unexpected policy name %q", PolicyLastMatch.String())
	}
}

func TestSnapEdgeX_MatchesSiblingLines(t *testing.T) {
	sibling := geom.R(100, 300, 190, 56) // left 100, right 290, center 195
	moving := geom.R(0, 100, 96, 56)

	cases := []struct {
		x, want float64
		kind    string
		ok      bool
	}{
		{104, 100, "edge", true},
		{286, 290, "edge", true},
		{199, 195, "center", true},
		{211, 211, "", false},
	}
	for _, tc := range cases {
		got, g, ok := SnapEdgeX(tc.x, moving, []geom.Rect{sibling}, SnapOptions{Distance: 10})
		if ok != tc.ok || got != tc.want {
			t.Fatalf("x=%v: got %v ok=%v, want %v ok=%v", tc.x, got, ok, tc.want, tc.ok)
		}
		if ok && (g.Orientation != "vertical" || g.Kind != tc.kind || g.Position != tc.want) {
			t.Fatalf("x=%v: unexpected guide %+v", tc.x, g)
		}
	}
}

func TestSnapEdgeY_Policies(t *testing.T) {
	a := geom.R(0, 100, 50, 90)   // bottom 190
	b := geom.R(200, 200, 50, 50) // top 200
	moving := geom.R(400, 196, 50, 60)

	y, g, ok := SnapEdgeY(196, moving, []geom.Rect{a, b}, SnapOptions{Distance: 10})
	if !ok || y != 200 || g.Orientation != "horizontal" {
		t.Fatalf("closest should pick 200, got %v %+v", y, g)
	}
	y, _, _ = SnapEdgeY(196, moving, []geom.Rect{b, a}, SnapOptions{Distance: 10, Policy: PolicyLastMatch})
	if y != 190 {
		t.Fatalf("last match should pick 190, got %v", y)
	}
}
