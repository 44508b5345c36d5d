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

	"chatters/internal/domain"
	"chatters/internal/geom"
)

func TestDefaultSize(t *testing.T) {
	cases := map[domain.Shape]geom.Size{
		domain.ShapeSquare:    {W: 56, H: 56},
		domain.ShapeCircle:    {W: 56, H: 56},
		domain.ShapeRectangle: {W: 96, H: 56},
		domain.Shape(42):      {W: 56, H: 56},
	}
	for shape, want := range cases {
		if got := DefaultSize(shape); got != want {
			t.Fatalf("%v: expected %+v, got %+v", shape, want, got)
		}
	}
}

func TestResizeEastRoundsToGrid(t *testing.T) {
	orig := geom.R(100, 100, 96, 56)
	got := Resize(orig, HandleE, 83, 999, domain.ShapeRectangle, ResizeOptions{})
	want := geom.R(100, 100, 85, 56)
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestResizeWestKeepsRightEdge(t *testing.T) {
	orig := geom.R(100, 100, 96, 56)
	got := Resize(orig, HandleW, 72, 56, domain.ShapeRectangle, ResizeOptions{})
	if got.W != 70 || got.X != 126 {
		t.Fatalf("expected w=70 x=126, got %+v", got)
	}
	if got.Right() != orig.Right() {
		t.Fatalf("right edge moved: %v -> %v", orig.Right(), got.Right())
	}
}

func TestResizeNorthEnforcesMinimum(t *testing.T) {
	orig := geom.R(100, 100, 96, 56)
	got := Resize(orig, HandleN, 96, 12, domain.ShapeRectangle, ResizeOptions{})
	if got.H != MinTableSize {
		t.Fatalf("expected min height %v, got %v", MinTableSize, got.H)
	}
	if got.Bottom() != orig.Bottom() {
		t.Fatalf("bottom edge moved: %+v", got)
	}
}

func TestResizeEqualSidedShapes(t *testing.T) {
	orig := geom.R(100, 100, 56, 56)

	sq := Resize(orig, HandleE, 83, 0, domain.ShapeSquare, ResizeOptions{})
	if sq.W != 85 || sq.H != 85 || sq.Min() != orig.Min() {
		t.Fatalf("square east: unexpected %+v", sq)
	}

	circ := Resize(orig, HandleSE, 60, 75, domain.ShapeCircle, ResizeOptions{})
	if circ.W != 75 || circ.H != 75 {
		t.Fatalf("circle corner should take the larger side: %+v", circ)
	}

	nw := Resize(orig, HandleNW, 70, 62, domain.ShapeSquare, ResizeOptions{})
	if nw != geom.R(86, 86, 70, 70) {
		t.Fatalf("square north-west: unexpected %+v", nw)
	}
}

func TestResizeCustomOptions(t *testing.T) {
	got := Resize(geom.R(0, 0, 100, 100), HandleSE, 117, 33, domain.ShapeRectangle, ResizeOptions{Grid: 10, MinSize: 60})
	if got.W != 120 || got.H != 60 {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestParseHandle(t *testing.T) {
	for _, name := range []string{"n", "s", "e", "w", "ne", "nw", "se", "sw"} {
		h, err := ParseHandle(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if h.String() != name {
			t.Fatalf("%s: round trip gave %q", name, h.String())
		}
	}
	if _, err := ParseHandle("up"); err == nil {
		t.Fatalf("expected error for unknown handle")
	}
	if !HandleNW.MovesOrigin() || HandleSE.MovesOrigin() {
		t.Fatalf("MovesOrigin mismatch")
	}
}
