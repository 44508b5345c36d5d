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

func TestDragGestureDividesByZoom(t *testing.T) {
	v := NewViewport()
	v.Zoom = 2
	g := BeginDrag(geom.R(100, 100, 56, 56), geom.Pt{X: 300, Y: 300}, v)

	got := g.Move(geom.Pt{X: 340, Y: 280})
	if got != geom.R(120, 90, 56, 56) {
		t.Fatalf("unexpected candidate %+v", got)
	}
	final := g.End()
	if final != got {
		t.Fatalf("End should return the last candidate")
	}
	if after := g.Move(geom.Pt{X: 0, Y: 0}); after != got {
		t.Fatalf("moves after End must be ignored: %+v", after)
	}
}

func TestDragGesturesAreIndependent(t *testing.T) {
	v := NewViewport()
	a := BeginDrag(geom.R(0, 0, 56, 56), geom.Pt{}, v)
	b := BeginDrag(geom.R(200, 200, 56, 56), geom.Pt{X: 50, Y: 50}, v)
	a.Move(geom.Pt{X: 10, Y: 10})
	if got := b.Move(geom.Pt{X: 50, Y: 50}); got.Min() != (geom.Pt{X: 200, Y: 200}) {
		t.Fatalf("gesture state leaked between sessions: %+v", got)
	}
}

func TestResizeGestureWestHandle(t *testing.T) {
	v := NewViewport()
	orig := geom.R(100, 100, 96, 56)
	g := BeginResize(orig, HandleW, geom.Pt{X: 100, Y: 120}, v, domain.ShapeRectangle, ResizeOptions{})

	// Dragging the west edge 21px left widens by 21, rounded to 115.
	got := g.Move(geom.Pt{X: 79, Y: 120})
	if got.W != 115 || got.Right() != orig.Right() || got.H != 56 {
		t.Fatalf("unexpected resize %+v", got)
	}
	if g.Handle() != HandleW {
		t.Fatalf("handle not retained")
	}
	if g.End() != got {
		t.Fatalf("End should return the last candidate")
	}
}

func TestResizeGestureZoomed(t *testing.T) {
	v := NewViewport()
	v.Zoom = 0.5
	g := BeginResize(geom.R(0, 0, 56, 56), HandleSE, geom.Pt{X: 28, Y: 28}, v, domain.ShapeSquare, ResizeOptions{})
	got := g.Move(geom.Pt{X: 48, Y: 33}) // +40 / +10 world
	if got.W != 95 || got.H != 95 {
		t.Fatalf("unexpected resize %+v", got)
	}
}
