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
	"chatters/internal/domain"
	"chatters/internal/geom"
)

// DragGesture moves one rect with the pointer. Pointer positions are in
// screen space; the candidate rect is in world space.
type DragGesture struct {
	orig   geom.Rect
	start  geom.Pt
	zoom   float64
	last   geom.Rect
	active bool
}

// BeginDrag starts dragging rect from the screen pointer position.
func BeginDrag(rect geom.Rect, pointer geom.Pt, v *Viewport) *DragGesture {
	return &DragGesture{orig: rect, start: pointer, zoom: gestureZoom(v), last: rect, active: true}
}

// Move returns the candidate rect for the pointer. After End it returns the
// last candidate.
func (g *DragGesture) Move(pointer geom.Pt) geom.Rect {
	if !g.active {
		return g.last
	}
	d := pointer.Sub(g.start).Scale(1 / g.zoom)
	g.last = g.orig.Moved(g.orig.Min().Add(d))
	return g.last
}

// End finishes the gesture and returns the final candidate.
func (g *DragGesture) End() geom.Rect {
	g.active = false
	return g.last
}

// ResizeGesture resizes one rect through a handle.
type ResizeGesture struct {
	orig   geom.Rect
	handle Handle
	shape  domain.Shape
	opts   ResizeOptions
	start  geom.Pt
	zoom   float64
	last   geom.Rect
	active bool
}

// BeginResize starts a resize of rect via handle from the screen pointer.
func BeginResize(rect geom.Rect, handle Handle, pointer geom.Pt, v *Viewport, shape domain.Shape, opts ResizeOptions) *ResizeGesture {
	return &ResizeGesture{
		orig:   rect,
		handle: handle,
		shape:  shape,
		opts:   opts,
		start:  pointer,
		zoom:   gestureZoom(v),
		last:   rect,
		active: true,
	}
}

// Handle returns the handle driving the gesture.
func (g *ResizeGesture) Handle() Handle { return g.handle }

// Move returns the candidate rect for the pointer.
func (g *ResizeGesture) Move(pointer geom.Pt) geom.Rect {
	if !g.active {
		return g.last
	}
	d := pointer.Sub(g.start).Scale(1 / g.zoom)
	w, h := g.orig.W, g.orig.H
	if g.handle&HandleE != 0 {
		w += d.X
	}
	if g.handle&HandleW != 0 {
		w -= d.X
	}
	if g.handle&HandleS != 0 {
		h += d.Y
	}
	if g.handle&HandleN != 0 {
		h -= d.Y
	}
	g.last = Resize(g.orig, g.handle, w, h, g.shape, g.opts)
	return g.last
}

// End finishes the gesture and returns the final candidate.
func (g *ResizeGesture) End() geom.Rect {
	g.active = false
	return g.last
}

func gestureZoom(v *Viewport) float64 {
	if v == nil || v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}
