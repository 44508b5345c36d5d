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

	"chatters/internal/geom"
)

// Viewport limits and defaults.
const (
	MinZoom           = 0.2
	MaxZoom           = 3.0
	DefaultZoomStep   = 0.1
	DefaultFitPadding = 40.0
)

// Viewport maps world coordinates (table pixels) onto the screen:
// screen = world*Zoom + Pan. The zero value is not usable; call NewViewport.
type Viewport struct {
	Zoom       float64
	Pan        geom.Pt
	ZoomStep   float64
	FitPadding float64
}

// NewViewport returns a viewport at zoom 1 with no pan.
func NewViewport() *Viewport {
	return &Viewport{Zoom: 1, ZoomStep: DefaultZoomStep, FitPadding: DefaultFitPadding}
}

func clampZoom(z float64) float64 {
	// Round away float noise from repeated steps (1.0 + 0.1*3 = 1.3000000000000003).
	return geom.Clamp(geom.Round(z, 6), MinZoom, MaxZoom)
}

func (v *Viewport) step() float64 {
	if v.ZoomStep <= 0 {
		return DefaultZoomStep
	}
	return v.ZoomStep
}

// ZoomIn increases zoom by one step. Pan is left untouched.
func (v *Viewport) ZoomIn() { v.Zoom = clampZoom(v.Zoom + v.step()) }

// ZoomOut decreases zoom by one step. Pan is left untouched.
func (v *Viewport) ZoomOut() { v.Zoom = clampZoom(v.Zoom - v.step()) }

// Reset restores zoom 1 and zero pan.
func (v *Viewport) Reset() {
	v.Zoom = 1
	v.Pan = geom.Pt{}
}

// ZoomAt changes zoom by delta while keeping the world point under pointer
// fixed on screen.
func (v *Viewport) ZoomAt(pointer geom.Pt, delta float64) {
	old := v.Zoom
	if old <= 0 {
		old = 1
	}
	nz := clampZoom(old + delta)
	ratio := nz / old
	v.Pan = pointer.Sub(pointer.Sub(v.Pan).Scale(ratio))
	v.Zoom = nz
}

// FitToScreen zooms and pans so the bounding box of rects is centered inside
// container minus FitPadding on each side. Empty input resets the viewport.
func (v *Viewport) FitToScreen(rects []geom.Rect, container geom.Size) {
	box, ok := geom.Bounds(rects)
	if !ok || !container.Valid() {
		v.Reset()
		return
	}
	pad := v.FitPadding
	if pad < 0 {
		pad = 0
	}
	availW := math.Max(container.W-2*pad, 1)
	availH := math.Max(container.H-2*pad, 1)

	zoom := MaxZoom
	if box.W > 0 {
		zoom = math.Min(zoom, availW/box.W)
	}
	if box.H > 0 {
		zoom = math.Min(zoom, availH/box.H)
	}
	v.Zoom = math.Max(zoom, MinZoom)

	c := box.Center()
	v.Pan = geom.Pt{X: container.W/2 - c.X*v.Zoom, Y: container.H/2 - c.Y*v.Zoom}
}

// Transform returns the world-to-screen matrix.
func (v *Viewport) Transform() geom.Affine2D {
	return geom.Translate(v.Pan.X, v.Pan.Y).Mul(geom.Scale(v.Zoom, v.Zoom))
}

// ToScreen maps a world point to screen space.
func (v *Viewport) ToScreen(p geom.Pt) geom.Pt { return p.Scale(v.Zoom).Add(v.Pan) }

// ToWorld maps a screen point to world space.
func (v *Viewport) ToWorld(p geom.Pt) geom.Pt {
	z := v.Zoom
	if z == 0 {
		z = 1
	}
	return p.Sub(v.Pan).Scale(1 / z)
}

// VisibleCenter is the world point at the middle of the container.
func (v *Viewport) VisibleCenter(container geom.Size) geom.Pt {
	return v.ToWorld(container.Center())
}

// PanGesture tracks one pointer-driven pan. Its state lives only as long as
// the gesture.
type PanGesture struct {
	v      *Viewport
	start  geom.Pt
	origin geom.Pt
	active bool
}

// BeginPan starts a pan at the given screen pointer.
func (v *Viewport) BeginPan(pointer geom.Pt) *PanGesture {
	return &PanGesture{v: v, start: pointer, origin: v.Pan, active: true}
}

// Move sets Pan = origin + (pointer - start). Ignored after End.
func (g *PanGesture) Move(pointer geom.Pt) {
	if g == nil || !g.active {
		return
	}
	g.v.Pan = g.origin.Add(pointer.Sub(g.start))
}

// End tears the gesture down.
func (g *PanGesture) End() {
	if g != nil {
		g.active = false
	}
}

// Active reports whether the gesture still moves the viewport.
func (g *PanGesture) Active() bool { return g != nil && g.active }
