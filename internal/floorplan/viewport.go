/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package floorplan

import (
	"chatters/internal/domain"
	"chatters/internal/geom"
	"chatters/internal/layout"
)

// ViewportState is a copy of the current zoom and pan.
type ViewportState struct {
	Zoom float64
	Pan  geom.Pt
}

// Viewport returns the current zoom and pan.
func (s *Store) Viewport() ViewportState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ViewportState{Zoom: s.viewport.Zoom, Pan: s.viewport.Pan}
}

// ToWorld maps a screen point through the current viewport.
func (s *Store) ToWorld(p geom.Pt) geom.Pt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport.ToWorld(p)
}

// ToScreen maps a world point through the current viewport.
func (s *Store) ToScreen(p geom.Pt) geom.Pt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport.ToScreen(p)
}

// ZoomIn raises the zoom by one step; pan is unchanged.
func (s *Store) ZoomIn() ViewportState {
	s.mu.Lock()
	s.viewport.ZoomIn()
	s.mu.Unlock()
	return s.Viewport()
}

// ZoomOut lowers the zoom by one step; pan is unchanged.
func (s *Store) ZoomOut() ViewportState {
	s.mu.Lock()
	s.viewport.ZoomOut()
	s.mu.Unlock()
	return s.Viewport()
}

// ZoomAt zooms by delta around a screen pointer (mouse wheel).
func (s *Store) ZoomAt(pointer geom.Pt, delta float64) ViewportState {
	s.mu.Lock()
	s.viewport.ZoomAt(pointer, delta)
	s.mu.Unlock()
	return s.Viewport()
}

// FitToScreen frames the active zone's tables, or every table when no zone
// is active.
func (s *Store) FitToScreen() ViewportState {
	s.mu.Lock()
	var rects []geom.Rect
	for _, t := range s.tables {
		if s.activeZone == "" || t.ZoneID == s.activeZone {
			rects = append(rects, layout.TableRect(t))
		}
	}
	s.viewport.FitToScreen(rects, s.container)
	s.mu.Unlock()
	return s.Viewport()
}

// PanSession is a pan gesture bound to the store's viewport.
type PanSession struct {
	s *Store
	g *layout.PanGesture
}

// BeginPan starts panning from a screen pointer. Panning is refused while
// edit mode is on so drags reach the tables.
func (s *Store) BeginPan(pointer geom.Pt) (*PanSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editMode {
		return nil, domain.ErrEditModeActive
	}
	return &PanSession{s: s, g: s.viewport.BeginPan(pointer)}, nil
}

// Move pans by the pointer's offset from where the gesture began.
func (p *PanSession) Move(pointer geom.Pt) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.g.Move(pointer)
}

// End finishes the pan; later moves are ignored.
func (p *PanSession) End() {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.g.End()
}

// DragSession previews a table drag; End commits it through DragTable.
type DragSession struct {
	s  *Store
	id string
	g  *layout.DragGesture
}

// BeginDrag starts dragging table id from a screen pointer.
func (s *Store) BeginDrag(id string, pointer geom.Pt) (*DragSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return nil, err
	}
	i := s.tableIndexLocked(id)
	if i < 0 {
		return nil, domain.ErrTableNotFound
	}
	g := layout.BeginDrag(layout.TableRect(s.tables[i]), pointer, s.viewport)
	return &DragSession{s: s, id: id, g: g}, nil
}

// Move returns the unsnapped candidate rect in world space.
func (d *DragSession) Move(pointer geom.Pt) geom.Rect { return d.g.Move(pointer) }

// End snaps and commits the last candidate position.
func (d *DragSession) End() (Placement, error) {
	r := d.g.End()
	return d.s.DragTable(d.id, r.X, r.Y)
}

// ResizeSession previews a table resize; End commits it through ResizeTable.
type ResizeSession struct {
	s  *Store
	id string
	g  *layout.ResizeGesture
}

// BeginResize starts resizing table id via handle from a screen pointer.
func (s *Store) BeginResize(id string, handle layout.Handle, pointer geom.Pt) (*ResizeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return nil, err
	}
	i := s.tableIndexLocked(id)
	if i < 0 {
		return nil, domain.ErrTableNotFound
	}
	t := s.tables[i]
	g := layout.BeginResize(layout.TableRect(t), handle, pointer, s.viewport, t.Shape, s.opts.Resize)
	return &ResizeSession{s: s, id: id, g: g}, nil
}

// Move returns the candidate rect in world space.
func (r *ResizeSession) Move(pointer geom.Pt) geom.Rect { return r.g.Move(pointer) }

// End commits the last candidate size.
func (r *ResizeSession) End() (Placement, error) {
	c := r.g.End()
	return r.s.ResizeTable(r.id, r.g.Handle(), c.W, c.H)
}
