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
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"
	"time"

	"chatters/internal/domain"
	"chatters/internal/geom"
	"chatters/internal/layout"
)

const venue = "v1"

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// seededStore loads a venue with two zones and three tables into a
// 1000x500 container.
func seededStore(t *testing.T) (*Store, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway()
	gw.seedZone(domain.Zone{ID: "z1", VenueID: venue, Name: "Main", Order: 0})
	gw.seedZone(domain.Zone{ID: "z2", VenueID: venue, Name: "Patio", Order: 1})
	gw.seedTable(domain.Table{ID: "t1", VenueID: venue, ZoneID: "z1", Number: "1", Shape: domain.ShapeSquare, XPercent: 10, YPercent: 20, Width: 56, Height: 56})
	gw.seedTable(domain.Table{ID: "t2", VenueID: venue, ZoneID: "z1", Number: "2", Shape: domain.ShapeSquare, XPercent: 50, YPercent: 50, Width: 56, Height: 56})
	gw.seedTable(domain.Table{ID: "t3", VenueID: venue, ZoneID: "z2", Number: "3", Shape: domain.ShapeCircle, XPercent: 80, YPercent: 10, Width: 56, Height: 56})

	s, err := New(gw, venue, geom.Size{W: 1000, H: 500}, Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s, gw
}

func indexOf(calls []string, name string) int {
	for i, c := range calls {
		if c == name {
			return i
		}
	}
	return -1
}

func TestNewValidatesInput(t *testing.T) {
	gw := newFakeGateway()
	if _, err := New(gw, "  ", geom.Size{W: 10, H: 10}, Options{}); !errors.Is(err, domain.ErrVenueRequired) {
		t.Fatalf("expected ErrVenueRequired, got %v", err)
	}
	if _, err := New(gw, venue, geom.Size{}, Options{}); !errors.Is(err, domain.ErrInvalidContainer) {
		t.Fatalf("expected ErrInvalidContainer, got %v", err)
	}
}

func TestLoadConvertsToPixels(t *testing.T) {
	s, _ := seededStore(t)
	t1, err := s.Table("t1")
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if t1.X != 100 || t1.Y != 100 {
		t.Fatalf("expected pixel position (100,100), got (%v,%v)", t1.X, t1.Y)
	}
	if s.ActiveZone() != "z1" {
		t.Fatalf("expected first zone selected, got %q", s.ActiveZone())
	}
	if s.HasUnsavedChanges() {
		t.Fatalf("fresh load must be clean")
	}
	if got := len(s.ZoneTables("z1")); got != 2 {
		t.Fatalf("expected 2 tables in z1, got %d", got)
	}
}

func TestAddTableRequiresEditMode(t *testing.T) {
	s, _ := seededStore(t)
	if _, err := s.AddTable("9", domain.ShapeSquare); !errors.Is(err, domain.ErrEditModeRequired) {
		t.Fatalf("expected ErrEditModeRequired, got %v", err)
	}
}

func TestAddTableRejectsDuplicateAndEmpty(t *testing.T) {
	s, gw := seededStore(t)
	gw.seedTable(domain.Table{ID: "t5", VenueID: venue, ZoneID: "z1", Number: "5", Shape: domain.ShapeSquare, Width: 56, Height: 56})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	s.SetEditMode(true)
	before := s.Tables()

	for _, number := range []string{"5", " 5 "} {
		if _, err := s.AddTable(number, domain.ShapeSquare); !errors.Is(err, domain.ErrDuplicateTableNumber) {
			t.Fatalf("%q: expected ErrDuplicateTableNumber, got %v", number, err)
		}
	}
	if _, err := s.AddTable("   ", domain.ShapeSquare); !errors.Is(err, domain.ErrTableNumberRequired) {
		t.Fatalf("expected ErrTableNumberRequired, got %v", err)
	}
	if _, err := s.AddTable("6", domain.Shape(99)); !errors.Is(err, domain.ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape, got %v", err)
	}
	if !reflect.DeepEqual(before, s.Tables()) || s.HasUnsavedChanges() {
		t.Fatalf("rejected adds must not mutate state")
	}
}

func TestAddTablePlacesAtViewportCenter(t *testing.T) {
	s, _ := seededStore(t)
	s.SetEditMode(true)
	tbl, err := s.AddTable("12", domain.ShapeSquare)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !domain.IsTempID(tbl.ID) {
		t.Fatalf("expected temp id, got %q", tbl.ID)
	}
	if tbl.X != 472 || tbl.Y != 222 || tbl.Width != 56 {
		t.Fatalf("unexpected placement %+v", tbl)
	}
	if tbl.ZoneID != "z1" || !s.HasUnsavedChanges() {
		t.Fatalf("expected table in active zone and dirty store")
	}
}

func TestDragTableSnapsToSibling(t *testing.T) {
	s, _ := seededStore(t)
	s.SetEditMode(true)
	p, err := s.DragTable("t2", 105, 100)
	if err != nil {
		t.Fatalf("drag: %v", err)
	}
	if p.Table.X != 100 || p.Table.Y != 100 {
		t.Fatalf("expected snap to (100,100), got (%v,%v)", p.Table.X, p.Table.Y)
	}
	if len(p.Guides) == 0 {
		t.Fatalf("expected guides")
	}
	// Tables of other zones are not siblings.
	p, err = s.DragTable("t3", 104, 300)
	if err != nil {
		t.Fatalf("drag: %v", err)
	}
	if p.Table.X != 104 {
		t.Fatalf("snapped against another zone: %+v", p.Table)
	}
}

func TestDragUnknownTable(t *testing.T) {
	s, _ := seededStore(t)
	s.SetEditMode(true)
	if _, err := s.DragTable("nope", 0, 0); !errors.Is(err, domain.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
}

func TestResizeWestCompensates(t *testing.T) {
	s, _ := seededStore(t)
	s.SetEditMode(true)
	p, err := s.ResizeTable("t2", layout.HandleW, 83, 56)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	got := geom.R(p.Table.X, p.Table.Y, p.Table.Width, p.Table.Height)
	if got != geom.R(471, 250, 85, 85) {
		t.Fatalf("unexpected rect %+v", got)
	}
}

func TestResizeWestSnapsMovedEdge(t *testing.T) {
	s, _ := seededStore(t)
	s.SetEditMode(true)
	r, err := s.AddTable("R", domain.ShapeRectangle)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.DragTable(r.ID, 300, 100); err != nil {
		t.Fatalf("drag: %v", err)
	}
	p, err := s.ResizeTable(r.ID, layout.HandleW, 293, 56)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if p.Table.X != 100 || p.Table.Width != 296 || p.Table.X+p.Table.Width != 396 {
		t.Fatalf("expected left edge snapped to 100 with right edge fixed, got %+v", p.Table)
	}
	if len(p.Guides) != 1 || p.Guides[0].Orientation != "vertical" {
		t.Fatalf("expected one vertical guide, got %+v", p.Guides)
	}
}

func TestSaveLayoutDiff(t *testing.T) {
	s, gw := seededStore(t)
	s.SetEditMode(true)
	if err := s.RemoveTable("t2"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.AddTable("9", domain.ShapeRectangle); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.DragTable("t1", 2000, 100); err != nil {
		t.Fatalf("drag: %v", err)
	}
	if calls := gw.callLog(); indexOf(calls, "DeleteTablesByIDs") >= 0 {
		t.Fatalf("remove must be staged until save, calls=%v", calls)
	}

	if err := s.SaveLayout(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	calls := gw.callLog()
	del, up := indexOf(calls, "DeleteTablesByIDs"), indexOf(calls, "UpsertTables")
	if del < 0 || up < 0 || del > up {
		t.Fatalf("expected delete before upsert, calls=%v", calls)
	}
	if !reflect.DeepEqual(gw.deletedIDs, []string{"t2"}) {
		t.Fatalf("expected t2 deleted, got %v", gw.deletedIDs)
	}
	if len(gw.upserted) != 3 {
		t.Fatalf("expected 3 upserted rows, got %d", len(gw.upserted))
	}
	var newRows int
	for _, r := range gw.upserted {
		if r.ID == "" {
			newRows++
		}
		if domain.IsTempID(r.ID) && r.ID != "" {
			t.Fatalf("temp id leaked to gateway: %q", r.ID)
		}
		if r.ID == "t1" && r.XPercent != 100 {
			t.Fatalf("expected clamped percent 100, got %v", r.XPercent)
		}
		if r.VenueID != venue {
			t.Fatalf("row without venue: %+v", r)
		}
	}
	if newRows != 1 {
		t.Fatalf("expected one new row, got %d", newRows)
	}

	if s.HasUnsavedChanges() {
		t.Fatalf("save must clear the dirty flag")
	}
	for _, tbl := range s.Tables() {
		if domain.IsTempID(tbl.ID) {
			t.Fatalf("expected assigned ids after reload, got %q", tbl.ID)
		}
	}
	if len(s.Tables()) != 3 {
		t.Fatalf("expected 3 tables after save, got %d", len(s.Tables()))
	}
}

func TestSaveLayoutSkipsEmptyDelete(t *testing.T) {
	s, gw := seededStore(t)
	s.SetEditMode(true)
	if _, err := s.DragTable("t1", 300, 300); err != nil {
		t.Fatalf("drag: %v", err)
	}
	if err := s.SaveLayout(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if indexOf(gw.callLog(), "DeleteTablesByIDs") >= 0 {
		t.Fatalf("no delete expected when nothing was removed")
	}
}

func TestSaveLayoutFailureKeepsState(t *testing.T) {
	s, gw := seededStore(t)
	s.SetEditMode(true)
	if err := s.RemoveTable("t2"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.AddTable("9", domain.ShapeSquare); err != nil {
		t.Fatalf("add: %v", err)
	}
	before := s.Tables()
	gw.failOn["UpsertTables"] = errBoom

	err := s.SaveLayout(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected upsert error, got %v", err)
	}
	if !reflect.DeepEqual(before, s.Tables()) {
		t.Fatalf("failed save changed local tables")
	}
	if !s.HasUnsavedChanges() || !s.EditMode() || s.Saving() {
		t.Fatalf("failed save must leave the store dirty, editable and idle")
	}

	delete(gw.failOn, "UpsertTables")
	if err := s.SaveLayout(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !reflect.DeepEqual(gw.deletedIDs, []string{"t2"}) {
		t.Fatalf("retry should delete t2 again, got %v", gw.deletedIDs)
	}
	if s.HasUnsavedChanges() {
		t.Fatalf("retry should clear the dirty flag")
	}
}

func TestSaveLayoutRefusesConcurrentSave(t *testing.T) {
	s, gw := seededStore(t)
	s.SetEditMode(true)
	gw.blockUpsert = make(chan struct{})
	gw.upsertEntered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() { done <- s.SaveLayout(context.Background()) }()

	select {
	case <-gw.upsertEntered:
	case <-time.After(2 * time.Second):
		t.Fatalf("save never reached the gateway")
	}
	if err := s.SaveLayout(context.Background()); !errors.Is(err, domain.ErrSaveInProgress) {
		t.Fatalf("expected ErrSaveInProgress, got %v", err)
	}
	if _, err := s.AddTable("77", domain.ShapeSquare); !errors.Is(err, domain.ErrSaveInProgress) {
		t.Fatalf("expected edits to be refused while saving, got %v", err)
	}
	close(gw.blockUpsert)
	if err := <-done; err != nil {
		t.Fatalf("first save: %v", err)
	}
	if s.Saving() {
		t.Fatalf("saving flag not cleared")
	}
}

func TestUndoRedo(t *testing.T) {
	s, _ := seededStore(t)
	s.SetEditMode(true)
	if _, err := s.DragTable("t1", 300, 300); err != nil {
		t.Fatalf("drag: %v", err)
	}
	ok, err := s.Undo()
	if err != nil || !ok {
		t.Fatalf("undo: ok=%v err=%v", ok, err)
	}
	t1, _ := s.Table("t1")
	if t1.X != 100 || t1.Y != 100 {
		t.Fatalf("undo did not restore position: %+v", t1)
	}
	ok, err = s.Redo()
	if err != nil || !ok {
		t.Fatalf("redo: ok=%v err=%v", ok, err)
	}
	t1, _ = s.Table("t1")
	if t1.X != 300 || t1.Y != 300 {
		t.Fatalf("redo did not reapply position: %+v", t1)
	}
	if !s.CanUndo() || s.CanRedo() {
		t.Fatalf("unexpected history state")
	}
}

func TestZoneLifecycle(t *testing.T) {
	s, gw := seededStore(t)
	ctx := context.Background()

	z, err := s.CreateZone(ctx)
	if err != nil {
		t.Fatalf("create zone: %v", err)
	}
	if z.Name != DefaultZoneName || z.Order != 2 {
		t.Fatalf("unexpected zone %+v", z)
	}
	if len(s.Zones()) != 3 {
		t.Fatalf("expected 3 zones")
	}

	if err := s.RenameZone(ctx, z.ID, " "); !errors.Is(err, domain.ErrZoneNameRequired) {
		t.Fatalf("expected ErrZoneNameRequired, got %v", err)
	}
	if err := s.RenameZone(ctx, z.ID, "Terrace"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got := s.Zones()[2].Name; got != "Terrace" {
		t.Fatalf("expected renamed zone, got %q", got)
	}
	if gw.zones[z.ID].Name != "Terrace" {
		t.Fatalf("rename not persisted")
	}
	if err := s.RenameZone(ctx, "missing", "x"); !errors.Is(err, domain.ErrZoneNotFound) {
		t.Fatalf("expected ErrZoneNotFound, got %v", err)
	}
}

func TestDeleteZoneRequiresConfirmation(t *testing.T) {
	s, gw := seededStore(t)
	n := len(gw.callLog())
	err := s.DeleteZone(context.Background(), "z1", false)
	if !errors.Is(err, domain.ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if len(gw.callLog()) != n {
		t.Fatalf("unconfirmed delete must not reach the gateway")
	}
}

func TestDeleteZoneCascadesAndReloads(t *testing.T) {
	s, gw := seededStore(t)
	if err := s.DeleteZone(context.Background(), "z1", true); err != nil {
		t.Fatalf("delete zone: %v", err)
	}
	calls := gw.callLog()
	if indexOf(calls, "DeleteTablesByZone") > indexOf(calls, "DeleteZone") {
		t.Fatalf("tables must be deleted before the zone, calls=%v", calls)
	}
	if len(s.Zones()) != 1 || s.ActiveZone() != "z2" {
		t.Fatalf("unexpected zones after delete: %+v active=%q", s.Zones(), s.ActiveZone())
	}
	if tables := s.Tables(); len(tables) != 1 || tables[0].ID != "t3" {
		t.Fatalf("expected only t3 left, got %+v", tables)
	}
}

func TestDeleteZoneKeepsStagedEdits(t *testing.T) {
	s, gw := seededStore(t)
	s.SetEditMode(true)
	if err := s.SelectZone("z2"); err != nil {
		t.Fatalf("select: %v", err)
	}
	added, err := s.AddTable("20", domain.ShapeCircle)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.DeleteZone(context.Background(), "z1", true); err != nil {
		t.Fatalf("delete zone: %v", err)
	}
	if !s.HasUnsavedChanges() {
		t.Fatalf("staged edits must survive the zone delete")
	}
	if _, err := s.Table(added.ID); err != nil {
		t.Fatalf("staged table lost: %v", err)
	}
	if _, err := s.Table("t1"); !errors.Is(err, domain.ErrTableNotFound) {
		t.Fatalf("expected t1 pruned, got %v", err)
	}

	if err := s.SaveLayout(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if indexOf(gw.callLog(), "DeleteTablesByIDs") >= 0 {
		t.Fatalf("pruned tables are already gone; no delete expected")
	}
	if len(s.Tables()) != 2 {
		t.Fatalf("expected t3 and the new table, got %+v", s.Tables())
	}
}

func TestPanRefusedInEditMode(t *testing.T) {
	s, _ := seededStore(t)
	s.SetEditMode(true)
	if _, err := s.BeginPan(geom.Pt{}); !errors.Is(err, domain.ErrEditModeActive) {
		t.Fatalf("expected ErrEditModeActive, got %v", err)
	}
	s.SetEditMode(false)
	p, err := s.BeginPan(geom.Pt{X: 10, Y: 10})
	if err != nil {
		t.Fatalf("pan: %v", err)
	}
	p.Move(geom.Pt{X: 40, Y: 30})
	p.End()
	if vp := s.Viewport(); vp.Pan != (geom.Pt{X: 30, Y: 20}) {
		t.Fatalf("unexpected pan %+v", vp.Pan)
	}
}

func TestDragSessionCommitsWithSnap(t *testing.T) {
	s, _ := seededStore(t)
	s.SetEditMode(true)
	d, err := s.BeginDrag("t2", geom.Pt{X: 500, Y: 250})
	if err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	if r := d.Move(geom.Pt{X: 105, Y: 100}); r.X != 105 {
		t.Fatalf("preview should not snap: %+v", r)
	}
	p, err := d.End()
	if err != nil {
		t.Fatalf("end drag: %v", err)
	}
	if p.Table.X != 100 || p.Table.Y != 100 {
		t.Fatalf("expected committed snap to (100,100), got %+v", p.Table)
	}
}

func TestFitToScreenFramesActiveZone(t *testing.T) {
	s, _ := seededStore(t)
	vp := s.FitToScreen()
	if vp.Zoom < layout.MinZoom || vp.Zoom > layout.MaxZoom {
		t.Fatalf("zoom out of range: %v", vp.Zoom)
	}
	screen := geom.R(0, 0, 1000, 500)
	for _, tbl := range s.ZoneTables("z1") {
		r := layout.TableRect(tbl)
		if !screen.Contains(s.ToScreen(r.Min())) || !screen.Contains(s.ToScreen(r.Max())) {
			t.Fatalf("table %s not visible after fit", tbl.ID)
		}
	}
}

func TestSetContainerKeepsPercent(t *testing.T) {
	s, _ := seededStore(t)
	if err := s.SetContainer(geom.Size{W: 2000, H: 1000}); err != nil {
		t.Fatalf("set container: %v", err)
	}
	t1, _ := s.Table("t1")
	if t1.X != 200 || t1.Y != 200 {
		t.Fatalf("expected scaled position (200,200), got (%v,%v)", t1.X, t1.Y)
	}
	if err := s.SetContainer(geom.Size{}); !errors.Is(err, domain.ErrInvalidContainer) {
		t.Fatalf("expected ErrInvalidContainer, got %v", err)
	}
}

func TestDumpIncludesUnsavedTables(t *testing.T) {
	s, _ := seededStore(t)
	s.SetEditMode(true)
	added, err := s.AddTable("42", domain.ShapeSquare)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	b, err := s.Dump()
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if snap.VenueID != venue || !snap.Dirty || len(snap.Tables) != 4 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	var found bool
	for _, tbl := range snap.Tables {
		if tbl.ID == added.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("unsaved table missing from dump")
	}
}

// storeWith loads the given z1 tables into a 1000x500 container.
func storeWith(t *testing.T, tables ...domain.Table) (*Store, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway()
	gw.seedZone(domain.Zone{ID: "z1", VenueID: venue, Name: "Main", Order: 0})
	for _, tbl := range tables {
		tbl.VenueID, tbl.ZoneID = venue, "z1"
		gw.seedTable(tbl)
	}
	s, err := New(gw, venue, geom.Size{W: 1000, H: 500}, Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	s.SetEditMode(true)
	return s, gw
}

func TestResizeWestSnapsToSiblingRightEdge(t *testing.T) {
	s, _ := seededStore(t)
	s.SetEditMode(true)
	r, err := s.AddTable("R", domain.ShapeRectangle)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.DragTable(r.ID, 300, 100); err != nil {
		t.Fatalf("drag: %v", err)
	}
	// the new left edge lands at 161, 5px right of table 1's right edge
	p, err := s.ResizeTable(r.ID, layout.HandleW, 236, 56)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if p.Table.X != 156 || p.Table.Width != 240 {
		t.Fatalf("expected left edge on 156 with right edge on 396, got %+v", p.Table)
	}
	if len(p.Guides) != 1 || p.Guides[0].Orientation != "vertical" || p.Guides[0].Position != p.Table.X {
		t.Fatalf("expected one guide on the moved edge, got %+v", p.Guides)
	}
}

func TestResizeWestIgnoresPinnedEdge(t *testing.T) {
	// b's right edge (290) is near a's fixed right edge (296) but not near
	// the edge the handle moves.
	s, _ := storeWith(t,
		domain.Table{ID: "a", Number: "1", Shape: domain.ShapeRectangle, XPercent: 20, YPercent: 20, Width: 96, Height: 56},
		domain.Table{ID: "b", Number: "2", Shape: domain.ShapeRectangle, XPercent: 10, YPercent: 60, Width: 190, Height: 56},
	)
	p, err := s.ResizeTable("a", layout.HandleW, 86, 56)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if p.Table.X != 211 || p.Table.Width != 85 || p.Table.X+p.Table.Width != 296 {
		t.Fatalf("expected unsnapped 211..296, got X=%v W=%v", p.Table.X, p.Table.Width)
	}
	if len(p.Guides) != 0 {
		t.Fatalf("no guide expected, got %+v", p.Guides)
	}
}

func TestResizeNorthSnapsToSiblingBottomEdge(t *testing.T) {
	s, _ := storeWith(t,
		domain.Table{ID: "a", Number: "1", Shape: domain.ShapeRectangle, XPercent: 20, YPercent: 40, Width: 96, Height: 56},
		domain.Table{ID: "c", Number: "2", Shape: domain.ShapeRectangle, XPercent: 60, YPercent: 20, Width: 96, Height: 90},
	)
	// 61 rounds to 60, putting the top edge at 196 next to c's bottom (190)
	p, err := s.ResizeTable("a", layout.HandleN, 96, 61)
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if p.Table.Y != 190 || p.Table.Height != 66 || p.Table.Y+p.Table.Height != 256 {
		t.Fatalf("expected top edge on 190 with bottom on 256, got Y=%v H=%v", p.Table.Y, p.Table.Height)
	}
	if len(p.Guides) != 1 || p.Guides[0].Orientation != "horizontal" || p.Guides[0].Position != 190 {
		t.Fatalf("expected a horizontal guide at 190, got %+v", p.Guides)
	}
}

func TestResizeSessionCommitsThroughResizeTable(t *testing.T) {
	s, _ := seededStore(t)
	s.SetEditMode(true)
	r, err := s.AddTable("R", domain.ShapeRectangle)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.DragTable(r.ID, 300, 100); err != nil {
		t.Fatalf("drag: %v", err)
	}
	start := geom.Pt{X: 300, Y: 120}
	rs, err := s.BeginResize(r.ID, layout.HandleW, start)
	if err != nil {
		t.Fatalf("begin resize: %v", err)
	}
	if c := rs.Move(geom.Pt{X: 161, Y: 120}); c.X != 161 || c.W != 235 {
		t.Fatalf("preview should not snap: %+v", c)
	}
	p, err := rs.End()
	if err != nil {
		t.Fatalf("end resize: %v", err)
	}
	if p.Table.X != 156 || p.Table.Width != 240 {
		t.Fatalf("expected committed snap to 156, got %+v", p.Table)
	}
	if !s.HasUnsavedChanges() {
		t.Fatalf("resize must stage the change")
	}

	s.SetEditMode(false)
	if _, err := s.BeginResize(r.ID, layout.HandleW, start); !errors.Is(err, domain.ErrEditModeRequired) {
		t.Fatalf("expected ErrEditModeRequired, got %v", err)
	}
}

func TestRenumberTable(t *testing.T) {
	s, _ := seededStore(t)
	s.SetEditMode(true)
	if _, err := s.RenumberTable("t2", " 1 "); !errors.Is(err, domain.ErrDuplicateTableNumber) {
		t.Fatalf("expected ErrDuplicateTableNumber, got %v", err)
	}
	if tbl, _ := s.Table("t2"); tbl.Number != "2" || s.HasUnsavedChanges() {
		t.Fatalf("rejected renumber changed state: %+v", tbl)
	}
	if _, err := s.RenumberTable("t2", "  "); !errors.Is(err, domain.ErrTableNumberRequired) {
		t.Fatalf("expected ErrTableNumberRequired, got %v", err)
	}
	tbl, err := s.RenumberTable("t2", "12")
	if err != nil {
		t.Fatalf("renumber: %v", err)
	}
	if tbl.Number != "12" || !s.HasUnsavedChanges() {
		t.Fatalf("unexpected renumber result %+v", tbl)
	}
	if ok, err := s.Undo(); err != nil || !ok {
		t.Fatalf("undo: %v %v", ok, err)
	}
	if tbl, _ := s.Table("t2"); tbl.Number != "2" {
		t.Fatalf("undo should restore the number, got %q", tbl.Number)
	}
}

func TestAssignZone(t *testing.T) {
	s, _ := seededStore(t)
	s.SetEditMode(true)
	if _, err := s.AssignZone("t1", "nope"); !errors.Is(err, domain.ErrZoneNotFound) {
		t.Fatalf("expected ErrZoneNotFound, got %v", err)
	}
	if _, err := s.AssignZone("missing", "z2"); !errors.Is(err, domain.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
	if s.HasUnsavedChanges() {
		t.Fatalf("rejected assignments must not stage anything")
	}
	if _, err := s.AssignZone("t1", "z2"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got := len(s.ZoneTables("z2")); got != 2 {
		t.Fatalf("expected t1 and t3 in z2, got %d", got)
	}
	tbl, err := s.AssignZone("t1", "")
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if tbl.ZoneID != "" || len(s.ZoneTables("")) != 1 {
		t.Fatalf("expected t1 unassigned, got %+v", tbl)
	}
}

func TestSaveLayoutRetryAfterFailedReload(t *testing.T) {
	s, gw := seededStore(t)
	s.SetEditMode(true)
	added, err := s.AddTable("9", domain.ShapeSquare)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	gw.failOn["ListZones"] = errBoom
	if err := s.SaveLayout(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected reload error, got %v", err)
	}
	if !s.HasUnsavedChanges() {
		t.Fatalf("store must stay dirty until it has reloaded")
	}
	if _, err := s.DragTable(added.ID, 700, 400); err != nil {
		t.Fatalf("drag after failed reload: %v", err)
	}

	delete(gw.failOn, "ListZones")
	if err := s.SaveLayout(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	stored := gw.byNumber("9")
	if len(stored) != 1 {
		t.Fatalf("expected a single stored table 9, got %+v", stored)
	}
	if math.Abs(stored[0].XPercent-70) > 1e-9 || math.Abs(stored[0].YPercent-80) > 1e-9 {
		t.Fatalf("drag after the failed reload was not saved: %+v", stored[0])
	}
	if s.HasUnsavedChanges() {
		t.Fatalf("retry should clear the dirty flag")
	}
	for _, tbl := range s.Tables() {
		if domain.IsTempID(tbl.ID) {
			t.Fatalf("table %s kept a temp id", tbl.Number)
		}
	}
}

func TestSaveLayoutRetryDeletesCommittedTable(t *testing.T) {
	s, gw := seededStore(t)
	s.SetEditMode(true)
	added, err := s.AddTable("9", domain.ShapeSquare)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	gw.failOn["ListTables"] = errBoom
	if err := s.SaveLayout(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected reload error, got %v", err)
	}
	if err := s.SaveLayout(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("resync must fail while listing fails, got %v", err)
	}
	if len(gw.byNumber("9")) != 1 {
		t.Fatalf("failed resync must not write")
	}

	delete(gw.failOn, "ListTables")
	if err := s.RemoveTable(added.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.SaveLayout(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := gw.byNumber("9"); len(got) != 0 {
		t.Fatalf("removed table still stored: %+v", got)
	}
	if len(s.Tables()) != 3 {
		t.Fatalf("expected the three seeded tables, got %+v", s.Tables())
	}
}

func TestDeleteZoneCountsTablesStagedOut(t *testing.T) {
	s, gw := seededStore(t)
	s.SetEditMode(true)
	// t3 is the only table stored in z2
	if _, err := s.AssignZone("t3", "z1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	n := len(gw.callLog())
	if err := s.DeleteZone(context.Background(), "z2", false); !errors.Is(err, domain.ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if len(gw.callLog()) != n {
		t.Fatalf("unconfirmed delete must not reach the gateway")
	}

	if err := s.DeleteZone(context.Background(), "z2", true); err != nil {
		t.Fatalf("delete zone: %v", err)
	}
	if got := gw.byNumber("3"); len(got) != 0 {
		t.Fatalf("stored t3 should go with its zone, got %+v", got)
	}
	if err := s.SaveLayout(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got := gw.byNumber("3")
	if len(got) != 1 || got[0].ZoneID != "z1" {
		t.Fatalf("expected table 3 saved into z1, got %+v", got)
	}
}
