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
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"chatters/internal/domain"
	"chatters/internal/geom"
	"chatters/internal/layout"
	applog "chatters/internal/log"
	"chatters/internal/telemetry"
	"chatters/internal/undo"
)

// DefaultZoneName is given to zones created without a name.
const DefaultZoneName = "New Zone"

// Options configures a Store. Zero values fall back to package defaults.
type Options struct {
	Snap       layout.SnapOptions
	Resize     layout.ResizeOptions
	History    undo.Config
	ZoomStep   float64
	FitPadding float64
	Logger     *slog.Logger
}

// Store is the authoritative in-memory floor plan of a single venue. Table
// edits are staged locally and written by SaveLayout; zone operations go to
// the gateway immediately. Tables carry world pixel positions in X/Y while
// loaded; percents are only recomputed on save.
//
// A Store is safe for concurrent use. Gateway calls run without holding the
// lock.
type Store struct {
	mu sync.Mutex

	gw      Gateway
	log     *slog.Logger
	venueID string
	opts    Options

	zones     []domain.Zone
	tables    []domain.Table
	persisted map[string]string // id -> stored zone id

	dirty      bool
	saving     bool
	resync     bool
	editMode   bool
	activeZone string
	container  geom.Size
	viewport   *layout.Viewport
	history    *undo.Manager
}

// New returns an empty store for venueID. Call Load to populate it.
func New(gw Gateway, venueID string, container geom.Size, opts Options) (*Store, error) {
	venueID = strings.TrimSpace(venueID)
	if venueID == "" {
		return nil, domain.ErrVenueRequired
	}
	if gw == nil {
		return nil, fmt.Errorf("floorplan: nil gateway")
	}
	if !container.Valid() {
		return nil, domain.ErrInvalidContainer
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("floorplan")
	}
	vp := layout.NewViewport()
	if opts.ZoomStep > 0 {
		vp.ZoomStep = opts.ZoomStep
	}
	if opts.FitPadding > 0 {
		vp.FitPadding = opts.FitPadding
	}
	return &Store{
		gw:        gw,
		log:       l.With(slog.String("venue_id", venueID)),
		venueID:   venueID,
		opts:      opts,
		persisted: map[string]string{},
		container: container,
		viewport:  vp,
		history:   undo.NewManager(opts.History),
	}, nil
}

// VenueID returns the venue the store edits.
func (s *Store) VenueID() string { return s.venueID }

// Load replaces local state with the gateway's zones and tables. Staged
// edits and undo history are discarded.
func (s *Store) Load(ctx context.Context) error {
	l := applog.WithOperation(s.log, "load")
	zones, err := s.gw.ListZones(ctx, s.venueID)
	if err != nil {
		l.Error("list zones failed", slog.Any("err", err))
		return fmt.Errorf("load zones: %w", err)
	}
	tables, err := s.gw.ListTables(ctx, s.venueID)
	if err != nil {
		l.Error("list tables failed", slog.Any("err", err))
		return fmt.Errorf("load tables: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLoadLocked(zones, tables)
	l.Debug("layout loaded", slog.Int("zones", len(zones)), slog.Int("tables", len(tables)))
	return nil
}

func (s *Store) applyLoadLocked(zones []domain.Zone, tables []domain.Table) {
	s.setZonesLocked(zones)
	s.tables = make([]domain.Table, 0, len(tables))
	s.persisted = make(map[string]string, len(tables))
	for _, t := range tables {
		s.tables = append(s.tables, layout.TableToPixels(t, s.container))
		s.persisted[t.ID] = t.ZoneID
	}
	s.dirty = false
	s.resync = false
	s.history.Clear(s.venueID)
}

// adoptPersistedLocked takes over the ids of tables that a previous save
// committed but never reloaded. Staged tables are matched by number, which
// is unique per venue; positions and other staged edits stay local.
func (s *Store) adoptPersistedLocked(tables []domain.Table) {
	byNumber := make(map[string]string, len(tables))
	s.persisted = make(map[string]string, len(tables))
	for _, t := range tables {
		byNumber[t.Number] = t.ID
		s.persisted[t.ID] = t.ZoneID
	}
	taken := make(map[string]bool, len(s.tables))
	for _, t := range s.tables {
		taken[t.ID] = true
	}
	for i := range s.tables {
		id, ok := byNumber[s.tables[i].Number]
		if ok && !taken[id] && domain.IsTempID(s.tables[i].ID) {
			s.tables[i].ID = id
			taken[id] = true
		}
	}
	s.resync = false
	// Snapshots still carry the temp ids.
	s.history.Clear(s.venueID)
}

func (s *Store) setZonesLocked(zones []domain.Zone) {
	s.zones = append([]domain.Zone(nil), zones...)
	sort.SliceStable(s.zones, func(i, j int) bool { return s.zones[i].Order < s.zones[j].Order })
	if s.activeZone != "" && s.zoneIndexLocked(s.activeZone) < 0 {
		s.activeZone = ""
	}
	if s.activeZone == "" && len(s.zones) > 0 {
		s.activeZone = s.zones[0].ID
	}
}

// SetContainer updates the container size. Table positions scale with it so
// their percent coordinates stay the same; sizes are left alone.
func (s *Store) SetContainer(size geom.Size) error {
	if !size.Valid() {
		return domain.ErrInvalidContainer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.container
	for i := range s.tables {
		t := &s.tables[i]
		t.X = layout.ToPixels(layout.ToPercent(t.X, old.W), size.W)
		t.Y = layout.ToPixels(layout.ToPercent(t.Y, old.H), size.H)
	}
	s.container = size
	return nil
}

// Container returns the current container size.
func (s *Store) Container() geom.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.container
}

// SetEditMode toggles edit mode. Table edits require it; panning is refused
// while it is on.
func (s *Store) SetEditMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editMode = on
}

// EditMode reports whether edit mode is on.
func (s *Store) EditMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editMode
}

// HasUnsavedChanges reports whether table edits are staged.
func (s *Store) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Saving reports whether a save is in flight.
func (s *Store) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// Tables returns a copy of all tables with pixel positions.
func (s *Store) Tables() []domain.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Table(nil), s.tables...)
}

// ZoneTables returns the tables assigned to zoneID ("" for unassigned).
func (s *Store) ZoneTables(zoneID string) []domain.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Table
	for _, t := range s.tables {
		if t.ZoneID == zoneID {
			out = append(out, t)
		}
	}
	return out
}

// Table returns one table by id.
func (s *Store) Table(id string) (domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.tableIndexLocked(id)
	if i < 0 {
		return domain.Table{}, domain.ErrTableNotFound
	}
	return s.tables[i], nil
}

func (s *Store) tableIndexLocked(id string) int {
	for i := range s.tables {
		if s.tables[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) numberTakenLocked(number, exceptID string) bool {
	for _, t := range s.tables {
		if t.Number == number && t.ID != exceptID {
			return true
		}
	}
	return false
}

// siblingRectsLocked returns the rects of the other tables in zoneID.
func (s *Store) siblingRectsLocked(zoneID, exceptID string) []geom.Rect {
	var out []geom.Rect
	for _, t := range s.tables {
		if t.ZoneID == zoneID && t.ID != exceptID {
			out = append(out, layout.TableRect(t))
		}
	}
	return out
}

// checkEditableLocked guards every staged table mutation.
func (s *Store) checkEditableLocked() error {
	if s.saving {
		return domain.ErrSaveInProgress
	}
	if !s.editMode {
		return domain.ErrEditModeRequired
	}
	return nil
}

// AddTable stages a new table in the active zone, centered on the visible
// area. Numbers are trimmed and must be unique within the venue.
func (s *Store) AddTable(number string, shape domain.Shape) (domain.Table, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return domain.Table{}, domain.ErrTableNumberRequired
	}
	if !shape.Valid() {
		return domain.Table{}, domain.ErrInvalidShape
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return domain.Table{}, err
	}
	if s.numberTakenLocked(number, "") {
		return domain.Table{}, fmt.Errorf("table %q: %w", number, domain.ErrDuplicateTableNumber)
	}

	size := layout.DefaultSize(shape)
	c := s.viewport.VisibleCenter(s.container)
	t := domain.Table{
		ID:      domain.NewTempID(),
		VenueID: s.venueID,
		ZoneID:  s.activeZone,
		Number:  number,
		Shape:   shape,
		Width:   size.W,
		Height:  size.H,
		X:       geom.Round(c.X-size.W/2, 2),
		Y:       geom.Round(c.Y-size.H/2, 2),
	}
	s.recordLocked()
	s.tables = append(s.tables, t)
	s.dirty = true
	s.log.Debug("table added", slog.String("table_id", t.ID), slog.String("number", number))
	return t, nil
}

// RenumberTable changes a table's number under the same rules as AddTable.
func (s *Store) RenumberTable(id, number string) (domain.Table, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return domain.Table{}, domain.ErrTableNumberRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return domain.Table{}, err
	}
	i := s.tableIndexLocked(id)
	if i < 0 {
		return domain.Table{}, domain.ErrTableNotFound
	}
	if s.numberTakenLocked(number, id) {
		return domain.Table{}, fmt.Errorf("table %q: %w", number, domain.ErrDuplicateTableNumber)
	}
	s.recordLocked()
	s.tables[i].Number = number
	s.dirty = true
	return s.tables[i], nil
}

// AssignZone moves a table into zoneID ("" unassigns it).
func (s *Store) AssignZone(id, zoneID string) (domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return domain.Table{}, err
	}
	i := s.tableIndexLocked(id)
	if i < 0 {
		return domain.Table{}, domain.ErrTableNotFound
	}
	if zoneID != "" && s.zoneIndexLocked(zoneID) < 0 {
		return domain.Table{}, domain.ErrZoneNotFound
	}
	s.recordLocked()
	s.tables[i].ZoneID = zoneID
	s.dirty = true
	return s.tables[i], nil
}

// Placement is the outcome of a drag or resize: the updated table plus the
// alignment guides that produced its position.
type Placement struct {
	Table  domain.Table
	Guides []layout.Guide
}

// DragTable moves a table to the world position (x, y), snapped against the
// other tables of its zone.
func (s *Store) DragTable(id string, x, y float64) (Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return Placement{}, err
	}
	i := s.tableIndexLocked(id)
	if i < 0 {
		return Placement{}, domain.ErrTableNotFound
	}
	t := s.tables[i]
	moving := geom.R(x, y, t.Width, t.Height)
	res := layout.ResolveSnap(moving, s.siblingRectsLocked(t.ZoneID, id), s.opts.Snap)

	s.recordLocked()
	s.tables[i].X = res.Pos.X
	s.tables[i].Y = res.Pos.Y
	s.dirty = true
	return Placement{Table: s.tables[i], Guides: res.Guides}, nil
}

// ResizeTable resizes a table through handle with the proposed dimensions.
// Resizes that move the origin (N/W handles) also snap the moved edge and
// commit position and size together.
func (s *Store) ResizeTable(id string, handle layout.Handle, w, h float64) (Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return Placement{}, err
	}
	i := s.tableIndexLocked(id)
	if i < 0 {
		return Placement{}, domain.ErrTableNotFound
	}
	t := s.tables[i]
	orig := layout.TableRect(t)
	r := layout.Resize(orig, handle, w, h, t.Shape, s.opts.Resize)

	var guides []layout.Guide
	if handle.MovesOrigin() {
		r, guides = s.snapResizeOriginLocked(r, handle, t)
	}

	s.recordLocked()
	s.tables[i].X, s.tables[i].Y = r.X, r.Y
	s.tables[i].Width, s.tables[i].Height = r.W, r.H
	s.dirty = true
	return Placement{Table: s.tables[i], Guides: guides}, nil
}

// snapResizeOriginLocked snaps the edges a N/W resize moved against the
// sibling lines, keeping the opposite edges fixed. Only the moved edge is
// tested, so every guide lies on it. A snap that would break the minimum
// size or the shape's equal sides is dropped.
func (s *Store) snapResizeOriginLocked(r geom.Rect, handle layout.Handle, t domain.Table) (geom.Rect, []layout.Guide) {
	siblings := s.siblingRectsLocked(t.ZoneID, t.ID)
	out := r
	var guides []layout.Guide
	if handle&layout.HandleW != 0 {
		if x, g, ok := layout.SnapEdgeX(r.X, r, siblings, s.opts.Snap); ok {
			out.X, out.W = x, r.Right()-x
			guides = append(guides, g)
		}
	}
	if handle&layout.HandleN != 0 {
		if y, g, ok := layout.SnapEdgeY(r.Y, r, siblings, s.opts.Snap); ok {
			out.Y, out.H = y, r.Bottom()-y
			guides = append(guides, g)
		}
	}
	minSize := s.opts.Resize.MinSize
	if minSize <= 0 {
		minSize = layout.MinTableSize
	}
	if out.W < minSize || out.H < minSize {
		return r, nil
	}
	if t.Shape != domain.ShapeRectangle && out.W != out.H {
		return r, nil
	}
	return out, guides
}

// RemoveTable drops a table from the staged layout. Persisted tables are
// deleted from the gateway by the next SaveLayout.
func (s *Store) RemoveTable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return err
	}
	i := s.tableIndexLocked(id)
	if i < 0 {
		return domain.ErrTableNotFound
	}
	s.recordLocked()
	s.tables = append(s.tables[:i], s.tables[i+1:]...)
	s.dirty = true
	return nil
}

// SaveLayout writes the staged layout: tables that were persisted but are
// gone locally are deleted first, then every local table is upserted with
// percent coordinates for the current container. On success the store
// reloads to adopt assigned ids. On failure local state is left untouched
// and the save may be retried. When the writes went through but the reload
// failed, the retry first lists the stored tables and adopts their ids so
// nothing is inserted twice.
func (s *Store) SaveLayout(ctx context.Context) error {
	l := applog.WithOperation(s.log, "save_layout")

	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return domain.ErrSaveInProgress
	}
	s.saving = true
	resync := s.resync
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}()

	if resync {
		tables, err := s.gw.ListTables(ctx, s.venueID)
		if err != nil {
			l.Error("resync tables failed", slog.Any("err", err))
			return fmt.Errorf("save layout: resync: %w", err)
		}
		s.mu.Lock()
		s.adoptPersistedLocked(tables)
		s.mu.Unlock()
		l.Debug("adopted ids of committed tables", slog.Int("tables", len(tables)))
	}

	s.mu.Lock()
	rows, deletes := s.saveDiffLocked()
	s.mu.Unlock()

	if len(deletes) > 0 {
		if err := s.gw.DeleteTablesByIDs(ctx, deletes); err != nil {
			l.Error("delete removed tables failed", slog.Int("count", len(deletes)), slog.Any("err", err))
			return fmt.Errorf("save layout: delete tables: %w", err)
		}
	}
	if len(rows) > 0 {
		if err := s.gw.UpsertTables(ctx, rows); err != nil {
			l.Error("upsert tables failed", slog.Int("count", len(rows)), slog.Any("err", err))
			return fmt.Errorf("save layout: upsert tables: %w", err)
		}
	}

	zones, err := s.gw.ListZones(ctx, s.venueID)
	if err == nil {
		var tables []domain.Table
		if tables, err = s.gw.ListTables(ctx, s.venueID); err == nil {
			s.mu.Lock()
			s.applyLoadLocked(zones, tables)
			s.mu.Unlock()
		}
	}
	if err != nil {
		s.mu.Lock()
		s.resync = true
		s.mu.Unlock()
		l.Error("reload after save failed", slog.Any("err", err))
		return fmt.Errorf("save layout: reload: %w", err)
	}
	l.Info("layout saved", slog.Int("upserted", len(rows)), slog.Int("deleted", len(deletes)))
	telemetry.LayoutSaved(len(rows), len(deletes))
	return nil
}

// saveDiffLocked computes the upsert rows and the ids to delete.
func (s *Store) saveDiffLocked() ([]domain.Table, []string) {
	current := make(map[string]struct{}, len(s.tables))
	rows := make([]domain.Table, 0, len(s.tables))
	for _, t := range s.tables {
		row := layout.TableToPercent(t, s.container)
		row.VenueID = s.venueID
		if domain.IsTempID(row.ID) {
			row.ID = ""
		} else {
			current[row.ID] = struct{}{}
		}
		rows = append(rows, row)
	}
	var deletes []string
	for id := range s.persisted {
		if _, ok := current[id]; !ok {
			deletes = append(deletes, id)
		}
	}
	sort.Strings(deletes)
	return rows, deletes
}
