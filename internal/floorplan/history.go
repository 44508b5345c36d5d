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
	"encoding/json"
	"time"

	"chatters/internal/domain"
	"chatters/internal/undo"
)

// stagedTable is a table with its transient pixel position, which the
// domain JSON encoding leaves out.
type stagedTable struct {
	Table domain.Table `json:"table"`
	X     float64      `json:"x"`
	Y     float64      `json:"y"`
}

func encodeTables(tables []domain.Table) []byte {
	staged := make([]stagedTable, len(tables))
	for i, t := range tables {
		staged[i] = stagedTable{Table: t, X: t.X, Y: t.Y}
	}
	b, err := json.Marshal(staged)
	if err != nil {
		// Tables hold plain strings and numbers only.
		panic(err)
	}
	return b
}

func decodeTables(b []byte) ([]domain.Table, error) {
	var staged []stagedTable
	if err := json.Unmarshal(b, &staged); err != nil {
		return nil, err
	}
	out := make([]domain.Table, len(staged))
	for i, st := range staged {
		st.Table.X, st.Table.Y = st.X, st.Y
		out[i] = st.Table
	}
	return out, nil
}

// recordLocked pushes the current tables onto the undo history. Call it
// right before a staged mutation.
func (s *Store) recordLocked() {
	s.history.Push(undo.Snapshot{Key: s.venueID, Blob: encodeTables(s.tables), TS: time.Now()})
}

// Undo reverts the last staged table edit. It reports false when there is
// nothing to undo.
func (s *Store) Undo() (bool, error) {
	return s.step(s.history.Undo)
}

// Redo reapplies the last undone table edit.
func (s *Store) Redo() (bool, error) {
	return s.step(s.history.Redo)
}

func (s *Store) step(pop func(key string, current []byte) (undo.Snapshot, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return false, err
	}
	snap, ok := pop(s.venueID, encodeTables(s.tables))
	if !ok {
		return false, nil
	}
	tables, err := decodeTables(snap.Blob)
	if err != nil {
		return false, err
	}
	s.tables = tables
	s.dirty = true
	return true, nil
}

// CanUndo reports whether a staged edit can be undone.
func (s *Store) CanUndo() bool { return s.history.CanUndo(s.venueID) }

// CanRedo reports whether an undone edit can be redone.
func (s *Store) CanRedo() bool { return s.history.CanRedo(s.venueID) }

// Snapshot is the unsaved state of the store, written into crash reports.
type Snapshot struct {
	VenueID    string         `json:"venue_id"`
	Container  [2]float64     `json:"container"`
	Dirty      bool           `json:"dirty"`
	ActiveZone string         `json:"active_zone,omitempty"`
	Zones      []domain.Zone  `json:"zones"`
	Tables     []domain.Table `json:"tables"`
}

// Snapshot returns the current state with tables in percent coordinates.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, _ := s.saveDiffLocked()
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = s.tables[i].ID
		}
	}
	return Snapshot{
		VenueID:    s.venueID,
		Container:  [2]float64{s.container.W, s.container.H},
		Dirty:      s.dirty,
		ActiveZone: s.activeZone,
		Zones:      append([]domain.Zone(nil), s.zones...),
		Tables:     rows,
	}
}

// Dump serializes Snapshot as indented JSON for crash reports.
func (s *Store) Dump() ([]byte, error) {
	return json.MarshalIndent(s.Snapshot(), "", "  ")
}
