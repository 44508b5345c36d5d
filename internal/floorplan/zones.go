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
	"strings"

	"chatters/internal/domain"
	applog "chatters/internal/log"
)

// Zones returns the zones ordered by Order.
func (s *Store) Zones() []domain.Zone {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Zone(nil), s.zones...)
}

// ActiveZone returns the selected zone id ("" when none).
func (s *Store) ActiveZone() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeZone
}

// SelectZone makes zoneID the active zone. New tables land there.
func (s *Store) SelectZone(zoneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if zoneID != "" && s.zoneIndexLocked(zoneID) < 0 {
		return domain.ErrZoneNotFound
	}
	s.activeZone = zoneID
	return nil
}

// zoneTableCountLocked counts the tables a zone delete removes: the ones
// staged in the zone plus the stored ones that were staged out of it, since
// the gateway deletes by stored membership.
func (s *Store) zoneTableCountLocked(id string) int {
	count := 0
	for _, t := range s.tables {
		if t.ZoneID == id {
			count++
			continue
		}
		if stored, ok := s.persisted[t.ID]; ok && stored == id {
			count++
		}
	}
	return count
}

func (s *Store) zoneIndexLocked(id string) int {
	for i := range s.zones {
		if s.zones[i].ID == id {
			return i
		}
	}
	return -1
}

// CreateZone appends a zone named DefaultZoneName at the trailing order index.
func (s *Store) CreateZone(ctx context.Context) (domain.Zone, error) {
	return s.CreateNamedZone(ctx, DefaultZoneName)
}

// CreateNamedZone appends a zone with the given name (DefaultZoneName when
// blank). The gateway is called immediately.
func (s *Store) CreateNamedZone(ctx context.Context, name string) (domain.Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultZoneName
	}
	s.mu.Lock()
	order := 0
	for _, z := range s.zones {
		if z.Order >= order {
			order = z.Order + 1
		}
	}
	s.mu.Unlock()

	z, err := s.gw.CreateZone(ctx, domain.Zone{VenueID: s.venueID, Name: name, Order: order})
	if err != nil {
		applog.WithOperation(s.log, "create_zone").Error("create zone failed", slog.Any("err", err))
		return domain.Zone{}, fmt.Errorf("create zone: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setZonesLocked(append(s.zones, z))
	return z, nil
}

// RenameZone updates a zone's name immediately.
func (s *Store) RenameZone(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrZoneNameRequired
	}
	s.mu.Lock()
	known := s.zoneIndexLocked(id) >= 0
	s.mu.Unlock()
	if !known {
		return domain.ErrZoneNotFound
	}

	if err := s.gw.UpdateZone(ctx, id, domain.ZoneUpdate{Name: &name}); err != nil {
		applog.WithOperation(s.log, "rename_zone").Error("rename zone failed", slog.String("zone_id", id), slog.Any("err", err))
		return fmt.Errorf("rename zone: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.zoneIndexLocked(id); i >= 0 {
		s.zones[i].Name = name
	}
	return nil
}

// DeleteZone deletes a zone together with its tables. A zone that still
// holds tables, staged or stored, needs confirmed=true. Afterwards zones are reloaded; tables
// are reloaded too unless edits are staged, in which case the zone's tables
// are only pruned locally so the staged edits survive.
func (s *Store) DeleteZone(ctx context.Context, id string, confirmed bool) error {
	l := applog.WithOperation(s.log, "delete_zone").With(slog.String("zone_id", id))

	s.mu.Lock()
	if s.zoneIndexLocked(id) < 0 {
		s.mu.Unlock()
		return domain.ErrZoneNotFound
	}
	if s.saving {
		s.mu.Unlock()
		return domain.ErrSaveInProgress
	}
	count := s.zoneTableCountLocked(id)
	s.mu.Unlock()
	if count > 0 && !confirmed {
		return fmt.Errorf("zone holds %d tables: %w", count, domain.ErrConfirmationRequired)
	}

	if err := s.gw.DeleteTablesByZone(ctx, id); err != nil {
		l.Error("delete zone tables failed", slog.Any("err", err))
		return fmt.Errorf("delete zone tables: %w", err)
	}
	if err := s.gw.DeleteZone(ctx, id); err != nil {
		l.Error("delete zone failed", slog.Any("err", err))
		return fmt.Errorf("delete zone: %w", err)
	}

	zones, err := s.gw.ListZones(ctx, s.venueID)
	if err != nil {
		l.Error("reload zones failed", slog.Any("err", err))
		return fmt.Errorf("reload zones: %w", err)
	}

	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()

	if !dirty {
		tables, err := s.gw.ListTables(ctx, s.venueID)
		if err != nil {
			l.Error("reload tables failed", slog.Any("err", err))
			return fmt.Errorf("reload tables: %w", err)
		}
		s.mu.Lock()
		s.applyLoadLocked(zones, tables)
		s.mu.Unlock()
		l.Info("zone deleted", slog.Int("tables", count))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setZonesLocked(zones)
	kept := s.tables[:0]
	for _, t := range s.tables {
		stored, ok := s.persisted[t.ID]
		switch {
		case t.ZoneID == id:
			delete(s.persisted, t.ID)
			continue
		case ok && stored == id:
			// Staged out of the zone but removed with it on the server; the
			// next save inserts it again.
			delete(s.persisted, t.ID)
			t.ID = domain.NewTempID()
		}
		kept = append(kept, t)
	}
	s.tables = kept
	// Staged snapshots may still reference the deleted zone.
	s.history.Clear(s.venueID)
	l.Info("zone deleted with staged edits kept", slog.Int("tables", count))
	return nil
}
