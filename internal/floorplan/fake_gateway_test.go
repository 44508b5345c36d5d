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
	"errors"
	"fmt"
	"sort"
	"sync"

	"chatters/internal/domain"
)

// fakeGateway is an in-memory Gateway that records calls and can fail or
// block on demand.
type fakeGateway struct {
	mu     sync.Mutex
	zones  map[string]domain.Zone
	tables map[string]domain.Table
	seq    int

	calls         []string
	upserted      []domain.Table
	deletedIDs    []string
	failOn        map[string]error
	blockUpsert   chan struct{}
	upsertEntered chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		zones:  map[string]domain.Zone{},
		tables: map[string]domain.Table{},
		failOn: map[string]error{},
	}
}

func (f *fakeGateway) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeGateway) record(call string) error {
	f.calls = append(f.calls, call)
	return f.failOn[call]
}

func (f *fakeGateway) seedZone(z domain.Zone) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zones[z.ID] = z
}

func (f *fakeGateway) seedTable(t domain.Table) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[t.ID] = t
}

// byNumber returns the stored tables carrying number.
func (f *fakeGateway) byNumber(number string) []domain.Table {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Table
	for _, t := range f.tables {
		if t.Number == number {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeGateway) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGateway) ListZones(ctx context.Context, venueID string) ([]domain.Zone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListZones"); err != nil {
		return nil, err
	}
	var out []domain.Zone
	for _, z := range f.zones {
		if z.VenueID == venueID {
			out = append(out, z)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeGateway) ListTables(ctx context.Context, venueID string) ([]domain.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListTables"); err != nil {
		return nil, err
	}
	var out []domain.Table
	for _, t := range f.tables {
		if t.VenueID == venueID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeGateway) UpsertTables(ctx context.Context, rows []domain.Table) error {
	f.mu.Lock()
	block, entered := f.blockUpsert, f.upsertEntered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpsertTables"); err != nil {
		return err
	}
	f.upserted = append([]domain.Table(nil), rows...)
	for _, r := range rows {
		for id, existing := range f.tables {
			if existing.VenueID == r.VenueID && existing.Number == r.Number && id != r.ID {
				return domain.ErrDuplicateTableNumber
			}
		}
		if r.ID == "" {
			r.ID = f.nextID("tbl")
		}
		f.tables[r.ID] = r
	}
	return nil
}

func (f *fakeGateway) DeleteTablesByIDs(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteTablesByIDs"); err != nil {
		return err
	}
	f.deletedIDs = append([]string(nil), ids...)
	for _, id := range ids {
		delete(f.tables, id)
	}
	return nil
}

func (f *fakeGateway) DeleteTablesByZone(ctx context.Context, zoneID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteTablesByZone"); err != nil {
		return err
	}
	for id, t := range f.tables {
		if t.ZoneID == zoneID {
			delete(f.tables, id)
		}
	}
	return nil
}

func (f *fakeGateway) CreateZone(ctx context.Context, z domain.Zone) (domain.Zone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateZone"); err != nil {
		return domain.Zone{}, err
	}
	z.ID = f.nextID("zone")
	f.zones[z.ID] = z
	return z, nil
}

func (f *fakeGateway) UpdateZone(ctx context.Context, id string, upd domain.ZoneUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateZone"); err != nil {
		return err
	}
	z, ok := f.zones[id]
	if !ok {
		return domain.ErrZoneNotFound
	}
	if upd.Name != nil {
		z.Name = *upd.Name
	}
	if upd.Order != nil {
		z.Order = *upd.Order
	}
	f.zones[id] = z
	return nil
}

func (f *fakeGateway) DeleteZone(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteZone"); err != nil {
		return err
	}
	if _, ok := f.zones[id]; !ok {
		return domain.ErrZoneNotFound
	}
	delete(f.zones, id)
	return nil
}

var errBoom = errors.New("boom")
