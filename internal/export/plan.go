/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export renders a venue's floor plan to print and office formats:
// PDF (with QR table cards), PNG, an XLSX roster and a DXF drawing.
package export

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chatters/internal/domain"
	"chatters/internal/geom"
	"chatters/internal/layout"
	"chatters/internal/layoutio"
)

// UnassignedTitle heads the section of tables without a zone.
const UnassignedTitle = "Unassigned"

// Plan is a venue layout resolved to pixels for one container size.
type Plan struct {
	VenueID   string
	VenueName string
	Container geom.Size
	Zones     []domain.Zone
	Tables    []domain.Table
}

// Section is one drawable group of tables, usually a zone.
type Section struct {
	ZoneID string
	Title  string
	Tables []domain.Table
}

// LoadPlan reads the persisted layout of venue and derives pixel positions
// for container.
func LoadPlan(ctx context.Context, r layoutio.Reader, venue domain.Venue, container geom.Size) (Plan, error) {
	if !container.Valid() {
		return Plan{}, domain.ErrInvalidContainer
	}
	zones, err := r.ListZones(ctx, venue.ID)
	if err != nil {
		return Plan{}, fmt.Errorf("load plan: list zones: %w", err)
	}
	tables, err := r.ListTables(ctx, venue.ID)
	if err != nil {
		return Plan{}, fmt.Errorf("load plan: list tables: %w", err)
	}
	p := Plan{VenueID: venue.ID, VenueName: venue.Name, Container: container, Zones: zones}
	for _, t := range tables {
		p.Tables = append(p.Tables, layout.TableToPixels(t, container))
	}
	return p, nil
}

// PlanFromDocument builds a plan from an interchange document. Zones are
// keyed by name since documents carry no ids. The document's container wins
// over fallback when present.
func PlanFromDocument(doc layoutio.Document, fallback geom.Size) (Plan, error) {
	container := fallback
	if doc.Container != nil {
		container = geom.Size{W: doc.Container.Width, H: doc.Container.Height}
	}
	if !container.Valid() {
		return Plan{}, domain.ErrInvalidContainer
	}
	p := Plan{VenueID: doc.VenueID, VenueName: doc.VenueName, Container: container}
	for _, z := range doc.Zones {
		p.Zones = append(p.Zones, domain.Zone{ID: z.Name, VenueID: doc.VenueID, Name: z.Name, Order: z.Order})
	}
	sort.SliceStable(p.Zones, func(i, j int) bool { return p.Zones[i].Order < p.Zones[j].Order })
	for _, td := range doc.Tables {
		t := domain.Table{
			VenueID:  doc.VenueID,
			ZoneID:   td.Zone,
			Number:   td.Number,
			Shape:    td.Shape,
			XPercent: td.XPercent,
			YPercent: td.YPercent,
			Width:    td.Width,
			Height:   td.Height,
		}
		p.Tables = append(p.Tables, layout.TableToPixels(t, container))
	}
	return p, nil
}

// ZoneName returns the display name of a zone id.
func (p Plan) ZoneName(id string) string {
	for _, z := range p.Zones {
		if z.ID == id {
			return z.Name
		}
	}
	return ""
}

// Sections groups tables by zone in zone order, followed by unassigned
// tables. A plan without zones or tables yields one empty section.
func (p Plan) Sections() []Section {
	byZone := map[string][]domain.Table{}
	for _, t := range p.Tables {
		byZone[t.ZoneID] = append(byZone[t.ZoneID], t)
	}
	var out []Section
	for _, z := range p.Zones {
		ts := byZone[z.ID]
		delete(byZone, z.ID)
		out = append(out, Section{ZoneID: z.ID, Title: z.Name, Tables: sortByNumber(ts)})
	}
	// tables pointing at a zone the plan does not know are shown as unassigned
	var rest []domain.Table
	for _, ts := range byZone {
		rest = append(rest, ts...)
	}
	if len(rest) > 0 {
		out = append(out, Section{Title: UnassignedTitle, Tables: sortByNumber(rest)})
	}
	if len(out) == 0 {
		title := p.VenueName
		if title == "" {
			title = "Floor plan"
		}
		out = append(out, Section{Title: title})
	}
	return out
}

func sortByNumber(ts []domain.Table) []domain.Table {
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].Number < ts[j].Number })
	return ts
}

// FeedbackURL is the guest link a table's QR code points at. Persisted tables
// are identified by id, document tables by number.
func FeedbackURL(base, venueID string, t domain.Table) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", fmt.Errorf("feedback url: base url is empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("feedback url: %w", err)
	}
	q := u.Query()
	if venueID != "" {
		q.Set("venue", venueID)
	}
	if t.ID != "" && !domain.IsTempID(t.ID) {
		q.Set("table", t.ID)
	} else {
		q.Set("table_number", t.Number)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	return nil
}
