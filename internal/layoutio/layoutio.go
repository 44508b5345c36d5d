/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package layoutio moves a venue's floor plan in and out of a portable JSON
// document. Tables reference zones by name so a layout can be applied to
// another venue.
package layoutio

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"chatters/internal/domain"
	"chatters/internal/floorplan"
	"chatters/internal/layout"
	applog "chatters/internal/log"
)

// FormatVersion is the document version this package reads and writes.
const FormatVersion = 1

//go:embed layout.schema.json
var schemaJSON []byte

var schema = mustSchema()

func mustSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("layoutio: bad embedded schema: %v", err))
	}
	return s
}

// Schema returns the embedded JSON Schema.
func Schema() []byte { return append([]byte(nil), schemaJSON...) }

type Container struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type ZoneDoc struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type TableDoc struct {
	Number   string       `json:"table_number"`
	Zone     string       `json:"zone,omitempty"`
	Shape    domain.Shape `json:"shape"`
	XPercent float64      `json:"x_percent"`
	YPercent float64      `json:"y_percent"`
	Width    float64      `json:"width"`
	Height   float64      `json:"height"`
}

// Document is the interchange form of one venue's layout.
type Document struct {
	Version    int        `json:"version"`
	VenueID    string     `json:"venue_id,omitempty"`
	VenueName  string     `json:"venue_name,omitempty"`
	ExportedAt *time.Time `json:"exported_at,omitempty"`
	Container  *Container `json:"container,omitempty"`
	Zones      []ZoneDoc  `json:"zones"`
	Tables     []TableDoc `json:"tables"`
}

// ValidationError lists schema or consistency problems of a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid layout document: " + strings.Join(e.Problems, "; ")
}

// Reader is the read half of floorplan.Gateway.
type Reader interface {
	ListZones(ctx context.Context, venueID string) ([]domain.Zone, error)
	ListTables(ctx context.Context, venueID string) ([]domain.Table, error)
}

// Export builds a document from the persisted layout of venueID.
func Export(ctx context.Context, r Reader, venueID string) (Document, error) {
	zones, err := r.ListZones(ctx, venueID)
	if err != nil {
		return Document{}, fmt.Errorf("export: list zones: %w", err)
	}
	tables, err := r.ListTables(ctx, venueID)
	if err != nil {
		return Document{}, fmt.Errorf("export: list tables: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	doc := Document{
		Version:    FormatVersion,
		VenueID:    venueID,
		ExportedAt: &now,
		Zones:      make([]ZoneDoc, 0, len(zones)),
		Tables:     make([]TableDoc, 0, len(tables)),
	}
	names := make(map[string]string, len(zones))
	for _, z := range zones {
		names[z.ID] = z.Name
		doc.Zones = append(doc.Zones, ZoneDoc{Name: z.Name, Order: z.Order})
	}
	for _, t := range tables {
		doc.Tables = append(doc.Tables, TableDoc{
			Number:   t.Number,
			Zone:     names[t.ZoneID],
			Shape:    t.Shape,
			XPercent: layout.ClampPercent(t.XPercent),
			YPercent: layout.ClampPercent(t.YPercent),
			Width:    t.Width,
			Height:   t.Height,
		})
	}
	sort.SliceStable(doc.Tables, func(i, j int) bool { return doc.Tables[i].Number < doc.Tables[j].Number })
	return doc, nil
}

// Encode renders doc as indented JSON.
func Encode(doc Document) ([]byte, error) {
	if doc.Version == 0 {
		doc.Version = FormatVersion
	}
	if doc.Zones == nil {
		doc.Zones = []ZoneDoc{}
	}
	if doc.Tables == nil {
		doc.Tables = []TableDoc{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode layout: %w", err)
	}
	return append(b, '\n'), nil
}

// Validate checks raw JSON against the embedded schema.
func Validate(data []byte) error {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &ValidationError{Problems: []string{err.Error()}}
	}
	if res.Valid() {
		return nil
	}
	ve := &ValidationError{}
	for _, e := range res.Errors() {
		ve.Problems = append(ve.Problems, e.String())
	}
	return ve
}

// Decode validates and parses a document. Beyond the schema it rejects
// duplicate table numbers (errors.Is ErrDuplicateTableNumber), duplicate zone
// names and tables naming an unknown zone (errors.Is ErrZoneNotFound).
func Decode(data []byte) (Document, error) {
	if err := Validate(data); err != nil {
		return Document{}, err
	}
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode layout: %w", err)
	}
	zones := map[string]struct{}{}
	for _, z := range doc.Zones {
		name := strings.TrimSpace(z.Name)
		if _, dup := zones[name]; dup {
			return Document{}, &ValidationError{Problems: []string{fmt.Sprintf("zone %q listed twice", name)}}
		}
		zones[name] = struct{}{}
	}
	numbers := map[string]struct{}{}
	for _, t := range doc.Tables {
		n := strings.TrimSpace(t.Number)
		if _, dup := numbers[n]; dup {
			return Document{}, fmt.Errorf("table %q: %w", n, domain.ErrDuplicateTableNumber)
		}
		numbers[n] = struct{}{}
		if t.Zone != "" {
			if _, ok := zones[strings.TrimSpace(t.Zone)]; !ok {
				return Document{}, fmt.Errorf("table %q references zone %q: %w", n, t.Zone, domain.ErrZoneNotFound)
			}
		}
	}
	return doc, nil
}

// ApplyResult summarizes what Apply changed.
type ApplyResult struct {
	ZonesCreated  int
	TablesUpdated int
	TablesCreated int
	TablesDeleted int
}

// Apply replaces the tables of venueID with those of doc. Zones are matched
// by name and created when missing; existing zones are never deleted. Tables
// keep their id when their number already exists, so printed QR codes stay
// valid. Deletes run before upserts.
func Apply(ctx context.Context, gw floorplan.Gateway, venueID string, doc Document) (ApplyResult, error) {
	l := applog.WithOperation(applog.WithComponent("layoutio"), "apply").With(slog.String("venue_id", venueID))
	var res ApplyResult
	if strings.TrimSpace(venueID) == "" {
		return res, domain.ErrVenueRequired
	}

	zones, err := gw.ListZones(ctx, venueID)
	if err != nil {
		return res, fmt.Errorf("apply: list zones: %w", err)
	}
	zoneIDs := make(map[string]string, len(zones))
	nextOrder := 0
	for _, z := range zones {
		zoneIDs[z.Name] = z.ID
		if z.Order >= nextOrder {
			nextOrder = z.Order + 1
		}
	}
	for _, zd := range doc.Zones {
		name := strings.TrimSpace(zd.Name)
		if _, ok := zoneIDs[name]; ok {
			continue
		}
		z, err := gw.CreateZone(ctx, domain.Zone{VenueID: venueID, Name: name, Order: nextOrder})
		if err != nil {
			return res, fmt.Errorf("apply: create zone %q: %w", name, err)
		}
		nextOrder++
		zoneIDs[name] = z.ID
		res.ZonesCreated++
	}

	existing, err := gw.ListTables(ctx, venueID)
	if err != nil {
		return res, fmt.Errorf("apply: list tables: %w", err)
	}
	byNumber := make(map[string]string, len(existing))
	for _, t := range existing {
		byNumber[t.Number] = t.ID
	}

	rows := make([]domain.Table, 0, len(doc.Tables))
	keep := map[string]struct{}{}
	for _, td := range doc.Tables {
		n := strings.TrimSpace(td.Number)
		row := domain.Table{
			ID:       byNumber[n],
			VenueID:  venueID,
			ZoneID:   zoneIDs[strings.TrimSpace(td.Zone)],
			Number:   n,
			Shape:    td.Shape,
			XPercent: layout.ClampPercent(td.XPercent),
			YPercent: layout.ClampPercent(td.YPercent),
			Width:    td.Width,
			Height:   td.Height,
		}
		if row.ID != "" {
			keep[row.ID] = struct{}{}
			res.TablesUpdated++
		} else {
			res.TablesCreated++
		}
		rows = append(rows, row)
	}
	var deletes []string
	for _, t := range existing {
		if _, ok := keep[t.ID]; !ok {
			deletes = append(deletes, t.ID)
		}
	}
	sort.Strings(deletes)
	if len(deletes) > 0 {
		if err := gw.DeleteTablesByIDs(ctx, deletes); err != nil {
			return res, fmt.Errorf("apply: delete tables: %w", err)
		}
		res.TablesDeleted = len(deletes)
	}
	if len(rows) > 0 {
		if err := gw.UpsertTables(ctx, rows); err != nil {
			return res, fmt.Errorf("apply: upsert tables: %w", err)
		}
	}
	l.Info("layout applied",
		slog.Int("zones_created", res.ZonesCreated),
		slog.Int("tables_created", res.TablesCreated),
		slog.Int("tables_updated", res.TablesUpdated),
		slog.Int("tables_deleted", res.TablesDeleted),
	)
	return res, nil
}

// IsValidation reports whether err came from document validation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || domain.IsValidation(err) || errors.Is(err, domain.ErrZoneNotFound)
}
