/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"chatters/internal/domain"
	"chatters/internal/floorplan"
	"chatters/internal/geom"
	applog "chatters/internal/log"
)

func newTestClient(t *testing.T) (*Client, Backend) {
	t.Helper()
	b := newTestBackend(t)
	srv := newTestServer(t, b)
	return NewClient(srv.URL+"/", ClientOptions{Timeout: 5 * time.Second, Logger: applog.Discard()}), b
}

func TestClientGatewayRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if _, err := c.EnsureVenue(ctx, domain.Venue{ID: "v1", Name: "Bistro"}); err != nil {
		t.Fatalf("ensure venue: %v", err)
	}
	v, err := c.GetVenue(ctx, "v1")
	if err != nil || v.Name != "Bistro" {
		t.Fatalf("get venue: %+v %v", v, err)
	}
	z, err := c.CreateZone(ctx, domain.Zone{VenueID: "v1", Name: "Main"})
	if err != nil || z.ID == "" {
		t.Fatalf("create zone: %+v %v", z, err)
	}
	rows := []domain.Table{
		{VenueID: "v1", ZoneID: z.ID, Number: "1", Shape: domain.ShapeSquare, XPercent: 5, YPercent: 5, Width: 56, Height: 56},
		{VenueID: "v1", ZoneID: z.ID, Number: "2", Shape: domain.ShapeRectangle, XPercent: 40, YPercent: 5, Width: 96, Height: 56},
	}
	if err := c.UpsertTables(ctx, rows); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	tables, err := c.ListTables(ctx, "v1")
	if err != nil || len(tables) != 2 {
		t.Fatalf("list tables: %d %v", len(tables), err)
	}
	if err := c.DeleteTablesByIDs(ctx, []string{tables[0].ID}); err != nil {
		t.Fatalf("delete by ids: %v", err)
	}
	if err := c.DeleteTablesByIDs(ctx, nil); err != nil {
		t.Fatalf("empty delete should be a no-op: %v", err)
	}
	order := 3
	if err := c.UpdateZone(ctx, z.ID, domain.ZoneUpdate{Order: &order}); err != nil {
		t.Fatalf("update zone: %v", err)
	}
	zones, err := c.ListZones(ctx, "v1")
	if err != nil || len(zones) != 1 || zones[0].Order != 3 {
		t.Fatalf("list zones: %+v %v", zones, err)
	}
	if err := c.DeleteTablesByZone(ctx, z.ID); err != nil {
		t.Fatalf("delete by zone: %v", err)
	}
	if err := c.DeleteZone(ctx, z.ID); err != nil {
		t.Fatalf("delete zone: %v", err)
	}
}

func TestClientMapsErrorsToSentinels(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	if _, err := c.EnsureVenue(ctx, domain.Venue{ID: "v1", Name: "Bistro"}); err != nil {
		t.Fatalf("ensure venue: %v", err)
	}
	row := domain.Table{VenueID: "v1", Number: "5", Shape: domain.ShapeSquare, Width: 56, Height: 56}
	if err := c.UpsertTables(ctx, []domain.Table{row}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	err := c.UpsertTables(ctx, []domain.Table{row})
	if !errors.Is(err, domain.ErrDuplicateTableNumber) {
		t.Fatalf("expected ErrDuplicateTableNumber, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Fatalf("expected APIError 409, got %#v", err)
	}
	if err := c.DeleteZone(ctx, "missing"); !errors.Is(err, domain.ErrZoneNotFound) {
		t.Fatalf("expected ErrZoneNotFound, got %v", err)
	}
	if _, err := c.GetVenue(ctx, "ghost"); !errors.Is(err, domain.ErrVenueNotFound) {
		t.Fatalf("expected ErrVenueNotFound, got %v", err)
	}
	if err := c.UpsertTables(ctx, []domain.Table{{Number: "9"}}); !errors.Is(err, domain.ErrVenueRequired) {
		t.Fatalf("expected ErrVenueRequired, got %v", err)
	}
}

func TestClientRetriesReadsOnly(t *testing.T) {
	var gets, posts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			atomic.AddInt32(&gets, 1)
		} else {
			atomic.AddInt32(&posts, 1)
		}
		writeError(w, errors.New("boom"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ClientOptions{Timeout: time.Second, Retries: 2, Logger: applog.Discard()})
	c.http.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)

	_, err := c.ListZones(context.Background(), "v1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError || apiErr.Message != "internal error" {
		t.Fatalf("expected internal APIError, got %v", err)
	}
	if n := atomic.LoadInt32(&gets); n != 3 {
		t.Fatalf("expected 1 try + 2 retries for GET, got %d", n)
	}
	_, _ = c.CreateZone(context.Background(), domain.Zone{VenueID: "v1", Name: "Main"})
	if n := atomic.LoadInt32(&posts); n != 1 {
		t.Fatalf("writes must not be retried, got %d attempts", n)
	}
}

// TestFloorPlanOverHTTP runs the editing store against the API.
func TestFloorPlanOverHTTP(t *testing.T) {
	c, b := newTestClient(t)
	ctx := context.Background()
	if _, err := b.EnsureVenue(ctx, domain.Venue{ID: "v1", Name: "Bistro"}); err != nil {
		t.Fatalf("ensure venue: %v", err)
	}

	fp, err := floorplan.New(c, "v1", geom.Size{W: 1000, H: 500}, floorplan.Options{Logger: applog.Discard()})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := fp.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := fp.CreateNamedZone(ctx, "Patio"); err != nil {
		t.Fatalf("create zone: %v", err)
	}
	fp.SetEditMode(true)
	t1, err := fp.AddTable("1", domain.ShapeCircle)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := fp.DragTable(t1.ID, 250, 100); err != nil {
		t.Fatalf("drag: %v", err)
	}
	if err := fp.SaveLayout(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	rows, err := b.ListTables(ctx, "v1")
	if err != nil || len(rows) != 1 {
		t.Fatalf("server side tables: %d %v", len(rows), err)
	}
	if rows[0].XPercent != 25 || rows[0].YPercent != 20 || rows[0].ZoneID != fp.ActiveZone() {
		t.Fatalf("unexpected persisted row %+v", rows[0])
	}

	if err := fp.DeleteZone(ctx, fp.ActiveZone(), false); !errors.Is(err, domain.ErrConfirmationRequired) {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	if err := fp.DeleteZone(ctx, fp.ActiveZone(), true); err != nil {
		t.Fatalf("delete zone: %v", err)
	}
	if rows, _ := b.ListTables(ctx, "v1"); len(rows) != 0 {
		t.Fatalf("cascade did not remove tables: %+v", rows)
	}
}
