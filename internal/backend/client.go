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
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"chatters/internal/domain"
	applog "chatters/internal/log"
	"chatters/internal/version"
)

// ClientOptions configures a Client. Zero values fall back to defaults.
type ClientOptions struct {
	Timeout time.Duration
	// Retries applies to reads only; writes are never retried.
	Retries int
	Logger  *slog.Logger
}

// Client talks to the floor plan API. It implements floorplan.Gateway.
type Client struct {
	BaseURL string
	http    *resty.Client
	log     *slog.Logger
}

// NewClient creates a client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("backend_client")
	}
	b := strings.TrimRight(baseURL, "/")
	hc := resty.New().
		SetBaseURL(b+"/api/v1").
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "chatters/"+version.Version).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &Client{BaseURL: b, http: hc, log: opts.Logger}
}

// do runs a request and converts error envelopes into *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	req := c.http.R().SetContext(ctx).SetError(&errorBody{})
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		applog.WithOperation(c.log, "request").Debug("request failed", slog.String("method", method), slog.String("path", path), slog.Any("err", err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		var eb errorBody
		if e, ok := resp.Error().(*errorBody); ok && e != nil {
			eb = *e
		}
		return errorFromResponse(resp.StatusCode(), eb)
	}
	return nil
}

func venuePath(venueID, suffix string) string {
	return "/venues/" + url.PathEscape(venueID) + suffix
}

// EnsureVenue creates or renames a venue.
func (c *Client) EnsureVenue(ctx context.Context, v domain.Venue) (domain.Venue, error) {
	if strings.TrimSpace(v.ID) == "" {
		return domain.Venue{}, domain.ErrVenueRequired
	}
	var out domain.Venue
	err := c.do(ctx, http.MethodPut, venuePath(v.ID, ""), map[string]string{"name": v.Name}, &out)
	return out, err
}

func (c *Client) GetVenue(ctx context.Context, id string) (domain.Venue, error) {
	var out domain.Venue
	err := c.do(ctx, http.MethodGet, venuePath(id, ""), nil, &out)
	return out, err
}

// Ping checks the server's readiness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get(c.BaseURL + "/readyz")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("not ready: %s", strings.TrimSpace(resp.String()))
	}
	return nil
}

func (c *Client) ListZones(ctx context.Context, venueID string) ([]domain.Zone, error) {
	var out []domain.Zone
	if err := c.do(ctx, http.MethodGet, venuePath(venueID, "/zones"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListTables(ctx context.Context, venueID string) ([]domain.Table, error) {
	var out []domain.Table
	if err := c.do(ctx, http.MethodGet, venuePath(venueID, "/tables"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertTables sends one batch per venue.
func (c *Client) UpsertTables(ctx context.Context, rows []domain.Table) error {
	if len(rows) == 0 {
		return nil
	}
	var order []string
	byVenue := map[string][]domain.Table{}
	for _, r := range rows {
		if r.VenueID == "" {
			return domain.ErrVenueRequired
		}
		if _, ok := byVenue[r.VenueID]; !ok {
			order = append(order, r.VenueID)
		}
		byVenue[r.VenueID] = append(byVenue[r.VenueID], r)
	}
	for _, v := range order {
		if err := c.do(ctx, http.MethodPut, venuePath(v, "/tables"), byVenue[v], nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) DeleteTablesByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/tables/delete", deleteTablesRequest{IDs: ids}, nil)
}

func (c *Client) DeleteTablesByZone(ctx context.Context, zoneID string) error {
	return c.do(ctx, http.MethodDelete, "/zones/"+url.PathEscape(zoneID)+"/tables", nil, nil)
}

func (c *Client) CreateZone(ctx context.Context, z domain.Zone) (domain.Zone, error) {
	var out domain.Zone
	err := c.do(ctx, http.MethodPost, venuePath(z.VenueID, "/zones"), z, &out)
	return out, err
}

func (c *Client) UpdateZone(ctx context.Context, id string, upd domain.ZoneUpdate) error {
	return c.do(ctx, http.MethodPatch, "/zones/"+url.PathEscape(id), upd, nil)
}

func (c *Client) DeleteZone(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/zones/"+url.PathEscape(id), nil, nil)
}
