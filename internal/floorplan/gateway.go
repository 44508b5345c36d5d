/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package floorplan holds the in-memory floor plan of one venue: zones,
// tables, the viewport and staged edits awaiting an explicit save.
package floorplan

import (
	"context"

	"chatters/internal/domain"
)

// Gateway is the persistence collaborator of the store. Implementations live
// in storage/postgres, storage/sqlite and backend (HTTP client).
type Gateway interface {
	// ListZones returns the venue's zones ordered by Order.
	ListZones(ctx context.Context, venueID string) ([]domain.Zone, error)
	ListTables(ctx context.Context, venueID string) ([]domain.Table, error)
	// UpsertTables inserts or updates rows keyed by ID. Rows with an empty
	// ID are inserted and receive a store-assigned ID.
	UpsertTables(ctx context.Context, rows []domain.Table) error
	DeleteTablesByIDs(ctx context.Context, ids []string) error
	DeleteTablesByZone(ctx context.Context, zoneID string) error
	CreateZone(ctx context.Context, z domain.Zone) (domain.Zone, error)
	UpdateZone(ctx context.Context, id string, upd domain.ZoneUpdate) error
	DeleteZone(ctx context.Context, id string) error
}
