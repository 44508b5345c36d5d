/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"chatters/internal/domain"
)

// EnsureVenue creates the venue or renames an existing one with the same id.
// An empty ID lets the database assign one.
func (s *Store) EnsureVenue(ctx context.Context, v domain.Venue) (domain.Venue, error) {
	v.Name = strings.TrimSpace(v.Name)
	var err error
	if v.ID == "" {
		const stmt = `
INSERT INTO venues (name)
VALUES ($1)
RETURNING id`
		err = s.db.QueryRowContext(ctx, stmt, v.Name).Scan(&v.ID)
	} else {
		const stmt = `
INSERT INTO venues (id, name)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
RETURNING id`
		err = s.db.QueryRowContext(ctx, stmt, v.ID, v.Name).Scan(&v.ID)
	}
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Venue{}, domain.ErrInvalidID
		}
		return domain.Venue{}, fmt.Errorf("ensure venue: %w", err)
	}
	return v, nil
}

// GetVenue loads one venue.
func (s *Store) GetVenue(ctx context.Context, id string) (domain.Venue, error) {
	const query = `SELECT id, name FROM venues WHERE id = $1`
	var v domain.Venue
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Venue{}, domain.ErrVenueNotFound
		}
		if isInvalidUUID(err) {
			return domain.Venue{}, domain.ErrInvalidID
		}
		return domain.Venue{}, fmt.Errorf("get venue: %w", err)
	}
	return v, nil
}

func (s *Store) ListZones(ctx context.Context, venueID string) ([]domain.Zone, error) {
	const query = `
SELECT id, venue_id, name, "order"
FROM zones
WHERE venue_id = $1
ORDER BY "order" ASC, created_at ASC`
	rows, err := s.db.QueryContext(ctx, query, venueID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	var zones []domain.Zone
	for rows.Next() {
		var z domain.Zone
		if err := rows.Scan(&z.ID, &z.VenueID, &z.Name, &z.Order); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate zones: %w", rows.Err())
	}
	return zones, nil
}

func (s *Store) CreateZone(ctx context.Context, z domain.Zone) (domain.Zone, error) {
	z.Name = strings.TrimSpace(z.Name)
	if z.Name == "" {
		return domain.Zone{}, domain.ErrZoneNameRequired
	}
	if z.VenueID == "" {
		return domain.Zone{}, domain.ErrVenueRequired
	}
	var err error
	if z.ID == "" {
		const stmt = `
INSERT INTO zones (venue_id, name, "order")
VALUES ($1, $2, $3)
RETURNING id`
		err = s.db.QueryRowContext(ctx, stmt, z.VenueID, z.Name, z.Order).Scan(&z.ID)
	} else {
		const stmt = `
INSERT INTO zones (id, venue_id, name, "order")
VALUES ($1, $2, $3, $4)
RETURNING id`
		err = s.db.QueryRowContext(ctx, stmt, z.ID, z.VenueID, z.Name, z.Order).Scan(&z.ID)
	}
	if err != nil {
		switch {
		case isInvalidUUID(err):
			return domain.Zone{}, domain.ErrInvalidID
		case isForeignKeyViolation(err):
			return domain.Zone{}, domain.ErrVenueNotFound
		}
		return domain.Zone{}, fmt.Errorf("create zone: %w", err)
	}
	return z, nil
}

func (s *Store) UpdateZone(ctx context.Context, id string, upd domain.ZoneUpdate) error {
	if upd.Name == nil && upd.Order == nil {
		return nil
	}
	var name, order any
	if upd.Name != nil {
		n := strings.TrimSpace(*upd.Name)
		if n == "" {
			return domain.ErrZoneNameRequired
		}
		name = n
	}
	if upd.Order != nil {
		order = *upd.Order
	}
	const stmt = `
UPDATE zones
SET name = COALESCE($2, name), "order" = COALESCE($3, "order")
WHERE id = $1`
	res, err := s.db.ExecContext(ctx, stmt, id, name, order)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update zone: %w", err)
	}
	return expectRow(res, domain.ErrZoneNotFound)
}

func (s *Store) DeleteZone(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete zone: %w", err)
	}
	return expectRow(res, domain.ErrZoneNotFound)
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
