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
	"fmt"
	"strings"

	"chatters/internal/domain"
)

func (s *Store) ListTables(ctx context.Context, venueID string) ([]domain.Table, error) {
	const query = `
SELECT id, venue_id, zone_id, table_number, shape, x_percent, y_percent, width, height
FROM venue_tables
WHERE venue_id = $1
ORDER BY table_number ASC`
	rows, err := s.db.QueryContext(ctx, query, venueID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []domain.Table
	for rows.Next() {
		var (
			t     domain.Table
			zone  sql.NullString
			shape string
		)
		if err := rows.Scan(&t.ID, &t.VenueID, &zone, &t.Number, &shape, &t.XPercent, &t.YPercent, &t.Width, &t.Height); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		if t.Shape, err = domain.ParseShape(shape); err != nil {
			return nil, fmt.Errorf("table %s: %w", t.ID, err)
		}
		t.ZoneID = zone.String
		tables = append(tables, t)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate tables: %w", rows.Err())
	}
	return tables, nil
}

const (
	insertTableStmt = `
INSERT INTO venue_tables (venue_id, zone_id, table_number, shape, x_percent, y_percent, width, height)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	upsertTableStmt = `
INSERT INTO venue_tables (id, venue_id, zone_id, table_number, shape, x_percent, y_percent, width, height)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    zone_id = EXCLUDED.zone_id,
    table_number = EXCLUDED.table_number,
    shape = EXCLUDED.shape,
    x_percent = EXCLUDED.x_percent,
    y_percent = EXCLUDED.y_percent,
    width = EXCLUDED.width,
    height = EXCLUDED.height,
    updated_at = now()
WHERE venue_tables.venue_id = EXCLUDED.venue_id`
)

// UpsertTables writes all rows in one transaction. Rows without an id are
// inserted with a generated one; the rest are upserted by id. The number
// uniqueness check is deferred to commit.
func (s *Store) UpsertTables(ctx context.Context, rows []domain.Table) error {
	if len(rows) == 0 {
		return nil
	}
	for _, r := range rows {
		if err := validateRow(r); err != nil {
			return err
		}
	}
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, r := range rows {
			number := strings.TrimSpace(r.Number)
			var err error
			if r.ID == "" {
				_, err = tx.ExecContext(ctx, insertTableStmt,
					r.VenueID, nullable(r.ZoneID), number, r.Shape.String(), r.XPercent, r.YPercent, r.Width, r.Height)
			} else {
				_, err = tx.ExecContext(ctx, upsertTableStmt,
					r.ID, r.VenueID, nullable(r.ZoneID), number, r.Shape.String(), r.XPercent, r.YPercent, r.Width, r.Height)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return mapTableErr("upsert tables", err)
	}
	return nil
}

func validateRow(r domain.Table) error {
	if r.VenueID == "" {
		return domain.ErrVenueRequired
	}
	if strings.TrimSpace(r.Number) == "" {
		return domain.ErrTableNumberRequired
	}
	if !r.Shape.Valid() {
		return domain.ErrInvalidShape
	}
	return nil
}

func (s *Store) DeleteTablesByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM venue_tables WHERE id = ANY($1::uuid[])`, ids); err != nil {
		return mapTableErr("delete tables", err)
	}
	return nil
}

func (s *Store) DeleteTablesByZone(ctx context.Context, zoneID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM venue_tables WHERE zone_id = $1`, zoneID); err != nil {
		return mapTableErr("delete zone tables", err)
	}
	return nil
}

func mapTableErr(op string, err error) error {
	switch {
	case isUniqueViolation(err):
		return domain.ErrDuplicateTableNumber
	case isForeignKeyViolation(err):
		if strings.Contains(pgConstraint(err), "venue_id") {
			return domain.ErrVenueNotFound
		}
		return domain.ErrZoneNotFound
	case isInvalidUUID(err):
		return domain.ErrInvalidID
	}
	return fmt.Errorf("%s: %w", op, err)
}
