/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"chatters/internal/domain"
)

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func sqliteCode(err error) int {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

// mapWriteErr turns constraint failures into domain errors. The message is
// checked as well since the primary result code hides the constraint kind.
func mapWriteErr(op string, err error, fkErr error) error {
	code, msg := sqliteCode(err), err.Error()
	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || strings.Contains(msg, "UNIQUE constraint failed"):
		return domain.ErrDuplicateTableNumber
	case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY || strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fkErr
	}
	return fmt.Errorf("%s: %w", op, err)
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// EnsureVenue creates the venue or renames an existing one with the same id.
func (s *Store) EnsureVenue(ctx context.Context, v domain.Venue) (domain.Venue, error) {
	v.Name = strings.TrimSpace(v.Name)
	if v.ID == "" {
		v.ID = domain.NewID()
	}
	const stmt = `
INSERT INTO venues (id, name, created_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name`
	if _, err := s.db.ExecContext(ctx, stmt, v.ID, v.Name, now()); err != nil {
		return domain.Venue{}, fmt.Errorf("ensure venue: %w", err)
	}
	return v, nil
}

// GetVenue loads one venue.
func (s *Store) GetVenue(ctx context.Context, id string) (domain.Venue, error) {
	var v domain.Venue
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM venues WHERE id = ?`, id).Scan(&v.ID, &v.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Venue{}, domain.ErrVenueNotFound
	}
	if err != nil {
		return domain.Venue{}, fmt.Errorf("get venue: %w", err)
	}
	return v, nil
}

func (s *Store) ListZones(ctx context.Context, venueID string) ([]domain.Zone, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, venue_id, name, "order"
FROM zones
WHERE venue_id = ?
ORDER BY "order" ASC, created_at ASC`, venueID)
	if err != nil {
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
	return zones, rows.Err()
}

func (s *Store) CreateZone(ctx context.Context, z domain.Zone) (domain.Zone, error) {
	z.Name = strings.TrimSpace(z.Name)
	if z.Name == "" {
		return domain.Zone{}, domain.ErrZoneNameRequired
	}
	if z.VenueID == "" {
		return domain.Zone{}, domain.ErrVenueRequired
	}
	if z.ID == "" {
		z.ID = domain.NewID()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO zones (id, venue_id, name, "order", created_at) VALUES (?, ?, ?, ?, ?)`,
		z.ID, z.VenueID, z.Name, z.Order, now())
	if err != nil {
		return domain.Zone{}, mapWriteErr("create zone", err, domain.ErrVenueNotFound)
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
	res, err := s.db.ExecContext(ctx, `UPDATE zones SET name = COALESCE(?, name), "order" = COALESCE(?, "order") WHERE id = ?`, name, order, id)
	if err != nil {
		return fmt.Errorf("update zone: %w", err)
	}
	return expectRow(res, domain.ErrZoneNotFound)
}

func (s *Store) DeleteZone(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM zones WHERE id = ?`, id)
	if err != nil {
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

func (s *Store) ListTables(ctx context.Context, venueID string) ([]domain.Table, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, venue_id, zone_id, table_number, shape, x_percent, y_percent, width, height
FROM venue_tables
WHERE venue_id = ?
ORDER BY table_number ASC`, venueID)
	if err != nil {
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
	return tables, rows.Err()
}

// UpsertTables writes all rows in one transaction. SQLite cannot defer the
// number uniqueness check, so existing rows first park their numbers on a
// placeholder; swaps within one save then succeed.
func (s *Store) UpsertTables(ctx context.Context, rows []domain.Table) error {
	if len(rows) == 0 {
		return nil
	}
	for _, r := range rows {
		if r.VenueID == "" {
			return domain.ErrVenueRequired
		}
		if strings.TrimSpace(r.Number) == "" {
			return domain.ErrTableNumberRequired
		}
		if !r.Shape.Valid() {
			return domain.ErrInvalidShape
		}
	}
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, r := range rows {
			if r.ID == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE venue_tables SET table_number = '~' || id WHERE id = ? AND venue_id = ?`, r.ID, r.VenueID); err != nil {
				return err
			}
		}
		const stmt = `
INSERT INTO venue_tables (id, venue_id, zone_id, table_number, shape, x_percent, y_percent, width, height, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	zone_id = excluded.zone_id,
	table_number = excluded.table_number,
	shape = excluded.shape,
	x_percent = excluded.x_percent,
	y_percent = excluded.y_percent,
	width = excluded.width,
	height = excluded.height,
	updated_at = excluded.updated_at
WHERE venue_tables.venue_id = excluded.venue_id`
		ts := now()
		for _, r := range rows {
			id := r.ID
			if id == "" {
				id = domain.NewID()
			}
			if _, err := tx.ExecContext(ctx, stmt, id, r.VenueID, nullable(r.ZoneID), strings.TrimSpace(r.Number),
				r.Shape.String(), r.XPercent, r.YPercent, r.Width, r.Height, ts); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return mapWriteErr("upsert tables", err, domain.ErrZoneNotFound)
	}
	return nil
}

func (s *Store) DeleteTablesByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `DELETE FROM venue_tables WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("delete tables: %w", err)
	}
	return nil
}

func (s *Store) DeleteTablesByZone(ctx context.Context, zoneID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM venue_tables WHERE zone_id = ?`, zoneID); err != nil {
		return fmt.Errorf("delete zone tables: %w", err)
	}
	return nil
}
