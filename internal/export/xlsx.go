/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"chatters/internal/geom"
	"chatters/internal/telemetry"
)

const (
	rosterSheet = "Tables"
	zonesSheet  = "Zones"
)

// RosterHeader is the header row of the table roster sheet.
var RosterHeader = []string{"Zone", "Table", "Shape", "X %", "Y %", "Width", "Height", "Feedback URL"}

var zonesHeader = []string{"Order", "Zone", "Tables"}

// WriteRoster writes an XLSX workbook listing every table of p by section,
// plus a zone summary sheet. The feedback column stays empty without
// feedbackBase.
func WriteRoster(path string, p Plan, feedbackBase string) error {
	f, err := buildRoster(p, feedbackBase)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	telemetry.LayoutExported("xlsx", len(p.Tables))
	return nil
}

func buildRoster(p Plan, feedbackBase string) (*excelize.File, error) {
	f := excelize.NewFile()
	fail := func(format string, err error) (*excelize.File, error) {
		_ = f.Close()
		return nil, fmt.Errorf(format, err)
	}

	if _, err := f.NewSheet(rosterSheet); err != nil {
		return fail("create sheet: %w", err)
	}
	if _, err := f.NewSheet(zonesSheet); err != nil {
		return fail("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fail("delete default sheet: %w", err)
	}
	// indexes shift once the default sheet is gone
	idx, err := f.GetSheetIndex(rosterSheet)
	if err != nil {
		return fail("sheet index: %w", err)
	}
	f.SetActiveSheet(idx)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fail("create header style: %w", err)
	}
	if err := writeHeader(f, rosterSheet, RosterHeader, headerStyle); err != nil {
		return fail("roster header: %w", err)
	}
	if err := writeHeader(f, zonesSheet, zonesHeader, headerStyle); err != nil {
		return fail("zones header: %w", err)
	}

	row := 2
	zoneRow := 2
	for _, sec := range p.Sections() {
		if sec.ZoneID != "" || sec.Title == UnassignedTitle {
			order := any("")
			for _, z := range p.Zones {
				if z.ID == sec.ZoneID {
					order = z.Order
				}
			}
			if err := f.SetSheetRow(zonesSheet, cell(1, zoneRow), &[]any{order, sec.Title, len(sec.Tables)}); err != nil {
				return fail("zones row: %w", err)
			}
			zoneRow++
		}
		for _, t := range sec.Tables {
			link := ""
			if feedbackBase != "" {
				if link, err = FeedbackURL(feedbackBase, p.VenueID, t); err != nil {
					return fail("roster: %w", err)
				}
			}
			vals := []any{sec.Title, t.Number, t.Shape.String(), geom.Round(t.XPercent, 2), geom.Round(t.YPercent, 2), t.Width, t.Height, link}
			if err := f.SetSheetRow(rosterSheet, cell(1, row), &vals); err != nil {
				return fail("roster row: %w", err)
			}
			row++
		}
	}

	widths := []float64{18, 10, 12, 8, 8, 8, 8, 60}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(rosterSheet, col, col, w); err != nil {
			return fail("column width: %w", err)
		}
	}
	if err := f.SetPanes(rosterSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fail("freeze header: %w", err)
	}
	return f, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		c := cell(i+1, 1)
		if err := f.SetCellValue(sheet, c, h); err != nil {
			return err
		}
	}
	return f.SetCellStyle(sheet, cell(1, 1), cell(len(headers), 1), style)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
