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

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
	"github.com/yofu/dxf/table"

	"chatters/internal/domain"
	"chatters/internal/telemetry"
)

// DXF layer names.
const (
	LayerContainer = "CONTAINER"
	LayerTables    = "TABLES"
	LayerLabels    = "LABELS"
)

const dxfLabelHeight = 10.0

// WriteDXF writes p as a 2D DXF drawing in layout pixels. DXF is y-up, so
// rows are mirrored against the container height.
func WriteDXF(path string, p Plan) error {
	d, err := buildDXF(p)
	if err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("write dxf: %w", err)
	}
	telemetry.LayoutExported("dxf", len(p.Tables))
	return nil
}

func buildDXF(p Plan) (*drawing.Drawing, error) {
	if !p.Container.Valid() {
		return nil, domain.ErrInvalidContainer
	}
	d := dxf.NewDrawing()
	layers := []struct {
		name string
		col  color.ColorNumber
	}{
		{LayerContainer, color.Yellow},
		{LayerTables, color.White},
		{LayerLabels, color.Cyan},
	}
	for _, l := range layers {
		if _, err := d.AddLayer(l.name, l.col, table.LT_CONTINUOUS, false); err != nil {
			return nil, fmt.Errorf("dxf layer %s: %w", l.name, err)
		}
	}
	h := p.Container.H
	flip := func(y float64) float64 { return h - y }

	if err := d.ChangeLayer(LayerContainer); err != nil {
		return nil, fmt.Errorf("dxf: %w", err)
	}
	if _, err := d.LwPolyline(true, box(0, 0, p.Container.W, p.Container.H, flip)...); err != nil {
		return nil, fmt.Errorf("dxf container: %w", err)
	}

	for _, t := range p.Tables {
		if err := d.ChangeLayer(LayerTables); err != nil {
			return nil, fmt.Errorf("dxf: %w", err)
		}
		if t.Shape == domain.ShapeCircle {
			if _, err := d.Circle(t.X+t.Width/2, flip(t.Y+t.Height/2), 0, t.Width/2); err != nil {
				return nil, fmt.Errorf("dxf table %q: %w", t.Number, err)
			}
		} else if _, err := d.LwPolyline(true, box(t.X, t.Y, t.Width, t.Height, flip)...); err != nil {
			return nil, fmt.Errorf("dxf table %q: %w", t.Number, err)
		}
		if err := d.ChangeLayer(LayerLabels); err != nil {
			return nil, fmt.Errorf("dxf: %w", err)
		}
		tx := t.X + t.Width/2 - float64(len(t.Number))*dxfLabelHeight*0.3
		ty := flip(t.Y+t.Height/2) - dxfLabelHeight/2
		if _, err := d.Text(t.Number, tx, ty, 0, dxfLabelHeight); err != nil {
			return nil, fmt.Errorf("dxf label %q: %w", t.Number, err)
		}
	}
	return d, nil
}

// box returns the four corners of a screen-space rectangle in DXF space.
func box(x, y, w, h float64, flip func(float64) float64) [][]float64 {
	return [][]float64{
		{x, flip(y)},
		{x + w, flip(y)},
		{x + w, flip(y + h)},
		{x, flip(y + h)},
	}
}
