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
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"chatters/internal/domain"
	"chatters/internal/telemetry"
)

// PNGOptions controls PNG export.
//   - Zone: zone id to render; empty renders every table
//   - Scale: output pixels per layout pixel, defaults to 1
//   - Labels: draw table numbers
type PNGOptions struct {
	Zone   string
	Scale  float64
	Labels bool
}

var (
	pngBackground = color.RGBA{255, 255, 255, 255}
	pngOutline    = color.RGBA{120, 120, 120, 255}
	pngTableFill  = color.RGBA{232, 240, 250, 255}
	pngStroke     = color.RGBA{30, 30, 30, 255}
)

// RenderPNG draws p into a new image.
func RenderPNG(p Plan, opt PNGOptions) (*image.RGBA, error) {
	if !p.Container.Valid() {
		return nil, domain.ErrInvalidContainer
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = 1
	}
	pixW := int(math.Round(p.Container.W * scale))
	pixH := int(math.Round(p.Container.H * scale))
	if pixW < 1 || pixH < 1 {
		return nil, domain.ErrInvalidContainer
	}

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: pngBackground}, image.Point{}, draw.Src)
	strokeRect(img, 0, 0, pixW-1, pixH-1, pngOutline)

	for _, t := range p.Tables {
		if opt.Zone != "" && t.ZoneID != opt.Zone {
			continue
		}
		x0 := int(math.Round(t.X * scale))
		y0 := int(math.Round(t.Y * scale))
		x1 := int(math.Round((t.X+t.Width)*scale)) - 1
		y1 := int(math.Round((t.Y+t.Height)*scale)) - 1
		if t.Shape == domain.ShapeCircle {
			fillEllipse(img, x0, y0, x1, y1, pngTableFill, pngStroke)
		} else {
			fillRect(img, x0, y0, x1, y1, pngTableFill)
			strokeRect(img, x0, y0, x1, y1, pngStroke)
		}
		if opt.Labels {
			drawLabel(img, t.Number, (x0+x1)/2, (y0+y1)/2, pngStroke)
		}
	}
	return img, nil
}

// EncodePNG renders p and writes it to w.
func EncodePNG(w io.Writer, p Plan, opt PNGOptions) error {
	img, err := RenderPNG(p, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// WritePNG renders p to a PNG file at path.
func WritePNG(path string, p Plan, opt PNGOptions) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := EncodePNG(f, p, opt); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	telemetry.LayoutExported("png", len(p.Tables))
	return nil
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

// fillEllipse fills the ellipse inscribed in the box and strokes a 1px rim.
func fillEllipse(img *image.RGBA, x0, y0, x1, y1 int, fill, rim color.RGBA) {
	cx := float64(x0+x1) / 2
	cy := float64(y0+y1) / 2
	rx := float64(x1-x0)/2 + 0.5
	ry := float64(y1-y0)/2 + 0.5
	if rx <= 0 || ry <= 0 {
		return
	}
	// pixels within this band of the boundary form the rim
	band := 1 / math.Min(rx, ry)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx := (float64(x) - cx) / rx
			dy := (float64(y) - cy) / ry
			d := math.Sqrt(dx*dx + dy*dy)
			switch {
			case d > 1:
			case d > 1-band:
				img.SetRGBA(x, y, rim)
			default:
				img.SetRGBA(x, y, fill)
			}
		}
	}
}

func drawLabel(img *image.RGBA, s string, cx, cy int, col color.RGBA) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Round()
	m := face.Metrics()
	baseline := cy + (m.Ascent.Round()-m.Descent.Round())/2
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(cx-w/2, baseline),
	}
	d.DrawString(s)
}
