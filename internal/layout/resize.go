/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package layout

import (
	"fmt"
	"math"
	"strings"

	"chatters/internal/domain"
	"chatters/internal/geom"
)

// Handle identifies the edges a resize drags. Corners combine two bits.
type Handle uint8

const (
	HandleN Handle = 1 << iota
	HandleS
	HandleE
	HandleW

	HandleNE = HandleN | HandleE
	HandleNW = HandleN | HandleW
	HandleSE = HandleS | HandleE
	HandleSW = HandleS | HandleW
)

var handleNames = map[string]Handle{
	"n": HandleN, "s": HandleS, "e": HandleE, "w": HandleW,
	"ne": HandleNE, "nw": HandleNW, "se": HandleSE, "sw": HandleSW,
}

// ParseHandle accepts compass names ("n", "se", ...), case-insensitive.
func ParseHandle(s string) (Handle, error) {
	if h, ok := handleNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return h, nil
	}
	return 0, fmt.Errorf("unknown resize handle %q", s)
}

func (h Handle) String() string {
	var b strings.Builder
	if h&HandleN != 0 {
		b.WriteByte('n')
	}
	if h&HandleS != 0 {
		b.WriteByte('s')
	}
	if h&HandleE != 0 {
		b.WriteByte('e')
	}
	if h&HandleW != 0 {
		b.WriteByte('w')
	}
	return b.String()
}

// MovesOrigin reports whether resizing with h shifts the rect's top-left.
func (h Handle) MovesOrigin() bool { return h&(HandleN|HandleW) != 0 }

// ResizeOptions tunes Resize. Zero values use DefaultGrid and MinTableSize.
type ResizeOptions struct {
	Grid    float64
	MinSize float64
}

func (o ResizeOptions) normalized() ResizeOptions {
	if o.Grid <= 0 {
		o.Grid = DefaultGrid
	}
	if o.MinSize <= 0 {
		o.MinSize = MinTableSize
	}
	return o
}

// Resize applies a proposed width/height to orig. Dimensions are rounded to
// the grid, raised to the minimum and passed through the shape's strategy.
// For W and N handles the origin moves so the opposite edge stays put.
// Dimensions the handle does not drive keep their original value.
func Resize(orig geom.Rect, handle Handle, pw, ph float64, shape domain.Shape, opts ResizeOptions) geom.Rect {
	opts = opts.normalized()
	w, h := orig.W, orig.H
	if handle&(HandleE|HandleW) != 0 {
		w = snapDim(pw, opts)
	}
	if handle&(HandleN|HandleS) != 0 {
		h = snapDim(ph, opts)
	}

	fit := fitFree
	if info, ok := shapeTable[shape]; ok {
		fit = info.fit
	}
	w, h = fit(w, h, handle)

	out := geom.Rect{X: orig.X, Y: orig.Y, W: w, H: h}
	if handle&HandleW != 0 {
		out.X = orig.Right() - w
	}
	if handle&HandleN != 0 {
		out.Y = orig.Bottom() - h
	}
	return out
}

func snapDim(v float64, opts ResizeOptions) float64 {
	return math.Max(geom.RoundTo(v, opts.Grid), opts.MinSize)
}
