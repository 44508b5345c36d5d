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

// Magnetic snapping of a moving table against its siblings in the same zone.

import (
	"math"

	"chatters/internal/geom"
)

// DefaultSnapDistance is the snap threshold in world pixels.
const DefaultSnapDistance = 10

// SnapPolicy decides which sibling wins when several are within reach.
type SnapPolicy int

const (
	// PolicyClosest keeps the match with the smallest distance per axis;
	// ties keep the earlier sibling.
	PolicyClosest SnapPolicy = iota
	// PolicyLastMatch keeps the match of the last sibling that had one.
	PolicyLastMatch
)

func (p SnapPolicy) String() string {
	if p == PolicyLastMatch {
		return "last_match"
	}
	return "closest"
}

// ParseSnapPolicy maps config values onto a policy; unknown values fall back
// to PolicyClosest.
func ParseSnapPolicy(s string) SnapPolicy {
	switch s {
	case "last_match", "last-match", "last":
		return PolicyLastMatch
	default:
		return PolicyClosest
	}
}

// SnapOptions controls the resolver. Distance <= 0 uses DefaultSnapDistance.
type SnapOptions struct {
	Distance float64
	Policy   SnapPolicy
}

// Guide describes an alignment line produced by a snap, for rendering.
// Orientation is "vertical" (x aligned) or "horizontal" (y aligned).
type Guide struct {
	Orientation string
	Kind        string // edge or center
	Position    float64
	From        geom.Pt
	To          geom.Pt
}

// SnapResult is the resolved origin of the moving rect.
type SnapResult struct {
	Pos      geom.Pt
	SnappedX bool
	SnappedY bool
	Guides   []Guide
}

type axisMatch struct {
	ok    bool
	value float64
	dist  float64
	guide Guide
}

// ResolveSnap aligns moving to the edges or centers of siblings. Each axis
// is resolved independently. For a single sibling the tests run in fixed
// order (top, bottom, center for y; left, right, center for x) and the first
// one within reach wins.
func ResolveSnap(moving geom.Rect, siblings []geom.Rect, opts SnapOptions) SnapResult {
	dist := opts.Distance
	if dist <= 0 {
		dist = DefaultSnapDistance
	}
	var bestX, bestY axisMatch
	for _, s := range siblings {
		if y := matchY(moving, s, dist); y.ok && better(y, bestY, opts.Policy) {
			bestY = y
		}
		if x := matchX(moving, s, dist); x.ok && better(x, bestX, opts.Policy) {
			bestX = x
		}
	}

	res := SnapResult{Pos: moving.Min()}
	if bestX.ok {
		res.Pos.X = bestX.value
		res.SnappedX = true
		res.Guides = append(res.Guides, bestX.guide)
	}
	if bestY.ok {
		res.Pos.Y = bestY.value
		res.SnappedY = true
		res.Guides = append(res.Guides, bestY.guide)
	}
	return res
}

func better(candidate, current axisMatch, policy SnapPolicy) bool {
	if !current.ok || policy == PolicyLastMatch {
		return true
	}
	return candidate.dist < current.dist
}

func matchY(m, s geom.Rect, dist float64) axisMatch {
	tests := []struct {
		kind   string
		mine   float64
		theirs float64
		snapTo float64
	}{
		{"edge", m.Y, s.Y, s.Y},
		{"edge", m.Bottom(), s.Bottom(), s.Bottom() - m.H},
		{"center", m.Center().Y, s.Center().Y, s.Center().Y - m.H/2},
	}
	for _, tc := range tests {
		d := math.Abs(tc.mine - tc.theirs)
		if d <= dist {
			return axisMatch{ok: true, value: tc.snapTo, dist: d, guide: horizontalGuide(tc.theirs, m, s, tc.kind)}
		}
	}
	return axisMatch{}
}

func matchX(m, s geom.Rect, dist float64) axisMatch {
	tests := []struct {
		kind   string
		mine   float64
		theirs float64
		snapTo float64
	}{
		{"edge", m.X, s.X, s.X},
		{"edge", m.Right(), s.Right(), s.Right() - m.W},
		{"center", m.Center().X, s.Center().X, s.Center().X - m.W/2},
	}
	for _, tc := range tests {
		d := math.Abs(tc.mine - tc.theirs)
		if d <= dist {
			return axisMatch{ok: true, value: tc.snapTo, dist: d, guide: verticalGuide(tc.theirs, m, s, tc.kind)}
		}
	}
	return axisMatch{}
}

func verticalGuide(x float64, a, b geom.Rect, kind string) Guide {
	minY := math.Min(a.Y, b.Y)
	maxY := math.Max(a.Bottom(), b.Bottom())
	x = geom.Round(x, 3)
	return Guide{Orientation: "vertical", Kind: kind, Position: x, From: geom.Pt{X: x, Y: minY}, To: geom.Pt{X: x, Y: maxY}}
}

func horizontalGuide(y float64, a, b geom.Rect, kind string) Guide {
	minX := math.Min(a.X, b.X)
	maxX := math.Max(a.Right(), b.Right())
	y = geom.Round(y, 3)
	return Guide{Orientation: "horizontal", Kind: kind, Position: y, From: geom.Pt{X: minX, Y: y}, To: geom.Pt{X: maxX, Y: y}}
}

// SnapEdgeX aligns one vertical edge at x with the left, right or center
// line of a sibling. It serves resizes where the opposite edge is pinned, so
// only the moving edge may match. moving is the candidate rect and only
// spans the guide.
func SnapEdgeX(x float64, moving geom.Rect, siblings []geom.Rect, opts SnapOptions) (float64, Guide, bool) {
	return snapEdge(x, siblings, opts, func(s geom.Rect) [3]float64 {
		return [3]float64{s.X, s.Right(), s.Center().X}
	}, func(v float64, s geom.Rect, kind string) Guide {
		return verticalGuide(v, moving, s, kind)
	})
}

// SnapEdgeY is SnapEdgeX for a horizontal edge at y (top, bottom, center).
func SnapEdgeY(y float64, moving geom.Rect, siblings []geom.Rect, opts SnapOptions) (float64, Guide, bool) {
	return snapEdge(y, siblings, opts, func(s geom.Rect) [3]float64 {
		return [3]float64{s.Y, s.Bottom(), s.Center().Y}
	}, func(v float64, s geom.Rect, kind string) Guide {
		return horizontalGuide(v, moving, s, kind)
	})
}

func snapEdge(v float64, siblings []geom.Rect, opts SnapOptions, lines func(geom.Rect) [3]float64, guide func(float64, geom.Rect, string) Guide) (float64, Guide, bool) {
	dist := opts.Distance
	if dist <= 0 {
		dist = DefaultSnapDistance
	}
	kinds := [3]string{"edge", "edge", "center"}
	var best axisMatch
	for _, s := range siblings {
		for i, line := range lines(s) {
			d := math.Abs(v - line)
			if d > dist {
				continue
			}
			if m := (axisMatch{ok: true, value: line, dist: d, guide: guide(line, s, kinds[i])}); better(m, best, opts.Policy) {
				best = m
			}
			break
		}
	}
	if !best.ok {
		return v, Guide{}, false
	}
	return best.value, best.guide, true
}
