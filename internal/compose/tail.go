/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"math"

	"gostoryboard/internal/geom"
	"gostoryboard/internal/scene"
)

// TailGeometry is the triangular bubble tail: a base chord on the silhouette
// boundary and a tip at the target point.
type TailGeometry struct {
	BaseLeft  geom.Pt
	BaseRight geom.Pt
	Tip       geom.Pt
}

// tailBaseFactor scales the tail base width against the bubble's minor axis.
const tailBaseFactor = 0.3

// BubbleTail computes the tail triangle for a bubble body and target point.
// The base sits where the ray from the bubble center toward the target meets
// the silhouette boundary. Reports ok=false when the target coincides with
// the center, since the direction is undefined there.
func BubbleTail(body geom.Rect, kind scene.BubbleKind, target geom.Pt) (TailGeometry, bool) {
	body = body.Normalized()
	c := body.Center()
	vx, vy := target.X-c.X, target.Y-c.Y
	mag := math.Hypot(vx, vy)
	if mag == 0 {
		return TailGeometry{}, false
	}
	ux, uy := vx/mag, vy/mag

	b := boundaryPoint(body, kind, ux, uy)

	halfW := math.Min(body.W, body.H) * tailBaseFactor / 2
	px, py := -uy, ux
	return TailGeometry{
		BaseLeft:  geom.Pt{X: b.X + px*halfW, Y: b.Y + py*halfW},
		BaseRight: geom.Pt{X: b.X - px*halfW, Y: b.Y - py*halfW},
		Tip:       target,
	}, true
}

// boundaryPoint intersects the unit ray (ux,uy) from the body center with the
// silhouette boundary. Rect and rounded-rect use the smaller of the two
// axis-parallel parametric distances; the oval uses the closed-form ellipse
// radius along the ray.
func boundaryPoint(body geom.Rect, kind scene.BubbleKind, ux, uy float64) geom.Pt {
	c := body.Center()
	switch kind {
	case scene.BubbleOval:
		rx, ry := body.W/2, body.H/2
		den := (ux*ux)/(rx*rx) + (uy*uy)/(ry*ry)
		if den == 0 {
			return c
		}
		d := 1 / math.Sqrt(den)
		return geom.Pt{X: c.X + ux*d, Y: c.Y + uy*d}
	default:
		tx, ty := math.Inf(1), math.Inf(1)
		if ux != 0 {
			tx = (body.W / 2) / math.Abs(ux)
		}
		if uy != 0 {
			ty = (body.H / 2) / math.Abs(uy)
		}
		t := math.Min(tx, ty)
		if math.IsInf(t, 1) {
			return c
		}
		return geom.Pt{X: c.X + ux*t, Y: c.Y + uy*t}
	}
}
