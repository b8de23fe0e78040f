/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package view owns the pan/zoom state of the editor viewport: fit-to-viewport
// auto-framing, zoom-about-cursor, and plain panning. The transform maps
// document space to screen space; the compositor never consults it.
package view

import "gostoryboard/internal/geom"

// Settings are presentation tunables. The stock values match what shipped;
// they are configuration, not invariants.
type Settings struct {
	WheelFactor  float64 // multiplicative zoom step for wheel events
	ButtonFactor float64 // multiplicative zoom step for the +/- buttons
	MinScale     float64
	MaxScale     float64
	FitMargin    float64 // fraction of the viewport the fitted page occupies
}

// DefaultSettings returns the stock zoom behavior.
func DefaultSettings() Settings {
	return Settings{
		WheelFactor:  1.1,
		ButtonFactor: 1.25,
		MinScale:     0.1,
		MaxScale:     10,
		FitMargin:    0.9,
	}
}

// Direction of a zoom step.
type Direction int

const (
	ZoomIn Direction = iota
	ZoomOut
)

// FitAndCenter computes the transform that scales the page to the viewport
// with the configured margin and centers it. A degenerate page or viewport
// yields the identity transform.
func FitAndCenter(page, viewport geom.Size, st Settings) geom.Transform {
	if page.W <= 0 || page.H <= 0 || viewport.W <= 0 || viewport.H <= 0 {
		return geom.IdentityTransform
	}
	scale := viewport.W / page.W
	if s := viewport.H / page.H; s < scale {
		scale = s
	}
	scale *= st.FitMargin
	return geom.Transform{
		Scale: scale,
		TX:    (viewport.W - page.W*scale) / 2,
		TY:    (viewport.H - page.H*scale) / 2,
	}
}

// ZoomAt multiplies (or divides) the scale by factor, clamps it to the
// configured range, and solves the translate so the document point under the
// cursor stays under the cursor.
func ZoomAt(t geom.Transform, cursor geom.Pt, dir Direction, factor float64, st Settings) geom.Transform {
	newScale := t.Scale * factor
	if dir == ZoomOut {
		newScale = t.Scale / factor
	}
	newScale = clamp(newScale, st.MinScale, st.MaxScale)
	if t.Scale == 0 {
		return geom.Transform{Scale: newScale}
	}
	ratio := newScale / t.Scale
	return geom.Transform{
		Scale: newScale,
		TX:    cursor.X - (cursor.X-t.TX)*ratio,
		TY:    cursor.Y - (cursor.Y-t.TY)*ratio,
	}
}

// Pan adds the screen-space delta to the translate; scale is unchanged.
func Pan(t geom.Transform, dx, dy float64) geom.Transform {
	t.TX += dx
	t.TY += dy
	return t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
