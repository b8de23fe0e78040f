/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "gostoryboard/internal/geom"

// Board is a storyboard project: an ordered set of pages plus the character
// roster shared across them. It serializes to the human-readable board.json
// manifest.
type Board struct {
	Name       string      `json:"name"`
	AspectName string      `json:"aspectRatio"`
	Pages      []Page      `json:"pages"`
	Characters []Character `json:"characters,omitempty"`
}

// Page owns one scene graph and the free-text script split into one section
// per panel (section N is the script for the Nth panel in z-order).
type Page struct {
	ID       string   `json:"id"`
	Number   int      `json:"number"`
	Shapes   []*Shape `json:"shapes"`
	Script   []string `json:"script,omitempty"`
	Proposal string   `json:"proposal,omitempty"` // asset ref of the layout-proposal underlay, if any
}

// Character is a read-only record consumed by the editor core: a display name
// and the cutout bitmap it labels.
type Character struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageRef string `json:"imageRef"`
}

// AspectRatio is a named page pixel size. The core treats the selection purely
// as the pageSize input to view fitting and compositing.
type AspectRatio struct {
	Name string
	Size geom.Size
}

// Page size presets, in document units (1 unit = 1 output pixel).
var AspectRatios = []AspectRatio{
	{Name: "print", Size: geom.Size{W: 1240, H: 1754}},
	{Name: "portrait", Size: geom.Size{W: 896, H: 1152}},
	{Name: "square", Size: geom.Size{W: 1024, H: 1024}},
	{Name: "widescreen", Size: geom.Size{W: 1280, H: 720}},
}

// AspectByName resolves a preset by name, defaulting to "print" for unknown
// or empty names.
func AspectByName(name string) AspectRatio {
	for _, a := range AspectRatios {
		if a.Name == name {
			return a
		}
	}
	return AspectRatios[0]
}

// NewPage creates an empty page with a fresh identifier.
func NewPage(number int) Page {
	return Page{ID: NewID(), Number: number}
}

// Clone returns a deep copy of the page.
func (p Page) Clone() Page {
	c := p
	c.Shapes = CloneShapes(p.Shapes)
	c.Script = append([]string(nil), p.Script...)
	return c
}
