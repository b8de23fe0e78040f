/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "gostoryboard/internal/geom"

// PoseKind discriminates the pose union attached to a cutout shape. A pose is
// owned by exactly one cutout and is meaningless without it.
type PoseKind string

const (
	PoseSkeleton  PoseKind = "skeleton"
	PoseReference PoseKind = "reference"
	PoseFreehand  PoseKind = "freehand"
)

// PosePreset selects which skeleton joints and bones are drawn/exported.
// Switching preset never deletes hidden joints' data.
type PosePreset string

const (
	PresetFullBody  PosePreset = "full"
	PresetUpperBody PosePreset = "upper"
	PresetLowerBody PosePreset = "lower"
	PresetFaceOnly  PosePreset = "face"
)

// Pose is the rig record attached to a cutout.
//
// Skeleton poses keep named joints in document space; the pose subsystem
// re-projects them whenever the owning box moves or resizes. Freehand strokes
// are stored normalized to the owning box ([0,1] per axis) so resizing needs
// no bookkeeping. Reference poses carry an overlay bitmap drawn at reduced
// opacity.
type Pose struct {
	Kind PoseKind `json:"kind"`

	Joints map[string]geom.Pt `json:"joints,omitempty"`
	Preset PosePreset         `json:"preset,omitempty"`
	Note   string             `json:"note,omitempty"`

	ImageRef string `json:"imageRef,omitempty"`

	Strokes []Stroke `json:"strokes,omitempty"`
}

// Clone returns a deep copy of the pose.
func (p *Pose) Clone() *Pose {
	c := *p
	if p.Joints != nil {
		c.Joints = make(map[string]geom.Pt, len(p.Joints))
		for k, v := range p.Joints {
			c.Joints[k] = v
		}
	}
	if p.Strokes != nil {
		c.Strokes = cloneStrokes(p.Strokes)
	}
	return &c
}
