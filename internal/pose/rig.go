/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pose implements the pose rig subsystem: the canonical humanoid
// skeleton generator, visibility presets over its 18 named joints, and the
// re-projection of rig coordinates when the owning cutout is moved, resized,
// or edited in the canonical pose editor.
package pose

import (
	"gostoryboard/internal/geom"
	"gostoryboard/internal/scene"
)

// The 18 canonical joint names.
const (
	JointHead      = "head"
	JointNeck      = "neck"
	JointShoulderL = "shoulder_l"
	JointShoulderR = "shoulder_r"
	JointElbowL    = "elbow_l"
	JointElbowR    = "elbow_r"
	JointHandL     = "hand_l"
	JointHandR     = "hand_r"
	JointHipL      = "hip_l"
	JointHipR      = "hip_r"
	JointKneeL     = "knee_l"
	JointKneeR     = "knee_r"
	JointFootL     = "foot_l"
	JointFootR     = "foot_r"
	JointEyeL      = "eye_l"
	JointEyeR      = "eye_r"
	JointNose      = "nose"
	JointMouth     = "mouth"
)

// defaultOffsets places each joint at a fixed proportional position within the
// owning bounding box. This is the only construction path for a fresh
// skeleton pose.
var defaultOffsets = map[string]geom.Pt{
	JointHead:      {X: 0.50, Y: 0.15},
	JointNeck:      {X: 0.50, Y: 0.25},
	JointShoulderL: {X: 0.35, Y: 0.28},
	JointShoulderR: {X: 0.65, Y: 0.28},
	JointElbowL:    {X: 0.28, Y: 0.42},
	JointElbowR:    {X: 0.72, Y: 0.42},
	JointHandL:     {X: 0.25, Y: 0.55},
	JointHandR:     {X: 0.75, Y: 0.55},
	JointHipL:      {X: 0.42, Y: 0.55},
	JointHipR:      {X: 0.58, Y: 0.55},
	JointKneeL:     {X: 0.40, Y: 0.75},
	JointKneeR:     {X: 0.60, Y: 0.75},
	JointFootL:     {X: 0.40, Y: 0.95},
	JointFootR:     {X: 0.60, Y: 0.95},
	JointEyeL:      {X: 0.45, Y: 0.13},
	JointEyeR:      {X: 0.55, Y: 0.13},
	JointNose:      {X: 0.50, Y: 0.16},
	JointMouth:     {X: 0.50, Y: 0.19},
}

// Bone is a joint-to-joint connection segment.
type Bone struct{ A, B string }

// bones is the static joint-adjacency list shared by on-canvas rendering and
// the flattened compositor output.
var bones = []Bone{
	{JointHead, JointNeck},
	{JointNeck, JointShoulderL},
	{JointNeck, JointShoulderR},
	{JointShoulderL, JointElbowL},
	{JointElbowL, JointHandL},
	{JointShoulderR, JointElbowR},
	{JointElbowR, JointHandR},
	{JointNeck, JointHipL},
	{JointNeck, JointHipR},
	{JointHipL, JointHipR},
	{JointHipL, JointKneeL},
	{JointKneeL, JointFootL},
	{JointHipR, JointKneeR},
	{JointKneeR, JointFootR},
	{JointHead, JointEyeL},
	{JointHead, JointEyeR},
	{JointNose, JointMouth},
}

var presetJoints = map[scene.PosePreset][]string{
	scene.PresetFullBody: {
		JointHead, JointNeck, JointShoulderL, JointShoulderR, JointElbowL, JointElbowR,
		JointHandL, JointHandR, JointHipL, JointHipR, JointKneeL, JointKneeR,
		JointFootL, JointFootR, JointEyeL, JointEyeR, JointNose, JointMouth,
	},
	scene.PresetUpperBody: {
		JointHead, JointNeck, JointShoulderL, JointShoulderR, JointElbowL, JointElbowR,
		JointHandL, JointHandR, JointEyeL, JointEyeR, JointNose, JointMouth,
	},
	scene.PresetLowerBody: {
		JointHipL, JointHipR, JointKneeL, JointKneeR, JointFootL, JointFootR,
	},
	scene.PresetFaceOnly: {
		JointHead, JointEyeL, JointEyeR, JointNose, JointMouth,
	},
}

// CanonicalFrame is the fixed pixel size of the modal pose editor. Poses are
// authored against this frame and mapped into the owning cutout's box on save.
var CanonicalFrame = geom.R(0, 0, 512, 512)

// NewSkeleton generates the canonical humanoid rig inside box, with the
// full-body preset selected.
func NewSkeleton(box geom.Rect) *scene.Pose {
	joints := make(map[string]geom.Pt, len(defaultOffsets))
	for name, off := range defaultOffsets {
		joints[name] = geom.Pt{X: box.X + off.X*box.W, Y: box.Y + off.Y*box.H}
	}
	return &scene.Pose{Kind: scene.PoseSkeleton, Joints: joints, Preset: scene.PresetFullBody}
}

// VisibleJoints returns the joint names selected by the pose's preset that
// actually exist in the pose, in the preset's stable order. Hidden joints keep
// their data; they are only excluded from drawing/export.
func VisibleJoints(p *scene.Pose) []string {
	sel, ok := presetJoints[p.Preset]
	if !ok {
		sel = presetJoints[scene.PresetFullBody]
	}
	out := make([]string, 0, len(sel))
	for _, name := range sel {
		if _, exists := p.Joints[name]; exists {
			out = append(out, name)
		}
	}
	return out
}

// VisibleBones returns the adjacency segments whose both endpoints are visible
// under the pose's preset.
func VisibleBones(p *scene.Pose) []Bone {
	visible := make(map[string]bool)
	for _, name := range VisibleJoints(p) {
		visible[name] = true
	}
	out := make([]Bone, 0, len(bones))
	for _, b := range bones {
		if visible[b.A] && visible[b.B] {
			out = append(out, b)
		}
	}
	return out
}

// Translate moves every skeleton joint by delta. Freehand overlays are stored
// normalized to the owning box and need no adjustment; reference overlays
// carry no coordinates. Safe to call with any pose kind.
func Translate(p *scene.Pose, dx, dy float64) {
	if p == nil || p.Kind != scene.PoseSkeleton {
		return
	}
	for name, pt := range p.Joints {
		p.Joints[name] = geom.Pt{X: pt.X + dx, Y: pt.Y + dy}
	}
}

// Rescale re-projects every skeleton joint from originalBox into newBox by the
// proportional-relative mapping
//
//	new = newBox.origin + (old - originalBox.origin) * newBox.size/originalBox.size
//
// originalBox must be the box snapshotted at gesture start: applying the scale
// incrementally frame-by-frame would compound rounding error and drift the
// rig. A zero-width or zero-height source axis keeps a scale of 1 on that axis
// so NaN/Inf never reaches stored joint coordinates.
func Rescale(p *scene.Pose, originalBox, newBox geom.Rect) {
	if p == nil || p.Kind != scene.PoseSkeleton {
		return
	}
	sx, sy := 1.0, 1.0
	if originalBox.W != 0 {
		sx = newBox.W / originalBox.W
	}
	if originalBox.H != 0 {
		sy = newBox.H / originalBox.H
	}
	for name, pt := range p.Joints {
		p.Joints[name] = geom.Pt{
			X: newBox.X + (pt.X-originalBox.X)*sx,
			Y: newBox.Y + (pt.Y-originalBox.Y)*sy,
		}
	}
}

// FromCanonical maps a pose authored in the canonical editor frame into the
// owning cutout's document-space box. Skeleton joints are re-projected like a
// resize; freehand strokes are normalized to [0,1] per axis so the cutout can
// be resized later with no further bookkeeping. Reference poses carry no
// coordinates and pass through unchanged.
func FromCanonical(p *scene.Pose, box geom.Rect) *scene.Pose {
	if p == nil {
		return nil
	}
	out := p.Clone()
	switch p.Kind {
	case scene.PoseSkeleton:
		Rescale(out, CanonicalFrame, box)
	case scene.PoseFreehand:
		w, h := CanonicalFrame.W, CanonicalFrame.H
		for i, st := range out.Strokes {
			for j, pt := range st.Points {
				out.Strokes[i].Points[j] = geom.Pt{X: (pt.X - CanonicalFrame.X) / w, Y: (pt.Y - CanonicalFrame.Y) / h}
			}
		}
	}
	return out
}

// DenormalizeStrokes maps a freehand overlay's normalized points back into the
// owning box for rendering.
func DenormalizeStrokes(p *scene.Pose, box geom.Rect) []scene.Stroke {
	if p == nil || p.Kind != scene.PoseFreehand {
		return nil
	}
	out := make([]scene.Stroke, len(p.Strokes))
	for i, st := range p.Strokes {
		pts := make([]geom.Pt, len(st.Points))
		for j, pt := range st.Points {
			pts[j] = geom.Pt{X: box.X + pt.X*box.W, Y: box.Y + pt.Y*box.H}
		}
		out[i] = scene.Stroke{Points: pts}
	}
	return out
}
