/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package compose flattens a page's scene graph into one raster image at the
// page's pixel size. Output depends only on the shape list and options, never
// on the live view transform; this is the exact bitmap handed to the
// generation backend.
//
// Rendering walks the list in fixed passes: proposal underlay, panels,
// character cutouts, drawings, arrows, bubbles, standalone text. Within a
// pass, list order is z-order. Degenerate geometry always degrades to a safe
// default (empty path, no tail, box-center label) and never fails the render.
package compose

import (
	"image"
	"io"
	"math"
	"strconv"
	"sync"

	"github.com/gogpu/gg"
	ggtext "github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"gostoryboard/internal/geom"
	"gostoryboard/internal/pose"
	"gostoryboard/internal/scene"
)

// AssetStore resolves embedded bitmap references (cutout images, reference
// pose overlays, proposal underlays) to decoded images.
type AssetStore interface {
	Image(ref string) (image.Image, error)
}

// Options control one render.
type Options struct {
	// IncludeCharacters draws cutouts with their pose overlays and labels.
	IncludeCharacters bool

	// Characters maps character IDs to their records for name labels.
	Characters map[string]scene.Character

	// Assets resolves bitmap references. Nil skips all bitmap content.
	Assets AssetStore

	// Underlay is the asset reference of a full-page proposal image drawn
	// beneath everything, at UnderlayOpacity. Empty means no underlay.
	Underlay        string
	UnderlayOpacity float64
}

const (
	referenceOpacity = 0.5
	jointRadius      = 4
	boneWidth        = 3
	bubblePadding    = 8
)

var (
	fontOnce sync.Once
	fontSrc  *ggtext.FontSource
	fontErr  error
)

func fontFace(size float64) (ggtext.Face, error) {
	fontOnce.Do(func() {
		fontSrc, fontErr = ggtext.NewFontSource(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fontErr
	}
	return fontSrc.Face(size), nil
}

// Render flattens shapes into an image of exactly pageSize pixels.
func Render(shapes []*scene.Shape, pageSize geom.Size, opts Options) (image.Image, error) {
	dc, err := render(shapes, pageSize, opts)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// RenderPNG flattens shapes and writes the result as PNG.
func RenderPNG(w io.Writer, shapes []*scene.Shape, pageSize geom.Size, opts Options) error {
	dc, err := render(shapes, pageSize, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

func render(shapes []*scene.Shape, pageSize geom.Size, opts Options) (*gg.Context, error) {
	w, h := int(math.Round(pageSize.W)), int(math.Round(pageSize.H))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dc := gg.NewContext(w, h)
	dc.ClearWithColor(gg.White)

	r := &renderer{dc: dc, opts: opts, page: pageSize}

	r.drawUnderlay()

	ordinal := 0
	for _, s := range shapes {
		if s.Kind == scene.KindPanel {
			ordinal++
			r.drawPanel(s, ordinal)
		}
	}
	if opts.IncludeCharacters {
		for _, s := range shapes {
			if s.Kind == scene.KindCutout {
				r.drawCutout(s)
			}
		}
	}
	for _, s := range shapes {
		if s.Kind == scene.KindDrawing {
			r.drawDrawing(s)
		}
	}
	for _, s := range shapes {
		if s.Kind == scene.KindArrow {
			r.drawArrow(s)
		}
	}
	for _, s := range shapes {
		if s.Kind == scene.KindBubble {
			r.drawBubble(s)
		}
	}
	for _, s := range shapes {
		if s.Kind == scene.KindText {
			r.drawText(s)
		}
	}
	return dc, nil
}

type renderer struct {
	dc   *gg.Context
	opts Options
	page geom.Size
}

func (r *renderer) setColor(c scene.Color) {
	r.dc.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, float64(c.A)/255)
}

func (r *renderer) setFont(size float64) bool {
	face, err := fontFace(size)
	if err != nil {
		return false
	}
	r.dc.SetFont(face)
	return true
}

func (r *renderer) drawUnderlay() {
	if r.opts.Underlay == "" || r.opts.Assets == nil {
		return
	}
	img, err := r.opts.Assets.Image(r.opts.Underlay)
	if err != nil {
		return
	}
	opacity := r.opts.UnderlayOpacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	r.dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		DstWidth:  r.page.W,
		DstHeight: r.page.H,
		Opacity:   opacity,
	})
}

// drawPanel strokes the polygon outline and places a faint ordinal number at
// the polygon centroid.
func (r *renderer) drawPanel(s *scene.Shape, ordinal int) {
	if len(s.Points) < 2 {
		return
	}
	r.polygonPath(s.Points)
	r.setColor(s.Color)
	r.dc.SetLineWidth(math.Max(s.Width, 1))
	r.dc.Stroke()

	b := s.Bounds()
	size := math.Min(b.W, b.H) / 3
	if size < 12 {
		size = 12
	}
	if !r.setFont(size) {
		return
	}
	c := geom.PolygonCentroid(s.Points)
	r.dc.SetRGBA(0.35, 0.35, 0.35, 0.45)
	r.dc.DrawStringAnchored(strconv.Itoa(ordinal), c.X, c.Y, 0.5, 0.5)
}

func (r *renderer) drawCutout(s *scene.Shape) {
	b := s.Bounds()
	if r.opts.Assets != nil && s.ImageRef != "" {
		if img, err := r.opts.Assets.Image(s.ImageRef); err == nil {
			r.dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
				X:         b.X,
				Y:         b.Y,
				DstWidth:  b.W,
				DstHeight: b.H,
				Opacity:   1,
			})
		}
	} else {
		// Placeholder frame when the bitmap is unavailable.
		r.dc.DrawRectangle(b.X, b.Y, b.W, b.H)
		r.dc.SetRGBA(0.5, 0.5, 0.5, 0.8)
		r.dc.SetLineWidth(1)
		r.dc.SetDash(4, 4)
		r.dc.Stroke()
		r.dc.ClearDash()
	}

	if s.Pose != nil {
		r.drawPose(s.Pose, b)
	}

	if ch, ok := r.opts.Characters[s.CharacterID]; ok && ch.Name != "" {
		if r.setFont(16) {
			r.dc.SetRGBA(0, 0, 0, 0.9)
			r.dc.DrawStringAnchored(ch.Name, b.X+b.W/2, b.Y+b.H/2, 0.5, 0.5)
		}
	}
	if s.Pose != nil && s.Pose.Note != "" {
		if r.setFont(13) {
			r.dc.SetRGBA(0.2, 0.2, 0.2, 1)
			r.dc.DrawStringAnchored(s.Pose.Note, b.X+b.W/2, b.Y+b.H+6, 0.5, 0)
		}
	}
}

func (r *renderer) drawPose(p *scene.Pose, box geom.Rect) {
	switch p.Kind {
	case scene.PoseSkeleton:
		r.dc.SetRGBA(0.15, 0.45, 0.85, 0.9)
		r.dc.SetLineWidth(boneWidth)
		for _, bone := range pose.VisibleBones(p) {
			a, aok := p.Joints[bone.A]
			b, bok := p.Joints[bone.B]
			if !aok || !bok {
				continue
			}
			r.dc.DrawLine(a.X, a.Y, b.X, b.Y)
			r.dc.Stroke()
		}
		for _, name := range pose.VisibleJoints(p) {
			j, ok := p.Joints[name]
			if !ok {
				continue
			}
			r.dc.DrawCircle(j.X, j.Y, jointRadius)
			r.dc.Fill()
		}
	case scene.PoseReference:
		if r.opts.Assets == nil || p.ImageRef == "" {
			return
		}
		img, err := r.opts.Assets.Image(p.ImageRef)
		if err != nil {
			return
		}
		r.dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
			X:         box.X,
			Y:         box.Y,
			DstWidth:  box.W,
			DstHeight: box.H,
			Opacity:   referenceOpacity,
		})
	case scene.PoseFreehand:
		r.dc.SetRGBA(0.15, 0.45, 0.85, 0.9)
		r.dc.SetLineWidth(2)
		for _, st := range pose.DenormalizeStrokes(p, box) {
			r.strokePath(st.Points)
			r.dc.Stroke()
		}
	}
}

func (r *renderer) drawDrawing(s *scene.Shape) {
	r.setColor(s.Color)
	r.dc.SetLineWidth(math.Max(s.Width, 1))
	for _, st := range s.Strokes {
		r.strokePath(st.Points)
		r.dc.Stroke()
	}
}

func (r *renderer) drawArrow(s *scene.Shape) {
	if len(s.Points) != 2 {
		return
	}
	tail, head := s.Points[0], s.Points[1]
	r.setColor(s.Color)
	w := math.Max(s.Width, 1)
	r.dc.SetLineWidth(w)
	r.dc.DrawLine(tail.X, tail.Y, head.X, head.Y)
	r.dc.Stroke()

	dx, dy := head.X-tail.X, head.Y-tail.Y
	if dx == 0 && dy == 0 {
		return
	}
	ang := math.Atan2(dy, dx)
	size := math.Max(4*w, 8)
	left := geom.Pt{X: head.X - size*math.Cos(ang-0.4), Y: head.Y - size*math.Sin(ang-0.4)}
	right := geom.Pt{X: head.X - size*math.Cos(ang+0.4), Y: head.Y - size*math.Sin(ang+0.4)}
	r.dc.MoveTo(head.X, head.Y)
	r.dc.LineTo(left.X, left.Y)
	r.dc.LineTo(right.X, right.Y)
	r.dc.ClosePath()
	r.dc.Fill()
}

func (r *renderer) drawBubble(s *scene.Shape) {
	b := s.Bounds().Normalized()
	if b.Empty() {
		return
	}

	// The tail goes down first so the body covers the seam at the base.
	if s.Tail != nil {
		if tg, ok := BubbleTail(b, s.Bubble, *s.Tail); ok {
			r.dc.MoveTo(tg.BaseLeft.X, tg.BaseLeft.Y)
			r.dc.LineTo(tg.Tip.X, tg.Tip.Y)
			r.dc.LineTo(tg.BaseRight.X, tg.BaseRight.Y)
			r.dc.ClosePath()
			r.dc.SetRGB(1, 1, 1)
			r.dc.FillPreserve()
			r.setColor(s.Color)
			r.dc.SetLineWidth(math.Max(s.Width, 1))
			r.dc.Stroke()
		}
	}

	r.bubblePath(b, s.Bubble)
	r.dc.SetRGB(1, 1, 1)
	r.dc.FillPreserve()
	r.setColor(s.Color)
	r.dc.SetLineWidth(math.Max(s.Width, 1))
	r.dc.Stroke()

	if s.Text == "" {
		return
	}
	size := s.FontSize
	if size <= 0 {
		size = 14
	}
	if !r.setFont(size) {
		return
	}
	// Clip the text to the silhouette interior.
	r.bubblePath(b, s.Bubble)
	r.dc.Clip()
	r.dc.SetRGBA(0, 0, 0, 1)
	r.dc.DrawStringWrapped(s.Text, b.X+b.W/2, b.Y+b.H/2, 0.5, 0.5, math.Max(b.W-2*bubblePadding, 1), 1.3, gg.AlignCenter)
	r.dc.ResetClip()
}

func (r *renderer) drawText(s *scene.Shape) {
	if s.Text == "" {
		return
	}
	size := s.FontSize
	if size <= 0 {
		size = 14
	}
	if !r.setFont(size) {
		return
	}
	r.setColor(s.Color)
	r.dc.DrawString(s.Text, s.X, s.Y+size)
}

func (r *renderer) bubblePath(b geom.Rect, kind scene.BubbleKind) {
	switch kind {
	case scene.BubbleOval:
		r.dc.DrawEllipse(b.X+b.W/2, b.Y+b.H/2, b.W/2, b.H/2)
	case scene.BubbleRect:
		r.dc.DrawRectangle(b.X, b.Y, b.W, b.H)
	default:
		radius := math.Min(b.W, b.H) / 4
		r.dc.DrawRoundedRectangle(b.X, b.Y, b.W, b.H, radius)
	}
}

func (r *renderer) polygonPath(pts []geom.Pt) {
	r.dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		r.dc.LineTo(p.X, p.Y)
	}
	r.dc.ClosePath()
}

func (r *renderer) strokePath(pts []geom.Pt) {
	if len(pts) == 0 {
		return
	}
	r.dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		r.dc.LineTo(p.X, p.Y)
	}
}

