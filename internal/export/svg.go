/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gostoryboard/internal/compose"
	"gostoryboard/internal/geom"
	"gostoryboard/internal/scene"
	"gostoryboard/internal/storage"
)

// ExportSVGPages writes each selected page as page-<number>.svg under outDir.
// The output follows the compositor's stacking order: panels, cutout
// placeholders, drawings, arrows, bubbles, text. Bitmap content (cutout
// images, underlays) is not embedded; cutouts render as labeled frames.
func ExportSVGPages(bh *storage.BoardHandle, outDir string, opt Options) error {
	if bh == nil {
		return fmt.Errorf("board handle is nil")
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(bh.Root, "exports", outDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}

	size := scene.AspectByName(bh.Board.AspectName).Size
	chars := make(map[string]scene.Character, len(bh.Board.Characters))
	for _, ch := range bh.Board.Characters {
		chars[ch.ID] = ch
	}

	for _, pidx := range pageIndexes(len(bh.Board.Pages), opt.Pages) {
		if pidx < 0 || pidx >= len(bh.Board.Pages) {
			continue
		}
		pg := bh.Board.Pages[pidx]
		data, err := pageSVG(pg, size, chars, opt)
		if err != nil {
			return err
		}
		name := filepath.Join(outDir, fmt.Sprintf("page-%d.svg", pg.Number))
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return fmt.Errorf("write svg: %w", err)
		}
	}
	return nil
}

func pageSVG(pg scene.Page, size geom.Size, chars map[string]scene.Character, opt Options) ([]byte, error) {
	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%g\" height=\"%g\" viewBox=\"0 0 %g %g\">\n", size.W, size.H, size.W, size.H)
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"#ffffff\"/>\n", size.W, size.H)

	ordinal := 0
	for _, s := range pg.Shapes {
		if s.Kind != scene.KindPanel || len(s.Points) < 2 {
			continue
		}
		ordinal++
		wf("  <polygon points=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
			svgPoints(s.Points), svgColor(s.Color), strokeW(s))
		b := s.Bounds()
		fsz := math.Min(b.W, b.H) / 3
		if fsz < 12 {
			fsz = 12
		}
		c := geom.PolygonCentroid(s.Points)
		wf("  <text x=\"%g\" y=\"%g\" font-family=\"sans-serif\" font-size=\"%g\" fill=\"#595959\" fill-opacity=\"0.45\" text-anchor=\"middle\" dominant-baseline=\"middle\">%d</text>\n",
			c.X, c.Y, fsz, ordinal)
	}

	if opt.IncludeCharacters {
		for _, s := range pg.Shapes {
			if s.Kind != scene.KindCutout {
				continue
			}
			b := s.Bounds()
			wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"none\" stroke=\"#808080\" stroke-width=\"1\" stroke-dasharray=\"4 4\"/>\n",
				b.X, b.Y, b.W, b.H)
			if ch, ok := chars[s.CharacterID]; ok && ch.Name != "" {
				wf("  <text x=\"%g\" y=\"%g\" font-family=\"sans-serif\" font-size=\"16\" fill=\"#000\" text-anchor=\"middle\" dominant-baseline=\"middle\">%s</text>\n",
					b.X+b.W/2, b.Y+b.H/2, escText(ch.Name))
			}
			if s.Pose != nil && s.Pose.Note != "" {
				wf("  <text x=\"%g\" y=\"%g\" font-family=\"sans-serif\" font-size=\"13\" fill=\"#333\" text-anchor=\"middle\">%s</text>\n",
					b.X+b.W/2, b.Y+b.H+16, escText(s.Pose.Note))
			}
		}
	}

	for _, s := range pg.Shapes {
		if s.Kind != scene.KindDrawing {
			continue
		}
		for _, st := range s.Strokes {
			if len(st.Points) == 0 {
				continue
			}
			wf("  <polyline points=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
				svgPoints(st.Points), svgColor(s.Color), strokeW(s))
		}
	}

	for _, s := range pg.Shapes {
		if s.Kind != scene.KindArrow || len(s.Points) != 2 {
			continue
		}
		tail, head := s.Points[0], s.Points[1]
		col := svgColor(s.Color)
		w := strokeW(s)
		wf("  <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
			tail.X, tail.Y, head.X, head.Y, col, w)
		dx, dy := head.X-tail.X, head.Y-tail.Y
		if dx != 0 || dy != 0 {
			ang := math.Atan2(dy, dx)
			hsz := math.Max(4*w, 8)
			l := geom.Pt{X: head.X - hsz*math.Cos(ang-0.4), Y: head.Y - hsz*math.Sin(ang-0.4)}
			r := geom.Pt{X: head.X - hsz*math.Cos(ang+0.4), Y: head.Y - hsz*math.Sin(ang+0.4)}
			wf("  <polygon points=\"%s\" fill=\"%s\"/>\n", svgPoints([]geom.Pt{head, l, r}), col)
		}
	}

	for _, s := range pg.Shapes {
		if s.Kind != scene.KindBubble {
			continue
		}
		b := s.Bounds().Normalized()
		if b.Empty() {
			continue
		}
		col := svgColor(s.Color)
		w := strokeW(s)
		if s.Tail != nil {
			if tg, ok := compose.BubbleTail(b, s.Bubble, *s.Tail); ok {
				wf("  <polygon points=\"%s\" fill=\"#ffffff\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
					svgPoints([]geom.Pt{tg.BaseLeft, tg.Tip, tg.BaseRight}), col, w)
			}
		}
		switch s.Bubble {
		case scene.BubbleOval:
			wf("  <ellipse cx=\"%g\" cy=\"%g\" rx=\"%g\" ry=\"%g\" fill=\"#ffffff\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
				b.X+b.W/2, b.Y+b.H/2, b.W/2, b.H/2, col, w)
		case scene.BubbleRect:
			wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"#ffffff\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
				b.X, b.Y, b.W, b.H, col, w)
		default:
			radius := math.Min(b.W, b.H) / 4
			wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" rx=\"%g\" ry=\"%g\" fill=\"#ffffff\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
				b.X, b.Y, b.W, b.H, radius, radius, col, w)
		}
		if s.Text != "" {
			fsz := s.FontSize
			if fsz <= 0 {
				fsz = 14
			}
			wf("  <text x=\"%g\" y=\"%g\" font-family=\"sans-serif\" font-size=\"%g\" fill=\"#000\" text-anchor=\"middle\" dominant-baseline=\"middle\">%s</text>\n",
				b.X+b.W/2, b.Y+b.H/2, fsz, escText(s.Text))
		}
	}

	for _, s := range pg.Shapes {
		if s.Kind != scene.KindText || s.Text == "" {
			continue
		}
		fsz := s.FontSize
		if fsz <= 0 {
			fsz = 14
		}
		wf("  <text x=\"%g\" y=\"%g\" font-family=\"sans-serif\" font-size=\"%g\" fill=\"%s\">%s</text>\n",
			s.X, s.Y+fsz, fsz, svgColor(s.Color), escText(s.Text))
	}

	wf("</svg>\n")
	if werr != nil {
		return nil, fmt.Errorf("build svg: %w", werr)
	}
	return buf.Bytes(), nil
}

func strokeW(s *scene.Shape) float64 {
	return math.Max(s.Width, 1)
}

func svgPoints(pts []geom.Pt) string {
	var b bytes.Buffer
	for i, p := range pts {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%g,%g", p.X, p.Y)
	}
	return b.String()
}

func svgColor(c scene.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			out = append(out, '&', 'a', 'm', 'p', ';')
		case '<':
			out = append(out, '&', 'l', 't', ';')
		case '>':
			out = append(out, '&', 'g', 't', ';')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
