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
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"gostoryboard/internal/scene"
	"gostoryboard/internal/storage"
)

// PDFOptions controls PDF export behavior.
//
// Coordinates: the board's document units map 1:1 to PDF points for the
// full-size export. The contact sheet lays thumbnails on A4 portrait pages.
type PDFOptions struct {
	Options
	// Columns and Rows shape the contact-sheet grid; zero values default to 2x3.
	Columns int
	Rows    int
	// IncludeScript appends each page's script sections below its render
	// in the full-size export.
	IncludeScript bool
}

// ExportPDF writes a multi-page PDF with one board page per PDF page, rendered
// through the compositor and embedded full-bleed.
func ExportPDF(bh *storage.BoardHandle, outPath string, opt PDFOptions) error {
	if bh == nil {
		return fmt.Errorf("board handle is nil")
	}
	size := scene.AspectByName(bh.Board.AspectName).Size
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: size.W, Ht: size.H},
		OrientationStr: "",
	})
	pdf.SetTitle(bh.Board.Name, false)
	pdf.SetAuthor("GoStoryboard", false)
	pdf.SetFont("Helvetica", "", 10)

	for _, pidx := range pageIndexes(len(bh.Board.Pages), opt.Pages) {
		if pidx < 0 || pidx >= len(bh.Board.Pages) {
			continue
		}
		pg := bh.Board.Pages[pidx]
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: size.W, Ht: size.H})
		if err := embedPageRender(pdf, bh, pg, opt.Options, 0, 0, size.W, size.H); err != nil {
			return err
		}
		if opt.IncludeScript {
			drawScript(pdf, pg)
		}
	}

	return writePDF(pdf, bh, outPath)
}

// ExportContactSheetPDF writes a thumbnail grid of the selected pages onto A4
// portrait sheets, each thumbnail captioned with its page number.
func ExportContactSheetPDF(bh *storage.BoardHandle, outPath string, opt PDFOptions) error {
	if bh == nil {
		return fmt.Errorf("board handle is nil")
	}
	cols := opt.Columns
	if cols <= 0 {
		cols = 2
	}
	rows := opt.Rows
	if rows <= 0 {
		rows = 3
	}

	const (
		sheetW  = 595.28 // A4 portrait, points
		sheetH  = 841.89
		margin  = 24.0
		gutter  = 12.0
		caption = 14.0
	)
	cellW := (sheetW - 2*margin - float64(cols-1)*gutter) / float64(cols)
	cellH := (sheetH - 2*margin - float64(rows-1)*gutter) / float64(rows)

	size := scene.AspectByName(bh.Board.AspectName).Size
	// Fit the page aspect inside the cell, leaving room for the caption line.
	imgH := cellH - caption
	imgW := cellW
	if size.W/size.H > imgW/imgH {
		imgH = imgW * size.H / size.W
	} else {
		imgW = imgH * size.W / size.H
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(bh.Board.Name+" contact sheet", false)
	pdf.SetFont("Helvetica", "", 9)

	cell := 0
	perSheet := cols * rows
	for _, pidx := range pageIndexes(len(bh.Board.Pages), opt.Pages) {
		if pidx < 0 || pidx >= len(bh.Board.Pages) {
			continue
		}
		pg := bh.Board.Pages[pidx]
		if cell%perSheet == 0 {
			pdf.AddPage()
		}
		slot := cell % perSheet
		x := margin + float64(slot%cols)*(cellW+gutter)
		y := margin + float64(slot/cols)*(cellH+gutter)
		if err := embedPageRender(pdf, bh, pg, opt.Options, x, y, imgW, imgH); err != nil {
			return err
		}
		pdf.Text(x, y+imgH+11, fmt.Sprintf("Page %d", pg.Number))
		cell++
	}

	return writePDF(pdf, bh, outPath)
}

// embedPageRender composites one page and places the PNG at the given box.
func embedPageRender(pdf *gofpdf.Fpdf, bh *storage.BoardHandle, pg scene.Page, opt Options, x, y, w, h float64) error {
	png, err := renderPagePNG(bh, pg, opt)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("page-%d", pg.Number)
	imgOpt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, imgOpt, bytes.NewReader(png))
	pdf.ImageOptions(name, x, y, w, h, false, imgOpt, 0, "")
	if pdf.Err() {
		return fmt.Errorf("embed page %d: %s", pg.Number, pdf.Error())
	}
	return nil
}

// drawScript overlays the page's script sections in the top-left corner.
func drawScript(pdf *gofpdf.Fpdf, pg scene.Page) {
	if len(pg.Script) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(60, 60, 60)
	y := 16.0
	for i, sec := range pg.Script {
		sec = strings.TrimSpace(sec)
		if sec == "" {
			continue
		}
		pdf.Text(12, y, fmt.Sprintf("%d. %s", i+1, sec))
		y += 12
	}
	pdf.SetTextColor(0, 0, 0)
}

func writePDF(pdf *gofpdf.Fpdf, bh *storage.BoardHandle, outPath string) error {
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(bh.Root, "exports", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
