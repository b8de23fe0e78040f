/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"gostoryboard/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	// PresetReview targets a quick look: contact-sheet PDF plus page PNGs.
	PresetReview PresetName = "review"
	// PresetHandoff targets downstream tooling: ZIP bundle plus vector SVGs.
	PresetHandoff PresetName = "handoff"
)

// BatchOptions controls batch export across multiple formats.
//
// Path semantics:
//   - If OutDir is empty or relative, outputs land under <board>/exports/<preset>/.
//   - Single-file outputs (pdf, sheet, zip) are named board.<ext> in OutDir.
//   - Per-page outputs (png, svg) go into png/ or svg/ subfolders.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // allowed: pdf, sheet, png, svg, zip; empty means preset defaults
	Pages   []int    // zero-based indices; empty means all pages
	OutDir  string
	Options Options
}

// BatchExport runs exports according to the given preset.
func BatchExport(bh *storage.BoardHandle, opt BatchOptions) error {
	if bh == nil {
		return fmt.Errorf("board handle is nil")
	}
	if len(bh.Board.Pages) == 0 {
		return fmt.Errorf("board has no pages")
	}

	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	for i := range formats {
		formats[i] = strings.ToLower(strings.TrimSpace(formats[i]))
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(bh.Root, "exports", baseOut)
	}

	pageOpt := opt.Options
	pageOpt.Pages = opt.Pages

	for _, f := range formats {
		switch f {
		case "pdf":
			out := filepath.Join(baseOut, "board.pdf")
			if err := ExportPDF(bh, out, PDFOptions{Options: pageOpt}); err != nil {
				return fmt.Errorf("pdf: %w", err)
			}
		case "sheet":
			out := filepath.Join(baseOut, "board-sheet.pdf")
			if err := ExportContactSheetPDF(bh, out, PDFOptions{Options: pageOpt}); err != nil {
				return fmt.Errorf("contact sheet: %w", err)
			}
		case "zip":
			out := filepath.Join(baseOut, "board.zip")
			if err := ExportBundle(bh, out, pageOpt); err != nil {
				return fmt.Errorf("bundle: %w", err)
			}
		case "png":
			if err := ExportPNGPages(bh, filepath.Join(baseOut, "png"), pageOpt); err != nil {
				return fmt.Errorf("png: %w", err)
			}
		case "svg":
			if err := ExportSVGPages(bh, filepath.Join(baseOut, "svg"), pageOpt); err != nil {
				return fmt.Errorf("svg: %w", err)
			}
		default:
			return fmt.Errorf("unknown format: %s", f)
		}
	}
	return nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetReview:
		return []string{"sheet", "png"}
	case PresetHandoff:
		return []string{"zip", "svg"}
	default:
		return []string{"pdf"}
	}
}
