/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gostoryboard/internal/crash"
	"gostoryboard/internal/export"
	applog "gostoryboard/internal/log"
	"gostoryboard/internal/scene"
	"gostoryboard/internal/storage"
	"gostoryboard/internal/ui"
	"gostoryboard/internal/version"
)

func usage() {
	fmt.Println("Go Storyboard — vector storyboard editor")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  gostoryboard version|-v|--version            Show version")
	fmt.Println("  gostoryboard init <dir> <name>               Create a new board at <dir> with name <name>")
	fmt.Println("  gostoryboard open <dir>                      Open board at <dir> and print summary")
	fmt.Println("  gostoryboard export <dir> [preset]           Export board pages (presets: review, handoff)")
	fmt.Println("  gostoryboard reindex <dir>                   Rebuild the board's search index")
	fmt.Println("  gostoryboard ui [<dir>]                      Launch desktop editor (build with -tags fyne for full UI)")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var bh *storage.BoardHandle
	defer func() { crash.Recover(bh) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("Go Storyboard — vector storyboard editor")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 4 {
				fmt.Println("init requires <dir> and <name>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			name := args[3]
			l.Info("init board", slog.String("root", abs), slog.String("name", name))
			b := scene.Board{Name: name, AspectName: "print", Pages: []scene.Page{scene.NewPage(1)}}
			h, err := storage.InitBoard(abs, b)
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			bh = h
			fmt.Println("Created board at", abs)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("open board", slog.String("root", abs))
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			bh = h
			fmt.Printf("Opened board: %s\n", h.Board.Name)
			fmt.Printf("Aspect: %s\n", h.Board.AspectName)
			fmt.Printf("Pages: %d\n", len(h.Board.Pages))
			fmt.Println("Root:", h.Root)
			return
		case "export":
			if len(args) < 3 {
				fmt.Println("export requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			preset := export.PresetReview
			if len(args) >= 4 {
				preset = export.PresetName(args[3])
			}
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open before export failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			bh = h
			l.Info("export board", slog.String("root", abs), slog.String("preset", string(preset)))
			opt := export.BatchOptions{Preset: preset}
			opt.Options.IncludeCharacters = true
			if err := export.BatchExport(h, opt); err != nil {
				l.Error("export failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Exported under", filepath.Join(abs, "exports", string(preset)))
			return
		case "reindex":
			if len(args) < 3 {
				fmt.Println("reindex requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open before reindex failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			bh = h
			l.Info("rebuild index", slog.String("root", abs))
			if err := storage.RebuildIndex(context.Background(), h.Root, h.Board); err != nil {
				l.Error("reindex failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Search index rebuilt.")
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}
