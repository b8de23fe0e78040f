//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"gostoryboard/internal/compose"
	"gostoryboard/internal/config"
	"gostoryboard/internal/crash"
	"gostoryboard/internal/export"
	"gostoryboard/internal/geom"
	"gostoryboard/internal/interact"
	applog "gostoryboard/internal/log"
	"gostoryboard/internal/scene"
	"gostoryboard/internal/storage"
	"gostoryboard/internal/telemetry"
	"gostoryboard/internal/version"
	"gostoryboard/internal/view"
)

const maxRecentBoards = 8

// editor is the state behind one open window: the board on disk, the page
// being edited, and the interaction controller for that page.
type editor struct {
	app fyne.App
	win fyne.Window
	log *slog.Logger
	cfg config.AppConfig

	bh      *storage.BoardHandle
	pageIdx int
	ctrl    *interact.Controller

	bc        *BoardCanvas
	pagesList *widget.List
	status    *widget.Label
	toolGroup *widget.RadioGroup
}

// settingsFromConfig maps the persisted editor tunables onto the interaction
// settings. Zero values fall back to the stock defaults so a sparse config
// file stays usable.
func settingsFromConfig(ec config.EditorConfig) interact.Settings {
	st := interact.DefaultSettings()
	if ec.MinShapeSize > 0 {
		st.MinShapeSize = ec.MinShapeSize
	}
	if ec.HandlePx > 0 {
		st.HandlePx = ec.HandlePx
	}
	if ec.DefaultFontSize > 0 {
		st.DefaultFontSize = ec.DefaultFontSize
	}
	if ec.FontStep > 0 {
		st.FontStep = ec.FontStep
	}
	if ec.WheelZoomFactor > 1 {
		st.View.WheelFactor = ec.WheelZoomFactor
	}
	if ec.ButtonZoomFactor > 1 {
		st.View.ButtonFactor = ec.ButtonZoomFactor
	}
	if ec.MinZoom > 0 {
		st.View.MinScale = ec.MinZoom
	}
	if ec.MaxZoom > st.View.MinScale {
		st.View.MaxScale = ec.MaxZoom
	}
	if ec.FitMargin > 0 && ec.FitMargin <= 1 {
		st.View.FitMargin = ec.FitMargin
	}
	return st
}

// Run opens the desktop editor. Pass a board directory to open it
// immediately; otherwise the window starts empty.
func Run(dir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")

	ed := &editor{log: l}
	defer func() {
		var bh *storage.BoardHandle
		if ed != nil {
			bh = ed.bh
		}
		crash.Recover(bh)
	}()

	cfg, cfgPath, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	} else if cfgPath != "" {
		l.Debug("config loaded", slog.String("path", cfgPath))
	}
	ed.cfg = cfg

	fyneApp := app.NewWithID("gostoryboard")
	prefs := fyneApp.Preferences()
	ed.app = fyneApp

	w := fyneApp.NewWindow("Go Storyboard " + version.String())
	winW := prefs.FloatWithFallback("window.width", 1200)
	winH := prefs.FloatWithFallback("window.height", 800)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))
	ed.win = w

	ed.bc = NewBoardCanvas(ed)
	ed.status = widget.NewLabel("No board open")

	ed.toolGroup = widget.NewRadioGroup(toolNames(), func(name string) {
		if ed.ctrl == nil {
			return
		}
		ed.ctrl.SetTool(toolByName(name))
		ed.updateStatus()
	})
	ed.toolGroup.Horizontal = true
	ed.toolGroup.SetSelected(toolName(interact.ToolSelect))

	bubbleSel := widget.NewSelect([]string{"rounded", "oval", "rect"}, func(v string) {
		if ed.ctrl == nil {
			return
		}
		switch v {
		case "oval":
			ed.ctrl.SetBubbleKind(scene.BubbleOval)
		case "rect":
			ed.ctrl.SetBubbleKind(scene.BubbleRect)
		default:
			ed.ctrl.SetBubbleKind(scene.BubbleRounded)
		}
	})
	bubbleSel.SetSelected("rounded")

	zoomBar := container.NewHBox(
		widget.NewButton("-", func() { ed.zoomButton(view.ZoomOut) }),
		widget.NewButton("+", func() { ed.zoomButton(view.ZoomIn) }),
		widget.NewButton("Fit", func() {
			if ed.ctrl != nil {
				ed.ctrl.FitAndCenter()
				ed.bc.Refresh()
			}
		}),
	)

	editBar := container.NewHBox(
		widget.NewButton("Undo", func() { ed.undo() }),
		widget.NewButton("Redo", func() { ed.redo() }),
		widget.NewButton("Tail", func() { ed.addTail() }),
		widget.NewButton("Pose", func() { ed.editPose() }),
		widget.NewButton("Character", func() { ed.placeCharacter() }),
	)

	toolbar := container.NewVBox(
		container.NewHBox(ed.toolGroup, widget.NewLabel("Bubble:"), bubbleSel),
		container.NewHBox(editBar, widget.NewSeparator(), zoomBar),
	)

	ed.pagesList = widget.NewList(
		func() int {
			if ed.bh == nil {
				return 0
			}
			return len(ed.bh.Board.Pages)
		},
		func() fyne.CanvasObject { return widget.NewLabel("Page") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			lbl := o.(*widget.Label)
			if ed.bh == nil || i >= len(ed.bh.Board.Pages) {
				return
			}
			pg := ed.bh.Board.Pages[i]
			lbl.SetText(fmt.Sprintf("Page %d (%d shapes)", pg.Number, len(pg.Shapes)))
		},
	)
	ed.pagesList.OnSelected = func(i widget.ListItemID) { ed.setPage(i) }

	addPageBtn := widget.NewButton("Add Page", func() { ed.addPage() })
	left := container.NewBorder(nil, addPageBtn, nil, nil, ed.pagesList)

	content := container.NewBorder(toolbar, ed.status, left, nil, ed.bc)
	w.SetContent(content)
	w.SetMainMenu(ed.buildMenu())
	ed.registerShortcuts()

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetFloat("window.width", float64(sz.Width))
		prefs.SetFloat("window.height", float64(sz.Height))
		if ed.bh != nil {
			if err := ed.saveBoard(); err != nil {
				ed.log.Error("save on close failed", slog.Any("err", err))
			}
		}
		w.Close()
	})

	if dir != "" {
		ed.openBoard(dir)
	}

	telemetry.Event("ui_start", map[string]any{"version": version.String()})
	l.Info("editor window up")
	w.ShowAndRun()
	return nil
}

func (ed *editor) buildMenu() *fyne.MainMenu {
	newItem := fyne.NewMenuItem("New Board...", func() { ed.showNewBoardDialog() })
	openItem := fyne.NewMenuItem("Open Board...", func() { ed.showOpenBoardDialog() })
	saveItem := fyne.NewMenuItem("Save", func() {
		if err := ed.saveBoard(); err != nil {
			dialog.ShowError(err, ed.win)
		}
	})
	newItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyN, Modifier: fyne.KeyModifierControl}
	openItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}
	saveItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierControl}

	recents := fyne.NewMenuItem("Open Recent", nil)
	recents.ChildMenu = fyne.NewMenu("", ed.recentMenuItems()...)

	exportPNG := fyne.NewMenuItem("Export PNG Pages", func() { ed.exportPages("png") })
	exportPDF := fyne.NewMenuItem("Export PDF", func() { ed.exportPages("pdf") })
	exportSheet := fyne.NewMenuItem("Export Contact Sheet", func() { ed.exportPages("sheet") })

	fileMenu := fyne.NewMenu("File", newItem, openItem, recents, fyne.NewMenuItemSeparator(),
		saveItem, fyne.NewMenuItemSeparator(), exportPNG, exportPDF, exportSheet)

	undoItem := fyne.NewMenuItem("Undo", func() { ed.undo() })
	redoItem := fyne.NewMenuItem("Redo", func() { ed.redo() })
	deleteItem := fyne.NewMenuItem("Delete Shape", func() { ed.handleKey(interact.KeyDelete) })
	undoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl}
	redoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierControl}
	editMenu := fyne.NewMenu("Edit", undoItem, redoItem, fyne.NewMenuItemSeparator(), deleteItem)

	return fyne.NewMainMenu(fileMenu, editMenu)
}

func (ed *editor) registerShortcuts() {
	c := ed.win.Canvas()
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) {
		ed.undo()
	})
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl | fyne.KeyModifierShift}, func(fyne.Shortcut) {
		ed.redo()
	})
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) {
		ed.redo()
	})
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) {
		if err := ed.saveBoard(); err != nil {
			dialog.ShowError(err, ed.win)
		}
	})
	c.SetOnTypedKey(func(e *fyne.KeyEvent) {
		switch e.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			ed.handleKey(interact.KeyDelete)
		case fyne.KeyEscape:
			ed.handleKey(interact.KeyEscape)
		}
	})
}

func (ed *editor) recentMenuItems() []*fyne.MenuItem {
	raw := ed.app.Preferences().String("recent.boards")
	var items []*fyne.MenuItem
	for _, p := range strings.Split(raw, "\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		root := p
		items = append(items, fyne.NewMenuItem(filepath.Base(root), func() { ed.openBoard(root) }))
	}
	if len(items) == 0 {
		none := fyne.NewMenuItem("(none)", nil)
		none.Disabled = true
		items = append(items, none)
	}
	return items
}

func (ed *editor) addRecentBoard(root string) {
	prefs := ed.app.Preferences()
	raw := prefs.String("recent.boards")
	out := []string{root}
	for _, p := range strings.Split(raw, "\n") {
		p = strings.TrimSpace(p)
		if p == "" || p == root {
			continue
		}
		out = append(out, p)
		if len(out) >= maxRecentBoards {
			break
		}
	}
	prefs.SetString("recent.boards", strings.Join(out, "\n"))
}

func (ed *editor) showNewBoardDialog() {
	name := widget.NewEntry()
	name.SetPlaceHolder("Board name")
	aspect := widget.NewSelect([]string{"print", "portrait", "square", "widescreen"}, nil)
	aspect.SetSelected("print")
	form := dialog.NewForm("New Board", "Create", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Name", name),
		widget.NewFormItem("Aspect", aspect),
	}, func(ok bool) {
		if !ok {
			return
		}
		if strings.TrimSpace(name.Text) == "" {
			dialog.ShowInformation("New Board", "Please enter a board name.", ed.win)
			return
		}
		fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			root := filepath.Join(uri.Path(), strings.TrimSpace(name.Text))
			b := scene.Board{Name: strings.TrimSpace(name.Text), AspectName: aspect.Selected}
			b.Pages = []scene.Page{scene.NewPage(1)}
			bh, ierr := storage.InitBoard(root, b)
			if ierr != nil {
				dialog.ShowError(ierr, ed.win)
				return
			}
			ed.attachBoard(bh)
		}, ed.win)
		fd.Show()
	}, ed.win)
	form.Show()
}

func (ed *editor) showOpenBoardDialog() {
	fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		ed.openBoard(uri.Path())
	}, ed.win)
	fd.Show()
}

func (ed *editor) openBoard(root string) {
	bh, err := storage.Open(root)
	if err != nil {
		ed.log.Error("open board failed", slog.String("root", root), slog.Any("err", err))
		dialog.ShowError(err, ed.win)
		return
	}
	ed.attachBoard(bh)
}

func (ed *editor) attachBoard(bh *storage.BoardHandle) {
	ed.bh = bh
	ed.addRecentBoard(bh.Root)
	ed.log.Info("board open", slog.String("root", bh.Root), slog.String("name", bh.Board.Name),
		slog.Int("pages", len(bh.Board.Pages)))
	telemetry.Event("board_open", map[string]any{"pages": len(bh.Board.Pages)})
	ed.win.SetTitle(fmt.Sprintf("Go Storyboard %s - %s", version.String(), bh.Board.Name))
	if len(bh.Board.Pages) == 0 {
		bh.Board.Pages = append(bh.Board.Pages, scene.NewPage(1))
	}
	ed.setPage(0)
	ed.pagesList.Refresh()
	ed.pagesList.Select(0)
}

func (ed *editor) saveBoard() error {
	if ed.bh == nil {
		return fmt.Errorf("no board open")
	}
	if err := storage.Save(ed.bh); err != nil {
		return err
	}
	ed.log.Info("board saved", slog.String("root", ed.bh.Root))
	ed.updateStatus()
	return nil
}

func (ed *editor) setPage(i int) {
	if ed.bh == nil || i < 0 || i >= len(ed.bh.Board.Pages) {
		return
	}
	ed.pageIdx = i
	pg := &ed.bh.Board.Pages[i]
	ar := scene.AspectByName(ed.bh.Board.AspectName)
	size := geom.Size{W: float64(ar.Width), H: float64(ar.Height)}
	ed.ctrl = interact.NewController(pg, size, settingsFromConfig(ed.cfg.Editor))
	ed.ctrl.OnBeginTextEdit = func(shapeID string) { ed.editShapeText(shapeID) }
	ed.bc.SetController(ed.ctrl)
	if ed.toolGroup != nil {
		ed.toolGroup.SetSelected(toolName(ed.ctrl.Tool()))
	}
	ed.updateStatus()
}

func (ed *editor) addPage() {
	if ed.bh == nil {
		return
	}
	n := len(ed.bh.Board.Pages) + 1
	ed.bh.Board.Pages = append(ed.bh.Board.Pages, scene.NewPage(n))
	ed.pagesList.Refresh()
	ed.pagesList.Select(n - 1)
}

func (ed *editor) undo() {
	if ed.ctrl == nil {
		return
	}
	ed.ctrl.Undo()
	ed.bc.Refresh()
	ed.updateStatus()
}

func (ed *editor) redo() {
	if ed.ctrl == nil {
		return
	}
	ed.ctrl.Redo()
	ed.bc.Refresh()
	ed.updateStatus()
}

func (ed *editor) zoomButton(dir view.Direction) {
	if ed.ctrl == nil {
		return
	}
	sz := ed.bc.Size()
	center := geom.Pt{X: float64(sz.Width) / 2, Y: float64(sz.Height) / 2}
	if dir == view.ZoomIn {
		ed.ctrl.ZoomIn(center)
	} else {
		ed.ctrl.ZoomOut(center)
	}
	ed.bc.Refresh()
}

func (ed *editor) handleKey(cmd interact.KeyCommand) {
	if ed.ctrl == nil {
		return
	}
	ed.ctrl.HandleKey(cmd)
	ed.bc.Refresh()
	ed.updateStatus()
}

func (ed *editor) addTail() {
	if ed.ctrl == nil || ed.ctrl.SelectedID() == "" {
		dialog.ShowInformation("Tail", "Select a bubble first.", ed.win)
		return
	}
	if err := ed.ctrl.AddTail(ed.ctrl.SelectedID()); err != nil {
		dialog.ShowError(err, ed.win)
		return
	}
	ed.bc.Refresh()
}

// editShapeText opens the inline text editor for a bubble or text shape.
func (ed *editor) editShapeText(shapeID string) {
	s := scene.FindShape(ed.ctrl.Shapes(), shapeID)
	if s == nil {
		return
	}
	entry := widget.NewMultiLineEntry()
	entry.SetText(s.Text)
	form := dialog.NewForm("Edit Text", "Apply", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Text", entry),
	}, func(ok bool) {
		if !ok {
			return
		}
		if err := ed.ctrl.SetText(shapeID, entry.Text); err != nil {
			dialog.ShowError(err, ed.win)
			return
		}
		ed.bc.Refresh()
		ed.updateStatus()
	}, ed.win)
	form.Resize(fyne.NewSize(420, 260))
	form.Show()
}

func (ed *editor) editPose() {
	if ed.ctrl == nil || ed.ctrl.SelectedID() == "" {
		dialog.ShowInformation("Pose", "Select a character cutout first.", ed.win)
		return
	}
	id := ed.ctrl.SelectedID()
	s := scene.FindShape(ed.ctrl.Shapes(), id)
	if s == nil || s.Kind != scene.KindCutout {
		dialog.ShowInformation("Pose", "Poses attach to character cutouts.", ed.win)
		return
	}
	kind := widget.NewSelect([]string{
		string(scene.PoseSkeleton), string(scene.PoseReference), string(scene.PoseFreehand),
	}, nil)
	note := widget.NewEntry()
	if s.Pose != nil {
		kind.SetSelected(string(s.Pose.Kind))
		note.SetText(s.Pose.Note)
	} else {
		kind.SetSelected(string(scene.PoseReference))
	}
	form := dialog.NewForm("Edit Pose", "Save", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Kind", kind),
		widget.NewFormItem("Note", note),
	}, func(ok bool) {
		if !ok {
			return
		}
		p := &scene.Pose{Kind: scene.PoseKind(kind.Selected), Note: note.Text}
		if err := ed.ctrl.SavePose(id, p); err != nil {
			dialog.ShowError(err, ed.win)
			return
		}
		ed.bc.Refresh()
	}, ed.win)
	form.Show()
}

func (ed *editor) placeCharacter() {
	if ed.ctrl == nil || ed.bh == nil {
		return
	}
	if len(ed.bh.Board.Characters) == 0 {
		dialog.ShowInformation("Character", "The board has no characters yet.", ed.win)
		return
	}
	names := make([]string, len(ed.bh.Board.Characters))
	for i, ch := range ed.bh.Board.Characters {
		names[i] = ch.Name
	}
	sel := widget.NewSelect(names, nil)
	sel.SetSelected(names[0])
	dialog.NewCustomConfirm("Place Character", "Place", "Cancel", sel, func(ok bool) {
		if !ok || sel.Selected == "" {
			return
		}
		var ch scene.Character
		for _, c := range ed.bh.Board.Characters {
			if c.Name == sel.Selected {
				ch = c
				break
			}
		}
		ps := ed.ctrl.PageSize()
		box := geom.R(ps.W/2-ps.W/8, ps.H/2-ps.H/6, ps.W/4, ps.H/3)
		ed.ctrl.PlaceCharacter(ch, box)
		ed.bc.Refresh()
		ed.updateStatus()
	}, ed.win).Show()
}

func (ed *editor) exportPages(format string) {
	if ed.bh == nil {
		dialog.ShowInformation("Export", "Open a board first.", ed.win)
		return
	}
	ed.syncPage()
	go func() {
		var err error
		switch format {
		case "pdf":
			err = export.ExportPDF(ed.bh, "board.pdf", export.PDFOptions{
				Options: export.Options{IncludeCharacters: true},
			})
		case "sheet":
			err = export.ExportContactSheetPDF(ed.bh, "board-sheet.pdf", export.PDFOptions{
				Options: export.Options{IncludeCharacters: true},
			})
		default:
			err = export.ExportPNGPages(ed.bh, "png", export.Options{IncludeCharacters: true})
		}
		fyne.Do(func() {
			if err != nil {
				dialog.ShowError(err, ed.win)
				return
			}
			dialog.ShowInformation("Export", "Export finished under the board's exports directory.", ed.win)
		})
		telemetry.Event("export", map[string]any{"format": format})
	}()
}

// syncPage writes the controller's working shapes back onto the page so a
// save or export sees the live edit state.
func (ed *editor) syncPage() {
	if ed.ctrl == nil || ed.bh == nil {
		return
	}
	pg := &ed.bh.Board.Pages[ed.pageIdx]
	pg.Shapes = ed.ctrl.Shapes()
}

func (ed *editor) updateStatus() {
	if ed.ctrl == nil {
		ed.status.SetText("No board open")
		return
	}
	ed.syncPage()
	pg := ed.bh.Board.Pages[ed.pageIdx]
	sel := ed.ctrl.SelectedID()
	if sel == "" {
		sel = "none"
	}
	ed.status.SetText(fmt.Sprintf("%s | page %d | tool %s | shapes %d | selected %s",
		ed.bh.Board.Name, pg.Number, toolName(ed.ctrl.Tool()), len(ed.ctrl.Shapes()), sel))
	ed.pagesList.Refresh()
}

func toolNames() []string {
	return []string{"Select", "Pan", "Panel", "Text", "Bubble", "Draw", "Arrow"}
}

func toolName(t interact.Tool) string {
	switch t {
	case interact.ToolPan:
		return "Pan"
	case interact.ToolPanel:
		return "Panel"
	case interact.ToolText:
		return "Text"
	case interact.ToolBubble:
		return "Bubble"
	case interact.ToolDraw:
		return "Draw"
	case interact.ToolArrow:
		return "Arrow"
	default:
		return "Select"
	}
}

func toolByName(name string) interact.Tool {
	switch name {
	case "Pan":
		return interact.ToolPan
	case "Panel":
		return interact.ToolPanel
	case "Text":
		return interact.ToolText
	case "Bubble":
		return interact.ToolBubble
	case "Draw":
		return interact.ToolDraw
	case "Arrow":
		return interact.ToolArrow
	default:
		return interact.ToolSelect
	}
}

// BoardCanvas shows the current page and feeds pointer input to the
// interaction controller. The page itself is rasterized through the
// compositor and drawn as one image; selection chrome is overlaid as
// lightweight canvas objects.
type BoardCanvas struct {
	widget.BaseWidget

	ed   *editor
	ctrl *interact.Controller

	dragging bool
	lastDrag geom.Pt

	pageImg image.Image // cached page raster, rebuilt on Refresh
}

func NewBoardCanvas(ed *editor) *BoardCanvas {
	bc := &BoardCanvas{ed: ed}
	bc.ExtendBaseWidget(bc)
	return bc
}

// SetController swaps in the controller for a newly selected page.
func (bc *BoardCanvas) SetController(c *interact.Controller) {
	bc.ctrl = c
	bc.pageImg = nil
	if c != nil {
		sz := bc.Size()
		if sz.Width > 0 && sz.Height > 0 {
			c.SetViewport(geom.Size{W: float64(sz.Width), H: float64(sz.Height)})
			c.FitAndCenter()
		}
	}
	bc.Refresh()
}

func (bc *BoardCanvas) MinSize() fyne.Size {
	return fyne.NewSize(640, 480)
}

// composeOptions builds the render options for the open board. Characters
// resolve against the board roster and assets against the board directory.
func (bc *BoardCanvas) composeOptions() compose.Options {
	opt := compose.Options{IncludeCharacters: true}
	if bc.ed != nil && bc.ed.bh != nil {
		chars := make(map[string]scene.Character, len(bc.ed.bh.Board.Characters))
		for _, ch := range bc.ed.bh.Board.Characters {
			chars[ch.ID] = ch
		}
		opt.Characters = chars
		opt.Assets = storage.AssetsFor(bc.ed.bh)
	}
	return opt
}

func (bc *BoardCanvas) renderPage() image.Image {
	if bc.ctrl == nil {
		return nil
	}
	img, err := compose.Render(bc.ctrl.Shapes(), bc.ctrl.PageSize(), bc.composeOptions())
	if err != nil {
		if bc.ed != nil {
			bc.ed.log.Error("page render failed", slog.Any("err", err))
		}
		return nil
	}
	return img
}

func (bc *BoardCanvas) Refresh() {
	bc.pageImg = bc.renderPage()
	bc.BaseWidget.Refresh()
}

func (bc *BoardCanvas) Resize(size fyne.Size) {
	bc.BaseWidget.Resize(size)
	if bc.ctrl != nil {
		bc.ctrl.SetViewport(geom.Size{W: float64(size.Width), H: float64(size.Height)})
	}
}

func (bc *BoardCanvas) Tapped(e *fyne.PointEvent) {
	if bc.ctrl == nil {
		return
	}
	p := geom.Pt{X: float64(e.Position.X), Y: float64(e.Position.Y)}
	bc.ctrl.PointerDown(p, interact.Modifiers{})
	bc.ctrl.PointerUp(p)
	bc.Refresh()
	bc.ed.updateStatus()
}

func (bc *BoardCanvas) Dragged(e *fyne.DragEvent) {
	if bc.ctrl == nil {
		return
	}
	p := geom.Pt{X: float64(e.Position.X), Y: float64(e.Position.Y)}
	if !bc.dragging {
		start := geom.Pt{X: p.X - float64(e.Dragged.DX), Y: p.Y - float64(e.Dragged.DY)}
		bc.ctrl.PointerDown(start, interact.Modifiers{})
		bc.dragging = true
	}
	bc.ctrl.PointerMove(p)
	bc.lastDrag = p
	bc.Refresh()
}

func (bc *BoardCanvas) DragEnd() {
	if bc.ctrl == nil || !bc.dragging {
		return
	}
	bc.dragging = false
	bc.ctrl.PointerUp(bc.lastDrag)
	bc.Refresh()
	bc.ed.updateStatus()
}

func (bc *BoardCanvas) Scrolled(e *fyne.ScrollEvent) {
	if bc.ctrl == nil {
		return
	}
	p := geom.Pt{X: float64(e.Position.X), Y: float64(e.Position.Y)}
	dir := view.ZoomIn
	if e.Scrolled.DY < 0 {
		dir = view.ZoomOut
	}
	bc.ctrl.Wheel(p, dir)
	bc.Refresh()
}

func (bc *BoardCanvas) CreateRenderer() fyne.WidgetRenderer {
	r := &boardCanvasRenderer{bc: bc}
	r.bg = canvas.NewRectangle(color.NRGBA{R: 0x2b, G: 0x2b, B: 0x2e, A: 0xff})
	r.page = canvas.NewImageFromImage(nil)
	r.page.FillMode = canvas.ImageFillStretch
	r.selBox = canvas.NewRectangle(color.Transparent)
	r.selBox.StrokeColor = color.NRGBA{R: 0x2f, G: 0x6f, B: 0xed, A: 0xff}
	r.selBox.StrokeWidth = 1.5
	r.selBox.Hide()
	for i := range r.handles {
		h := canvas.NewRectangle(color.NRGBA{R: 0x2f, G: 0x6f, B: 0xed, A: 0xff})
		h.Hide()
		r.handles[i] = h
	}
	r.guide = canvas.NewRectangle(color.Transparent)
	r.guide.StrokeColor = color.NRGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xb0}
	r.guide.StrokeWidth = 1
	r.guide.Hide()
	r.objects = []fyne.CanvasObject{r.bg, r.page, r.guide, r.selBox}
	for _, h := range r.handles {
		r.objects = append(r.objects, h)
	}
	return r
}

type boardCanvasRenderer struct {
	bc      *BoardCanvas
	bg      *canvas.Rectangle
	page    *canvas.Image
	selBox  *canvas.Rectangle
	handles [4]*canvas.Rectangle
	guide   *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *boardCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	c := r.bc.ctrl
	if c == nil {
		r.page.Hide()
		r.selBox.Hide()
		r.guide.Hide()
		for _, h := range r.handles {
			h.Hide()
		}
		return
	}

	t := c.View()
	ps := c.PageSize()
	origin := t.ToScreen(geom.Pt{})
	r.page.Show()
	r.page.Move(fyne.NewPos(float32(origin.X), float32(origin.Y)))
	r.page.Resize(fyne.NewSize(float32(ps.W*t.Scale), float32(ps.H*t.Scale)))

	if g := c.GuideRect(); g != nil {
		min := t.ToScreen(g.Min())
		r.guide.Show()
		r.guide.Move(fyne.NewPos(float32(min.X), float32(min.Y)))
		r.guide.Resize(fyne.NewSize(float32(g.W*t.Scale), float32(g.H*t.Scale)))
	} else {
		r.guide.Hide()
	}

	sel := scene.FindShape(c.Shapes(), c.SelectedID())
	if sel == nil {
		r.selBox.Hide()
		for _, h := range r.handles {
			h.Hide()
		}
		return
	}
	b := sel.Bounds()
	min := t.ToScreen(b.Min())
	r.selBox.Show()
	r.selBox.Move(fyne.NewPos(float32(min.X), float32(min.Y)))
	r.selBox.Resize(fyne.NewSize(float32(b.W*t.Scale), float32(b.H*t.Scale)))

	if !sel.Resizable() {
		for _, h := range r.handles {
			h.Hide()
		}
		return
	}
	hs := float32(8)
	corners := []geom.Pt{
		b.Min(),
		{X: b.X + b.W, Y: b.Y},
		{X: b.X, Y: b.Y + b.H},
		b.Max(),
	}
	for i, pt := range corners {
		sp := t.ToScreen(pt)
		r.handles[i].Show()
		r.handles[i].Resize(fyne.NewSize(hs, hs))
		r.handles[i].Move(fyne.NewPos(float32(sp.X)-hs/2, float32(sp.Y)-hs/2))
	}
}

func (r *boardCanvasRenderer) Refresh() {
	r.page.Image = r.bc.pageImg
	r.Layout(r.bc.Size())
	canvas.Refresh(r.bc)
}

func (r *boardCanvasRenderer) MinSize() fyne.Size           { return r.bc.MinSize() }
func (r *boardCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *boardCanvasRenderer) Destroy()                     {}
