package app

import (
	"fmt"
	"log"
	"path/filepath"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/readerstudy/readerstudy"
)

var labelFileExtensions = []string{".csv", ".tsv", ".parquet", ".db", ".sqlite", ".sqlite3"}

type uiState struct {
	session *readerstudy.Session
	cfg     readerstudy.Config
	logger  *log.Logger

	w           fyne.Window
	galleries   map[string]*canvas.Image
	exampleBind binding.String
	statusBind  binding.String
	logBind     binding.String
	prevBtn     *widget.Button
	nextBtn     *widget.Button

	// do runs fn on the UI goroutine; load runs fn off it.
	do   func(fn func())
	load func(fn func())
	gen  atomic.Uint64
}

func buildUI(a fyne.App, sess *readerstudy.Session, cfg readerstudy.Config, logger *log.Logger, logBind binding.String) *uiState {
	u := &uiState{
		session:   sess,
		cfg:       cfg,
		logger:    logger,
		galleries: make(map[string]*canvas.Image),
		do:        fyne.Do,
		load:      func(fn func()) { go fn() },
	}
	u.w = a.NewWindow(cfg.Title)

	u.exampleBind = binding.NewString()
	_ = u.exampleBind.Set(sess.ExampleLabel())
	u.statusBind = binding.NewString()
	u.logBind = logBind
	if u.logBind == nil {
		u.logBind = binding.NewString()
	}

	u.prevBtn = widget.NewButtonWithIcon("Previous", theme.NavigateBackIcon(), func() { u.onPrevious() })
	u.nextBtn = widget.NewButtonWithIcon("Next", theme.NavigateNextIcon(), func() { u.onNext() })
	exampleLabel := widget.NewLabelWithData(u.exampleBind)
	exampleLabel.Alignment = fyne.TextAlignCenter
	exampleLabel.TextStyle = fyne.TextStyle{Bold: true}
	nav := container.NewGridWithColumns(3, u.prevBtn, exampleLabel, u.nextBtn)

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() { u.onSave() }),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), func() { u.onLoad() }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.FolderOpenIcon(), func() { u.onImport() }),
		widget.NewToolbarAction(theme.DownloadIcon(), func() { u.onExport() }),
	)

	panels := make([]fyne.CanvasObject, 0, len(sess.Columns()))
	for _, column := range sess.Columns() {
		panels = append(panels, u.buildPanel(column))
	}
	grid := container.NewGridWithColumns(sess.NCols(), panels...)

	logEntry := widget.NewEntryWithData(u.logBind)
	logEntry.MultiLine = true
	logEntry.Wrapping = fyne.TextWrapWord
	logEntry.Disable()

	top := container.NewVBox(toolbar, nav, widget.NewSeparator())
	bottom := widget.NewLabelWithData(u.statusBind)
	split := container.NewVSplit(container.NewVScroll(grid), logEntry)
	split.Offset = 0.8

	u.w.SetContent(container.NewBorder(top, bottom, nil, nil, split))
	u.w.Resize(fyne.NewSize(float32(sess.NCols())*(cfg.CellSize+40), cfg.CellSize*2+320))
	u.w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyLeft:
			u.onPrevious()
		case fyne.KeyRight:
			u.onNext()
		}
	})
	u.w.SetCloseIntercept(func() {
		if err := u.persist(); err != nil {
			u.logf("autosave failed: %v", err)
		}
		u.w.Close()
	})

	sess.Subscribe(func(row int) { u.onRowChanged(row) })
	sess.Labels().OnChange(func() { u.updateStatus() })
	return u
}

func (u *uiState) buildPanel(column string) fyne.CanvasObject {
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScalePixels
	img.SetMinSize(fyne.NewSize(u.cfg.CellSize, u.cfg.CellSize))
	u.galleries[column] = img

	title := widget.NewLabelWithStyle(column, fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	scorers := container.NewVBox()
	for _, cat := range u.session.Scorers(column) {
		sw, ok := cat.Scorer.(scorerWidget)
		if !ok {
			continue
		}
		scorers.Add(widget.NewLabelWithStyle(cat.Name, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
		scorers.Add(sw.Widget())
	}
	return container.NewVBox(title, img, widget.NewSeparator(), scorers)
}

// start loads the first example into the scorers and galleries.
func (u *uiState) start() {
	if err := u.session.Load(); err != nil {
		u.showError(err)
	}
	u.onRowChanged(u.session.Row())
	u.updateStatus()
}

func (u *uiState) onPrevious() {
	if err := u.session.Previous(); err != nil {
		u.showError(err)
	}
}

func (u *uiState) onNext() {
	if err := u.session.Next(); err != nil {
		u.showError(err)
	}
}

func (u *uiState) onSave() {
	if err := u.session.Save(); err != nil {
		u.showError(err)
		return
	}
	if err := u.persist(); err != nil {
		u.showError(err)
	}
}

func (u *uiState) onLoad() {
	if err := u.session.Load(); err != nil {
		u.showError(err)
	}
}

func (u *uiState) onImport() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		if err := u.importLabels(path); err != nil {
			u.showError(err)
		}
	}, u.w)
	fd.SetFilter(storage.NewExtensionFileFilter(labelFileExtensions))
	fd.Show()
}

func (u *uiState) onExport() {
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		path := uc.URI().Path()
		_ = uc.Close()
		if err := u.exportLabels(path); err != nil {
			u.showError(err)
		}
	}, u.w)
	fd.SetFilter(storage.NewExtensionFileFilter(labelFileExtensions))
	fd.SetFileName("labels.csv")
	fd.Show()
}

// importLabels merges a label file into the session and reloads the current example.
func (u *uiState) importLabels(path string) error {
	imported, err := readerstudy.ReadLabels(path)
	if err != nil {
		return err
	}
	n := u.session.Labels().Merge(imported)
	u.logf("imported labels of %d images from %s", n, filepath.Base(path))
	return u.session.Load()
}

// exportLabels saves the current example and writes the whole label table to path.
func (u *uiState) exportLabels(path string) error {
	if err := u.session.Save(); err != nil {
		return err
	}
	if err := readerstudy.WriteLabels(path, u.session.Labels()); err != nil {
		return err
	}
	u.logf("exported %d label rows to %s", u.session.Labels().Len(), filepath.Base(path))
	return nil
}

func (u *uiState) persist() error {
	if u.cfg.LabelsPath == "" {
		return nil
	}
	return u.exportLabels(u.cfg.LabelsPath)
}

// onRowChanged refreshes the example label and galleries. Scorers are handled by the session.
func (u *uiState) onRowChanged(row int) {
	_ = u.exampleBind.Set(u.session.ExampleLabel())
	if row <= 0 {
		u.prevBtn.Disable()
	} else {
		u.prevBtn.Enable()
	}
	if row >= u.session.Len()-1 {
		u.nextBtn.Disable()
	} else {
		u.nextBtn.Enable()
	}
	u.refreshGalleries(row)
}

func (u *uiState) refreshGalleries(row int) {
	gen := u.gen.Add(1)
	images := u.session.Images()
	for _, column := range u.session.Columns() {
		gallery := u.galleries[column]
		u.load(func() {
			img, err := images.Image(row, column)
			u.do(func() {
				if u.gen.Load() != gen {
					return
				}
				if err != nil {
					gallery.Image = nil
					gallery.Refresh()
					u.logf("load %s of %s: %v", column, images.PrimaryKey(row), err)
					return
				}
				gallery.Image = img
				gallery.Refresh()
			})
		})
	}
}

func (u *uiState) updateStatus() {
	_ = u.statusBind.Set(fmt.Sprintf("%d label rows", u.session.Labels().Len()))
}

func (u *uiState) showError(err error) {
	if err == nil {
		return
	}
	u.logf("error: %v", err)
	dialog.ShowError(err, u.w)
}

func (u *uiState) logf(format string, args ...any) {
	if u.logger != nil {
		u.logger.Printf(format, args...)
	}
}
