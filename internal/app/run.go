package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/readerstudy/readerstudy"
	"yashubustudio/readerstudy/slicetable"
)

const fyneAppID = "yashubustudio.readerstudy"

// Run loads the configuration at configPath, opens the image and label tables and starts
// the desktop UI.
func Run(configPath string) error {
	logBind := binding.NewString()
	panel := newLogPanel(logBind, 300)
	logger := log.New(io.MultiWriter(os.Stdout, panel), "", log.LstdFlags)

	a := fyneapp.NewWithID(fyneAppID)
	cfg, err := readerstudy.LoadConfig(configPath)
	if err != nil {
		showFatalError(a, "Reader Study", err)
		return err
	}
	sess, err := newSession(context.Background(), cfg, logger)
	if err != nil {
		showFatalError(a, cfg.Title, err)
		return err
	}
	logger.Printf("%d examples, columns %v", sess.Len(), sess.Columns())

	u := buildUI(a, sess, cfg, logger, logBind)
	u.start()
	u.w.ShowAndRun()
	return nil
}

// newSession builds the image table, loads existing labels and wires the scorers of cfg.
func newSession(ctx context.Context, cfg readerstudy.Config, logger *log.Logger) (*readerstudy.Session, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	images, err := openImages(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	columns := cfg.Columns
	if len(columns) == 0 {
		lister, ok := images.(interface{ Columns() []string })
		if !ok {
			return nil, errors.New("no display columns configured")
		}
		columns = lister.Columns()
	}
	if cfg.Shuffle {
		images = readerstudy.Shuffle(images, cfg.Seed)
	}
	var labels *readerstudy.LabelTable
	if cfg.LabelsPath != "" {
		if _, statErr := os.Stat(cfg.LabelsPath); statErr == nil {
			labels, err = readerstudy.ReadLabels(cfg.LabelsPath)
			if err != nil {
				return nil, fmt.Errorf("load labels: %w", err)
			}
			logger.Printf("loaded %d label rows from %s", labels.Len(), cfg.LabelsPath)
		}
	}
	return readerstudy.NewSession(images, columns, newScorerFactory(cfg.Categories), labels, readerstudy.SessionOptions{
		NCols:  cfg.NCols,
		Logger: logger,
	})
}

func openImages(ctx context.Context, cfg readerstudy.Config, logger *log.Logger) (readerstudy.ImageTable, error) {
	switch {
	case cfg.Images.Manifest != "":
		t, err := readerstudy.ReadManifest(cfg.Images.Manifest, readerstudy.ManifestOptions{IDColumn: cfg.Images.IDColumn})
		if err != nil {
			return nil, fmt.Errorf("load manifest: %w", err)
		}
		return t, nil
	case len(cfg.Images.Slices) > 0:
		t, err := slicetable.Build(ctx, cfg.Images.Slices, slicetable.Options{
			Progress: true,
			Resolver: slicetable.NewResolver(cfg.Images.CacheDir),
			CacheTTL: time.Duration(cfg.Images.CacheTTLSeconds) * time.Second,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build slice table: %w", err)
		}
		return t, nil
	default:
		return nil, errors.New("no images configured: set images.manifest or images.slices")
	}
}

func showFatalError(a fyne.App, title string, err error) {
	win := a.NewWindow(title)
	win.SetContent(widget.NewLabel(err.Error()))
	win.Resize(fyne.NewSize(480, 160))
	dialog.ShowError(err, win)
	win.ShowAndRun()
}
