package app

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/test"

	"yashubustudio/readerstudy/readerstudy"
)

func writeManifest(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("id,zf,net\n")
	for _, id := range []string{"a", "b", "c", "d"} {
		for _, col := range []string{"zf", "net"} {
			f, err := os.Create(filepath.Join(dir, id+"_"+col+".png"))
			if err != nil {
				t.Fatal(err)
			}
			if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
				t.Fatal(err)
			}
			f.Close()
		}
		b.WriteString(id + "," + id + "_zf.png," + id + "_net.png\n")
	}
	path := filepath.Join(dir, "images.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewSessionFromManifest(t *testing.T) {
	test.NewApp()
	dir := t.TempDir()
	labelsPath := filepath.Join(dir, "labels.db")
	existing := readerstudy.NewLabelTable(readerstudy.LabelRow{
		ImageID: "c", Method: "net", Scores: map[string]readerstudy.Score{"quality": readerstudy.NumberScore(4)},
	})
	if err := readerstudy.WriteLabels(labelsPath, existing); err != nil {
		t.Fatal(err)
	}

	cfg := readerstudy.Config{LabelsPath: labelsPath, Images: readerstudy.ImagesConfig{Manifest: writeManifest(t, dir)}}
	cfg.ApplyDefaults()
	sess, err := newSession(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("newSession failed: %v", err)
	}
	if sess.Len() != 4 {
		t.Errorf("expected 4 examples, got %d", sess.Len())
	}
	if cols := sess.Columns(); len(cols) != 2 || cols[0] != "zf" || cols[1] != "net" {
		t.Errorf("columns should come from the manifest, got %v", cols)
	}
	if !sess.Labels().Has("c") {
		t.Errorf("existing labels were not loaded")
	}
	if sess.NCols() != 2 {
		t.Errorf("expected one panel column per display column, got %d", sess.NCols())
	}
}

func TestNewSessionShufflesDeterministically(t *testing.T) {
	test.NewApp()
	dir := t.TempDir()
	cfg := readerstudy.Config{Shuffle: true, Seed: 7, Images: readerstudy.ImagesConfig{Manifest: writeManifest(t, dir)}}
	cfg.ApplyDefaults()
	order := func() []string {
		sess, err := newSession(context.Background(), cfg, nil)
		if err != nil {
			t.Fatalf("newSession failed: %v", err)
		}
		var ids []string
		for i := 0; i < sess.Len(); i++ {
			ids = append(ids, sess.Images().PrimaryKey(i))
		}
		return ids
	}
	first, second := order(), order()
	if strings.Join(first, ",") != strings.Join(second, ",") {
		t.Errorf("same seed gave different orders: %v vs %v", first, second)
	}
	if len(first) != 4 {
		t.Errorf("shuffle lost examples: %v", first)
	}
}

func TestNewSessionErrors(t *testing.T) {
	test.NewApp()
	dir := t.TempDir()
	manifest := writeManifest(t, dir)

	cfg := readerstudy.Config{}
	cfg.ApplyDefaults()
	if _, err := newSession(context.Background(), cfg, nil); err == nil {
		t.Errorf("expected error without images")
	}

	cfg = readerstudy.Config{Columns: []string{"recon"}, Images: readerstudy.ImagesConfig{Manifest: manifest}}
	cfg.ApplyDefaults()
	if _, err := newSession(context.Background(), cfg, nil); !errors.Is(err, readerstudy.ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}

	cfg = readerstudy.Config{Images: readerstudy.ImagesConfig{Slices: []string{filepath.Join(dir, "absent.h5")}}}
	cfg.ApplyDefaults()
	if _, err := newSession(context.Background(), cfg, nil); err == nil {
		t.Errorf("expected error for missing slice file")
	}
}

func TestLogPanelKeepsLastLines(t *testing.T) {
	b := binding.NewString()
	panel := newLogPanel(b, 2)
	_, _ = panel.Write([]byte("one\r\ntwo\n"))
	_, _ = panel.Write([]byte("thr"))
	if got, _ := b.Get(); got != "one\ntwo" {
		t.Errorf("partial line must wait for its newline, got %q", got)
	}
	_, _ = panel.Write([]byte("ee\n"))
	if got, _ := b.Get(); got != "two\nthree" {
		t.Errorf("unexpected panel text %q", got)
	}
}
