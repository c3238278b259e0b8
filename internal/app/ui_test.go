package app

import (
	"bytes"
	"image"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"fyne.io/fyne/v2/test"

	"yashubustudio/readerstudy/readerstudy"
)

func grayFunc(size int) readerstudy.ImageFunc {
	return func() (image.Image, error) {
		return image.NewGray(image.Rect(0, 0, size, size)), nil
	}
}

func studyConfig(labelsPath string) readerstudy.Config {
	cfg := readerstudy.Config{
		Columns:    []string{"zf", "net"},
		LabelsPath: labelsPath,
		Categories: []readerstudy.CategoryConfig{
			{Name: "quality", Kind: readerstudy.KindSlider, Min: 0, Max: 5, Step: 1},
			{Name: "artifact", Kind: readerstudy.KindRadio, Options: []string{"none", "mild", "severe"}},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// newTestUI builds a view over three examples whose images are (row+1) pixels wide.
func newTestUI(t *testing.T, cfg readerstudy.Config, labels *readerstudy.LabelTable, logger *log.Logger) *uiState {
	t.Helper()
	a := test.NewApp()
	table := readerstudy.NewMemoryTable("zf", "net")
	for i, id := range []string{"a", "b", "c"} {
		table.AddRow(id, map[string]readerstudy.ImageFunc{"zf": grayFunc(i + 1), "net": grayFunc(i + 1)})
	}
	sess, err := readerstudy.NewSession(table, cfg.Columns, newScorerFactory(cfg.Categories), labels, readerstudy.SessionOptions{Logger: logger})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	u := buildUI(a, sess, cfg, logger, nil)
	u.do = func(fn func()) { fn() }
	u.load = func(fn func()) { fn() }
	u.start()
	return u
}

func quality(u *uiState, column string) *sliderScorer {
	return u.session.Scorers(column)[0].Scorer.(*sliderScorer)
}

func exampleText(t *testing.T, u *uiState) string {
	t.Helper()
	v, err := u.exampleBind.Get()
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestNavigationSavesAndRestoresScores(t *testing.T) {
	u := newTestUI(t, studyConfig(""), nil, nil)

	if got := exampleText(t, u); got != "Example 1/3" {
		t.Fatalf("unexpected label %q", got)
	}
	if !u.prevBtn.Disabled() || u.nextBtn.Disabled() {
		t.Errorf("expected only next to be enabled on the first example")
	}
	if u.galleries["zf"].Image == nil || u.galleries["net"].Image == nil {
		t.Fatalf("galleries were not filled")
	}

	quality(u, "zf").SetScoreValue(4)
	quality(u, "net").SetScoreValue(2)
	test.Tap(u.nextBtn)

	if got := exampleText(t, u); got != "Example 2/3" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := u.galleries["zf"].Image.Bounds().Dx(); got != 2 {
		t.Errorf("expected gallery of row 1, got width %d", got)
	}
	if got := quality(u, "zf").ScoreValue(); got != 0 {
		t.Errorf("new example must start from the default, got %v", got)
	}

	test.Tap(u.prevBtn)
	if got := quality(u, "zf").ScoreValue(); got != 4 {
		t.Errorf("zf score not restored: %v", got)
	}
	if got := quality(u, "net").ScoreValue(); got != 2 {
		t.Errorf("net score not restored: %v", got)
	}
	if got := len(u.session.Labels().RowsFor("a")); got != 2 {
		t.Errorf("expected one row per method for a, got %d", got)
	}
}

func TestStaleImageLoadsAreDropped(t *testing.T) {
	u := newTestUI(t, studyConfig(""), nil, nil)
	var queued []func()
	u.load = func(fn func()) { queued = append(queued, fn) }

	test.Tap(u.nextBtn)
	test.Tap(u.nextBtn)
	for i := len(queued) - 1; i >= 0; i-- {
		queued[i]()
	}
	if got := u.galleries["zf"].Image.Bounds().Dx(); got != 3 {
		t.Errorf("expected the latest row's image, got width %d", got)
	}
	if !u.nextBtn.Disabled() {
		t.Errorf("next must be disabled on the last example")
	}
}

func TestExportImportAndAutosave(t *testing.T) {
	dir := t.TempDir()
	labelsPath := filepath.Join(dir, "labels.csv")
	u := newTestUI(t, studyConfig(labelsPath), nil, nil)

	quality(u, "zf").SetScoreValue(5)
	if err := u.persist(); err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	saved, err := readerstudy.ReadLabels(labelsPath)
	if err != nil {
		t.Fatalf("ReadLabels failed: %v", err)
	}
	if v, ok, _ := saved.Lookup("a", "zf", "quality"); !ok || v.Number != 5 {
		t.Errorf("expected saved score 5, got %v ok=%v", v, ok)
	}
	if saved.Has(readerstudy.DummyImageID) {
		t.Errorf("placeholder row must not be exported")
	}

	importPath := filepath.Join(dir, "import.parquet")
	imported := readerstudy.NewLabelTable(readerstudy.LabelRow{
		ImageID: "b",
		Method:  "zf",
		Scores:  map[string]readerstudy.Score{"quality": readerstudy.NumberScore(3), "artifact": readerstudy.ChoiceScore("mild")},
	})
	if err := readerstudy.WriteLabels(importPath, imported); err != nil {
		t.Fatal(err)
	}
	if err := u.importLabels(importPath); err != nil {
		t.Fatalf("importLabels failed: %v", err)
	}
	test.Tap(u.nextBtn)
	if got := quality(u, "zf").ScoreValue(); got != 3 {
		t.Errorf("imported score not loaded: %v", got)
	}
	if got := u.session.Scorers("zf")[1].Scorer.(*radioScorer).ScoreSelection(); got != "mild" {
		t.Errorf("imported choice not loaded: %q", got)
	}
}

func TestPersistWithoutLabelsPathIsNoop(t *testing.T) {
	u := newTestUI(t, studyConfig(""), nil, nil)
	quality(u, "zf").SetScoreValue(5)
	if err := u.persist(); err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	if v, ok, _ := u.session.Labels().Lookup("a", "zf", "quality"); !ok || v.Number != 0 {
		t.Errorf("persist without a labels path must not save, got %v ok=%v", v, ok)
	}
}

func TestAmbiguousLabelsAreReported(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	labels := readerstudy.NewLabelTable(
		readerstudy.LabelRow{ImageID: "a", Method: "zf", Scores: map[string]readerstudy.Score{"quality": readerstudy.NumberScore(1)}},
		readerstudy.LabelRow{ImageID: "a", Method: "zf", Scores: map[string]readerstudy.Score{"quality": readerstudy.NumberScore(2)}},
	)
	u := newTestUI(t, studyConfig(""), labels, logger)
	if !strings.Contains(buf.String(), "multiple label values") {
		t.Errorf("expected ambiguity to be reported, log: %q", buf.String())
	}
	status, _ := u.statusBind.Get()
	if status != "2 label rows" {
		t.Errorf("unexpected status %q", status)
	}
}
