package readerstudy

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrAmbiguousLabel is returned when more than one label row matches an identity, method and category.
var ErrAmbiguousLabel = errors.New("multiple label values")

// LabelTable stores per-example, per-method scores. Rows keep insertion order and
// categories keep the order in which they were first seen.
type LabelTable struct {
	mu         sync.RWMutex
	rows       []LabelRow
	categories []string
	listeners  []func()
}

// NewLabelTable returns a table holding copies of rows.
func NewLabelTable(rows ...LabelRow) *LabelTable {
	t := &LabelTable{}
	t.appendLocked(rows)
	return t
}

// NewDummyLabelTable builds a table with a single placeholder row so the category
// columns exist before any example has been scored.
func NewDummyLabelTable(defaults map[string]Score, order []string) *LabelTable {
	row := LabelRow{ImageID: DummyImageID, Method: DummyImageID, Scores: make(map[string]Score, len(defaults))}
	for k, v := range defaults {
		row.Scores[k] = v
	}
	t := &LabelTable{categories: append([]string(nil), order...)}
	t.appendLocked([]LabelRow{row})
	return t
}

// OnChange registers fn to be called after every mutation.
func (t *LabelTable) OnChange(fn func()) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

// Len returns the number of rows, placeholder included.
func (t *LabelTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Categories returns the ordered union of category names.
func (t *LabelTable) Categories() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.categories...)
}

// Rows returns a copy of all rows.
func (t *LabelTable) Rows() []LabelRow {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]LabelRow, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Clone()
	}
	return out
}

// Has reports whether any row exists for imageID.
func (t *LabelTable) Has(imageID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.rows {
		if r.ImageID == imageID {
			return true
		}
	}
	return false
}

// RowsFor returns copies of the rows recorded for imageID.
func (t *LabelTable) RowsFor(imageID string) []LabelRow {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []LabelRow
	for _, r := range t.rows {
		if r.ImageID == imageID {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Lookup finds the value of category for (imageID, method). The boolean is false when
// no row carries the category; more than one matching row is an error.
func (t *LabelTable) Lookup(imageID, method, category string) (Score, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var (
		found Score
		n     int
	)
	for _, r := range t.rows {
		if r.ImageID != imageID || r.Method != method {
			continue
		}
		v, ok := r.Scores[category]
		if !ok {
			continue
		}
		found = v
		n++
	}
	if n > 1 {
		return Score{}, false, fmt.Errorf("%w for %s (image %s, method %s): %d rows", ErrAmbiguousLabel, category, imageID, method, n)
	}
	return found, n == 1, nil
}

// Append adds rows to the end of the table.
func (t *LabelTable) Append(rows ...LabelRow) {
	t.mu.Lock()
	t.appendLocked(rows)
	listeners := t.listeners
	t.mu.Unlock()
	notify(listeners)
}

// Replace removes every row of imageID and appends rows as a single update.
func (t *LabelTable) Replace(imageID string, rows []LabelRow) {
	t.mu.Lock()
	kept := t.rows[:0:0]
	for _, r := range t.rows {
		if r.ImageID != imageID {
			kept = append(kept, r)
		}
	}
	t.rows = kept
	t.appendLocked(rows)
	listeners := t.listeners
	t.mu.Unlock()
	notify(listeners)
}

// Merge replaces the rows of every image present in src with src's rows, skipping the
// placeholder row, and returns the number of images merged.
func (t *LabelTable) Merge(src *LabelTable) int {
	incoming := exportRows(src.Rows())
	ids := make(map[string]struct{}, len(incoming))
	for _, r := range incoming {
		ids[r.ImageID] = struct{}{}
	}
	if len(ids) == 0 {
		return 0
	}
	t.mu.Lock()
	kept := t.rows[:0:0]
	for _, r := range t.rows {
		if _, drop := ids[r.ImageID]; !drop {
			kept = append(kept, r)
		}
	}
	t.rows = kept
	t.appendLocked(incoming)
	listeners := t.listeners
	t.mu.Unlock()
	notify(listeners)
	return len(ids)
}

func (t *LabelTable) appendLocked(rows []LabelRow) {
	for _, r := range rows {
		c := r.Clone()
		t.rows = append(t.rows, c)
		var added []string
		for name := range c.Scores {
			if !containsString(t.categories, name) {
				added = append(added, name)
			}
		}
		sort.Strings(added)
		t.categories = append(t.categories, added...)
	}
}

func notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
