package readerstudy

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// SessionOptions tunes a Session.
type SessionOptions struct {
	// NCols is the number of panel columns in the layout. Zero means one per display column.
	NCols  int
	Logger *log.Logger
}

// Session is the reader-study state machine: a cursor over the image table, one scorer set
// per display column and the label table the scores are written to.
type Session struct {
	images   ImageTable
	columns  []string
	scorers  map[string][]Category
	defaults []LabelRow
	labels   *LabelTable
	ncols    int

	mu          sync.RWMutex
	row         int
	subscribers []func(row int)

	logger *log.Logger
}

// NewSession validates the inputs, builds the scorers of every column once and captures
// their initial values as defaults. A nil labels table gets a placeholder row.
func NewSession(images ImageTable, columns []string, factory ScorerFactory, labels *LabelTable, opts SessionOptions) (*Session, error) {
	if images == nil {
		return nil, errors.New("image table is required")
	}
	if images.Len() == 0 {
		return nil, ErrEmptyTable
	}
	if factory == nil {
		return nil, errors.New("scorer factory is required")
	}
	if len(columns) == 0 {
		return nil, errors.New("at least one display column is required")
	}
	s := &Session{
		images:  images,
		columns: append([]string(nil), columns...),
		scorers: make(map[string][]Category, len(columns)),
		ncols:   opts.NCols,
		logger:  opts.Logger,
	}
	if s.ncols <= 0 {
		s.ncols = len(columns)
	}
	for _, column := range s.columns {
		if !images.HasColumn(column) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
		}
		if _, dup := s.scorers[column]; dup {
			return nil, fmt.Errorf("duplicate display column %q", column)
		}
		cats, err := factory(column)
		if err != nil {
			return nil, fmt.Errorf("build scorers for %s: %w", column, err)
		}
		if len(cats) == 0 {
			return nil, fmt.Errorf("no scorers for %s", column)
		}
		s.scorers[column] = cats
	}
	defaults, err := s.currentScores()
	if err != nil {
		return nil, err
	}
	s.defaults = defaults
	if labels == nil {
		first := defaults[0]
		labels = NewDummyLabelTable(first.Scores, s.categoryNames(s.columns[0]))
	}
	s.labels = labels
	return s, nil
}

// Columns returns the display columns.
func (s *Session) Columns() []string { return append([]string(nil), s.columns...) }

// Scorers returns the scorer set of column.
func (s *Session) Scorers(column string) []Category { return s.scorers[column] }

// NCols is the number of panel columns of the layout.
func (s *Session) NCols() int { return s.ncols }

// Labels returns the label table the session writes to.
func (s *Session) Labels() *LabelTable { return s.labels }

// Images returns the image table under review.
func (s *Session) Images() ImageTable { return s.images }

// Len is the number of examples.
func (s *Session) Len() int { return s.images.Len() }

// Row returns the cursor.
func (s *Session) Row() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.row
}

// CurrentID is the primary key of the example under the cursor.
func (s *Session) CurrentID() string {
	return s.images.PrimaryKey(s.Row())
}

// Visible returns the half-open row window shown by the galleries.
func (s *Session) Visible() (start, end int) {
	row := s.Row()
	return row, row + 1
}

// ExampleLabel renders the 1-based position, e.g. "Example 3/10".
func (s *Session) ExampleLabel() string {
	return fmt.Sprintf("Example %d/%d", s.Row()+1, s.Len())
}

// Subscribe registers fn to be called with the new cursor after every move.
func (s *Session) Subscribe(fn func(row int)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Previous saves the current example, moves back one row (not below zero) and loads it.
func (s *Session) Previous() error {
	if err := s.Save(); err != nil {
		return err
	}
	s.moveTo(s.Row() - 1)
	return s.Load()
}

// Next saves the current example, moves forward one row (not past the end) and loads it.
func (s *Session) Next() error {
	if err := s.Save(); err != nil {
		return err
	}
	s.moveTo(s.Row() + 1)
	return s.Load()
}

// Save writes the scorer values of every column for the current example, replacing any
// rows previously stored for it.
func (s *Session) Save() error {
	id := s.CurrentID()
	rows, err := s.currentScores()
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].ImageID = id
	}
	s.labels.Replace(id, rows)
	s.logf("saved %d label rows for %s", len(rows), id)
	return nil
}

// Load pushes the stored values of the current example into the scorers. Examples
// without rows are seeded with the default scores first.
func (s *Session) Load() error {
	id := s.CurrentID()
	if !s.labels.Has(id) {
		seed := make([]LabelRow, len(s.defaults))
		for i, d := range s.defaults {
			seed[i] = d.Clone()
			seed[i].ImageID = id
		}
		s.labels.Append(seed...)
		s.logf("seeded default labels for %s", id)
	}
	for i, column := range s.columns {
		for _, cat := range s.scorers[column] {
			v, ok, err := s.labels.Lookup(id, column, cat.Name)
			if err != nil {
				return err
			}
			if !ok {
				v = s.defaults[i].Scores[cat.Name]
			}
			if err := SetScore(cat.Scorer, v); err != nil {
				return fmt.Errorf("set %s/%s: %w", column, cat.Name, err)
			}
		}
	}
	return nil
}

func (s *Session) moveTo(row int) {
	if row < 0 {
		row = 0
	}
	if last := s.images.Len() - 1; row > last {
		row = last
	}
	s.mu.Lock()
	changed := row != s.row
	s.row = row
	subs := s.subscribers
	s.mu.Unlock()
	if !changed {
		return
	}
	for _, fn := range subs {
		fn(row)
	}
}

func (s *Session) currentScores() ([]LabelRow, error) {
	rows := make([]LabelRow, 0, len(s.columns))
	for _, column := range s.columns {
		cats := s.scorers[column]
		row := LabelRow{Method: column, Scores: make(map[string]Score, len(cats))}
		for _, cat := range cats {
			v, err := GetScore(cat.Scorer)
			if err != nil {
				return nil, fmt.Errorf("read %s/%s: %w", column, cat.Name, err)
			}
			row.Scores[cat.Name] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Session) categoryNames(column string) []string {
	cats := s.scorers[column]
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Name
	}
	return out
}

func (s *Session) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
