package readerstudy

import (
	"strconv"
	"strings"
)

// DummyImageID tags the placeholder row of a label table created without prior labels.
const DummyImageID = "__dummy__"

// Score is one recorded judgement. Sliders and checks record a number,
// radio groups and selects record a choice.
type Score struct {
	Number   float64 `json:"number,omitempty"`
	Choice   string  `json:"choice,omitempty"`
	IsChoice bool    `json:"isChoice,omitempty"`
}

// NumberScore wraps a numeric judgement.
func NumberScore(v float64) Score {
	return Score{Number: v}
}

// ChoiceScore wraps a categorical judgement.
func ChoiceScore(v string) Score {
	return Score{Choice: v, IsChoice: true}
}

// ParseScore interprets text written by String. Anything that is not a number is a choice.
func ParseScore(text string) Score {
	text = strings.TrimSpace(text)
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return NumberScore(v)
	}
	return ChoiceScore(text)
}

func (s Score) String() string {
	if s.IsChoice {
		return s.Choice
	}
	return strconv.FormatFloat(s.Number, 'g', -1, 64)
}

// LabelRow holds the scores of one method (display column) for one example.
type LabelRow struct {
	ImageID string           `json:"imageId"`
	Method  string           `json:"method"`
	Scores  map[string]Score `json:"scores"`
}

// Clone copies the row so callers can mutate the score map safely.
func (r LabelRow) Clone() LabelRow {
	out := LabelRow{ImageID: r.ImageID, Method: r.Method, Scores: make(map[string]Score, len(r.Scores))}
	for k, v := range r.Scores {
		out.Scores[k] = v
	}
	return out
}

// Category pairs a scored category name with the widget that records it.
type Category struct {
	Name   string
	Scorer Scorer
}

// ScorerFactory builds the scorers for one display column. It is called once per column.
type ScorerFactory func(column string) ([]Category, error)
