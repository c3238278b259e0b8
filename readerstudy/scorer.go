package readerstudy

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrUnsupportedScorer is returned for scorers exposing neither a value nor a selection.
	ErrUnsupportedScorer = errors.New("scorer has no value or selection accessor")
	// ErrScoreKind is returned when a stored score cannot be applied to a scorer.
	ErrScoreKind = errors.New("score does not fit scorer")
)

// Scorer is an input recording one category of judgement. Usable scorers implement
// ValueScorer or SelectionScorer; GetScore and SetScore reject anything else.
type Scorer interface{}

// ValueScorer is a scorer with a numeric current value (sliders, checks).
type ValueScorer interface {
	ScoreValue() float64
	SetScoreValue(v float64)
}

// SelectionScorer is a scorer with a current selection (radio groups, selects).
// SetScoreSelection rejects values outside the scorer's options and leaves the
// current selection untouched.
type SelectionScorer interface {
	ScoreSelection() string
	SetScoreSelection(v string) error
}

// GetScore reads the current value of a scorer.
func GetScore(s Scorer) (Score, error) {
	switch v := s.(type) {
	case ValueScorer:
		return NumberScore(v.ScoreValue()), nil
	case SelectionScorer:
		return ChoiceScore(v.ScoreSelection()), nil
	default:
		return Score{}, fmt.Errorf("%w: %T", ErrUnsupportedScorer, s)
	}
}

// SetScore pushes a stored value into a scorer.
func SetScore(s Scorer, score Score) error {
	switch v := s.(type) {
	case ValueScorer:
		if !score.IsChoice {
			v.SetScoreValue(score.Number)
			return nil
		}
		n, err := strconv.ParseFloat(score.Choice, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not numeric", ErrScoreKind, score.Choice)
		}
		v.SetScoreValue(n)
		return nil
	case SelectionScorer:
		if err := v.SetScoreSelection(score.String()); err != nil {
			return fmt.Errorf("%w: %v", ErrScoreKind, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedScorer, s)
	}
}
