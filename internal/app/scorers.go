package app

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/readerstudy/readerstudy"
)

// scorerWidget is a scorer that can be placed in a panel.
type scorerWidget interface {
	Widget() fyne.CanvasObject
}

type sliderScorer struct {
	slider *widget.Slider
	value  *widget.Label
}

func newSliderScorer(cfg readerstudy.CategoryConfig) *sliderScorer {
	s := &sliderScorer{
		slider: widget.NewSlider(cfg.Min, cfg.Max),
		value:  widget.NewLabel(""),
	}
	s.slider.Step = cfg.Step
	s.slider.OnChanged = func(v float64) { s.value.SetText(formatValue(v)) }
	s.value.SetText(formatValue(s.slider.Value))
	return s
}

func (s *sliderScorer) ScoreValue() float64 { return s.slider.Value }

func (s *sliderScorer) SetScoreValue(v float64) {
	s.slider.SetValue(v)
	s.value.SetText(formatValue(s.slider.Value))
}

func (s *sliderScorer) Widget() fyne.CanvasObject {
	return container.NewBorder(nil, nil, nil, s.value, s.slider)
}

type checkScorer struct {
	check *widget.Check
}

func (s *checkScorer) ScoreValue() float64 {
	if s.check.Checked {
		return 1
	}
	return 0
}

func (s *checkScorer) SetScoreValue(v float64) { s.check.SetChecked(v != 0) }

func (s *checkScorer) Widget() fyne.CanvasObject { return s.check }

type radioScorer struct {
	radio *widget.RadioGroup
}

func (s *radioScorer) ScoreSelection() string { return s.radio.Selected }

func (s *radioScorer) SetScoreSelection(v string) error {
	if err := checkOption(s.radio.Options, v); err != nil {
		return err
	}
	s.radio.SetSelected(v)
	return nil
}

func (s *radioScorer) Widget() fyne.CanvasObject { return s.radio }

type selectScorer struct {
	sel *widget.Select
}

func (s *selectScorer) ScoreSelection() string { return s.sel.Selected }

func (s *selectScorer) SetScoreSelection(v string) error {
	if err := checkOption(s.sel.Options, v); err != nil {
		return err
	}
	if v == "" {
		s.sel.ClearSelected()
		return nil
	}
	s.sel.SetSelected(v)
	return nil
}

// checkOption accepts one of options or the empty selection.
func checkOption(options []string, v string) error {
	if v == "" || slices.Contains(options, v) {
		return nil
	}
	return fmt.Errorf("%q is not one of %s", v, strings.Join(options, ", "))
}

func (s *selectScorer) Widget() fyne.CanvasObject { return s.sel }

// newScorer builds the widget for one category and sets its default.
func newScorer(cfg readerstudy.CategoryConfig) (readerstudy.Scorer, error) {
	switch cfg.Kind {
	case readerstudy.KindSlider:
		s := newSliderScorer(cfg)
		v := cfg.Min
		if cfg.Default != "" {
			n, err := strconv.ParseFloat(strings.TrimSpace(cfg.Default), 64)
			if err != nil {
				return nil, fmt.Errorf("category %s: default %q is not a number", cfg.Name, cfg.Default)
			}
			v = n
		}
		s.SetScoreValue(v)
		return s, nil
	case readerstudy.KindCheck:
		s := &checkScorer{check: widget.NewCheck("", nil)}
		if cfg.Default != "" {
			on, err := parseCheckDefault(cfg.Default)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cfg.Name, err)
			}
			s.check.SetChecked(on)
		}
		return s, nil
	case readerstudy.KindRadio:
		s := &radioScorer{radio: widget.NewRadioGroup(append([]string(nil), cfg.Options...), nil)}
		s.radio.Horizontal = true
		if err := s.SetScoreSelection(cfg.Default); err != nil {
			return nil, fmt.Errorf("category %s: default %w", cfg.Name, err)
		}
		return s, nil
	case readerstudy.KindSelect:
		s := &selectScorer{sel: widget.NewSelect(append([]string(nil), cfg.Options...), nil)}
		if err := s.SetScoreSelection(cfg.Default); err != nil {
			return nil, fmt.Errorf("category %s: default %w", cfg.Name, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("category %s: unknown scorer kind %q", cfg.Name, cfg.Kind)
	}
}

// newScorerFactory returns a factory building a fresh widget per category for every column.
func newScorerFactory(categories []readerstudy.CategoryConfig) readerstudy.ScorerFactory {
	return func(column string) ([]readerstudy.Category, error) {
		out := make([]readerstudy.Category, 0, len(categories))
		for _, c := range categories {
			s, err := newScorer(c)
			if err != nil {
				return nil, err
			}
			out = append(out, readerstudy.Category{Name: c.Name, Scorer: s})
		}
		return out, nil
	}
}

func parseCheckDefault(v string) (bool, error) {
	v = strings.TrimSpace(v)
	if b, err := strconv.ParseBool(v); err == nil {
		return b, nil
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n != 0, nil
	}
	return false, fmt.Errorf("default %q is not a boolean", v)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
