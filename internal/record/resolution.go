package record

import (
	"errors"
	"fmt"

	"github.com/pfrederiksen/haunted-dates/internal/dates"
)

// Source identifies which stage produced a Resolution. The set is closed.
type Source uint8

const (
	SourceNotFound Source = iota
	SourceDescription
	SourceKnowledgeBase
	SourceWebSearch
	SourceSkipped
)

// LabelDefault marks rows whose date was backfilled with the sentinel.
const LabelDefault = "default"

// Sources lists every Source value.
var Sources = []Source{SourceDescription, SourceKnowledgeBase, SourceWebSearch, SourceSkipped, SourceNotFound}

func (s Source) String() string {
	switch s {
	case SourceDescription:
		return "description"
	case SourceKnowledgeBase:
		return "wikipedia"
	case SourceWebSearch:
		return "google"
	case SourceSkipped:
		return "skipped"
	case SourceNotFound:
		return "not found"
	}
	return fmt.Sprintf("Source(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	if s > SourceSkipped {
		return nil, fmt.Errorf("unknown source %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(b []byte) error {
	for _, candidate := range Sources {
		if candidate.String() == string(b) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown source %q", string(b))
}

// Confidence is a coarse trust label attached to a Resolution.
type Confidence uint8

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

// Confidences lists every Confidence value, highest first.
var Confidences = []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow}

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	}
	return fmt.Sprintf("Confidence(%d)", uint8(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Confidence) MarshalText() ([]byte, error) {
	if c > ConfidenceHigh {
		return nil, fmt.Errorf("unknown confidence %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Confidence) UnmarshalText(b []byte) error {
	for _, candidate := range Confidences {
		if candidate.String() == string(b) {
			*c = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown confidence %q", string(b))
}

// Resolution is the outcome of resolving one Record.
type Resolution struct {
	Date       *dates.Date `json:"date"`
	Source     Source      `json:"source"`
	Confidence Confidence  `json:"confidence"`
}

var (
	ErrDatedLowConfidence = errors.New("dated resolution must have high or medium confidence")
	ErrUndatedConfidence  = errors.New("undated resolution must have low confidence")
	ErrUndatedSource      = errors.New("undated resolution must be skipped or not found")
)

// Resolved builds a dated Resolution.
func Resolved(d dates.Date, source Source, confidence Confidence) Resolution {
	return Resolution{Date: datePtr(d), Source: source, Confidence: confidence}
}

// NotFound is the terminal outcome when every resolver failed.
func NotFound() Resolution {
	return Resolution{Source: SourceNotFound, Confidence: ConfidenceLow}
}

// Skipped marks a record that was deliberately not resolved.
func Skipped() Resolution {
	return Resolution{Source: SourceSkipped, Confidence: ConfidenceLow}
}

// Validate checks the date/confidence invariant.
func (r Resolution) Validate() error {
	if r.Date != nil {
		if r.Confidence == ConfidenceLow {
			return ErrDatedLowConfidence
		}
		if r.Source == SourceNotFound || r.Source == SourceSkipped {
			return fmt.Errorf("dated resolution with source %q", r.Source)
		}
		return nil
	}
	if r.Confidence != ConfidenceLow {
		return ErrUndatedConfidence
	}
	if r.Source != SourceNotFound && r.Source != SourceSkipped {
		return ErrUndatedSource
	}
	return nil
}
