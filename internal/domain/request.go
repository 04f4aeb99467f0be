package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultKeyColumn is the header of the m/z column in the fragment sheets.
const DefaultKeyColumn = "m/z"

// Interval is a closed m/z range [Low, High]. Build it with NewInterval so Low < High holds.
type Interval struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// NewInterval validates the bounds and returns the interval.
func NewInterval(low, high float64) (Interval, error) {
	if math.IsNaN(low) || math.IsNaN(high) || math.IsInf(low, 0) || math.IsInf(high, 0) {
		return Interval{}, &RangeError{Low: low, High: high}
	}
	if low >= high {
		return Interval{}, &RangeError{Low: low, High: high}
	}
	return Interval{Low: low, High: high}, nil
}

// Contains reports whether v lies in the interval, both bounds included.
func (iv Interval) Contains(v float64) bool {
	return v >= iv.Low && v <= iv.High
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s-%s",
		strconv.FormatFloat(iv.Low, 'f', -1, 64),
		strconv.FormatFloat(iv.High, 'f', -1, 64))
}

// ParseInterval parses "low-high", "low:high" or "low,high".
func ParseInterval(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	lowStr, highStr, ok := splitBounds(s)
	if !ok {
		return Interval{}, fmt.Errorf("%w: cannot parse %q, expected low-high", ErrInvalidRange, s)
	}
	low, err := strconv.ParseFloat(strings.TrimSpace(lowStr), 64)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: bad lower bound in %q", ErrInvalidRange, s)
	}
	high, err := strconv.ParseFloat(strings.TrimSpace(highStr), 64)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: bad upper bound in %q", ErrInvalidRange, s)
	}
	return NewInterval(low, high)
}

func splitBounds(s string) (string, string, bool) {
	for _, sep := range []string{":", ","} {
		if i := strings.Index(s, sep); i >= 0 {
			return s[:i], s[i+1:], true
		}
	}
	// '-' doubles as the sign of a number and an exponent, so skip those positions.
	for i := 1; i < len(s); i++ {
		if s[i] != '-' {
			continue
		}
		prev := s[i-1]
		if prev == 'e' || prev == 'E' || prev == '-' {
			continue
		}
		return s[:i], s[i+1:], true
	}
	return "", "", false
}

// RangeList is an immutable list of validated intervals. Callers accumulate
// ranges with With/Add and hand the final list to an ExtractionRequest.
type RangeList []Interval

func (l RangeList) With(iv Interval) RangeList {
	out := make(RangeList, len(l), len(l)+1)
	copy(out, l)
	return append(out, iv)
}

// Add validates the bounds and returns a new list containing the interval.
func (l RangeList) Add(low, high float64) (RangeList, error) {
	iv, err := NewInterval(low, high)
	if err != nil {
		return l, err
	}
	return l.With(iv), nil
}

// ParseRangeList parses every entry with ParseInterval.
func ParseRangeList(values []string) (RangeList, error) {
	var out RangeList
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		iv, err := ParseInterval(v)
		if err != nil {
			return nil, err
		}
		out = out.With(iv)
	}
	return out, nil
}

// ExtractionRequest is the finalized input of one extraction call.
type ExtractionRequest struct {
	KeyColumn   string     `json:"key_column"`
	ValueColumn string     `json:"value_column"`
	SheetNames  []string   `json:"sheet_names"`
	Ranges      []Interval `json:"ranges"`
}

// NewExtractionRequest builds a request, collapsing duplicate sheet names.
// Intervals are expected to come from NewInterval and are not re-checked.
func NewExtractionRequest(keyColumn, valueColumn string, sheets []string, ranges []Interval) (ExtractionRequest, error) {
	seen := make(map[string]bool, len(sheets))
	var names []string
	for _, s := range sheets {
		if seen[s] {
			continue
		}
		seen[s] = true
		names = append(names, s)
	}
	rs := make([]Interval, len(ranges))
	copy(rs, ranges)

	req := ExtractionRequest{
		KeyColumn:   keyColumn,
		ValueColumn: valueColumn,
		SheetNames:  names,
		Ranges:      rs,
	}
	if err := req.Validate(); err != nil {
		return ExtractionRequest{}, err
	}
	return req, nil
}

// Validate checks the structural requirements of the request.
func (r ExtractionRequest) Validate() error {
	if r.KeyColumn == "" {
		return invalidRequest("key column is required")
	}
	if r.ValueColumn == "" {
		return invalidRequest("value column is required")
	}
	if len(r.SheetNames) == 0 {
		return invalidRequest("select at least one sheet")
	}
	if len(r.Ranges) == 0 {
		return invalidRequest("add at least one m/z range")
	}
	return nil
}

// OutputColumn is the label of the value column extracted from sheet.
func (r ExtractionRequest) OutputColumn(sheet string) string {
	return r.ValueColumn + "_" + sheet
}
