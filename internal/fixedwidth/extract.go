// Package fixedwidth implements the typed fixed-position field codec used for
// partner file exchange: extraction of typed values from 1-indexed character
// ranges of a line, and generation of fixed-width records from a layout.
//
// Extraction is deliberately forgiving. Partner files carry blank fields,
// short lines and junk data as a matter of course, so every Extract function
// reports absent/invalid input through a Valid flag instead of an error.
// What to do about missing data is the caller's decision.
package fixedwidth

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Range is a 1-indexed inclusive character range within a line. Ranges may
// run past the end of the line; the missing characters are treated as absent.
type Range struct {
	First int
	Last  int
}

// NewRange builds a Range. First and Last are 1-indexed and inclusive,
// matching how partner layout documents describe field positions.
func NewRange(first, last int) Range {
	return Range{First: first, Last: last}
}

// NullInt is an int64 that may be absent.
type NullInt struct {
	Int64 int64
	Valid bool
}

// NullDecimal is a decimal that may be absent.
type NullDecimal struct {
	Decimal decimal.Decimal
	Valid   bool
}

// NullTime is a time that may be absent.
type NullTime struct {
	Time  time.Time
	Valid bool
}

// NullBool is a bool that may be absent. Absent is a third state distinct
// from false; see ExtractBoolean.
type NullBool struct {
	Bool  bool
	Valid bool
}

// RoundingMode selects how ExtractDecimal rescales parsed values.
type RoundingMode string

const (
	RoundHalfUp   RoundingMode = "half_up" // ties round away from zero
	RoundHalfEven RoundingMode = "half_even"
	RoundUp       RoundingMode = "up"
	RoundDown     RoundingMode = "down"
	RoundCeiling  RoundingMode = "ceiling"
	RoundFloor    RoundingMode = "floor"
)

// slice returns the raw characters of line covered by r, clipped to the line
// length. A range entirely past the end of the line yields "".
func slice(line string, r Range) string {
	if r.First < 1 || r.Last < r.First {
		return ""
	}
	runes := []rune(line)
	if r.First > len(runes) {
		return ""
	}
	last := r.Last
	if last > len(runes) {
		last = len(runes)
	}
	return string(runes[r.First-1 : last])
}

// ExtractString returns the substring covered by r with surrounding
// whitespace removed.
func ExtractString(line string, r Range) string {
	return strings.TrimSpace(slice(line, r))
}

// ExtractStringRaw returns the substring covered by r without trimming.
func ExtractStringRaw(line string, r Range) string {
	return slice(line, r)
}

// ExtractInteger parses the trimmed substring as a base-10 integer. Leading
// zeros are ignored. Blank or non-numeric input is absent, never an error.
func ExtractInteger(line string, r Range) NullInt {
	s := ExtractString(line, r)
	if s == "" {
		return NullInt{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return NullInt{}
	}
	return NullInt{Int64: n, Valid: true}
}

// ExtractDecimal parses the trimmed substring as a decimal number and
// rescales it to places using mode.
func ExtractDecimal(line string, r Range, places int32, mode RoundingMode) NullDecimal {
	s := ExtractString(line, r)
	if s == "" {
		return NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return NullDecimal{}
	}
	return NullDecimal{Decimal: round(d, places, mode), Valid: true}
}

// ExtractImpliedDecimal parses the substring as an integer magnitude with no
// explicit decimal point and divides by 10^places to recover the fraction:
// digits "12345" with places 2 yield 123.45.
func ExtractImpliedDecimal(line string, r Range, places int32) NullDecimal {
	s := ExtractString(line, r)
	if s == "" {
		return NullDecimal{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return NullDecimal{}
	}
	return NullDecimal{Decimal: decimal.New(n, -places), Valid: true}
}

// DefaultDateFormat is the digit-run layout partners use for dates.
const DefaultDateFormat = "20060102"

// DefaultDateTimeFormat is the digit-run layout partners use for timestamps
// (down to the minute).
const DefaultDateTimeFormat = "200601021504"

// ExtractDate parses the trimmed substring using the given Go layout.
// Any parse failure is absent, never an error.
func ExtractDate(line string, r Range, layout string) NullTime {
	if layout == "" {
		layout = DefaultDateFormat
	}
	s := ExtractString(line, r)
	if s == "" {
		return NullTime{}
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return NullTime{}
	}
	return NullTime{Time: t, Valid: true}
}

// ExtractDateTime parses the trimmed substring using the given Go layout,
// localized to loc (UTC when nil).
func ExtractDateTime(line string, r Range, layout string, loc *time.Location) NullTime {
	if layout == "" {
		layout = DefaultDateTimeFormat
	}
	if loc == nil {
		loc = time.UTC
	}
	s := ExtractString(line, r)
	if s == "" {
		return NullTime{}
	}
	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return NullTime{}
	}
	return NullTime{Time: t, Valid: true}
}

// BooleanOptions configures ExtractBoolean.
type BooleanOptions struct {
	TruthyValues    []string
	Upcase          bool
	BlankReturnsNil bool
}

// DefaultBooleanOptions returns the partner-file convention: Y/YES/1/TRUE/T
// are true, comparison is upcased, and blank means false.
func DefaultBooleanOptions() BooleanOptions {
	return BooleanOptions{
		TruthyValues: []string{"Y", "YES", "1", "TRUE", "T"},
		Upcase:       true,
	}
}

// ExtractBoolean trims the substring and reports whether it is one of the
// truthy values. Blank input is false unless BlankReturnsNil is set, in which
// case it is absent.
func ExtractBoolean(line string, r Range, opts BooleanOptions) NullBool {
	s := ExtractString(line, r)
	if s == "" {
		if opts.BlankReturnsNil {
			return NullBool{}
		}
		return NullBool{Bool: false, Valid: true}
	}
	if opts.Upcase {
		s = strings.ToUpper(s)
	}
	for _, truthy := range opts.TruthyValues {
		if s == truthy {
			return NullBool{Bool: true, Valid: true}
		}
	}
	return NullBool{Bool: false, Valid: true}
}

func round(d decimal.Decimal, places int32, mode RoundingMode) decimal.Decimal {
	switch mode {
	case RoundHalfEven:
		return d.RoundBank(places)
	case RoundUp:
		return d.RoundUp(places)
	case RoundDown:
		return d.RoundDown(places)
	case RoundCeiling:
		return d.RoundCeil(places)
	case RoundFloor:
		return d.RoundFloor(places)
	default:
		// shopspring Round is half away from zero, the half-up convention
		// partner specs mean.
		return d.Round(places)
	}
}
