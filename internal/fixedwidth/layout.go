package fixedwidth

import (
	"fmt"
)

// FieldKind identifies the typed rendering/extraction behavior of a field.
type FieldKind string

const (
	KindString         FieldKind = "string"
	KindInteger        FieldKind = "integer"
	KindDecimal        FieldKind = "decimal"
	KindImpliedDecimal FieldKind = "implied_decimal"
	KindDate           FieldKind = "date"
	KindDateTime       FieldKind = "datetime"
	KindBoolean        FieldKind = "boolean"
)

// FieldSpec describes one fixed-width field of a record layout.
type FieldSpec struct {
	Name   string
	Length int
	Kind   FieldKind

	// Format is the Go time layout for date/datetime fields, and the number
	// of decimal places (as "2") for decimal kinds when rendering.
	Format string

	// TariffCode reformats a digit run with the fixed dot grouping partners
	// expect for tariff-style codes (NNNN.NN.NNNN).
	TariffCode bool

	// CountryCode upcases the value and blanks it unless it is exactly two
	// alphabetic characters.
	CountryCode bool

	// BlankWhen names another field in the layout; when that field's value
	// is truthy this field is forced blank.
	BlankWhen string
}

// RecordLayout is an ordered sequence of field specs. The sum of the field
// lengths defines the total line width for generation.
type RecordLayout struct {
	Name   string
	Fields []FieldSpec
}

// TotalWidth returns the generated line width.
func (l RecordLayout) TotalWidth() int {
	width := 0
	for _, f := range l.Fields {
		width += f.Length
	}
	return width
}

// Ranges returns consecutive 1-indexed ranges for each field, matching the
// positions a generated line puts them at. Extraction is not limited to
// these ranges; arbitrary (even overlapping) ranges remain valid.
func (l RecordLayout) Ranges() []Range {
	ranges := make([]Range, 0, len(l.Fields))
	pos := 1
	for _, f := range l.Fields {
		ranges = append(ranges, NewRange(pos, pos+f.Length-1))
		pos += f.Length
	}
	return ranges
}

// RangeOf returns the range of the named field and whether it exists.
func (l RecordLayout) RangeOf(name string) (Range, bool) {
	for i, f := range l.Fields {
		if f.Name == name {
			return l.Ranges()[i], true
		}
	}
	return Range{}, false
}

// Validate checks the layout is usable for generation: positive lengths,
// unique names, and BlankWhen references that exist.
func (l RecordLayout) Validate() error {
	if len(l.Fields) == 0 {
		return fmt.Errorf("layout %q has no fields", l.Name)
	}
	seen := map[string]bool{}
	for _, f := range l.Fields {
		if f.Name == "" {
			return fmt.Errorf("layout %q has an unnamed field", l.Name)
		}
		if f.Length <= 0 {
			return fmt.Errorf("layout %q field %q has non-positive length %d", l.Name, f.Name, f.Length)
		}
		if seen[f.Name] {
			return fmt.Errorf("layout %q has duplicate field %q", l.Name, f.Name)
		}
		seen[f.Name] = true
	}
	for _, f := range l.Fields {
		if f.BlankWhen != "" && !seen[f.BlankWhen] {
			return fmt.Errorf("layout %q field %q references unknown field %q", l.Name, f.Name, f.BlankWhen)
		}
	}
	return nil
}
