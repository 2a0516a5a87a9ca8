package fixedwidth

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"partner-sync/internal/common/errors"
)

var (
	lineBreaks  = regexp.MustCompile(`[\r\n]+`)
	tariffDigit = regexp.MustCompile(`^\d{10}$`)
	twoLetters  = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

// Generate renders one fixed-width line from the ordered values. Each value
// is left-justified and space-padded to its field length; values longer than
// the field are truncated silently. Callers needing strict length validation
// must pre-check. A layout/value count mismatch is the only generation error.
func (l RecordLayout) Generate(values []interface{}) (string, error) {
	if len(values) != len(l.Fields) {
		return "", errors.NewLayoutMismatchError(
			fmt.Sprintf("layout %q has %d fields, got %d values", l.Name, len(l.Fields), len(values)))
	}

	rendered := make([]string, len(values))
	for i, f := range l.Fields {
		rendered[i] = sanitize(f, renderValue(f, values[i]))
	}

	// Conditional suppression runs after rendering so the controlling
	// field's truthiness is judged on what actually goes to the file.
	for i, f := range l.Fields {
		if f.BlankWhen == "" {
			continue
		}
		for j, other := range l.Fields {
			if other.Name == f.BlankWhen && isTruthy(rendered[j]) {
				rendered[i] = ""
			}
		}
	}

	var b strings.Builder
	b.Grow(l.TotalWidth())
	for i, f := range l.Fields {
		b.WriteString(pad(rendered[i], f.Length))
	}
	return b.String(), nil
}

// renderValue converts a raw value to its string form for the field.
func renderValue(f FieldSpec, v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		layout := f.Format
		if layout == "" {
			if f.Kind == KindDateTime {
				layout = DefaultDateTimeFormat
			} else {
				layout = DefaultDateFormat
			}
		}
		return val.Format(layout)
	case decimal.Decimal:
		return renderDecimal(f, val)
	case NullInt:
		if !val.Valid {
			return ""
		}
		return fmt.Sprintf("%d", val.Int64)
	case NullDecimal:
		if !val.Valid {
			return ""
		}
		return renderDecimal(f, val.Decimal)
	case NullTime:
		if !val.Valid {
			return ""
		}
		return renderValue(f, val.Time)
	case NullBool:
		if !val.Valid {
			return ""
		}
		if val.Bool {
			return "Y"
		}
		return "N"
	case bool:
		if val {
			return "Y"
		}
		return "N"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// renderDecimal renders with the field's fixed number of decimal places when
// Format carries one, so "19.9" becomes "19.90" in a Format "2" field.
func renderDecimal(f FieldSpec, d decimal.Decimal) string {
	if f.Format != "" {
		if places, err := strconv.Atoi(f.Format); err == nil {
			return d.StringFixed(int32(places))
		}
	}
	return d.String()
}

// sanitize applies the per-field normalization hooks. Internal line breaks
// are always collapsed; a raw newline in a fixed-position file would split
// the record.
func sanitize(f FieldSpec, s string) string {
	s = lineBreaks.ReplaceAllString(s, " ")

	if f.TariffCode {
		s = formatTariffCode(s)
	}
	if f.CountryCode {
		s = formatCountryCode(s)
	}
	return s
}

// formatTariffCode renders a 10-digit tariff code with the fixed dot
// grouping, e.g. 6403916000 -> 6403.91.6000. Anything else passes through
// with separator punctuation stripped only when the digits still line up.
func formatTariffCode(s string) string {
	stripped := strings.NewReplacer(".", "", " ", "").Replace(s)
	if !tariffDigit.MatchString(stripped) {
		return s
	}
	return stripped[0:4] + "." + stripped[4:6] + "." + stripped[6:10]
}

// formatCountryCode upcases a 2-letter code and blanks anything that is not
// exactly two alphabetic characters.
func formatCountryCode(s string) string {
	s = strings.TrimSpace(s)
	if !twoLetters.MatchString(s) {
		return ""
	}
	return strings.ToUpper(s)
}

func isTruthy(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "YES", "1", "TRUE", "T":
		return true
	}
	return false
}

func pad(s string, length int) string {
	runes := []rune(s)
	if len(runes) > length {
		return string(runes[:length])
	}
	return s + strings.Repeat(" ", length-len(runes))
}

// DelimitedEncoder renders records as delimited text for partners that take
// CSV-style files instead of fixed positions. Quoting follows standard
// delimited-text conventions via encoding/csv.
type DelimitedEncoder struct {
	Delimiter rune
}

// Encode renders one record. The returned line has no trailing newline.
func (e DelimitedEncoder) Encode(layout RecordLayout, values []interface{}) (string, error) {
	if len(values) != len(layout.Fields) {
		return "", errors.NewLayoutMismatchError(
			fmt.Sprintf("layout %q has %d fields, got %d values", layout.Name, len(layout.Fields), len(values)))
	}

	record := make([]string, len(values))
	for i, f := range layout.Fields {
		record[i] = sanitize(f, renderValue(f, values[i]))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if e.Delimiter != 0 {
		w.Comma = e.Delimiter
	}
	if err := w.Write(record); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\r\n"), nil
}
