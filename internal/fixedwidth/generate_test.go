package fixedwidth

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLayout() RecordLayout {
	return RecordLayout{
		Name: "test",
		Fields: []FieldSpec{
			{Name: "code", Length: 10, Kind: KindString},
			{Name: "description", Length: 20, Kind: KindString},
			{Name: "quantity", Length: 5, Kind: KindInteger},
		},
	}
}

// ==========================
// Core Generation Tests
// ==========================

func TestGenerate_PadsAndJustifies(t *testing.T) {
	line, err := testLayout().Generate([]interface{}{"ABC", "WIDGET", 7})
	require.NoError(t, err)
	assert.Equal(t, "ABC       WIDGET              7    ", line)
	assert.Len(t, line, 35)
}

func TestGenerate_TruncatesSilently(t *testing.T) {
	line, err := testLayout().Generate([]interface{}{"ABCDEFGHIJKLMNOP", "W", 7})
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJ", line[0:10])
	assert.Len(t, line, 35)
}

func TestGenerate_ValueCountMismatch(t *testing.T) {
	_, err := testLayout().Generate([]interface{}{"ABC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Record layout and value count do not align")
}

func TestGenerate_NilValuesRenderBlank(t *testing.T) {
	line, err := testLayout().Generate([]interface{}{nil, nil, nil})
	require.NoError(t, err)
	assert.Equal(t, "                                   ", line)
}

func TestGenerate_CollapsesInternalLineBreaks(t *testing.T) {
	line, err := testLayout().Generate([]interface{}{"AB\r\nCD", "X\nY", 1})
	require.NoError(t, err)
	assert.Equal(t, "AB CD     ", line[0:10])
	assert.Equal(t, "X Y", line[10:13])
}

func TestGenerate_TypedValues(t *testing.T) {
	layout := RecordLayout{
		Name: "typed",
		Fields: []FieldSpec{
			{Name: "price", Length: 10, Kind: KindDecimal},
			{Name: "shipped", Length: 8, Kind: KindDate},
			{Name: "active", Length: 1, Kind: KindBoolean},
		},
	}
	line, err := layout.Generate([]interface{}{
		decimal.RequireFromString("123.45"),
		time.Date(2013, 6, 19, 0, 0, 0, 0, time.UTC),
		true,
	})
	require.NoError(t, err)
	assert.Equal(t, "123.45    20130619Y", line)
}

func TestGenerate_DecimalPlacesFromFormat(t *testing.T) {
	layout := RecordLayout{
		Name: "priced",
		Fields: []FieldSpec{
			{Name: "price", Length: 8, Kind: KindDecimal, Format: "2"},
			{Name: "qty", Length: 6, Kind: KindDecimal},
		},
	}

	line, err := layout.Generate([]interface{}{
		decimal.RequireFromString("19.9"),
		decimal.RequireFromString("3"),
	})
	require.NoError(t, err)
	assert.Equal(t, "19.90   3     ", line)

	// Null decimals stay blank regardless of Format
	line, err = layout.Generate([]interface{}{
		NullDecimal{},
		decimal.RequireFromString("3"),
	})
	require.NoError(t, err)
	assert.Equal(t, "        3     ", line)
}

// ==========================
// Sanitization Hook Tests
// ==========================

func TestGenerate_TariffCodeFormatting(t *testing.T) {
	layout := RecordLayout{
		Name: "tariff",
		Fields: []FieldSpec{
			{Name: "hts", Length: 12, Kind: KindString, TariffCode: true},
		},
	}

	line, err := layout.Generate([]interface{}{"6403916000"})
	require.NoError(t, err)
	assert.Equal(t, "6403.91.6000", line)

	// Already punctuated codes are normalized, not doubled up
	line, err = layout.Generate([]interface{}{"6403.91.6000"})
	require.NoError(t, err)
	assert.Equal(t, "6403.91.6000", line)

	// Codes that don't fit the scheme pass through untouched
	line, err = layout.Generate([]interface{}{"ABC123"})
	require.NoError(t, err)
	assert.Equal(t, "ABC123      ", line)
}

func TestGenerate_CountryCodeUpcasedOrBlanked(t *testing.T) {
	layout := RecordLayout{
		Name: "origin",
		Fields: []FieldSpec{
			{Name: "coo", Length: 2, Kind: KindString, CountryCode: true},
		},
	}

	line, err := layout.Generate([]interface{}{"us"})
	require.NoError(t, err)
	assert.Equal(t, "US", line)

	line, err = layout.Generate([]interface{}{"USA"})
	require.NoError(t, err)
	assert.Equal(t, "  ", line)

	line, err = layout.Generate([]interface{}{"1X"})
	require.NoError(t, err)
	assert.Equal(t, "  ", line)
}

func TestGenerate_ConditionalSuppression(t *testing.T) {
	layout := RecordLayout{
		Name: "suppress",
		Fields: []FieldSpec{
			{Name: "exempt", Length: 1, Kind: KindBoolean},
			{Name: "dutyRate", Length: 6, Kind: KindString, BlankWhen: "exempt"},
		},
	}

	line, err := layout.Generate([]interface{}{true, "0.075"})
	require.NoError(t, err)
	assert.Equal(t, "Y      ", line)

	line, err = layout.Generate([]interface{}{false, "0.075"})
	require.NoError(t, err)
	assert.Equal(t, "N0.075 ", line)
}

// ==========================
// Round Trip Tests
// ==========================

func TestGenerate_RoundTripThroughExtraction(t *testing.T) {
	layout := RecordLayout{
		Name: "roundtrip",
		Fields: []FieldSpec{
			{Name: "code", Length: 8, Kind: KindString},
			{Name: "qty", Length: 5, Kind: KindInteger},
			{Name: "price", Length: 10, Kind: KindDecimal},
			{Name: "shipped", Length: 8, Kind: KindDate},
		},
	}
	require.NoError(t, layout.Validate())

	shipped := time.Date(2013, 6, 19, 0, 0, 0, 0, time.UTC)
	line, err := layout.Generate([]interface{}{
		"SKU-1", 42, decimal.RequireFromString("19.99"), shipped,
	})
	require.NoError(t, err)
	require.Len(t, line, layout.TotalWidth())

	ranges := layout.Ranges()
	assert.Equal(t, "SKU-1", ExtractString(line, ranges[0]))

	qty := ExtractInteger(line, ranges[1])
	require.True(t, qty.Valid)
	assert.Equal(t, int64(42), qty.Int64)

	price := ExtractDecimal(line, ranges[2], 2, RoundHalfUp)
	require.True(t, price.Valid)
	assert.True(t, price.Decimal.Equal(decimal.RequireFromString("19.99")))

	date := ExtractDate(line, ranges[3], "")
	require.True(t, date.Valid)
	assert.Equal(t, shipped, date.Time)
}

// ==========================
// Layout Validation Tests
// ==========================

func TestLayoutValidate(t *testing.T) {
	assert.NoError(t, testLayout().Validate())

	bad := RecordLayout{Name: "bad", Fields: []FieldSpec{{Name: "a", Length: 0}}}
	assert.Error(t, bad.Validate())

	dup := RecordLayout{Name: "dup", Fields: []FieldSpec{
		{Name: "a", Length: 1}, {Name: "a", Length: 2},
	}}
	assert.Error(t, dup.Validate())

	danglingRef := RecordLayout{Name: "ref", Fields: []FieldSpec{
		{Name: "a", Length: 1, BlankWhen: "missing"},
	}}
	assert.Error(t, danglingRef.Validate())

	assert.Error(t, RecordLayout{Name: "empty"}.Validate())
}

func TestLayoutRangeOf(t *testing.T) {
	layout := testLayout()
	r, ok := layout.RangeOf("description")
	require.True(t, ok)
	assert.Equal(t, NewRange(11, 30), r)

	_, ok = layout.RangeOf("nope")
	assert.False(t, ok)
}

// ==========================
// Delimited Encoder Tests
// ==========================

func TestDelimitedEncoder(t *testing.T) {
	enc := DelimitedEncoder{}
	line, err := enc.Encode(testLayout(), []interface{}{"ABC", "has,comma", 7})
	require.NoError(t, err)
	assert.Equal(t, `ABC,"has,comma",7`, line)
}

func TestDelimitedEncoder_PipeDelimiter(t *testing.T) {
	enc := DelimitedEncoder{Delimiter: '|'}
	line, err := enc.Encode(testLayout(), []interface{}{"ABC", "WIDGET", 7})
	require.NoError(t, err)
	assert.Equal(t, "ABC|WIDGET|7", line)
}

func TestDelimitedEncoder_ValueCountMismatch(t *testing.T) {
	enc := DelimitedEncoder{}
	_, err := enc.Encode(testLayout(), []interface{}{"ABC"})
	assert.Error(t, err)
}
