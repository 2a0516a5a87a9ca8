// internal/workers/sync/generate-outbound-file/config.go
package generateoutboundfile

import (
	"time"

	"partner-sync/internal/fixedwidth"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 60 * time.Second,
	}
}

// ProductLayout is the fixed-width record layout partners receive for the
// product catalog. Field order matches the candidate selector's column
// order.
func ProductLayout() fixedwidth.RecordLayout {
	return fixedwidth.RecordLayout{
		Name: "product",
		Fields: []fixedwidth.FieldSpec{
			{Name: "unique_identifier", Length: 15, Kind: fixedwidth.KindString},
			{Name: "name", Length: 40, Kind: fixedwidth.KindString},
			{Name: "hts_code", Length: 14, Kind: fixedwidth.KindString, TariffCode: true},
			{Name: "country_origin", Length: 2, Kind: fixedwidth.KindString, CountryCode: true},
			{Name: "unit_price", Length: 12, Kind: fixedwidth.KindDecimal, Format: "2"},
			{Name: "updated_at", Length: 8, Kind: fixedwidth.KindDate},
		},
	}
}
