// internal/workers/sync/generate-outbound-file/validation.go
package generateoutboundfile

import "partner-sync/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"tradingPartner"},
		Properties: map[string]validation.Property{
			"tradingPartner": {
				Type:        "string",
				Description: "Partner code the outbound file is generated for",
				MinLength:   intPtr(1),
				MaxLength:   intPtr(50),
			},
			"moduleType": {
				Type:        "string",
				Description: "Entity module to sync; defaults to the configured module type",
				MaxLength:   intPtr(50),
			},
		},
		AdditionalProperties: true,
	}
}

func intPtr(i int) *int {
	return &i
}
