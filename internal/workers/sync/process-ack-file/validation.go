// internal/workers/sync/process-ack-file/validation.go
package processackfile

import "partner-sync/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"key": {
				Type:        "string",
				Description: "S3 key of the ack file to reconcile",
			},
			"sync_code": {
				Type:        "string",
				Description: "Partner sync code the ack file belongs to",
			},
			"module_type": {
				Type:        "string",
				Description: "Entity module the keys resolve against; defaults per partner",
			},
			"email_to": {
				Type:        "array",
				Description: "Digest recipients overriding the partner's configured list",
			},
		},
		AdditionalProperties: true,
	}
}
