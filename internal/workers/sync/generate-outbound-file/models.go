// internal/workers/sync/generate-outbound-file/models.go
package generateoutboundfile

type Input struct {
	TradingPartner string `json:"tradingPartner"`
	ModuleType     string `json:"moduleType,omitempty"`
}

type Output struct {
	FileName     string `json:"fileName"`
	S3Key        string `json:"s3Key"`
	RowCount     int    `json:"rowCount"`
	SkippedCount int    `json:"skippedCount"`
	SentAt       string `json:"sentAt"` // ISO 8601
}
