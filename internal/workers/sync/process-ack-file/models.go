// internal/workers/sync/process-ack-file/models.go
package processackfile

// Input mirrors the opts hash the upstream process hands the ack handler.
type Input struct {
	Key        string   `json:"key"`
	SyncCode   string   `json:"sync_code"`
	ModuleType string   `json:"module_type,omitempty"`
	EmailTo    []string `json:"email_to,omitempty"`
}

type Output struct {
	FileName       string `json:"fileName"`
	RowCount       int    `json:"rowCount"`
	ConfirmedCount int    `json:"confirmedCount"`
	FailedCount    int    `json:"failedCount"`
	ErrorCount     int    `json:"errorCount"`
}
