// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig                `mapstructure:"app"`
	Camunda  CamundaConfig            `mapstructure:"camunda"`
	Database DatabaseConfig           `mapstructure:"database"`
	AWS      AWSConfig                `mapstructure:"aws"`
	Sync     SyncConfig               `mapstructure:"sync"`
	Workers  map[string]WorkerConfig  `mapstructure:"workers"`
	Partners map[string]PartnerConfig `mapstructure:"partners"`
	Logging  LoggingConfig            `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// AWSConfig holds settings for S3 transport and SES/SNS notification.
type AWSConfig struct {
	Region string `mapstructure:"region"`

	S3 struct {
		Bucket         string `mapstructure:"bucket"`
		OutboundPrefix string `mapstructure:"outbound_prefix"`
		AckPrefix      string `mapstructure:"ack_prefix"`
	} `mapstructure:"s3"`

	SES struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"ses"`

	SNS struct {
		Enabled       bool   `mapstructure:"enabled"`
		AlertTopicARN string `mapstructure:"alert_topic_arn"`
	} `mapstructure:"sns"`
}

// SyncConfig holds settings shared by the outbound generator and the ack
// reconciliation handlers.
type SyncConfig struct {
	DefaultModuleType string   `mapstructure:"default_module_type"`
	DateFormat        string   `mapstructure:"date_format"`     // Go layout
	DateTimeFormat    string   `mapstructure:"datetime_format"` // Go layout
	TimeZone          string   `mapstructure:"time_zone"`
	LockTTL           int      `mapstructure:"lock_ttl"` // milliseconds
	AuditIndex        string   `mapstructure:"audit_index"`
	ErrorRecipients   []string `mapstructure:"error_recipients"`
}

// PartnerConfig describes one trading partner's file exchange settings.
type PartnerConfig struct {
	SyncCode   string   `mapstructure:"sync_code"`
	ModuleType string   `mapstructure:"module_type"`
	Delimiter  string   `mapstructure:"delimiter"` // ack file delimiter, default ","
	Notify     []string `mapstructure:"notify"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
