package config

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate checks the loaded settings. The returned error lists every
// failing setting by its environment variable name.
func (c *Config) Validate() error {
	genai := strings.ToLower(c.Classifier.Provider) == "genai"

	positive := []validation.Rule{validation.Required, validation.Min(1)}
	maxConnsRule := validation.Min(c.Database.MinConns).Error(fmt.Sprintf("must be >= DB_MIN_CONNS (%d)", c.Database.MinConns))

	return validation.Errors{
		"DATABASE_URL": validation.Validate(c.Database.URL, validation.Required),
		"DB_MAX_CONNS": validation.Validate(c.Database.MaxConns, validation.Required, maxConnsRule),
		"DB_MIN_CONNS": validation.Validate(c.Database.MinConns, validation.Min(0)),

		"SERVER_PORT":             validation.Validate(c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		"SERVER_READ_TIMEOUT":     validation.Validate(c.Server.ReadTimeout, validation.Min(0)),
		"SERVER_SHUTDOWN_TIMEOUT": validation.Validate(c.Server.ShutdownTimeout, positive...),

		"IMPORT_MAX_FILE_SIZE":  validation.Validate(c.Import.MaxFileSize, positive...),
		"IMPORT_BATCH_SIZE":     validation.Validate(c.Import.BatchSize, positive...),
		"IMPORT_SAMPLE_ROWS":    validation.Validate(c.Import.SampleRows, positive...),
		"IMPORT_MAX_CONCURRENT": validation.Validate(c.Import.MaxConcurrent, positive...),
		"IMPORT_MAX_WAIT_TIME":  validation.Validate(c.Import.MaxWaitTime, positive...),
		"IMPORT_COMMIT_TIMEOUT": validation.Validate(c.Import.CommitTimeout, positive...),
		"IMPORT_PREVIEW_TTL":    validation.Validate(c.Import.PreviewTTL, positive...),

		"CLASSIFIER_PROVIDER": validation.Validate(strings.ToLower(c.Classifier.Provider), validation.Required, validation.In("genai", "aliases")),
		"CLASSIFIER_API_KEY":  validation.Validate(c.Classifier.APIKey, validation.When(genai, validation.Required.Error("is required when CLASSIFIER_PROVIDER is genai"))),
		"CLASSIFIER_TIMEOUT":  validation.Validate(c.Classifier.Timeout, positive...),

		"RATE_LIMIT_REQUESTS_PER_MINUTE": validation.Validate(c.Rate.RequestsPerMinute, validation.When(c.Rate.Enabled, positive...)),

		"API_KEYS": validation.Validate(c.Security.APIKeys, validation.When(c.Security.RequireAPIKey, validation.Required.Error("must not be empty when REQUIRE_API_KEY is true"))),

		"LOG_LEVEL":  validation.Validate(strings.ToLower(c.Logging.Level), validation.Required, validation.In("debug", "info", "warn", "error")),
		"LOG_FORMAT": validation.Validate(strings.ToLower(c.Logging.Format), validation.Required, validation.In("text", "json")),
	}.Filter()
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs and API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ", c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Redis: {Enabled: %v}, ", c.Redis.URL != "")
	fmt.Fprintf(&b, "Import: {MaxFileSize: %d, BatchSize: %d, SampleRows: %d, MaxConcurrent: %d}, ",
		c.Import.MaxFileSize, c.Import.BatchSize, c.Import.SampleRows, c.Import.MaxConcurrent)
	fmt.Fprintf(&b, "Classifier: {Provider: %q, Model: %q, APIKey: [MASKED]}, ", c.Classifier.Provider, c.Classifier.Model)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ", c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
