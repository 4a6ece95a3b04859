// Package config provides configuration management for the epclake CLI.
//
// Configuration is merged from four sources with increasing precedence:
// built-in defaults, an epclake.yaml project file, EPCLAKE_* environment
// variables, and command-line flags.
package config

// LandingConfig describes where source files land before ingestion.
type LandingConfig struct {
	// Manual holds files placed by hand (bulk downloads, reference data).
	Manual string `koanf:"manual"`

	// Automated holds files written by the extraction pipeline.
	Automated string `koanf:"automated"`
}

// EPCConfig holds settings for the Energy Performance Certificate API.
type EPCConfig struct {
	// BaseURL is the certificate search endpoint.
	BaseURL string `koanf:"base_url"`

	// PageSize is the number of records requested per page (API cap 5000).
	PageSize int `koanf:"page_size"`

	// MaxRecords caps a single extraction run.
	MaxRecords int `koanf:"max_records"`

	// EnvFile is the dotenv file holding EPC_USERNAME and EPC_PASSWORD.
	EnvFile string `koanf:"env_file"`

	// StartDate is the lodgement date used when the target table is empty.
	StartDate string `koanf:"start_date"`

	// LocalAuthority restricts extraction to one local authority district.
	LocalAuthority string `koanf:"local_authority"`
}

// PostgresConfig holds the optional PostGIS connection used by doctor checks
// and modules that read through the postgres extension.
type PostgresConfig struct {
	DSN string `koanf:"dsn"`
}

// Config holds all CLI configuration options.
type Config struct {
	// Database is the DuckDB database file, or ":memory:".
	Database string `koanf:"database"`

	// SQLRoot contains one subdirectory of SQL modules per layer.
	SQLRoot string `koanf:"sql_root"`

	// Layers lists layer names in execution order.
	Layers []string `koanf:"layers"`

	// Extensions lists DuckDB extensions loaded on every connection.
	Extensions []string `koanf:"extensions"`

	// StagingDir holds intermediate files produced by extraction.
	StagingDir string `koanf:"staging_dir"`

	Landing  LandingConfig  `koanf:"landing"`
	EPC      EPCConfig      `koanf:"epc"`
	Postgres PostgresConfig `koanf:"postgres"`

	// Verbosity increases log detail: 1 enables debug logging on the CLI
	// logger, 2 or more also installs it as the process default.
	Verbosity int `koanf:"verbose"`

	// ProjectRoot is the directory all relative paths resolve against.
	// Derived during loading, never read from a source.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultDatabase   = "data_lake/mca_env_base.duckdb"
	DefaultSQLRoot    = "sql"
	DefaultStagingDir = "data_lake/staging"
	DefaultManualDir  = "data_lake/landing/manual"
	DefaultAutoDir    = "data_lake/landing/automated"

	DefaultEPCBaseURL    = "https://epc.opendatacommunities.org"
	DefaultEPCPageSize   = 5000
	DefaultEPCMaxRecords = 100000
	DefaultEPCEnvFile    = ".env"
	DefaultEPCStartDate  = "2008-01-01"
)

// DefaultLayers is the standard medallion ordering.
var DefaultLayers = []string{"bronze", "silver", "gold"}

// DefaultExtensions are the DuckDB extensions the SQL modules assume.
var DefaultExtensions = []string{"spatial", "postgres"}
