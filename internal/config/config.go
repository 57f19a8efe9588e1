package config

import (
	"fmt"
	"time"

	"github.com/acmecorp/quote-workflow/pkg/utils"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// WorkflowConfig holds quoting and acknowledgment parameters
type WorkflowConfig struct {
	TaxRate           float64 `mapstructure:"tax_rate"`
	DefaultCurrency   string  `mapstructure:"default_currency"`
	QuoteValidityDays int     `mapstructure:"quote_validity_days"`
	SLAHours          int     `mapstructure:"sla_hours"`
	CompanyName       string  `mapstructure:"company_name"`
	ContactEmail      string  `mapstructure:"contact_email"`
}

// PricingConfig points at the price list and discount rules documents.
// Empty paths fall back to the built-in default tables.
type PricingConfig struct {
	PriceListPath     string `mapstructure:"price_list_path"`
	DiscountRulesPath string `mapstructure:"discount_rules_path"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// StorageConfig holds the JSON artifact store location
type StorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// ServerConfig holds the read-only HTTP API configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied, used when no
// config file is present.
func Default() (*Config, error) {
	v := viper.New()
	setDefaultsOn(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	setDefaultsOn(viper.GetViper())
}

func setDefaultsOn(v *viper.Viper) {
	// Workflow defaults
	v.SetDefault("workflow.tax_rate", 0.095)
	v.SetDefault("workflow.default_currency", "USD")
	v.SetDefault("workflow.quote_validity_days", 7)
	v.SetDefault("workflow.sla_hours", 24)
	v.SetDefault("workflow.company_name", "Acme Corp")
	v.SetDefault("workflow.contact_email", "sales@acme.com")

	// Pricing defaults: empty paths mean built-in tables
	v.SetDefault("pricing.price_list_path", "")
	v.SetDefault("pricing.discount_rules_path", "")

	// Database defaults
	v.SetDefault("database.path", "data/workflow.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "migrations")

	// Storage defaults
	v.SetDefault("storage.base_dir", "data")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "console")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("workflow.company_name", "COMPANY_NAME")
	viper.BindEnv("workflow.contact_email", "CONTACT_EMAIL")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("storage.base_dir", "STORAGE_BASE_DIR")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Workflow.TaxRate < 0 || c.Workflow.TaxRate >= 1 {
		return fmt.Errorf("workflow.tax_rate must be in [0, 1), got %.4f", c.Workflow.TaxRate)
	}
	if err := utils.ValidateCurrencyCode(c.Workflow.DefaultCurrency); err != nil {
		return fmt.Errorf("workflow.default_currency: %w", err)
	}
	if c.Workflow.ContactEmail != "" {
		if err := utils.ValidateEmail(c.Workflow.ContactEmail); err != nil {
			return fmt.Errorf("workflow.contact_email: %w", err)
		}
	}
	if c.Workflow.QuoteValidityDays <= 0 {
		return fmt.Errorf("workflow.quote_validity_days must be positive, got %d", c.Workflow.QuoteValidityDays)
	}
	if c.Workflow.SLAHours <= 0 {
		return fmt.Errorf("workflow.sla_hours must be positive, got %d", c.Workflow.SLAHours)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}
