// ABOUTME: Configuration loading and parsing for mythic-registry
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/ledger"
	"github.com/2389/mythic-metadata/internal/state"
)

// Config represents the complete mythic-registry configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Registry RegistryConfig `yaml:"registry"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig selects the ledger driver and where it stores data
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// RegistryConfig holds the program identity and its account rules
type RegistryConfig struct {
	ProgramID  string       `yaml:"program_id"`
	Addressing string       `yaml:"addressing"`
	Limits     state.Limits `yaml:"limits"`
}

// AuthConfig holds transaction signature checks
type AuthConfig struct {
	SignatureMaxAge time.Duration `yaml:"-"`
	NonceCacheSize  int           `yaml:"nonce_cache_size"`

	// Raw string value for YAML unmarshaling
	SignatureMaxAgeRaw string `yaml:"signature_max_age"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration usable without a file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCAddr: "localhost:50051",
			HTTPAddr: "localhost:8080",
		},
		Database: DatabaseConfig{
			Driver: ledger.DriverSQLite,
			Path:   filepath.Join(DataPath(), "registry.db"),
		},
		Registry: RegistryConfig{
			ProgramID:  address.DefaultProgramID,
			Addressing: string(address.SchemeCounter),
			Limits:     state.DefaultLimits(),
		},
		Auth: AuthConfig{
			SignatureMaxAge:    5 * time.Minute,
			SignatureMaxAgeRaw: "5m",
			NonceCacheSize:     10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Path returns the path to the registry config file.
// Priority: MYTHIC_CONFIG env var > XDG_CONFIG_HOME/mythic/registry.yaml > ~/.config/mythic/registry.yaml
func Path() string {
	if envPath := os.Getenv("MYTHIC_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "registry.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "mythic", "registry.yaml")
}

// DataPath returns the mythic data directory.
// Priority: XDG_DATA_HOME/mythic > ~/.local/share/mythic
func DataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "mythic")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Keys absent from the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Marshal renders cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	if c.Auth.SignatureMaxAge > 0 {
		c.Auth.SignatureMaxAgeRaw = c.Auth.SignatureMaxAge.String()
	}
	return yaml.Marshal(c)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.GRPCAddr == "" {
		return fmt.Errorf("server.grpc_addr is required")
	}
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	switch c.Database.Driver {
	case ledger.DriverSQLite, ledger.DriverBolt:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for driver %q", c.Database.Driver)
		}
	case ledger.DriverMemory:
	default:
		return fmt.Errorf("database.driver %q is not one of sqlite, bolt, memory", c.Database.Driver)
	}

	if _, err := c.ProgramID(); err != nil {
		return fmt.Errorf("registry.program_id: %w", err)
	}
	if _, err := c.Scheme(); err != nil {
		return fmt.Errorf("registry.addressing: %w", err)
	}
	if err := c.Registry.Limits.Validate(); err != nil {
		return fmt.Errorf("registry.limits: %w", err)
	}

	if c.Auth.SignatureMaxAge <= 0 {
		return fmt.Errorf("auth.signature_max_age must be positive")
	}
	if c.Auth.NonceCacheSize <= 0 {
		return fmt.Errorf("auth.nonce_cache_size must be positive")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// ProgramID parses registry.program_id.
func (c *Config) ProgramID() (address.Pubkey, error) {
	return address.Parse(c.Registry.ProgramID)
}

// Scheme parses registry.addressing.
func (c *Config) Scheme() (address.Scheme, error) {
	return address.ParseScheme(c.Registry.Addressing)
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.SignatureMaxAgeRaw != "" {
		cfg.Auth.SignatureMaxAge, err = time.ParseDuration(cfg.Auth.SignatureMaxAgeRaw)
		if err != nil {
			return fmt.Errorf("parsing signature_max_age %q: %w", cfg.Auth.SignatureMaxAgeRaw, err)
		}
	}

	return nil
}
