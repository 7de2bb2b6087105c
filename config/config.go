package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pilab-dev/identity-mongodb/internal/idx"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. IDENTITY_MONGO_URI.
const EnvPrefix = "IDENTITY"

// Config holds the settings consumed by the store provider and the admin CLI.
type Config struct {
	MongoURI        string        `mapstructure:"mongo_uri"`
	MongoDBName     string        `mapstructure:"mongo_db_name"`
	UsersCollection string        `mapstructure:"users_collection"`
	RolesCollection string        `mapstructure:"roles_collection"`
	IDGenerator     string        `mapstructure:"id_generator"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`

	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	ServiceName    string `mapstructure:"service_name"`
}

// Load reads configuration from defaults, an optional config file and the
// environment, in increasing order of precedence. When configFile is empty,
// identity.yaml is searched for in the working directory, /etc/identity and
// $HOME/.identity; a missing file is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("identity")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/identity/")
		v.AddConfigPath("$HOME/.identity")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db_name", "identity")
	v.SetDefault("users_collection", "users")
	v.SetDefault("roles_collection", "Roles")
	v.SetDefault("id_generator", idx.NameObjectID)
	v.SetDefault("connect_timeout", "10s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("service_name", "identity-mongodb")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.MongoURI) == "":
		return errors.New("config: mongo_uri is required")
	case strings.TrimSpace(c.MongoDBName) == "":
		return errors.New("config: mongo_db_name is required")
	case strings.TrimSpace(c.UsersCollection) == "":
		return errors.New("config: users_collection is required")
	case strings.TrimSpace(c.RolesCollection) == "":
		return errors.New("config: roles_collection is required")
	case c.ConnectTimeout <= 0:
		return fmt.Errorf("config: connect_timeout must be positive, got %s", c.ConnectTimeout)
	}

	if _, err := idx.ByName(c.IDGenerator); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
