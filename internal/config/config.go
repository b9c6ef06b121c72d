package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "BUNKMATE"
	defaultHTTPAddress  = "127.0.0.1:8787"
	defaultBrokerURL    = "tcp://broker.emqx.io:1883"
	defaultDatabasePath = "bunkmate.db"
	defaultLogLevel     = "info"
	defaultTargetDays   = 4
)

// AppConfig captures runtime configuration for the sync daemon.
type AppConfig struct {
	HTTPAddress       string
	BrokerURL         string
	DatabasePath      string
	LogLevel          string
	UserName          string
	ClassCode         string
	TargetDaysPerWeek int
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("broker.url", defaultBrokerURL)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("user.target_days", defaultTargetDays)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		BrokerURL:         configViper.GetString("broker.url"),
		DatabasePath:      configViper.GetString("database.path"),
		LogLevel:          configViper.GetString("log.level"),
		UserName:          configViper.GetString("user.name"),
		ClassCode:         configViper.GetString("room.code"),
		TargetDaysPerWeek: configViper.GetInt("user.target_days"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.BrokerURL) == "" {
		return fmt.Errorf("broker.url is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.UserName) == "" {
		return fmt.Errorf("user.name is required")
	}
	if strings.TrimSpace(c.ClassCode) == "" {
		return fmt.Errorf("room.code is required")
	}
	if c.TargetDaysPerWeek < 1 || c.TargetDaysPerWeek > 7 {
		return fmt.Errorf("user.target_days must be between 1 and 7")
	}
	return nil
}
