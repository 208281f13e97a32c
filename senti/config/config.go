package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/sentiment-pipeline/senti"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Model   ModelConfig   `mapstructure:"model"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ModelConfig describes where the model, metadata and vocabulary live and
// which backend runs the forward pass.
type ModelConfig struct {
	// Source is a directory or an http(s) base URL. Paths below are relative to it.
	Source                   string `mapstructure:"source"`
	ModelPath                string `mapstructure:"modelPath"`
	MetadataPath             string `mapstructure:"metadataPath"`
	VocabPath                string `mapstructure:"vocabPath"`
	Backend                  string `mapstructure:"backend"`
	DefaultMaxSequenceLength int    `mapstructure:"defaultMaxSequenceLength"`
	LoadTimeoutSeconds       int    `mapstructure:"loadTimeoutSeconds"`

	// ONNX runtime settings, only used by the onnx backend
	ExecutionProvider string `mapstructure:"executionProvider"`
	DeviceID          int    `mapstructure:"deviceID"`
	SharedLibraryPath string `mapstructure:"sharedLibraryPath"`
}

// ServerConfig stores HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig stores logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("model.source", internal.DefaultModelSource)
	v.SetDefault("model.modelPath", internal.DefaultModelPath)
	v.SetDefault("model.metadataPath", internal.DefaultMetadataPath)
	v.SetDefault("model.vocabPath", internal.DefaultVocabPath)
	v.SetDefault("model.backend", internal.DefaultBackend)
	v.SetDefault("model.defaultMaxSequenceLength", internal.DefaultMaxSequenceLength)
	v.SetDefault("model.loadTimeoutSeconds", 30)
	v.SetDefault("model.executionProvider", "cpu")
	v.SetDefault("model.deviceID", 0)
	v.SetDefault("model.sharedLibraryPath", "")
	v.SetDefault("server.addr", internal.DefaultServerAddr)
	v.SetDefault("logging.level", internal.DefaultLogLevel)
	v.SetDefault("logging.pretty", false)

	// model.backend becomes SENTI_MODEL_BACKEND
	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot start with.
func (c *Config) Validate() error {
	if c.Model.DefaultMaxSequenceLength <= 0 {
		return fmt.Errorf("model.defaultMaxSequenceLength must be positive, got %d", c.Model.DefaultMaxSequenceLength)
	}
	switch strings.ToLower(c.Model.Backend) {
	case "tfjs", "onnx":
	default:
		return fmt.Errorf("unknown model.backend %q (want tfjs or onnx)", c.Model.Backend)
	}
	if strings.TrimSpace(c.Model.ModelPath) == "" {
		return fmt.Errorf("model.modelPath cannot be empty")
	}
	if strings.TrimSpace(c.Model.VocabPath) == "" {
		return fmt.Errorf("model.vocabPath cannot be empty")
	}
	return nil
}
