package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// awsEnvKeys maps AWS_* environment variables to config keys. These are the
// fallback names, overridden by the S3CONF_* primaries below.
var awsEnvKeys = map[string]string{
	"AWS_ACCESS_KEY_ID":     "s3.access_key_id",
	"AWS_SECRET_ACCESS_KEY": "s3.secret_access_key",
	"AWS_SESSION_TOKEN":     "s3.session_token",
	"AWS_S3_REGION_NAME":    "s3.region",
	"AWS_S3_USE_SSL":        "s3.use_ssl",
	"AWS_S3_ENDPOINT_URL":   "s3.endpoint_url",
}

// s3confEnvKeys maps S3CONF_* environment variables to config keys.
var s3confEnvKeys = map[string]string{
	"S3CONF_ACCESS_KEY_ID":     "s3.access_key_id",
	"S3CONF_SECRET_ACCESS_KEY": "s3.secret_access_key",
	"S3CONF_SESSION_TOKEN":     "s3.session_token",
	"S3CONF_S3_REGION_NAME":    "s3.region",
	"S3CONF_S3_USE_SSL":        "s3.use_ssl",
	"S3CONF_S3_ENDPOINT_URL":   "s3.endpoint_url",
}

// Load loads configuration from the default sources with strict priority:
// 1. S3CONF_* environment variables (highest priority)
// 2. AWS_* environment variables
// 3. storages.yaml in the working directory, if present
// 4. Defaults (lowest priority)
func Load() (Config, error) {
	return LoadFromFile("")
}

// LoadFromFile loads configuration with the same priority as Load but from a
// specific YAML file. An empty path falls back to storages.yaml if present.
func LoadFromFile(configFilePath string) (Config, error) {
	k := koanf.New(".")

	// Load default configuration first
	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load default config: %w", err)
	}

	if configFilePath != "" {
		if _, err := os.Stat(configFilePath); err != nil {
			return Config{}, fmt.Errorf("specified config file %s not found: %w", configFilePath, err)
		}
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", configFilePath, err)
		}
	} else if _, err := os.Stat("storages.yaml"); err == nil {
		if err := k.Load(file.Provider("storages.yaml"), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file storages.yaml: %w", err)
		}
	}

	// AWS_* fallbacks first, then S3CONF_* primaries so they win.
	if err := k.Load(env.Provider("AWS_", ".", mapEnv(awsEnvKeys)), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load AWS environment variables: %w", err)
	}
	if err := k.Load(env.Provider("S3CONF_", ".", mapEnv(s3confEnvKeys)), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load S3CONF environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// mapEnv translates recognized environment variable names to config keys.
// Unrecognized variables are dropped by returning an empty key.
func mapEnv(keys map[string]string) func(string) string {
	return func(s string) string {
		return keys[s]
	}
}
