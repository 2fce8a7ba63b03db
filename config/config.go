// Package config provides configuration management for nondjango-storages.
// It handles loading credential and logging settings from YAML files and
// environment variables, with S3CONF_* variables taking precedence over
// their AWS_* equivalents.
package config

// Config represents the complete library configuration
type Config struct {
	Log LogConfig `koanf:"log"`
	S3  Settings  `koanf:"s3"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Settings holds the object storage client configuration. The core never
// inspects these values beyond handing them to the client constructor.
type Settings struct {
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	SessionToken    string `koanf:"session_token"`
	Region          string `koanf:"region"`
	UseSSL          bool   `koanf:"use_ssl"`
	EndpointURL     string `koanf:"endpoint_url"` // Custom S3 endpoint (e.g., for MinIO)
}
