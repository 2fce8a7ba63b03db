package config

// DefaultConfig returns a Config struct with sensible default values
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		S3: Settings{
			Region: "us-east-1",
			UseSSL: true,
		},
	}
}
