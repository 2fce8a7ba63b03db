package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(oldWd)
	})
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "us-east-1", cfg.S3.Region)
	require.True(t, cfg.S3.UseSSL)
}

func TestLoadAWSFallbacks(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("AWS_ACCESS_KEY_ID", "aws-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "aws-secret")
	t.Setenv("AWS_S3_REGION_NAME", "sa-east-1")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "aws-key", cfg.S3.AccessKeyID)
	require.Equal(t, "aws-secret", cfg.S3.SecretAccessKey)
	require.Equal(t, "sa-east-1", cfg.S3.Region)
}

func TestS3ConfOverridesAWS(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("AWS_ACCESS_KEY_ID", "aws-key")
	t.Setenv("S3CONF_ACCESS_KEY_ID", "s3conf-key")
	t.Setenv("S3CONF_S3_ENDPOINT_URL", "http://localhost:9000")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "s3conf-key", cfg.S3.AccessKeyID)
	require.Equal(t, "http://localhost:9000", cfg.S3.EndpointURL)
}

func TestUnrecognizedEnvIgnored(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("S3CONF_SOMETHING_ELSE", "value")
	t.Setenv("AWS_PROFILE", "value")

	_, err := Load()
	require.NoError(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storages.yaml")
	content := []byte("log:\n  level: debug\n  format: console\ns3:\n  region: eu-west-1\n  use_ssl: false\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Format)
	require.Equal(t, "eu-west-1", cfg.S3.Region)
	require.False(t, cfg.S3.UseSSL)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFromFile("/no/such/config.yaml")
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("s3:\n  region: eu-west-1\n"), 0o644))

	t.Setenv("S3CONF_S3_REGION_NAME", "ap-southeast-2")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "ap-southeast-2", cfg.S3.Region)
}
