package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks all override variables so ambient environment does not
// leak into tests. t.Setenv restores the originals automatically.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{EnvClientID, EnvTenantID, EnvSenderEmail, EnvCacheFile} {
		t.Setenv(key, "")
	}
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
client_id = "app-1234"
tenant_id = "contoso.onmicrosoft.com"
sender_email = "bot@contoso.com"
cache_file = "/tmp/cache.bin"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "app-1234", cfg.ClientID)
	assert.Equal(t, "contoso.onmicrosoft.com", cfg.TenantID)
	assert.Equal(t, "bot@contoso.com", cfg.SenderEmail)
	assert.Equal(t, "/tmp/cache.bin", cfg.CacheFile)
}

func TestLoad_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvClientID, "env-app-id")

	// Point at a file that does not exist; env alone must be enough.
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "env-app-id", cfg.ClientID)
	assert.Equal(t, "common", cfg.TenantID)
	assert.NotEmpty(t, cfg.CacheFile)
	assert.Contains(t, cfg.CacheFile, "workbook-go")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvClientID, "env-app-id")
	t.Setenv(EnvTenantID, "env-tenant")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
client_id = "file-app-id"
tenant_id = "file-tenant"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-app-id", cfg.ClientID)
	assert.Equal(t, "env-tenant", cfg.TenantID)
}

func TestLoad_MissingClientID(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id is required")
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`client_id = `), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.NoError(t, Config{ClientID: "x"}.Validate())
}
