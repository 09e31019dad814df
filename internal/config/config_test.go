package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "main.toml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))

	return p
}

func TestReadConfigSample(t *testing.T) {
	projectRoot, err := filepath.Abs("../../")
	require.NoError(t, err)

	cfg, err := ReadConfig(filepath.Join(projectRoot, "etc", "main.toml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Webserver.Port)
	assert.Equal(t, "sqlite", cfg.DB.Engine)
	assert.Equal(t, "ais", cfg.Sync.SourceTag)
	assert.True(t, cfg.OOTB.Enabled)
	assert.Equal(t, -10, cfg.AIS.Priority)
	assert.Equal(t, "app_(.+)", cfg.Roles.FormatPatterns)
}

func TestReadConfigDefaults(t *testing.T) {
	cfg, err := ReadConfig(writeConfig(t, "[webserver]\nport = 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Webserver.Port)
	assert.Equal(t, "keycloak-ext.db", cfg.DB.Name)
	assert.True(t, cfg.Sync.CreateMissingUser)
	assert.True(t, cfg.Sync.ClearNewUserDefaultGroups)
	assert.True(t, cfg.Sync.CreateMissingGroup)
	assert.True(t, cfg.Sync.SyncGroupAdd)
	assert.True(t, cfg.Sync.SyncGroupRemove)
	assert.False(t, cfg.Sync.SyncInternalGroups)
	assert.False(t, cfg.Sync.EnableDuplicateGroupRepair)
	assert.Equal(t, -5, cfg.Keycloak.Priority)
	assert.True(t, cfg.Keycloak.SkipClientIDCheck)
	assert.Equal(t, 5, cfg.LDAP.Priority)
	assert.Equal(t, "(mail={username})", cfg.LDAP.UserFilter)
	assert.Equal(t, 0, cfg.OOTB.Priority)
	assert.Equal(t, "admins", cfg.Admin.Group.Name)
	assert.Empty(t, cfg.Interceptor.SkipPostAuthenticate)
}

func TestReadConfigEnvOverrides(t *testing.T) {
	t.Setenv("KEYCLOAK_EXT_SYNC_SOURCETAG", "kc")
	t.Setenv("KEYCLOAK_EXT_TENANT", "acme")
	t.Setenv(JSONEnv, `{"interceptor":{"skipPostAuthenticate":["admin@app.activiti.com"]},"sync":{"syncGroupRemove":false}}`)

	cfg, err := ReadConfig(writeConfig(t, "tenant = \"file\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "kc", cfg.Sync.SourceTag)
	assert.Equal(t, "acme", cfg.Tenant)
	assert.False(t, cfg.Sync.SyncGroupRemove)
	assert.Equal(t, []string{"admin@app.activiti.com"}, cfg.Interceptor.SkipPostAuthenticate)
}

func TestReadConfigErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		invalid bool
	}{
		{name: "broken toml", content: "[db\n"},
		{name: "unknown engine", content: "[db]\nengine = \"oracle\"\n", invalid: true},
		{name: "mysql without host", content: "[db]\nengine = \"mysql\"\n", invalid: true},
		{name: "keycloak enabled without issuer", content: "[keycloak]\nenabled = true\n", invalid: true},
		{name: "ais enabled without client", content: "[ais]\nenabled = true\nissuerURL = \"https://idp.example.com\"\n", invalid: true},
		{name: "ldap enabled without host", content: "[ldap]\nenabled = true\n", invalid: true},
		{name: "zero port", content: "[webserver]\nport = 0\n", invalid: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadConfig(writeConfig(t, tc.content))
			require.Error(t, err)
			if tc.invalid {
				require.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}

	_, err := ReadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestDumpConfigJSONOmitsSecrets(t *testing.T) {
	cfg, err := ReadConfig(writeConfig(t, "[ais]\nclientSecret = \"s3cr3t\"\n[db]\npassword = \"hunter2\"\n"))
	require.NoError(t, err)

	out, err := DumpConfigJSON(cfg)
	require.NoError(t, err)
	assert.Contains(t, out, `"sourceTag": "ais"`)
	assert.NotContains(t, out, "s3cr3t")
	assert.NotContains(t, out, "hunter2")
}
