package surveyconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ".surveyflow/dolt", cfg.Storage.Path)
	require.False(t, cfg.Storage.ServerMode)
	require.Equal(t, 30*time.Second, cfg.Storage.RetryMaxElapsed)
	require.Equal(t, "surveyflow-engine", cfg.Telemetry.ServiceName)
}

func TestLoadOverridesFromYaml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  path: /var/lib/surveyflow\n  server_mode: true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/surveyflow", cfg.Storage.Path)
	require.True(t, cfg.Storage.ServerMode)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SURVEYFLOW_STORAGE_PATH", "/env/override")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/env/override", cfg.Storage.Path)
}
