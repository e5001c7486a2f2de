package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"taskSync/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestConfig_Load тестирует загрузку и значения по умолчанию
func TestConfig_Load(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: "9090"
remote:
  base_url: "https://api.example.com"
  token: "secret"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.GetServerAddr())
	assert.True(t, cfg.RemoteConfigured())
	// значения по умолчанию
	assert.Equal(t, "file", cfg.Store.Type)
	assert.Equal(t, 10*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 64, cfg.Sync.QueueSize)
	assert.Equal(t, 5*time.Minute, cfg.Sync.ResyncInterval)
}

// TestConfig_RemoteConfigured тестирует признак настроенной удалённой
// стороны: нужны и адрес, и токен
func TestConfig_RemoteConfigured(t *testing.T) {
	path := writeConfig(t, `
remote:
  base_url: "https://api.example.com"
  token: ""
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.RemoteConfigured())
}

// TestConfig_Reload тестирует явное перечитывание файла
func TestConfig_Reload(t *testing.T) {
	path := writeConfig(t, `
remote:
  base_url: ""
  token: ""
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.RemoteConfigured())

	require.NoError(t, os.WriteFile(path, []byte(`
remote:
  base_url: "https://api.example.com"
  token: "fresh"
`), 0o644))

	require.NoError(t, cfg.Reload())
	assert.True(t, cfg.RemoteConfigured())
	assert.Equal(t, "fresh", cfg.RemoteSettings().Token)
}

// TestConfig_LoadMissing тестирует отсутствующий файл
func TestConfig_LoadMissing(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "нет.yml"))
	assert.Error(t, err)
}
