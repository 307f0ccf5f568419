package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/skycast/internal/config"
)

var allKeys = []string{
	config.FileEnv,
	"PORT", "DATABASE_URL", "BEARER_TOKEN", "OPENWEATHER_API_KEY", "OPENWEATHER_URL",
	"UPSTREAM_TIMEOUT", "UPSTREAM_MAX_TRIES", "UPSTREAM_RPS",
	"SKYCAST_API_URL", "REDIS_URL", "SESSION_NAMESPACE", "SKYCAST_USER_ID",
	"LOCATION_ENABLED", "GEOLOCATION_URL",
}

// clearEnv blanks every variable the loaders read; empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skycast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadServer_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/skycast")
	t.Setenv("BEARER_TOKEN", "secret")

	cfg, err := config.LoadServer()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://api.openweathermap.org/data/2.5/weather", cfg.OpenWeatherURL)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, uint(3), cfg.UpstreamMaxTries)
	assert.Empty(t, cfg.OpenWeatherAPIKey, "missing key is allowed")
}

func TestLoadServer_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/skycast")
	t.Setenv("BEARER_TOKEN", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("OPENWEATHER_API_KEY", "owm-key")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("UPSTREAM_MAX_TRIES", "5")
	t.Setenv("UPSTREAM_RPS", "0.5")

	cfg, err := config.LoadServer()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "owm-key", cfg.OpenWeatherAPIKey)
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, uint(5), cfg.UpstreamMaxTries)
	assert.Equal(t, 0.5, cfg.UpstreamRPS)
}

func TestLoadServer_MissingRequired(t *testing.T) {
	clearEnv(t)

	_, err := config.LoadServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseURL")
	assert.Contains(t, err.Error(), "BearerToken")
}

func TestLoadServer_BadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/skycast")
	t.Setenv("BEARER_TOKEN", "secret")
	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	t.Setenv("UPSTREAM_MAX_TRIES", "-1")

	_, err := config.LoadServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPSTREAM_TIMEOUT")
	assert.Contains(t, err.Error(), "UPSTREAM_MAX_TRIES")
}

func TestLoadServer_OutOfRange(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/skycast")
	t.Setenv("BEARER_TOKEN", "secret")
	t.Setenv("UPSTREAM_MAX_TRIES", "50")

	_, err := config.LoadServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UpstreamMaxTries")
}

func TestLoadServer_FileThenEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.FileEnv, writeFile(t, `
server:
  port: "7000"
  database_url: postgres://file/skycast
  bearer_token: from-file
  upstream_timeout: 4s
client:
  api_url: http://ignored
`))
	t.Setenv("BEARER_TOKEN", "from-env")

	cfg, err := config.LoadServer()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "postgres://file/skycast", cfg.DatabaseURL)
	assert.Equal(t, "from-env", cfg.BearerToken)
	assert.Equal(t, 4*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, uint(3), cfg.UpstreamMaxTries, "defaults survive a partial file")
}

func TestLoadServer_BadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.FileEnv, writeFile(t, "server: [unterminated"))

	_, err := config.LoadServer()
	require.Error(t, err)
}

func TestLoadServer_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.FileEnv, filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := config.LoadServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadClient_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SKYCAST_API_URL", "http://localhost:8080")
	t.Setenv("BEARER_TOKEN", "secret")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := config.LoadClient()
	require.NoError(t, err)

	assert.Equal(t, "weatherApp", cfg.SessionNamespace)
	assert.True(t, cfg.LocationEnabled)
	assert.Empty(t, cfg.UserID)
	assert.Equal(t, "http://ip-api.com/json/", cfg.GeolocationURL)
}

func TestLoadClient_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SKYCAST_API_URL", "http://localhost:8080")
	t.Setenv("BEARER_TOKEN", "secret")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SESSION_NAMESPACE", "other")
	t.Setenv("SKYCAST_USER_ID", "user-1")
	t.Setenv("LOCATION_ENABLED", "false")

	cfg, err := config.LoadClient()
	require.NoError(t, err)

	assert.Equal(t, "other", cfg.SessionNamespace)
	assert.Equal(t, "user-1", cfg.UserID)
	assert.False(t, cfg.LocationEnabled)
}

func TestLoadClient_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("SKYCAST_API_URL", "not a url")
	t.Setenv("BEARER_TOKEN", "secret")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	_, err := config.LoadClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APIURL")
}

func TestLoadClient_BadBool(t *testing.T) {
	clearEnv(t)
	t.Setenv("SKYCAST_API_URL", "http://localhost:8080")
	t.Setenv("BEARER_TOKEN", "secret")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOCATION_ENABLED", "maybe")

	_, err := config.LoadClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOCATION_ENABLED")
}
