package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, defaultSiteName, cfg.Site.Name)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
port: 8080
env: production
jwt_secret: test-secret
database:
  host: db.internal
  user: showcase
  password: pw
  name: portal
redis:
  host: cache.internal
  db: 2
site:
  name: CS Portal
  web_url: https://projects.example.edu/
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, "showcase:pw@tcp(db.internal:3306)/portal?charset=utf8mb4&loc=Local&parseTime=true", cfg.Database.DSNValue())
	assert.Equal(t, "redis://cache.internal:6379/2", cfg.Redis.URLValue())
	assert.Equal(t, "https://projects.example.edu/projects/abc", cfg.ProjectURL("abc"))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("DB_DSN", "user:pw@tcp(1.2.3.4:3306)/db?parseTime=true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "user:pw@tcp(1.2.3.4:3306)/db?parseTime=true", cfg.Database.DSNValue())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestRedisURLVerbatim(t *testing.T) {
	c := RedisConfig{URL: "localhost:6379"}
	assert.Equal(t, "redis://localhost:6379", c.URLValue())

	c = RedisConfig{TLS: true, Password: "secret"}
	assert.Equal(t, "rediss://:secret@localhost:6379/0", c.URLValue())
}
