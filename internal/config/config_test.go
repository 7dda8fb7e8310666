package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
database:
  driver: sqlite
  path: /tmp/taskflow.db
auth:
  jwt_secret: from-file
sync:
  scratchpad_debounce: 750ms
`), 0644))

	t.Setenv("PORT", "9000")
	t.Setenv("SUPER_ADMIN_EMAILS", "root@example.com, ops@example.com")

	c := Load(path)
	assert.Equal(t, 9000, c.Server.Port)
	assert.Equal(t, "sqlite", c.Database.Driver)
	assert.Equal(t, "from-file", c.Auth.JWTSecret)
	assert.Equal(t, 750*time.Millisecond, c.Sync.ScratchpadDebounce)
	assert.Equal(t, []string{"root@example.com", "ops@example.com"}, c.Auth.SuperAdminEmails)
	assert.Equal(t, 7*24*time.Hour, c.Auth.TokenTTL, "defaults survive a partial file")
	assert.Empty(t, c.MissingRequired())
}

func TestMissingRequired(t *testing.T) {
	c := Default()
	assert.Equal(t, []string{"DB_HOST", "JWT_SECRET"}, c.MissingRequired())

	c.Database.Driver = "sqlite"
	c.Auth.JWTSecret = "s"
	assert.Equal(t, []string{"DB_PATH"}, c.MissingRequired())

	c.Database.Path = "data/taskflow.db"
	assert.Empty(t, c.MissingRequired())
}

func TestAIEnabled(t *testing.T) {
	c := Default()
	assert.False(t, c.AIEnabled())
	c.AI.BaseURL, c.AI.APIKey = "https://llm.example.com", "k"
	assert.True(t, c.AIEnabled())
}
