package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Server.Address())
	assert.Equal(t, "http://localhost:5555", cfg.Server.FrontendURL)
	assert.Equal(t, "auth_token", cfg.Auth.CookieName)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, 5*time.Minute, cfg.Auth.NonceTTL())
	assert.Equal(t, "memory", cfg.Storage.Database.Driver)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Empty(t, cfg.LLM.KnowledgePath)
	assert.Equal(t, 5, cfg.Files.MaxSizeMB)
	assert.Equal(t, "memory", cfg.TaskQueue.Driver)
}

func TestLoadYAMLAndEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "defiagent.yaml", `
server:
  port: 4000
  env: production
storage:
  database:
    driver: mysql
    dsn: root:pw@tcp(localhost:3306)/defi
llm:
  knowledge_path: knowledge.yaml
web3:
  chain_config: chains.yaml
`)
	t.Setenv("PORT", "4100")
	t.Setenv("AUTH_SECRET", "from-env")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4100, cfg.Server.Port)
	assert.True(t, cfg.Server.IsProduction())
	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, "mysql", cfg.Storage.Database.Driver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.Redis.URL)
	assert.Equal(t, filepath.Join(dir, "chains.yaml"), cfg.Web3.ChainConfig)
	assert.Equal(t, filepath.Join(dir, "knowledge.yaml"), cfg.LLM.KnowledgePath)
	assert.Equal(t, 3, cfg.LLM.KnowledgeLimit)
}

func TestLoadDotEnvNextToConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "defiagent.yaml", "server:\n  port: 3001\n")
	writeFile(t, dir, ".env", "DATABASE_URL=postgres://u:p@localhost/defi?sslmode=disable\n")
	t.Cleanup(func() { os.Unsetenv("DATABASE_URL") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Database.Driver)
	assert.Equal(t, "postgres://u:p@localhost/defi?sslmode=disable", cfg.Storage.Database.DSN)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "server: [")
	_, err := Load(path)
	require.Error(t, err)
}
