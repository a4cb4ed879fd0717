package ifccheck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no output dir", func(c *Config) { c.OutputDir = "" }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "oracle" }},
		{"neo4j without uri", func(c *Config) { c.Store.Backend = "neo4j" }},
		{"bad rdf format", func(c *Config) { c.RDFFormat = "rdfxml" }},
		{"unknown root class", func(c *Config) { c.RootClass = "IfcUnicorn" }},
		{"unknown provider", func(c *Config) { c.Chat.Provider = "gemini" }},
		{"negative depth", func(c *Config) { c.Suggestions.NeighbourhoodDepth = -1 }},
		{"too many retries", func(c *Config) { c.Chat.MaxRetries = 99 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)

			_, err = New(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNewRejectsMissingProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chat.Provider = ""
	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrLLMUnavailable)

	cfg.Suggestions.Enabled = false
	_, err = New(cfg)
	assert.NoError(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ifccheck.yaml")
	doc := `
output_dir: /tmp/out
rdf_format: ntriples
store:
  backend: neo4j
  uri: bolt://localhost:7687
  username: neo4j
chat:
  provider: openai
  model: gpt-4o-mini
  timeout: 30s
suggestions:
  enabled: true
  neighbourhood_depth: 2
  breaker:
    consecutive_failures: 5
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, "neo4j", cfg.Store.Backend)
	assert.Equal(t, "openai", cfg.Chat.Provider)
	assert.Equal(t, "30s", cfg.Chat.Timeout.String())
	assert.Equal(t, 2, cfg.Suggestions.NeighbourhoodDepth)
	assert.Equal(t, uint32(5), cfg.Suggestions.Breaker.ConsecutiveFailures)
	assert.Equal(t, "IfcProduct", cfg.RootClass, "unset fields keep defaults")
	assert.NoError(t, cfg.Validate())

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("IFCCHECK_STORE_BACKEND", "neo4j")
	t.Setenv("IFCCHECK_NEO4J_URI", "bolt://graph:7687")
	t.Setenv("IFCCHECK_CHAT_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("IFCCHECK_SUGGESTIONS", "false")
	t.Setenv("IFCCHECK_CHAT_TIMEOUT", "5s")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "neo4j", cfg.Store.Backend)
	assert.Equal(t, "bolt://graph:7687", cfg.Store.URI)
	assert.Equal(t, "sk-env", cfg.Chat.APIKey)
	assert.False(t, cfg.Suggestions.Enabled)
	assert.Equal(t, "5s", cfg.Chat.Timeout.String())

	t.Setenv("IFCCHECK_SUGGESTIONS", "maybe")
	assert.ErrorIs(t, cfg.ApplyEnv(), ErrInvalidConfig)
}

func TestResolveStoreDefaultsSQLitePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputDir = "out"
	assert.Equal(t, filepath.Join("out", "graph.db"), cfg.resolveStore().Path)

	cfg.Store.Path = "/data/g.db"
	assert.Equal(t, "/data/g.db", cfg.resolveStore().Path)
}
