package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_LanguageIsRequired(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Language")
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, "decorec.yaml", `
recommend:
  language: spanish
  alpha: 0.65
  k_spaces: 2
embedding:
  timeout: 3s
store:
  history_cap: 20
`)
	t.Setenv("DECOREC_RECOMMEND_BETA", "0.35")
	t.Setenv("DECOREC_STORE_HISTORY_CAP", "40")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "spanish", s.Recommend.Language)
	assert.Equal(t, 0.65, s.Recommend.Alpha)
	assert.Equal(t, 0.35, s.Recommend.Beta)
	assert.Equal(t, 2, s.Recommend.KSpaces)
	assert.Equal(t, 3, s.Recommend.KStyles)
	assert.Equal(t, 3*time.Second, s.Embedding.Timeout)
	assert.Equal(t, 40, s.Store.HistoryCap)
	assert.Equal(t, "memory", s.Store.Driver)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Settings)
		ok     bool
	}{
		{"defaults with language", func(s *Settings) {}, true},
		{"unknown language", func(s *Settings) { s.Recommend.Language = "french" }, false},
		{"http provider needs endpoint", func(s *Settings) { s.Embedding.Provider = "http" }, false},
		{"http provider with endpoint", func(s *Settings) {
			s.Embedding.Provider = "http"
			s.Embedding.Endpoint = "http://localhost:8080"
		}, true},
		{"sqlite needs path", func(s *Settings) { s.Store.Driver = "sqlite" }, false},
		{"zero k", func(s *Settings) { s.Recommend.KStyles = 0 }, false},
		{"bad log level", func(s *Settings) { s.Logging.Level = "loud" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			s.Recommend.Language = "english"
			tt.mutate(s)
			err := s.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "embedding.rate_per_sec", envKey("DECOREC_EMBEDDING_RATE_PER_SEC"))
	assert.Equal(t, "recommend.language", envKey("DECOREC_RECOMMEND_LANGUAGE"))
	assert.Equal(t, "pipeline", envKey("DECOREC_PIPELINE"))
	assert.Equal(t, "", envKey("DECOREC_CONFIG"))
}
