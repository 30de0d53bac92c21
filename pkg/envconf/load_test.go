package envconf

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nested struct {
	Retries int           `env:"ENVCONF_TEST_RETRIES" default:"3"`
	Backoff time.Duration `env:"ENVCONF_TEST_BACKOFF" default:"15ms"`
}

type sample struct {
	Name    string     `env:"ENVCONF_TEST_NAME"`
	Port    uint16     `env:"ENVCONF_TEST_PORT" default:"8080"`
	Level   slog.Level `env:"ENVCONF_TEST_LEVEL" default:"INFO"`
	Origins []string   `env:"ENVCONF_TEST_ORIGINS" default:"*"`
	Nested  nested
	Extra   *nested
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("ENVCONF_TEST_NAME", "ledger")
	t.Setenv("ENVCONF_TEST_RETRIES", "5")
	t.Setenv("ENVCONF_TEST_LEVEL", "DEBUG")

	var cfg sample
	require.NoError(t, Load(&cfg))

	assert.Equal(t, "ledger", cfg.Name)
	assert.Equal(t, uint16(8080), cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.Level)
	assert.Equal(t, 5, cfg.Nested.Retries)
	assert.Equal(t, 15*time.Millisecond, cfg.Nested.Backoff)
	assert.Equal(t, []string{"*"}, cfg.Origins)
	require.NotNil(t, cfg.Extra)
	assert.Equal(t, 5, cfg.Extra.Retries)
}

func TestLoad_Slice(t *testing.T) {
	t.Setenv("ENVCONF_TEST_NAME", "ledger")
	t.Setenv("ENVCONF_TEST_ORIGINS", " https://a.example,,https://b.example ")

	var cfg sample
	require.NoError(t, Load(&cfg))

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins)
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	t.Setenv("ENVCONF_TEST_PORT", "not-a-port")

	var cfg sample

	err := Load(&cfg)
	require.ErrorIs(t, err, ErrMissingRequired)
	assert.Contains(t, err.Error(), "ENVCONF_TEST_NAME")
	assert.Contains(t, err.Error(), "ENVCONF_TEST_PORT")
}

func TestLoad_MissingRequired(t *testing.T) {
	var cfg sample

	err := Load(&cfg)
	require.ErrorIs(t, err, ErrMissingRequired)
	assert.Contains(t, err.Error(), "ENVCONF_TEST_NAME")
}

func TestLoad_RejectsNonPointer(t *testing.T) {
	require.Error(t, Load(sample{}))
	require.Error(t, Load(nil))
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ENVCONF_TEST_DOTENV=from-file\n"), 0o600))

	t.Setenv("ENVCONF_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("ENVCONF_TEST_DOTENV"))

	require.NoError(t, LoadDotenv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("ENVCONF_TEST_DOTENV"))
}
