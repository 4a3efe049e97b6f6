package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_n: 7\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, c.TopN)
	assert.Equal(t, "2022-09-09", c.DefaultDate)
	assert.Equal(t, 50, c.SampleSize)
	assert.Equal(t, int64(42), c.SampleSeed)
	assert.Equal(t, "hoja1", c.ExportSheet)
	assert.Equal(t, 0, c.HTTPTimeoutSec)
	assert.Equal(t, 2500.0, c.LineDeathsThreshold)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bar_country: Mexico\n"), 0o644))
	t.Setenv("COVIDLENS_BAR_COUNTRY", "Peru")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Peru", c.BarCountry)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("COVIDLENS_SAMPLE_SIZE=12\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("COVIDLENS_SAMPLE_SIZE") })
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, c.SampleSize)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSetAndSave(t *testing.T) {
	chdir(t, t.TempDir())
	c := Default()
	require.NoError(t, c.Set("top_n", "015"))
	assert.Equal(t, 15, c.TopN)
	require.NoError(t, c.Set("pie_countries", "Peru, Chile,,"))
	assert.Equal(t, []string{"Peru", "Chile"}, c.PieCountries)
	require.NoError(t, c.Set("source_base_url", "https://example.test/daily/"))
	assert.Equal(t, "https://example.test/daily", c.SourceBaseURL)

	assert.Error(t, c.Set("top_n", "-3"))
	assert.Error(t, c.Set("sample_size", "many"))
	assert.Error(t, c.Set("api_key", "x"))

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, Save(c, path))
	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15, back.TopN)
	assert.Equal(t, []string{"Peru", "Chile"}, back.PieCountries)
	assert.Equal(t, c.Values(), back.Values())
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
