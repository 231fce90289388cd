package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, c.Clusters)
	assert.Equal(t, int64(42), c.Seed)
	assert.Equal(t, 0.19, c.VATRate)
	assert.Equal(t, 1000.0, c.BranchPlaceholderFactor)
	assert.Equal(t, DefaultMonths, c.Months)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoad_FileAndEnvPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clusters: 4\nvat_rate: 0.21\nmonths: [Ian, Feb]\n"), 0o644))
	t.Setenv("TABLOOM_CLUSTERS", "5")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Clusters)
	assert.Equal(t, 0.21, c.VATRate)
	assert.Equal(t, []string{"Ian", "Feb"}, c.Months)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decision_threshold: 1.5\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "decision_threshold")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSetAndSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c := Default()
	require.NoError(t, c.Set("clusters", "6"))
	require.NoError(t, c.Set("months", "Ianuarie, Februarie"))
	require.NoError(t, c.Set("log_format", "json"))

	assert.Error(t, c.Set("clusters", "zero"))
	assert.Error(t, c.Set("clusters", "0"))
	assert.Equal(t, 6, c.Clusters)
	assert.ErrorContains(t, c.Set("nope", "1"), "unknown key")

	require.NoError(t, Save(c, ""))
	back, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6, back.Clusters)
	assert.Equal(t, []string{"Ianuarie", "Februarie"}, back.Months)
	assert.Equal(t, "json", back.LogFormat)
}

func TestValidate(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	bad := *c
	bad.Months = nil
	assert.Error(t, bad.Validate())

	bad = *c
	bad.LogLevel = "loud"
	assert.Error(t, bad.Validate())

	bad = *c
	bad.LogFormat = "xml"
	assert.Error(t, bad.Validate())
}

func TestLoadOptions(t *testing.T) {
	c := Default()
	c.Delimiter = "tab"
	c.DecimalSeparator = ","
	opt := c.LoadOptions()
	assert.Equal(t, '\t', opt.Delimiter)
	assert.Equal(t, ',', opt.DecimalSeparator)

	assert.Equal(t, '\t', ParseRune(`\t`))
	assert.Equal(t, ';', ParseRune(";"))
	assert.Equal(t, rune(0), ParseRune(""))
}
