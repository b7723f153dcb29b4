package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()

	assert.Equal(t, "ID", cfg.Columns.Subject)
	assert.Equal(t, "PROFDAY", cfg.Columns.Day)
	assert.Equal(t, "LIDV", cfg.Columns.Value)
	assert.Equal(t, "MARKER", cfg.Columns.Subgroup)
	assert.Equal(t, "TRT", cfg.Columns.Treatment)
	assert.Equal(t, 0.0, cfg.BaselineDay)
	assert.Equal(t, 1.96, cfg.CIMultiplier)
	assert.Equal(t, 1.0, cfg.Comparison.Active)
	assert.Equal(t, 0.0, cfg.Comparison.Placebo)
	assert.True(t, cfg.Comparison.BenefitPositive)

	// The default is not runnable until an input file is named.
	assert.Error(t, cfg.Validate())
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Parallel()

	body := `
input: obese_weight_loss.csv
filter:
  study: 100
  compartment: 2
  doses: [0, 150]
ci_multiplier: 2.5
comparison:
  active: 150
  placebo: 0
  benefit_positive: false
output:
  csv: contrasts.csv
`
	path := writeFile(t, "analysis.yaml", body)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "obese_weight_loss.csv", cfg.Input)
	require.NotNil(t, cfg.Filter.Study)
	assert.Equal(t, 100.0, *cfg.Filter.Study)
	assert.Nil(t, cfg.Filter.Part)
	assert.Equal(t, []float64{0, 150}, cfg.Filter.Doses)
	assert.Equal(t, 2.5, cfg.CIMultiplier)
	assert.Equal(t, 150.0, cfg.Comparison.Active)
	assert.False(t, cfg.Comparison.BenefitPositive)
	assert.Equal(t, "contrasts.csv", cfg.Output.CSV)

	// Unspecified fields keep their defaults.
	assert.Equal(t, "ID", cfg.Columns.Subject)
	assert.Equal(t, 0.0, cfg.BaselineDay)
}

func TestLoadFromFileJSON(t *testing.T) {
	t.Parallel()

	// JSON is a subset of YAML, so a JSON document loads through the
	// same parse path.
	body := `{"input": "data.csv", "comparison": {"active": 1, "placebo": 0, "benefit_positive": true}}`
	path := writeFile(t, "analysis.json", body)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data.csv", cfg.Input)
	assert.Equal(t, 1.0, cfg.Comparison.Active)
	assert.True(t, cfg.Comparison.BenefitPositive)
}

func TestLoadFromFileInvalid(t *testing.T) {
	t.Parallel()

	// Not parseable as YAML (or its JSON subset).
	path := writeFile(t, "bad.yaml", "{{{")
	_, err := LoadFromFile(path)
	assert.Error(t, err)

	// Parseable but not valid.
	path = writeFile(t, "invalid.yaml", "input: data.csv\nci_multiplier: -1\n")
	_, err = LoadFromFile(path)
	assert.Error(t, err)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Input = "data.csv"
	assert.NoError(t, cfg.Validate())

	bad := *cfg
	bad.CIMultiplier = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Comparison.Placebo = bad.Comparison.Active
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Columns.Treatment = ""
	assert.Error(t, bad.Validate())
}
