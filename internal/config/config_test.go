package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/signalengine/internal/core"
)

func TestDefault_PassesValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsEmptySymbols(t *testing.T) {
	cfg := Default()
	cfg.General.Symbols = nil
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownPrimaryInterval(t *testing.T) {
	cfg := Default()
	cfg.General.PrimaryInterval = "7x"
	err := cfg.Validate()
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestValidate_RejectsUnknownSecondaryInterval(t *testing.T) {
	cfg := Default()
	cfg.General.SecondaryIntervals = []string{"5m", "bogus"}
	err := cfg.Validate()
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestValidate_RejectsTooShortAnalysisPeriod(t *testing.T) {
	cfg := Default()
	cfg.General.AnalysisPeriodSeconds = 5
	assert.Error(t, cfg.Validate())
}

func TestLoad_WritesDefaultConfigWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signalengine.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().General.Symbols, cfg.General.Symbols)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestLoad_ReadsExistingConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signalengine.yaml")

	_, err := Load(path)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "15m", cfg.General.PrimaryInterval)
}

func TestRiskGateConfig_ConvertsRegimeKeyedThresholds(t *testing.T) {
	cfg := Default()
	riskCfg := cfg.RiskGateConfig()
	assert.Equal(t, cfg.Risk.EVThresholdBase["TRENDING_UP"], riskCfg.EVThresholdBase[core.RegimeTrendingUp])
}

func TestPositionConfig_CarriesLocalLocation(t *testing.T) {
	cfg := Default()
	posCfg := cfg.PositionConfig()
	require.NotNil(t, posCfg.Location)
}

func TestEngineConfig_DerivesPeriodFromSeconds(t *testing.T) {
	cfg := Default()
	cfg.General.AnalysisPeriodSeconds = 45
	engCfg := cfg.EngineConfig()
	assert.Equal(t, int64(45), engCfg.Period.Nanoseconds()/1e9)
}
