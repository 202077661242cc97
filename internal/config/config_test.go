package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltastar/cfs/pkg/money"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CFS_DATA_DIR", filepath.Join(t.TempDir(), "data"))
	t.Setenv("CFS_PORT", "")
	t.Setenv("ORDER_MIN_AMOUNT", "")
	t.Setenv("ORDER_MAX_AMOUNT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, money.MustParse("0.001"), cfg.OrderMinAmount)
	assert.Equal(t, money.MustParse("1000000"), cfg.OrderMaxAmount)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CFS_DATA_DIR", t.TempDir())
	t.Setenv("CFS_PORT", "9001")
	t.Setenv("ORDER_MIN_AMOUNT", "10")
	t.Setenv("ORDER_MAX_AMOUNT", "50000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, money.MustParse("10"), cfg.OrderMinAmount)
	assert.Equal(t, money.MustParse("50000"), cfg.OrderMaxAmount)
}

func TestLoadRejectsInvertedBounds(t *testing.T) {
	t.Setenv("CFS_DATA_DIR", t.TempDir())
	t.Setenv("ORDER_MIN_AMOUNT", "100")
	t.Setenv("ORDER_MAX_AMOUNT", "10")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsMalformedBound(t *testing.T) {
	t.Setenv("CFS_DATA_DIR", t.TempDir())
	t.Setenv("ORDER_MIN_AMOUNT", "not-a-number")
	t.Setenv("ORDER_MAX_AMOUNT", "")

	_, err := Load()
	assert.Error(t, err)
}
