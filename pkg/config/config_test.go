package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecu23/maze-server/pkg/game"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Debug)
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.DBPath)
	assert.Equal(t, 10, cfg.LeaderboardSize)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 4, cfg.SaveWorkers)
	assert.Equal(t, 5*time.Second, cfg.JobTimeout)
	assert.True(t, cfg.SoloSettings().Equal(game.DefaultSettings()))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MAZE_PORT", "9000")
	t.Setenv("MAZE_DB_PATH", "/tmp/runs.db")
	t.Setenv("MAZE_SOLO_MAX_LEVEL", "5")
	t.Setenv("MAZE_SOLO_SHOP_LEVELS", "2,4")
	t.Setenv("MAZE_SOLO_COUNTDOWN", "0s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "/tmp/runs.db", cfg.DBPath)

	settings := cfg.SoloSettings()
	assert.Equal(t, 5, settings.MaxLevel)
	assert.Equal(t, []int{2, 4}, settings.ShopLevels)
	assert.Zero(t, settings.CountdownDuration)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"MAZE_LEADERBOARD_SIZE": "0",
		"MAZE_TICK_INTERVAL":    "0s",
		"MAZE_SAVE_WORKERS":     "-1",
		"MAZE_SOLO_SHOP_LEVELS": "10",
		"MAZE_SOLO_MAX_LEVEL":   "abc",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestSoloSettingsCopiesShopLevels(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	settings := cfg.SoloSettings()
	settings.ShopLevels[0] = 99
	assert.Equal(t, 3, cfg.Solo.ShopLevels[0])
}
