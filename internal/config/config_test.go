package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
server:
  port: "9090"
  mode: debug
jwt:
  access_secret: access-secret-for-tests
  refresh_secret: refresh-secret-for-tests
  access_expire_minutes: 10
  refresh_expire_hours: 48
storage:
  type: minio
gamification:
  max_level: 20
  max_xp: 10000
  curve: triangular
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := writeConfig(t, testYAML)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.JWT.AccessExpire)
	assert.Equal(t, 48*time.Hour, cfg.JWT.RefreshExpire)
	assert.Equal(t, 20, cfg.Gamification.MaxLevel)
	assert.Equal(t, int64(10000), cfg.Gamification.MaxXP)
	assert.Equal(t, "triangular", cfg.Gamification.Curve)
	// 未配置项使用默认值
	assert.Equal(t, 50, cfg.Gamification.CoinsPerLevel)
	assert.Equal(t, "@monthly", cfg.Leaderboard.SnapshotCron)
	assert.Equal(t, "logs/readsy.log", cfg.Log.File)
	assert.Equal(t, 100, cfg.Log.MaxSizeMB)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := writeConfig(t, testYAML)
	t.Setenv("GAMIFICATION_MAX_LEVEL", "12")
	t.Setenv("GAMIFICATION_MAX_XP", "6600")
	t.Setenv("DATABASE_URL", "readsy:pw@tcp(db:3306)/readsy?parseTime=true")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Gamification.MaxLevel)
	assert.Equal(t, int64(6600), cfg.Gamification.MaxXP)
	assert.Equal(t, "readsy:pw@tcp(db:3306)/readsy?parseTime=true", cfg.Database.DSN())
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Mode: "debug"},
			JWT:    JWTConfig{AccessSecret: "a", RefreshSecret: "b"},
			Gamification: GamificationConfig{
				MaxLevel: 10,
				MaxXP:    5500,
			},
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.JWT.RefreshSecret = "a"
	assert.Error(t, cfg.Validate(), "shared secrets")

	cfg = base()
	cfg.Server.Mode = "release"
	assert.Error(t, cfg.Validate(), "short secrets in release")

	cfg = base()
	cfg.Gamification.MaxLevel = 1
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Gamification.MaxXP = 0
	assert.Error(t, cfg.Validate())
}

func TestDSN_FromFields(t *testing.T) {
	db := DatabaseConfig{
		Host:      "localhost",
		Port:      3306,
		User:      "root",
		Password:  "pw",
		DBName:    "readsy",
		Charset:   "utf8mb4",
		ParseTime: true,
	}
	assert.Equal(t, "root:pw@tcp(localhost:3306)/readsy?charset=utf8mb4&parseTime=true&loc=Local", db.DSN())
}
