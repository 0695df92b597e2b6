package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sysguard.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, 80.0, cfg.CPUThreshold)
	assert.Equal(t, 95.0, cfg.CPUKillThreshold)
	assert.Equal(t, 50.0, cfg.CPUUsageFloor)
	assert.Equal(t, 20.0, cfg.MemUsageFloor)
	assert.False(t, cfg.AutoKillEnabled)
	assert.Equal(t, 60*time.Second, cfg.KillCooldown)
}

func TestLoadParsesValues(t *testing.T) {
	path := writeConfig(t, `
# 阈值配置
CPU_THRESHOLD=70
MEM_THRESHOLD=75
DISK_THRESHOLD=85
CPU_KILL_THRESHOLD=90
AUTO_KILL_ENABLED=true
PROTECTED_PROCESSES=sshd systemd postgres
KILL_COOLDOWN=120
INTERVAL=10
LOG_FILE=/tmp/guard.log
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 70.0, cfg.CPUThreshold)
	assert.Equal(t, 90.0, cfg.CPUKillThreshold)
	assert.True(t, cfg.AutoKillEnabled)
	assert.Equal(t, []string{"sshd", "systemd", "postgres"}, cfg.ProtectedProcesses)
	assert.Equal(t, 120*time.Second, cfg.KillCooldown)
	assert.Equal(t, 10*time.Second, cfg.Interval)
	assert.Equal(t, "/tmp/guard.log", cfg.LogFile)
	// 未出现的配置项保持默认值
	assert.Equal(t, 95.0, cfg.MemKillThreshold)
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	path := writeConfig(t, "SOME_FUTURE_KEY=42\nCPU_THRESHOLD=60\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60.0, cfg.CPUThreshold)
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	path := writeConfig(t, "CPU_THRESHOLD\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing '='")
}

func TestLoadRejectsInvalidBool(t *testing.T) {
	path := writeConfig(t, "AUTO_KILL_ENABLED=maybe\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvalidNumber(t *testing.T) {
	path := writeConfig(t, "CPU_THRESHOLD=high\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateKillBelowAlert(t *testing.T) {
	path := writeConfig(t, "CPU_THRESHOLD=90\nCPU_KILL_THRESHOLD=80\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CPU_KILL_THRESHOLD")
}

func TestValidateThresholdRange(t *testing.T) {
	for _, content := range []string{
		"CPU_THRESHOLD=0\n",
		"MEM_THRESHOLD=101\nMEM_KILL_THRESHOLD=101\n",
	} {
		path := writeConfig(t, content)
		_, err := Load(path)
		assert.Error(t, err, "content %q", content)
	}
}

func TestValidateInterval(t *testing.T) {
	path := writeConfig(t, "INTERVAL=0\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTERVAL")
}
