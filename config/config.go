// Package config 负责加载和校验引擎配置。
//
// 配置文件为key=value格式，每行一个配置项，#开头的行和空行被忽略。
// 文件不存在时全部使用默认值。
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dreamsxin/sysguard/types"
)

// Default 返回默认配置
func Default() *types.Config {
	return &types.Config{
		Interval:         5 * time.Second,
		CPUThreshold:     80,
		MemThreshold:     85,
		DiskThreshold:    90,
		CPUKillThreshold: 95,
		MemKillThreshold: 95,
		CPUUsageFloor:    50,
		MemUsageFloor:    20,
		AutoKillEnabled:  false,
		KillCooldown:     60 * time.Second,
		GracePeriod:      2 * time.Second,
		NetworkSettle:    time.Second,
		TopProcessCount:  10,
		LogFile:          "sysguard.log",
		HistoryFile:      "sysguard_history.csv",
	}
}

// Load 从文件加载配置，未出现的配置项保持默认值
func Load(path string) (*types.Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("config line %d: missing '=' in %q", lineNo, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if err := apply(cfg, key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apply 应用单个配置项，未知key被忽略以保持向前兼容
func apply(cfg *types.Config, key, value string) error {
	switch key {
	case "CPU_THRESHOLD":
		return setPercent(&cfg.CPUThreshold, key, value)
	case "MEM_THRESHOLD":
		return setPercent(&cfg.MemThreshold, key, value)
	case "DISK_THRESHOLD":
		return setPercent(&cfg.DiskThreshold, key, value)
	case "CPU_KILL_THRESHOLD":
		return setPercent(&cfg.CPUKillThreshold, key, value)
	case "MEM_KILL_THRESHOLD":
		return setPercent(&cfg.MemKillThreshold, key, value)
	case "CPU_USAGE_FLOOR":
		return setPercent(&cfg.CPUUsageFloor, key, value)
	case "MEM_USAGE_FLOOR":
		return setPercent(&cfg.MemUsageFloor, key, value)
	case "AUTO_KILL_ENABLED":
		return setBool(&cfg.AutoKillEnabled, key, value)
	case "PROTECTED_PROCESSES":
		cfg.ProtectedProcesses = strings.Fields(value)
		return nil
	case "KILL_COOLDOWN":
		return setSeconds(&cfg.KillCooldown, key, value)
	case "INTERVAL":
		return setSeconds(&cfg.Interval, key, value)
	case "LOG_FILE":
		cfg.LogFile = value
		return nil
	case "HISTORY_FILE":
		cfg.HistoryFile = value
		return nil
	default:
		return nil
	}
}

// Validate 校验配置的合法性
func Validate(cfg *types.Config) error {
	for _, t := range []struct {
		name  string
		value float64
	}{
		{"CPU_THRESHOLD", cfg.CPUThreshold},
		{"MEM_THRESHOLD", cfg.MemThreshold},
		{"DISK_THRESHOLD", cfg.DiskThreshold},
		{"CPU_KILL_THRESHOLD", cfg.CPUKillThreshold},
		{"MEM_KILL_THRESHOLD", cfg.MemKillThreshold},
	} {
		if t.value <= 0 || t.value > 100 {
			return fmt.Errorf("%s must be in (0, 100], got %v", t.name, t.value)
		}
	}
	if cfg.CPUKillThreshold < cfg.CPUThreshold {
		return fmt.Errorf("CPU_KILL_THRESHOLD (%v) must not be below CPU_THRESHOLD (%v)",
			cfg.CPUKillThreshold, cfg.CPUThreshold)
	}
	if cfg.MemKillThreshold < cfg.MemThreshold {
		return fmt.Errorf("MEM_KILL_THRESHOLD (%v) must not be below MEM_THRESHOLD (%v)",
			cfg.MemKillThreshold, cfg.MemThreshold)
	}
	if cfg.Interval < time.Second {
		return fmt.Errorf("INTERVAL must be at least 1 second, got %v", cfg.Interval)
	}
	if cfg.KillCooldown <= 0 {
		return fmt.Errorf("KILL_COOLDOWN must be positive, got %v", cfg.KillCooldown)
	}
	if cfg.TopProcessCount < 1 {
		return fmt.Errorf("top process count must be at least 1, got %d", cfg.TopProcessCount)
	}
	return nil
}

func setPercent(dst *float64, key, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid number %q", key, value)
	}
	*dst = v
	return nil
}

func setBool(dst *bool, key, value string) error {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	default:
		return fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return nil
}

func setSeconds(dst *time.Duration, key, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil || v < 0 {
		return fmt.Errorf("%s: invalid seconds value %q", key, value)
	}
	*dst = time.Duration(v) * time.Second
	return nil
}
