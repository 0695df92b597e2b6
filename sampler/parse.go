package sampler

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// Linux时钟频率，通常为100（sysconf(_SC_CLK_TCK)）
const clockTicks = 100

// cpuTimes /proc/stat汇总行解析出的CPU时间
type cpuTimes struct {
	total uint64
	idle  uint64
}

// parseCPUTimes 解析/proc/stat内容中的"cpu "汇总行
func parseCPUTimes(data string) (cpuTimes, error) {
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 8 {
			return cpuTimes{}, fmt.Errorf("invalid cpu line: %q", line)
		}

		var times [7]uint64
		for i := 0; i < 7; i++ {
			v, err := strconv.ParseUint(fields[i+1], 10, 64)
			if err != nil {
				return cpuTimes{}, fmt.Errorf("invalid cpu field %q: %w", fields[i+1], err)
			}
			times[i] = v
		}

		// user nice system idle iowait irq softirq
		total := times[0] + times[1] + times[2] + times[3] + times[4] + times[5] + times[6]
		idle := times[3] + times[4]
		return cpuTimes{total: total, idle: idle}, nil
	}
	return cpuTimes{}, fmt.Errorf("cpu line not found")
}

// cpuPercent 根据两次读数计算CPU使用率
func cpuPercent(prev, cur cpuTimes) float64 {
	totalDiff := cur.total - prev.total
	if totalDiff == 0 {
		return 0
	}
	idleDiff := cur.idle - prev.idle
	pct := (1.0 - float64(idleDiff)/float64(totalDiff)) * 100.0
	return clampPercent(pct)
}

// parseBootTime 从/proc/stat内容解析系统启动时间（Unix秒）
func parseBootTime(data string) (int64, error) {
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "btime ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, fmt.Errorf("invalid btime line: %q", line)
		}
		return strconv.ParseInt(fields[1], 10, 64)
	}
	return 0, fmt.Errorf("btime not found")
}

// memInfo /proc/meminfo解析结果
type memInfo struct {
	totalBytes     uint64
	availableBytes uint64
}

// parseMemInfo 解析/proc/meminfo内容
func parseMemInfo(data string) (memInfo, error) {
	var info memInfo
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			kb, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return memInfo{}, fmt.Errorf("invalid MemTotal: %w", err)
			}
			info.totalBytes = kb * 1024
		case "MemAvailable:":
			kb, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return memInfo{}, fmt.Errorf("invalid MemAvailable: %w", err)
			}
			info.availableBytes = kb * 1024
		}
	}
	if info.totalBytes == 0 {
		return memInfo{}, fmt.Errorf("MemTotal not found")
	}
	return info, nil
}

// percent 内存使用率
func (m memInfo) percent() float64 {
	used := m.totalBytes - m.availableBytes
	return clampPercent(float64(used) / float64(m.totalBytes) * 100)
}

// netCounters 网络接口字节计数器总和
type netCounters struct {
	rxBytes uint64
	txBytes uint64
	// 统计到的物理接口数，为零表示没有可用接口
	interfaces int
}

// parseNetDev 解析/proc/net/dev内容，回环接口不计入
func parseNetDev(data string) netCounters {
	var c netCounters
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" || name == "lo" {
			continue
		}
		fields := strings.Fields(rest)
		// 接收字节为第1列，发送字节为第9列
		if len(fields) < 9 {
			continue
		}
		rx, err1 := strconv.ParseUint(fields[0], 10, 64)
		tx, err2 := strconv.ParseUint(fields[8], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		c.rxBytes += rx
		c.txBytes += tx
		c.interfaces++
	}
	return c
}

// rateKBps 根据两次读数和间隔时长计算KB/s速率
func rateKBps(prev, cur uint64, seconds float64) uint64 {
	if seconds <= 0 || cur <= prev {
		return 0
	}
	return uint64(float64(cur-prev) / seconds / 1024)
}

// procStat /proc/<pid>/stat解析结果
type procStat struct {
	name       string
	state      string
	jiffies    uint64 // utime+stime
	startTicks uint64 // 启动时间，自系统启动起的ticks数
}

// parseProcStat 解析/proc/<pid>/stat内容
//
// 进程名可能包含空格和括号，用第一个'('和最后一个')'定位。
func parseProcStat(data string) (procStat, error) {
	firstParen := strings.IndexRune(data, '(')
	lastParen := strings.LastIndex(data, ")")
	if firstParen == -1 || lastParen == -1 || lastParen < firstParen {
		return procStat{}, fmt.Errorf("invalid stat format")
	}

	name := data[firstParen+1 : lastParen]
	rest := strings.Fields(data[lastParen+1:])
	if len(rest) < 20 {
		return procStat{}, fmt.Errorf("invalid stat format: %d fields after comm", len(rest))
	}

	utime, err := strconv.ParseUint(rest[11], 10, 64)
	if err != nil {
		return procStat{}, fmt.Errorf("invalid utime: %w", err)
	}
	stime, err := strconv.ParseUint(rest[12], 10, 64)
	if err != nil {
		return procStat{}, fmt.Errorf("invalid stime: %w", err)
	}
	startTicks, err := strconv.ParseUint(rest[19], 10, 64)
	if err != nil {
		return procStat{}, fmt.Errorf("invalid starttime: %w", err)
	}

	return procStat{
		name:       name,
		state:      rest[0],
		jiffies:    utime + stime,
		startTicks: startTicks,
	}, nil
}

// parseStatmRSS 解析/proc/<pid>/statm内容，返回RSS页数
func parseStatmRSS(data string) (uint64, error) {
	fields := strings.Fields(data)
	if len(fields) < 2 {
		return 0, fmt.Errorf("invalid statm format")
	}
	return strconv.ParseUint(fields[1], 10, 64)
}

// parseStatusUID 从/proc/<pid>/status内容解析真实UID
func parseStatusUID(data string) (string, error) {
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "Uid:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return "", fmt.Errorf("invalid Uid line: %q", line)
		}
		return fields[1], nil
	}
	return "", fmt.Errorf("Uid not found")
}

// clampPercent 百分比限制在0-100
func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
