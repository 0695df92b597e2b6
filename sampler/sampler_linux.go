//go:build linux

package sampler

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dreamsxin/sysguard/types"
)

// collect 采集Linux系统快照
//
// 流程：第一次读数（CPU计数器、网络计数器、各进程jiffies）→
// 稳定窗口等待 → 第二次读数并计算区间量和瞬时量。
func (s *Sampler) collect(ctx context.Context) (*types.MetricSnapshot, error) {
	failures := make(map[string]error)

	// 第一次读数
	var prevCPU cpuTimes
	prevCPUOK := false
	if data, err := os.ReadFile("/proc/stat"); err != nil {
		failures["cpu"] = err
	} else if prevCPU, err = parseCPUTimes(string(data)); err != nil {
		failures["cpu"] = err
	} else {
		prevCPUOK = true
	}

	prevNet, prevNetErr := readNetCounters()
	prevJiffies := scanProcJiffies()
	readStart := time.Now()

	if err := sleepContext(ctx, s.settle); err != nil {
		return nil, err
	}
	elapsed := time.Since(readStart).Seconds()

	snap := &types.MetricSnapshot{Timestamp: time.Now()}

	// CPU使用率
	var bootTime int64
	if data, err := os.ReadFile("/proc/stat"); err != nil {
		failures["cpu"] = err
	} else {
		curCPU, perr := parseCPUTimes(string(data))
		switch {
		case perr != nil:
			failures["cpu"] = perr
		case !prevCPUOK:
			// 第一次读数已失败，无法计算区间量
		default:
			snap.CPUPercent = cpuPercent(prevCPU, curCPU)
			delete(failures, "cpu")
		}
		if bt, berr := parseBootTime(string(data)); berr == nil {
			bootTime = bt
		}
	}

	// 内存使用率（瞬时量，取第二个读数点）
	var mem memInfo
	memOK := false
	if data, err := os.ReadFile("/proc/meminfo"); err != nil {
		failures["memory"] = err
	} else if mem, err = parseMemInfo(string(data)); err != nil {
		failures["memory"] = err
	} else {
		snap.MemoryPercent = mem.percent()
		memOK = true
	}

	// 磁盘使用率，根分区
	if pct, err := diskPercent("/"); err != nil {
		failures["disk"] = err
	} else {
		snap.DiskPercent = pct
	}

	// 网络速率，接口缺失属于降级而不是错误
	if curNet, err := readNetCounters(); err == nil && prevNetErr == nil {
		if curNet.interfaces > 0 {
			snap.NetworkRxKBps = rateKBps(prevNet.rxBytes, curNet.rxBytes, elapsed)
			snap.NetworkTxKBps = rateKBps(prevNet.txBytes, curNet.txBytes, elapsed)
		}
	}

	// CPU、内存、磁盘全部失败才算采样失败
	if failures["cpu"] != nil && failures["memory"] != nil && failures["disk"] != nil {
		return nil, &SamplingError{Failures: failures}
	}
	for source, err := range failures {
		s.logger.Warn("metric source degraded to zero", "source", source, "error", err)
	}

	var memTotal uint64
	if memOK {
		memTotal = mem.totalBytes
	}
	snap.TopProcesses = s.topProcesses(prevJiffies, elapsed, memTotal, bootTime)

	return snap, nil
}

// diskPercent 通过statfs获取挂载点使用率，口径与df一致
func diskPercent(path string) (float64, error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	used := fs.Blocks - fs.Bfree
	capacity := used + fs.Bavail
	if capacity == 0 {
		return 0, fmt.Errorf("statfs %s: zero capacity", path)
	}
	return clampPercent(float64(used) / float64(capacity) * 100), nil
}

// readNetCounters 读取全部网络接口的字节计数器
func readNetCounters() (netCounters, error) {
	data, err := os.ReadFile("/proc/net/dev")
	if err != nil {
		return netCounters{}, err
	}
	return parseNetDev(string(data)), nil
}

// scanProcJiffies 记录当前各进程的CPU时间，作为区间计算的基准
func scanProcJiffies() map[int]uint64 {
	result := make(map[int]uint64)
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return result
	}
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
		if err != nil {
			continue
		}
		stat, err := parseProcStat(string(data))
		if err != nil {
			continue
		}
		result[pid] = stat.jiffies
	}
	return result
}

// topProcesses 扫描/proc生成按CPU降序的进程列表
func (s *Sampler) topProcesses(prevJiffies map[int]uint64, elapsed float64, memTotal uint64, bootTime int64) []types.ProcessSample {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}

	pageSize := uint64(os.Getpagesize())
	var samples []types.ProcessSample

	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
		if err != nil {
			// 进程在扫描间退出，正常现象
			continue
		}
		stat, err := parseProcStat(string(data))
		if err != nil {
			continue
		}

		sample := types.ProcessSample{
			PID:  pid,
			Name: stat.name,
		}

		// 区间CPU使用率，第一次读数里没有的新进程记为0
		if prev, ok := prevJiffies[pid]; ok && elapsed > 0 && stat.jiffies >= prev {
			pct := float64(stat.jiffies-prev) / clockTicks / elapsed * 100
			sample.CPUPercent = clampPercent(pct)
		}

		if memTotal > 0 {
			if data, err := os.ReadFile(fmt.Sprintf("/proc/%d/statm", pid)); err == nil {
				if rssPages, err := parseStatmRSS(string(data)); err == nil {
					rss := rssPages * pageSize
					sample.MemoryPercent = clampPercent(float64(rss) / float64(memTotal) * 100)
				}
			}
		}

		if data, err := os.ReadFile(fmt.Sprintf("/proc/%d/status", pid)); err == nil {
			if uid, err := parseStatusUID(string(data)); err == nil {
				sample.User = s.lookupUser(uid)
			}
		}

		if bootTime > 0 {
			sample.StartTime = time.Unix(bootTime, 0).
				Add(time.Duration(stat.startTicks) * time.Second / clockTicks)
		}

		samples = append(samples, sample)
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].CPUPercent > samples[j].CPUPercent
	})
	if len(samples) > s.topCount {
		samples = samples[:s.topCount]
	}
	return samples
}

// lookupUser UID转用户名，查不到时返回UID本身
func (s *Sampler) lookupUser(uid string) string {
	if name, ok := s.userCache[uid]; ok {
		return name
	}
	name := uid
	if u, err := user.LookupId(uid); err == nil {
		name = u.Username
	}
	s.userCache[uid] = name
	return name
}
