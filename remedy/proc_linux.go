//go:build linux

package remedy

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// linuxOps 基于信号和/proc的进程操作实现
type linuxOps struct {
	// 系统启动时间，进程启动时间以它为基准换算
	bootTime time.Time
}

func newProcessOps() ProcessOps {
	return &linuxOps{bootTime: readBootTime()}
}

// Alive 用信号0探测进程存在性
//
// EPERM说明进程存在但无权限发信号，仍按存在处理。
func (o *linuxOps) Alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

// StartedAt 从/proc/<pid>/stat读取进程启动时间
func (o *linuxOps) StartedAt(pid int) (time.Time, bool) {
	if o.bootTime.IsZero() {
		return time.Time{}, false
	}
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return time.Time{}, false
	}
	// 进程名含任意字符，从最后一个')'之后取字段
	content := string(data)
	idx := strings.LastIndex(content, ")")
	if idx < 0 {
		return time.Time{}, false
	}
	fields := strings.Fields(content[idx+1:])
	if len(fields) < 20 {
		return time.Time{}, false
	}
	ticks, err := strconv.ParseUint(fields[19], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	// 时钟频率通常为100
	return o.bootTime.Add(time.Duration(ticks) * time.Second / 100), true
}

// SignalTerm 发送SIGTERM
func (o *linuxOps) SignalTerm(pid int) error {
	return o.signal(pid, unix.SIGTERM)
}

// SignalKill 发送SIGKILL
func (o *linuxOps) SignalKill(pid int) error {
	return o.signal(pid, unix.SIGKILL)
}

func (o *linuxOps) signal(pid int, sig unix.Signal) error {
	if err := unix.Kill(pid, sig); err != nil {
		if err == unix.ESRCH {
			return ErrProcessGone
		}
		return fmt.Errorf("signal %s to pid %d: %w", sig, pid, err)
	}
	return nil
}

// readBootTime 从/proc/stat的btime行读取系统启动时间
func readBootTime() time.Time {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return time.Time{}
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "btime ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return time.Time{}
		}
		ts, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return time.Time{}
		}
		return time.Unix(ts, 0)
	}
	return time.Time{}
}
