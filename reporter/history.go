package reporter

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/dreamsxin/sysguard/monitor"
)

const historyHeader = "timestamp,cpu_percent,mem_percent,disk_percent,rx_kbps,tx_kbps,top_process,top_cpu_percent"

// 默认8MB触发轮转
const defaultHistoryMaxBytes = 8 << 20

// History 只追加的历史记录文件，每个周期写一行CSV
//
// 文件为空时先写表头。超过大小上限后压缩为带时间戳的zst文件
// 并重新开始，避免守护进程长期运行把磁盘写满。
type History struct {
	mu   sync.Mutex
	path string
	file *os.File
	size int64

	// MaxBytes 轮转阈值，创建后可调整
	MaxBytes int64
}

// NewHistory 打开（必要时创建）历史记录文件
func NewHistory(path string) (*History, error) {
	h := &History{path: path, MaxBytes: defaultHistoryMaxBytes}
	if err := h.open(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *History) open() error {
	file, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat history file: %w", err)
	}

	h.file = file
	h.size = info.Size()
	if h.size == 0 {
		n, err := fmt.Fprintln(file, historyHeader)
		if err != nil {
			file.Close()
			return fmt.Errorf("write history header: %w", err)
		}
		h.size = int64(n)
	}
	return nil
}

// Report 追加一行记录
func (h *History) Report(tick monitor.Tick) error {
	snap := tick.Snapshot

	topName := "-"
	topCPU := 0.0
	if top := snap.TopProcess(); top != nil {
		topName = top.Name
		topCPU = top.CPUPercent
	}

	line := fmt.Sprintf("%s,%.0f,%.1f,%.0f,%d,%d,%s,%.1f",
		snap.Timestamp.Format("2006-01-02 15:04:05"),
		snap.CPUPercent, snap.MemoryPercent, snap.DiskPercent,
		snap.NetworkRxKBps, snap.NetworkTxKBps,
		topName, topCPU)

	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := fmt.Fprintln(h.file, line)
	if err != nil {
		return fmt.Errorf("write history record: %w", err)
	}
	h.size += int64(n)

	if h.size > h.MaxBytes {
		if err := h.rotate(); err != nil {
			return fmt.Errorf("rotate history file: %w", err)
		}
	}
	return nil
}

// rotate 把当前文件压缩为zst后重新开始
func (h *History) rotate() error {
	if err := h.file.Close(); err != nil {
		return err
	}

	data, err := os.ReadFile(h.path)
	if err != nil {
		return err
	}

	archive := fmt.Sprintf("%s.%s.zst", h.path, time.Now().Format("20060102-150405"))
	out, err := os.Create(archive)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(out)
	if err != nil {
		out.Close()
		return err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		out.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := os.Remove(h.path); err != nil {
		return err
	}
	return h.open()
}

// Close 关闭历史记录文件
func (h *History) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.file.Close()
}
