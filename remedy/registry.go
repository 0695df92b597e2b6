// Package remedy 实现受控的自动修复：保护名单、终止冷却、
// 以及先优雅后强制的进程终止协议。
package remedy

import (
	"strings"
)

// Registry 受保护进程注册表
//
// 构造后只读，不需要加锁。匹配策略为大小写敏感的子串匹配，
// 进程名命中任意一个片段即视为受保护。
type Registry struct {
	fragments []string
}

// NewRegistry 创建注册表，空白片段被忽略
func NewRegistry(fragments []string) *Registry {
	r := &Registry{}
	for _, f := range fragments {
		f = strings.TrimSpace(f)
		if f != "" {
			r.fragments = append(r.fragments, f)
		}
	}
	return r
}

// IsProtected 判断进程名是否受保护
func (r *Registry) IsProtected(name string) bool {
	if name == "" {
		return false
	}
	for _, f := range r.fragments {
		if strings.Contains(name, f) {
			return true
		}
	}
	return false
}

// Size 返回注册表中的片段数量
func (r *Registry) Size() int {
	return len(r.fragments)
}
