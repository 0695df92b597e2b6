package util

import (
	"github.com/google/uuid"
)

// GenerateUUID generates a random UUID string
func GenerateUUID() string {
	return uuid.New().String()
}

// ShortID 返回UUID的前8位，用于日志行内的事件关联
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
