package config

import (
	"fmt"
	"strings"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AccessCodeKey returns the cache key mapping an access code to its exam ID.
func (r *CacheKeyStruct) AccessCodeKey(code string) string {
	return fmt.Sprintf("exam:code:%s", strings.ToUpper(code))
}

// PublicSettingsKey returns the cache key for the serialized system settings.
func (r *CacheKeyStruct) PublicSettingsKey() string {
	return "settings:public"
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam monitor
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

var CacheKey = NewCacheKeyStruct()
