package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// LeaderboardChannel returns the Redis PubSub channel carrying rendered
// leaderboard summaries for a test.
func (r *CacheKeyStruct) LeaderboardChannel(testCode string) string {
	return fmt.Sprintf("test:%s:leaderboard", testCode)
}

// LeaderboardLastRefreshKey returns the key storing the Unix millisecond
// timestamp of the last summary refresh for a test.
func (r *CacheKeyStruct) LeaderboardLastRefreshKey(testCode string) string {
	return fmt.Sprintf("test:%s:leaderboard_last_refresh", testCode)
}

var CacheKey = NewCacheKeyStruct()
