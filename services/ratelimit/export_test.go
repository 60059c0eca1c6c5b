package ratelimit

import "time"

func (l *TokenBucket) SetClock(now func() time.Time) { l.nowFunc = now }

func (l *RedisWindow) SetClock(now func() time.Time) { l.nowFunc = now }
