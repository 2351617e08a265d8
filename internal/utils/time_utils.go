package utils

import "time"

func Now() time.Time {
	return time.Now().UTC()
}

// NowMillis is the epoch-millisecond timestamp used for every persisted
// time field.
func NowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

func TimePtr(t time.Time) *time.Time {
	return &t
}

func Int64Ptr(v int64) *int64 {
	return &v
}

func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
