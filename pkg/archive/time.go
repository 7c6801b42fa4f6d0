package archive

import (
	"syscall"
	"time"
	"unsafe"
)

var (
	minTime = time.Unix(0, 0)
	// maxTime is the largest time representable in a syscall.Timespec.
	maxTime time.Time
)

func init() {
	if unsafe.Sizeof(syscall.Timespec{}.Nsec) == 8 {
		maxTime = time.Unix(1<<63-1, 0)
	} else {
		maxTime = time.Unix(1<<31-1, 0)
	}
}

// boundTime clamps t into the range the filesystem calls accept.
func boundTime(t time.Time) time.Time {
	if t.Before(minTime) || t.After(maxTime) {
		return minTime
	}

	return t
}

func latestTime(t1, t2 time.Time) time.Time {
	if t1.Before(t2) {
		return t2
	}
	return t1
}
