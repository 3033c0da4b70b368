package timex

import "time"

// Forever is the "no timeout" value accepted by blocking transport calls.
const Forever time.Duration = -1

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Deadline converts a timeout into an absolute deadline. ok is false for
// Forever, in which case the zero time is returned.
func Deadline(timeout time.Duration) (t time.Time, ok bool) {
	if timeout < 0 {
		return time.Time{}, false
	}
	return time.Now().Add(timeout), true
}

// FrameDuration is the playback time of n samples at rate Hz.
func FrameDuration(n int, rate uint32) time.Duration {
	if rate == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}
