package ratelimit

import (
	"strconv"
	"strings"
	"time"
)

// Window is one interval bucket.
type Window struct {
	// Index is floor(now_ms / interval_ms).
	Index int64

	// Reset is (Index+1) * interval_ms.
	Reset int64

	// IntervalMs is the interval in milliseconds.
	IntervalMs int64
}

// WindowAt returns the bucket containing now.
func WindowAt(now time.Time, interval time.Duration) Window {
	ms := interval.Milliseconds()
	index := floorDiv(now.UnixMilli(), ms)
	return Window{
		Index:      index,
		Reset:      (index + 1) * ms,
		IntervalMs: ms,
	}
}

// ResetTime returns Reset as a time.Time.
func (w Window) ResetTime() time.Time {
	return time.UnixMilli(w.Reset)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// WindowKey identifies one counter.
type WindowKey struct {
	Identifier string
	Window     int64
	Trigger    string
	Shard      string
}

// KeyFor builds the key of req in window w.
func KeyFor(req Request, w Window) WindowKey {
	return WindowKey{
		Identifier: req.Identifier,
		Window:     w.Index,
		Trigger:    req.Name,
		Shard:      req.Shard,
	}
}

// String returns identifier::window::trigger::shard.
func (k WindowKey) String() string {
	var b strings.Builder
	b.Grow(len(k.Identifier) + len(k.Trigger) + len(k.Shard) + 26)
	b.WriteString(k.Identifier)
	b.WriteString("::")
	b.WriteString(strconv.FormatInt(k.Window, 10))
	b.WriteString("::")
	b.WriteString(k.Trigger)
	b.WriteString("::")
	b.WriteString(k.Shard)
	return b.String()
}
