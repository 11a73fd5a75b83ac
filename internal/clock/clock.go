package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// UnixMilli returns the current time in epoch milliseconds, the unit used by
// every outbound notification timestamp.
func UnixMilli() int64 { return Now().UnixMilli() }
