package timeutil

import "time"

// The analyzer's acquisition software stores "Measurement Date And
// Time" as .NET ticks: 100-nanosecond intervals since 0001-01-01
// 00:00:00 UTC.
const (
	ticksPerSecond = 10_000_000

	// Ticks between 0001-01-01 and the Unix epoch.
	unixEpochTicks = 621355968000000000
)

// FromDotNetTicks converts a .NET tick count to a UTC time.
func FromDotNetTicks(ticks int64) time.Time {
	rel := ticks - unixEpochTicks
	sec := rel / ticksPerSecond
	rem := rel % ticksPerSecond
	if rem < 0 {
		sec--
		rem += ticksPerSecond
	}
	return time.Unix(sec, rem*100).UTC()
}

// ToDotNetTicks converts a time to a .NET tick count. Sub-100ns
// precision is truncated.
func ToDotNetTicks(t time.Time) int64 {
	return t.UnixNano()/100 + unixEpochTicks
}
