// Package version holds build identity. The values are placeholders
// overridden at link time via -ldflags.
package version

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)
