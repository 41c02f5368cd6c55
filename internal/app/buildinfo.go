package app

// Build information populated via -ldflags at build time.
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

// VersionString formats the build information for `scamdar version`.
func VersionString() string {
	return "scamdar " + BuildVersion + " (commit " + BuildCommit + ", built " + BuildDate + ")"
}
