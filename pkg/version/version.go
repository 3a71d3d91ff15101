// Package version provides version information for the oracle-push application.
package version

// Version is the current version of the oracle-push application.
const Version = "0.3.0"

// AgentString returns the full agent string with versioning.
// Format: oracle-push/v{version}
func AgentString() string {
	return "oracle-push/v" + Version
}
