package config

import "fmt"

// Set at build time via -ldflags.
var (
	Commit    = "unknown"
	BuildDate = "unknown"
)

func GetFormattedBuildArgs() string {
	return fmt.Sprintf("%s @ %s (%s)", ModuleName, Commit, BuildDate)
}
