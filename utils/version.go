package utils

import (
	"strings"

	"github.com/hashicorp/go-version"
)

// VersionConfig holds the dashboard client version requirements
type VersionConfig struct {
	CurrentStable string
	MinSupported  string
}

var DefaultVersionConfig = VersionConfig{
	CurrentStable: "1.0.0",
	MinSupported:  "0.9.0",
}

// CheckClientVersion grades the dashboard frontend version reported in the
// X-Client-Version header against the supported range.
func CheckClientVersion(clientVersion string, config *VersionConfig) (status string, needsUpgrade bool) {
	if config == nil {
		config = &DefaultVersionConfig
	}

	// Clean version string (remove 'v' prefix if present)
	clientVersion = strings.TrimPrefix(clientVersion, "v")

	clientVer, err := version.NewVersion(clientVersion)
	if err != nil {
		return "unknown", false
	}

	current, _ := version.NewVersion(config.CurrentStable)
	minSupported, _ := version.NewVersion(config.MinSupported)

	if clientVer.LessThan(minSupported) {
		return "unsupported", true
	}
	if clientVer.LessThan(current) {
		return "outdated", true
	}
	return "current", false
}

// UpgradeMessage returns a human-readable note for outdated clients.
func UpgradeMessage(clientVersion string, config *VersionConfig) string {
	if config == nil {
		config = &DefaultVersionConfig
	}

	status, needsUpgrade := CheckClientVersion(clientVersion, config)
	if !needsUpgrade {
		return ""
	}

	switch status {
	case "unsupported":
		return "This dashboard version is no longer supported. Upgrade to " + config.CurrentStable + "."
	case "outdated":
		return "A newer dashboard version " + config.CurrentStable + " is available."
	}
	return ""
}
