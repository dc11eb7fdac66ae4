package version

// Set at build time via -ldflags "-X github.com/Norgate-AV/extpack/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
