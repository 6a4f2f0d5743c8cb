package cli

import (
	"runtime/debug"
	"strings"
)

// set with -ldflags "-X github.com/gnomegl/commitctx/internal/cli.version=..."
var version string

// Version is the ldflags version, else the module version from the build
// info with the short vcs revision appended for development builds.
func Version() string {
	v := version
	if v == "" {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return "unknown"
		}
		v = info.Main.Version
		if v == "" || v == "(devel)" {
			v = "dev"
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && len(s.Value) >= 7 {
					v += "+" + s.Value[:7]
				}
			}
		}
	}
	return strings.TrimPrefix(v, "v")
}
