package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set with -ldflags "-X main.version=..." for release builds.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		fmt.Printf("cbtctl %s\n", moduleVersion(info, ok))
		if !ok {
			return
		}
		fmt.Printf("  module: %s\n", info.Main.Path)
		fmt.Printf("  go: %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision", "vcs.time", "vcs.modified":
				fmt.Printf("  %s: %s\n", s.Key, s.Value)
			}
		}
	},
}

// moduleVersion prefers the ldflags version, then the version the module
// was installed at.
func moduleVersion(info *debug.BuildInfo, ok bool) string {
	if version != "dev" || !ok {
		return version
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	return version
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
