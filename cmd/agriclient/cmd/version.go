package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/agriconnect/agriclient/internal/adapter/outbound/authapi"
)

// Build information. Populated at build time via -ldflags.
var (
	Version   = "0.3.0"
	Commit    = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit, and build date of agriclient.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agriclient %s\n", Version)
		fmt.Printf("  Commit:     %s\n", Commit)
		fmt.Printf("  Built:      %s\n", BuildDate)
		fmt.Printf("  Go version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	// The auth client reports the same version in its X-Client-Info
	// header.
	authapi.ClientVersion = Version
	rootCmd.AddCommand(versionCmd)
}
