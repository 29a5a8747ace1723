package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/prashantcloudsufi/zendesk/pkg/client"
)

var version = "1.0.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "zendesk-extract v%s\n", version)
			fmt.Fprintf(out, "User-Agent: %s\n", client.DefaultUserAgent)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
