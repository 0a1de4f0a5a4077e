package main

import (
	"os"
	"runtime"

	C "github.com/sagernet/sing-intercept/constant"
	F "github.com/sagernet/sing/common/format"

	"github.com/spf13/cobra"
)

var commandVersion = &cobra.Command{
	Use:   "version",
	Short: "Print current version of sing-intercept",
	Run:   printVersion,
	Args:  cobra.NoArgs,
}

var nameOnly bool

func init() {
	commandVersion.Flags().BoolVarP(&nameOnly, "name", "n", false, "print version name only")
	mainCommand.AddCommand(commandVersion)
}

func printVersion(cmd *cobra.Command, args []string) {
	var version string
	if !nameOnly {
		version = "sing-intercept "
	}
	version += F.ToString(C.Version)
	if !nameOnly {
		version += " (" + runtime.Version() + ", " + runtime.GOOS + ", " + runtime.GOARCH + ")"
	}
	os.Stdout.WriteString(version + "\n")
}
