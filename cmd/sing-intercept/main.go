package main

import (
	"os"

	"github.com/sagernet/sing-intercept/log"

	"github.com/spf13/cobra"
)

var (
	logLevel     string
	disableColor bool
	logger       log.ContextLogger
)

var mainCommand = &cobra.Command{
	Use:              "sing-intercept",
	PersistentPreRun: preRun,
}

func init() {
	mainCommand.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "set log level")
	mainCommand.PersistentFlags().BoolVar(&disableColor, "disable-color", false, "disable color output")
}

func main() {
	if err := mainCommand.Execute(); err != nil {
		os.Exit(1)
	}
}

func preRun(cmd *cobra.Command, args []string) {
	factory := log.NewFactory(log.Formatter{
		DisableColors:    disableColor,
		DisableTimestamp: true,
	}, os.Stderr)
	if level, err := log.ParseLevel(logLevel); err == nil {
		factory.SetLevel(level)
	}
	logger = factory.Logger()
}
