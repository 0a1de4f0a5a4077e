package main

import (
	"os"

	"github.com/sagernet/sing-intercept/connection"
	"github.com/sagernet/sing-intercept/flow"

	E "github.com/sagernet/sing/common/exceptions"
	F "github.com/sagernet/sing/common/format"
	"github.com/sagernet/sing/common/json"

	"github.com/spf13/cobra"
)

var commandInspect = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Validate and summarize a serialized flow dump",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := inspect(args[0])
		if err != nil {
			logger.Fatal(err)
		}
	},
}

func init() {
	mainCommand.AddCommand(commandInspect)
}

func inspect(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return E.Cause(err, "read flow dump")
	}
	var state map[string]any
	err = json.Unmarshal(content, &state)
	if err != nil {
		return E.Cause(err, "parse flow dump")
	}
	f, err := flow.FromState(state, flow.Options{
		ClientConn: new(connection.ClientConn),
		ServerConn: new(connection.ServerConn),
	})
	if err != nil {
		return E.Cause(err, "load flow state")
	}
	summary := F.ToString("flow ", f.ID(), " type=", f.Type(), " intercepted=", f.Intercepted())
	if f.Err() != nil {
		summary += F.ToString(" error=", f.Err().String())
	}
	if _, hasBackup := state["backup"]; hasBackup {
		summary += " (dump contains a pre-edit backup)"
	}
	os.Stdout.WriteString(summary + "\n")
	return nil
}
