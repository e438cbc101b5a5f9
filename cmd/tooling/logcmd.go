package main

import (
	"github.com/spf13/cobra"

	"github.com/tooling-api/tooling-go/cmd/tooling/logview"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect protocol log files",
	}

	var ff logview.FilterFlags
	view := &cobra.Command{
		Use:   "view <file.mlog>",
		Short: "View a protocol log file in human-readable format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := ff.Filter()
			if err != nil {
				return err
			}
			return logview.RunView(args[0], filter, cmd.OutOrStdout())
		},
	}
	fl := view.Flags()
	fl.StringVar(&ff.Layer, "layer", "", "Filter by layer (transport, wire, session)")
	fl.StringVar(&ff.Direction, "direction", "", "Filter by direction (in, out)")
	fl.StringVar(&ff.Category, "category", "", "Filter by category (message, state, error)")
	fl.StringVar(&ff.ConnID, "conn-id", "", "Filter by connection ID")
	fl.StringVar(&ff.BuildID, "build", "", "Filter by build fingerprint")

	stats := &cobra.Command{
		Use:   "stats <file.mlog>",
		Short: "Show statistics about a protocol log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return logview.RunStats(args[0], cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(view, stats)
	return cmd
}
