package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newFetchCmd(g *globals) *cobra.Command {
	var (
		format string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "fetch <category>",
		Short: "Fetch one model category from every participant",
		Long: `Opens a connection over the configured participants, fetches a model of
the given category from each of them and prints one result per participant.
Per-participant failures are printed as results; use --strict to exit
non-zero when any participant failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			rs, err := s.conn.GetModels(ctx, args[0])
			if err != nil {
				return err
			}
			if err := renderResults(cmd.OutOrStdout(), format, rs, s.conn.Participants()); err != nil {
				return err
			}
			if failed := len(rs.Failures()); strict && failed > 0 {
				return fmt.Errorf("%d of %d participants failed", failed, rs.Len())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json, yaml")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero if any participant failed")
	return cmd
}
