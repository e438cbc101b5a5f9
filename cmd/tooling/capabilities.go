package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tooling-api/tooling-go/pkg/capability"
	"github.com/tooling-api/tooling-go/pkg/config"
	"github.com/tooling-api/tooling-go/pkg/version"
)

func newCapabilitiesCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "List model categories and the engine versions that serve them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := g.table()
			if err != nil {
				return err
			}
			return printTable(cmd.OutOrStdout(), table)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check <category> <engine-version>",
		Short: "Classify a category against an engine version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := g.table()
			if err != nil {
				return err
			}
			v, err := version.ParseEngine(args[1])
			if err != nil {
				return err
			}
			printClassification(cmd.OutOrStdout(), table.Classify(args[0], v))
			return nil
		},
	})
	return cmd
}

// table loads the capability table without requiring participants.
func (g *globals) table() (*capability.Table, error) {
	c := &config.Config{Capabilities: g.capabilities}
	if g.configPath != "" {
		loaded, err := config.Load(g.configPath)
		if err != nil {
			return nil, err
		}
		c = loaded
		if g.capabilities != "" {
			c.Capabilities = g.capabilities
		}
	}
	return c.CapabilityTable()
}

func printTable(w io.Writer, t *capability.Table) error {
	fmt.Fprintf(w, "Product: %s\n", t.Product())
	fmt.Fprintf(w, "Custom models since: %s\n\n", t.CustomModelsSince())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSINCE\tCOMPOSITE SINCE\tCUSTOM")
	for _, r := range t.Records() {
		composite := r.CompositeSince
		if composite == "" {
			composite = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", r.Category, r.IntroducedIn, composite, r.Custom)
	}
	return tw.Flush()
}

func printClassification(w io.Writer, c capability.Classification) {
	fmt.Fprintf(w, "%s on %s: %s\n", c.Category, c.Connected, c.Kind)
	if !c.Proceed() {
		fmt.Fprintf(w, "  added in %s, requires %s\n", c.MinVersion, c.Required)
	}
}
