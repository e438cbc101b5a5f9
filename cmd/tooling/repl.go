package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/tooling-api/tooling-go/pkg/capability"
	"github.com/tooling-api/tooling-go/pkg/version"
)

func newReplCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Keep a connection open and fetch models interactively",
		Long: `Opens a connection and reads commands from the terminal. Engine sessions
stay open between fetches, so repeated fetches reuse them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			table, err := g.table()
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "tooling> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			r := &repl{session: s, table: table, out: rl.Stdout(), format: formatText}
			return r.run(cmd.Context(), rl)
		},
	}
}

type repl struct {
	session *session
	table   *capability.Table
	out     io.Writer
	format  string
}

func (r *repl) run(ctx context.Context, rl *readline.Instance) error {
	r.printHelp()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			fmt.Fprintln(r.out, "Exiting...")
			return nil
		}
		if quit := r.exec(ctx, strings.TrimSpace(line)); quit {
			return nil
		}
	}
}

// exec runs one command line and reports whether the loop should end.
func (r *repl) exec(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}
	parts := strings.Fields(line)
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "help", "?":
		r.printHelp()
	case "fetch", "f":
		r.cmdFetch(ctx, args)
	case "participants", "p":
		r.cmdParticipants()
	case "state":
		fmt.Fprintln(r.out, r.session.conn.State())
	case "check":
		r.cmdCheck(args)
	case "format":
		r.cmdFormat(args)
	case "close":
		if err := r.session.conn.Close(); err != nil {
			fmt.Fprintf(r.out, "close: %v\n", err)
		}
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type 'help')\n", cmd)
	}
	return false
}

func (r *repl) cmdFetch(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(r.out, "Usage: fetch <category>")
		return
	}
	rs, err := r.session.conn.GetModels(ctx, args[0])
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	if err := renderResults(r.out, r.format, rs, r.session.conn.Participants()); err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
	}
}

func (r *repl) cmdParticipants() {
	for _, p := range r.session.conn.Participants() {
		inst := p.Installation()
		declared := "-"
		if v := p.DeclaredVersion(); !v.IsZero() {
			declared = v.String()
		}
		fmt.Fprintf(r.out, "%s  %s  %s  version=%s\n", p.Identity().Fingerprint(), p.Identity(), inst.Location, declared)
	}
}

func (r *repl) cmdCheck(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(r.out, "Usage: check <category> <engine-version>")
		return
	}
	v, err := version.ParseEngine(args[1])
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	printClassification(r.out, r.table.Classify(args[0], v))
}

func (r *repl) cmdFormat(args []string) {
	if len(args) != 1 {
		fmt.Fprintf(r.out, "Current format: %s\n", r.format)
		return
	}
	switch args[0] {
	case formatText, formatJSON, formatYAML:
		r.format = args[0]
	default:
		fmt.Fprintf(r.out, "Unknown format: %s (must be text, json, or yaml)\n", args[0])
	}
}

func (r *repl) printHelp() {
	fmt.Fprint(r.out, `Commands:
  fetch <category>           Fetch a model from every participant
  participants               List participants
  state                      Show the connection state
  check <category> <version> Classify a category against an engine version
  format [text|json|yaml]    Show or set the output format
  close                      Close the connection
  quit                       Exit
`)
}
