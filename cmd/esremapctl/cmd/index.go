package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/esremap/internal/app"
	indexuc "github.com/kailas-cloud/esremap/internal/usecase/index"
)

// indexAction is a command that runs one lifecycle operation on one logical index.
type indexAction struct {
	use   string
	short string
	run   func(ctx context.Context, svc *indexuc.Service) error
	done  string
}

func indexActions() []indexAction {
	return []indexAction{
		{use: "create", short: "Create the index unless it already exists", done: "created",
			run: func(ctx context.Context, svc *indexuc.Service) error { return svc.Ensure(ctx) }},
		{use: "delete", short: "Delete the index and its aliases", done: "deleted",
			run: func(ctx context.Context, svc *indexuc.Service) error { return svc.Delete(ctx) }},
		{use: "recreate", short: "Drop every concrete index and create an empty one", done: "recreated",
			run: func(ctx context.Context, svc *indexuc.Service) error { return svc.Recreate(ctx) }},
		{use: "remap", short: "Move the index onto its configured mapping while it stays online", done: "remapped",
			run: func(ctx context.Context, svc *indexuc.Service) error { return svc.Remap(ctx) }},
		{use: "flush", short: "Flush the index", done: "flushed",
			run: func(ctx context.Context, svc *indexuc.Service) error { return svc.Flush(ctx) }},
	}
}

func newActionCmd(a indexAction, flags *globalFlags, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   a.use + " <index>",
		Short: a.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, s, err := open(cmd.Context(), flags, opts)
			if err != nil {
				return err
			}
			defer s.close()

			svc, err := s.app.Indexes.Lookup(args[0], flags.segment)
			if err != nil {
				return err
			}
			if err := a.run(ctx, svc); err != nil {
				return err
			}
			return printStatus(ctx, cmd.OutOrStdout(), svc, a.done)
		},
	}
}

func newStatusCmd(flags *globalFlags, opts []app.Option) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <index>",
		Short: "Show alias status and concrete indexes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, s, err := open(cmd.Context(), flags, opts)
			if err != nil {
				return err
			}
			defer s.close()

			svc, err := s.app.Indexes.Lookup(args[0], flags.segment)
			if err != nil {
				return err
			}
			if jsonOutput {
				d, err := svc.Describe(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			return printStatus(ctx, cmd.OutOrStdout(), svc, "")
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newListCmd(flags *globalFlags, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, s, err := open(cmd.Context(), flags, opts)
			if err != nil {
				return err
			}
			defer s.close()

			for _, name := range s.app.Indexes.Names() {
				svc, err := s.app.Indexes.Get(name)
				if err != nil {
					return err
				}
				st, err := svc.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-30s %s\n", svc.Name(), st)
			}
			return nil
		},
	}
}

func printStatus(ctx context.Context, w io.Writer, svc *indexuc.Service, done string) error {
	d, err := svc.Describe(ctx)
	if err != nil {
		return err
	}
	if done != "" {
		fmt.Fprintf(w, "%s %s\n", d.Name, done)
	}
	fmt.Fprintf(w, "index:     %s (%s)\n", d.Name, d.Strategy)
	fmt.Fprintf(w, "status:    %s\n", d.Status)
	fmt.Fprintf(w, "read:      %s\n", joinOrDash(d.ReadIndexes))
	fmt.Fprintf(w, "write:     %s\n", joinOrDash(d.WriteIndexes))
	fmt.Fprintf(w, "remapping: %t\n", d.Remapping)
	return nil
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
