package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the admin-cli root command over env
func NewRootCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "admin-cli",
		Description: "Admin back office maintenance tool",
		Subcommands: make(map[string]*Command),
	}

	for _, sub := range []*Command{
		newMigrateCommand(env),
		newSeedCommand(env),
		newRoutesListCommand(env),
		newRoutesScanCommand(env),
		newRoutesRelinkCommand(env),
		newActivityPruneCommand(env),
	} {
		cmd.Subcommands[sub.Name] = sub
	}

	return cmd
}

// Execute runs the subcommand named by args[0]
func (c *Command) Execute(ctx context.Context, out io.Writer, args []string) error {
	if len(args) < 1 {
		c.usage(out)
		return fmt.Errorf("no command specified")
	}

	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		c.usage(out)
		return nil
	}

	subcmd, ok := c.Subcommands[args[0]]
	if !ok {
		c.usage(out)
		return fmt.Errorf("unknown command: %s", args[0])
	}

	return subcmd.Run(ctx, args[1:])
}

func (c *Command) usage(out io.Writer) {
	fmt.Fprintf(out, "Usage: %s <command> [options]\n\n", c.Name)
	fmt.Fprintf(out, "%s\n\n", c.Description)
	fmt.Fprintln(out, "Commands:")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-16s %s\n", name, c.Subcommands[name].Description)
	}
	fmt.Fprintf(out, "\nUse '%s <command> -help' for more information about a command.\n", c.Name)
}

// newFlagSet returns a flag set that reports parse errors instead of exiting
func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}
