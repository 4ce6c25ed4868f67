package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
)

func newMigrateCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "migrate",
		Description: "Apply pending database migrations",
		Flags:       newFlagSet("migrate", env.out()),
	}

	status := cmd.Flags.Bool("status", false, "List migrations and whether they are applied")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		if *status {
			statuses, err := storage.Status(ctx, env.DB)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(env.out(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tAPPLIED\tDESCRIPTION")
			for _, s := range statuses {
				fmt.Fprintf(w, "%d\t%t\t%s\n", s.Version, s.Applied, s.Description)
			}
			return w.Flush()
		}

		applied, err := storage.Migrate(ctx, env.DB, env.Logger)
		if err != nil {
			return err
		}
		env.log().WithField("applied", applied).Info("Migrations complete")
		fmt.Fprintf(env.out(), "Applied %d migration(s)\n", applied)
		return nil
	}

	return cmd
}
