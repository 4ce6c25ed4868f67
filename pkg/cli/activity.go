package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

func newActivityPruneCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "activity:prune",
		Description: "Delete old activity logs, archiving them first when enabled",
		Flags:       newFlagSet("activity:prune", env.out()),
	}

	days := cmd.Flags.Int("days", 0, "Keep this many days of activity (defaults to configuration)")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if env.Retention == nil {
			return fmt.Errorf("activity retention is not configured")
		}

		keep := *days
		if keep == 0 && env.Config != nil {
			keep = env.Config.Activity.RetentionDays
		}

		result, err := env.Retention.Run(ctx, keep)
		if err != nil {
			return err
		}

		env.log().WithFields(logrus.Fields{
			"cutoff":   result.Cutoff,
			"archived": result.Archived,
			"object":   result.ObjectKey,
			"pruned":   result.Pruned,
		}).Info("Activity prune complete")
		if result.ObjectKey != "" {
			fmt.Fprintf(env.out(), "Archived %d activities to %s\n", result.Archived, result.ObjectKey)
		}
		fmt.Fprintf(env.out(), "Pruned %d activities older than %s\n", result.Pruned, result.Cutoff.Format("2006-01-02"))
		return nil
	}

	return cmd
}
