package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/routes"
)

// RouteRow is one line of routes:list
type RouteRow struct {
	Name       string `json:"name"`
	Method     string `json:"method"`
	URI        string `json:"uri"`
	Permission string `json:"permission"`
}

// splitPrefixes parses a comma separated --prefix value
func splitPrefixes(value string) []string {
	var prefixes []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}

func newRoutesListCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "routes:list",
		Description: "List governable named routes with their inferred permission",
		Flags:       newFlagSet("routes:list", env.out()),
	}

	prefix := cmd.Flags.String("prefix", "", "Comma separated route name prefixes")
	asJSON := cmd.Flags.Bool("json", false, "Output JSON")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		list, err := env.Server.Catalog().List(splitPrefixes(*prefix))
		if err != nil {
			return err
		}
		rows := make([]RouteRow, 0, len(list))
		for _, r := range list {
			rows = append(rows, RouteRow{
				Name:       r.Name,
				Method:     r.Method,
				URI:        r.URI,
				Permission: routes.InferPermissionName(r.Name),
			})
		}

		if *asJSON {
			enc := json.NewEncoder(env.out())
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		w := tabwriter.NewWriter(env.out(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMETHOD\tURI\tPERMISSION")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Method, r.URI, r.Permission)
		}
		return w.Flush()
	}

	return cmd
}

func newRoutesScanCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "routes:scan",
		Description: "Synchronize the route access table with the router",
		Flags:       newFlagSet("routes:scan", env.out()),
	}

	prefix := cmd.Flags.String("prefix", "", "Comma separated route name prefixes")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		result, err := env.Server.Access.Scan(ctx, splitPrefixes(*prefix))
		if err != nil {
			return err
		}

		env.log().WithFields(logrus.Fields{
			"created": result.Created,
			"updated": result.Updated,
			"removed": result.Removed,
			"matched": result.Matched,
		}).Info("Route scan complete")
		fmt.Fprintf(env.out(), "Scanned %d route(s): %d created, %d updated, %d removed\n",
			result.Matched, result.Created, result.Updated, result.Removed)
		return nil
	}

	return cmd
}

func newRoutesRelinkCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "routes:relink",
		Description: "Re-resolve route access permission links by name",
		Flags:       newFlagSet("routes:relink", env.out()),
	}

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		n, err := env.Server.Access.RelinkPermissions(ctx)
		if err != nil {
			return err
		}
		env.log().WithField("relinked", n).Info("Relink complete")
		fmt.Fprintf(env.out(), "Relinked %d route access entries\n", n)
		return nil
	}

	return cmd
}
