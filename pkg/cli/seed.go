package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/rbac"
)

func newSeedCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "seed",
		Description: "Seed permissions, roles, menus and the initial admin account",
		Flags:       newFlagSet("seed", env.out()),
	}

	adminName := cmd.Flags.String("admin-name", "", "Admin account name (defaults to configuration)")
	adminEmail := cmd.Flags.String("admin-email", "", "Admin account email (defaults to configuration)")
	adminPassword := cmd.Flags.String("admin-password", "", "Admin account password (defaults to configuration)")
	skipAdmin := cmd.Flags.Bool("skip-admin", false, "Do not create the admin account")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		opts := rbac.SeedOptions{}
		if env.Config != nil {
			opts.AdminName = env.Config.Auth.AdminName
			opts.AdminEmail = env.Config.Auth.AdminEmail
			opts.AdminPassword = env.Config.Auth.AdminPassword
		}
		if *adminName != "" {
			opts.AdminName = *adminName
		}
		if *adminEmail != "" {
			opts.AdminEmail = *adminEmail
		}
		if *adminPassword != "" {
			opts.AdminPassword = *adminPassword
		}
		if *skipAdmin {
			opts.AdminEmail = ""
		}

		seeder := rbac.NewSeeder(env.Server.RBAC.Store(), env.Server.Catalog(), env.Server.Access, env.Logger)
		result, err := seeder.Run(ctx, opts)
		if err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}

		env.log().WithFields(logrus.Fields{
			"permissions": result.Permissions,
			"groups":      result.Groups,
			"roles":       result.Roles,
			"menus":       result.Menus,
			"admin_user":  result.AdminUser,
			"relinked":    result.Relinked,
		}).Info("Seed complete")
		fmt.Fprintf(env.out(), "Created %d permission(s), %d group(s), %d role(s), %d menu(s)\n",
			result.Permissions, result.Groups, result.Roles, result.Menus)
		if result.AdminUser {
			fmt.Fprintf(env.out(), "Created admin account %s\n", opts.AdminEmail)
		}
		return nil
	}

	return cmd
}
