package cmd

import (
	"context"
	"fmt"

	"github.com/pilab-dev/identity-mongodb/domain"
	"github.com/pilab-dev/identity-mongodb/mongodb"
	"github.com/spf13/cobra"
)

var roleCmd = &cobra.Command{
	Use:     "role",
	Short:   "Manage roles",
	Aliases: []string{"roles"},
}

func roleStore(ctx context.Context) (*mongodb.RoleStore, error) {
	store, err := provider.RoleStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open role store: %w", err)
	}
	return store, nil
}

func lookupRole(ctx context.Context, store *mongodb.RoleStore, name string) (*domain.Role, error) {
	role, err := store.FindByName(ctx, normalizer.NormalizeName(name))
	if err != nil {
		return nil, fmt.Errorf("failed to get role %q: %w", name, err)
	}
	return role, nil
}

var roleCreateCmd = &cobra.Command{
	Use:   "create ROLE_NAME",
	Short: "Create a new role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := roleStore(cmd.Context())
		if err != nil {
			return err
		}

		role := domain.NewRole(args[0])
		res, err := store.Create(cmd.Context(), role)
		if err != nil {
			return fmt.Errorf("role creation failed: %w", err)
		}
		if err := resultError("role creation", res); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Role created successfully:")
		return printYAML(cmd.OutOrStdout(), newRoleView(role))
	},
}

var roleGetCmd = &cobra.Command{
	Use:   "get ROLE_NAME",
	Short: "Get role details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := roleStore(cmd.Context())
		if err != nil {
			return err
		}
		role, err := lookupRole(cmd.Context(), store, args[0])
		if err != nil {
			return err
		}
		return printYAML(cmd.OutOrStdout(), newRoleView(role))
	},
}

var roleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all roles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := roleStore(cmd.Context())
		if err != nil {
			return err
		}
		roles, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list roles: %w", err)
		}
		if len(roles) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No roles found.")
			return nil
		}

		views := make([]roleView, 0, len(roles))
		for _, r := range roles {
			views = append(views, newRoleView(r))
		}
		return printYAML(cmd.OutOrStdout(), views)
	},
}

var roleDeleteCmd = &cobra.Command{
	Use:   "delete ROLE_NAME",
	Short: "Delete a role permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := roleStore(cmd.Context())
		if err != nil {
			return err
		}
		role, err := lookupRole(cmd.Context(), store, args[0])
		if err != nil {
			return err
		}

		res, err := store.Delete(cmd.Context(), role)
		if err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}
		if err := resultError("role deletion", res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Role %s deleted.\n", role.Name)
		return nil
	},
}

var roleAddClaimCmd = &cobra.Command{
	Use:   "add-claim ROLE_NAME CLAIM_TYPE CLAIM_VALUE",
	Short: "Attach a claim to a role",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeRoleClaim(cmd, args, "claim assignment", (*mongodb.RoleStore).AddClaim)
	},
}

var roleRemoveClaimCmd = &cobra.Command{
	Use:   "remove-claim ROLE_NAME CLAIM_TYPE CLAIM_VALUE",
	Short: "Detach a claim from a role",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeRoleClaim(cmd, args, "claim removal", (*mongodb.RoleStore).RemoveClaim)
	},
}

type roleClaimOp func(*mongodb.RoleStore, context.Context, *domain.Role, domain.Claim) (domain.Result, error)

func changeRoleClaim(cmd *cobra.Command, args []string, action string, op roleClaimOp) error {
	ctx := cmd.Context()
	store, err := roleStore(ctx)
	if err != nil {
		return err
	}
	role, err := lookupRole(ctx, store, args[0])
	if err != nil {
		return err
	}

	res, err := op(store, ctx, role, domain.NewClaim(args[1], args[2]))
	if err != nil {
		return fmt.Errorf("%s failed: %w", action, err)
	}
	if err := resultError(action, res); err != nil {
		return err
	}

	updated, err := store.FindByID(ctx, role.ID)
	if err != nil {
		return err
	}
	return printYAML(cmd.OutOrStdout(), newRoleView(updated))
}

func init() {
	rootCmd.AddCommand(roleCmd)
	roleCmd.AddCommand(roleCreateCmd, roleGetCmd, roleListCmd, roleDeleteCmd, roleAddClaimCmd, roleRemoveClaimCmd)
}
