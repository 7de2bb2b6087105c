package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/pilab-dev/identity-mongodb/domain"
	"github.com/pilab-dev/identity-mongodb/mongodb"
	"github.com/spf13/cobra"
)

var normalizer domain.LookupNormalizer = domain.UpperInvariantNormalizer{}

var userCmd = &cobra.Command{
	Use:     "user",
	Short:   "Manage users",
	Aliases: []string{"users"},
}

func userStore(ctx context.Context) (*mongodb.UserStore, error) {
	store, err := provider.UserStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}
	return store, nil
}

// lookupUser resolves ref by id, or by name or email when the matching flag
// is set on cmd.
func lookupUser(cmd *cobra.Command, store *mongodb.UserStore, ref string) (*domain.User, error) {
	ctx := cmd.Context()
	byName, _ := cmd.Flags().GetBool("by-name")
	byEmail, _ := cmd.Flags().GetBool("by-email")

	var (
		user *domain.User
		err  error
	)
	switch {
	case byName && byEmail:
		return nil, errors.New("--by-name and --by-email are mutually exclusive")
	case byName:
		user, err = store.FindByName(ctx, normalizer.NormalizeName(ref))
	case byEmail:
		user, err = store.FindByEmail(ctx, normalizer.NormalizeEmail(ref))
	default:
		user, err = store.FindByID(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %q: %w", ref, err)
	}
	return user, nil
}

func addLookupFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("by-name", false, "treat the argument as a user name")
	cmd.Flags().Bool("by-email", false, "treat the argument as an email address")
}

var userCreateCmd = &cobra.Command{
	Use:   "create USER_NAME",
	Short: "Create a new user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		roles, _ := cmd.Flags().GetStringSlice("role")
		lockout, _ := cmd.Flags().GetBool("lockout")

		store, err := userStore(cmd.Context())
		if err != nil {
			return err
		}

		user := domain.NewUser(args[0], email)
		for _, role := range roles {
			if err := store.AddToRole(user, role); err != nil {
				return err
			}
		}
		if err := store.SetLockoutEnabled(user, lockout); err != nil {
			return err
		}

		res, err := store.Create(cmd.Context(), user)
		if err != nil {
			return fmt.Errorf("user creation failed: %w", err)
		}
		if err := resultError("user creation", res); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "User created successfully:")
		return printYAML(cmd.OutOrStdout(), newUserView(user))
	},
}

var userGetCmd = &cobra.Command{
	Use:   "get USER_ID",
	Short: "Get user details by id, name or email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := userStore(cmd.Context())
		if err != nil {
			return err
		}
		user, err := lookupUser(cmd, store, args[0])
		if err != nil {
			return err
		}
		return printYAML(cmd.OutOrStdout(), newUserView(user))
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete USER_ID",
	Short: "Delete a user; the record is kept but no longer found",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := userStore(cmd.Context())
		if err != nil {
			return err
		}
		user, err := lookupUser(cmd, store, args[0])
		if err != nil {
			return err
		}

		res, err := store.Delete(cmd.Context(), user)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		if err := resultError("user deletion", res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User %s deleted.\n", user.ID)
		return nil
	},
}

var userPurgeCmd = &cobra.Command{
	Use:   "purge USER_ID",
	Short: "Remove a user record permanently, deleted or not",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := userStore(cmd.Context())
		if err != nil {
			return err
		}

		res, err := store.Purge(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to purge user: %w", err)
		}
		if err := resultError("user purge", res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User %s purged.\n", args[0])
		return nil
	},
}

var userCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count the users that have not been deleted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := userStore(cmd.Context())
		if err != nil {
			return err
		}
		n, err := store.Count(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

var userAddClaimCmd = &cobra.Command{
	Use:   "add-claim USER_ID CLAIM_TYPE CLAIM_VALUE",
	Short: "Attach a claim to a user",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return modifyUser(cmd, args[0], "claim assignment", func(store *mongodb.UserStore, user *domain.User) error {
			return store.AddClaims(user, domain.NewClaim(args[1], args[2]))
		})
	},
}

var userRemoveClaimCmd = &cobra.Command{
	Use:   "remove-claim USER_ID CLAIM_TYPE CLAIM_VALUE",
	Short: "Detach a claim from a user",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return modifyUser(cmd, args[0], "claim removal", func(store *mongodb.UserStore, user *domain.User) error {
			return store.RemoveClaims(user, domain.NewClaim(args[1], args[2]))
		})
	},
}

var userUnlockCmd = &cobra.Command{
	Use:   "unlock USER_ID",
	Short: "Clear the lockout and the failed access counter of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return modifyUser(cmd, args[0], "unlock", func(store *mongodb.UserStore, user *domain.User) error {
			if err := store.SetLockoutEndDate(user, nil); err != nil {
				return err
			}
			return store.ResetAccessFailedCount(user)
		})
	},
}

// modifyUser loads the user, applies change in memory and writes it back.
func modifyUser(cmd *cobra.Command, ref, action string, change func(*mongodb.UserStore, *domain.User) error) error {
	store, err := userStore(cmd.Context())
	if err != nil {
		return err
	}
	user, err := lookupUser(cmd, store, ref)
	if err != nil {
		return err
	}
	if err := change(store, user); err != nil {
		return fmt.Errorf("%s failed: %w", action, err)
	}

	res, err := store.Update(cmd.Context(), user)
	if err != nil {
		return fmt.Errorf("%s failed: %w", action, err)
	}
	if err := resultError(action, res); err != nil {
		return err
	}
	return printYAML(cmd.OutOrStdout(), newUserView(user))
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd, userGetCmd, userDeleteCmd, userPurgeCmd, userCountCmd,
		userAddClaimCmd, userRemoveClaimCmd, userUnlockCmd)

	userCreateCmd.Flags().String("email", "", "email address of the user")
	userCreateCmd.Flags().StringSlice("role", nil, "role to assign (repeatable)")
	userCreateCmd.Flags().Bool("lockout", true, "enable lockout after repeated failed access")

	for _, c := range []*cobra.Command{userGetCmd, userDeleteCmd, userAddClaimCmd, userRemoveClaimCmd, userUnlockCmd} {
		addLookupFlags(c)
	}
}
