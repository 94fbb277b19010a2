package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"yuri/internal/config"
	"yuri/internal/service/admin"
)

func newGrudgeCmd(h *holder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grudge",
		Short: "Manage grudges",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <user-id>",
			Short: "Hold a grudge against a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := h.app.Admin.AddGrudge(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Grudge added for %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <user-id>",
			Short: "Forgive a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := h.app.Admin.RemoveGrudge(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Forgiven %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List users with a grudge",
			RunE: func(cmd *cobra.Command, _ []string) error {
				users, err := h.app.Admin.Grudges(cmd.Context())
				if err != nil {
					return err
				}
				if len(users) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "grudges: none")
					return nil
				}
				for _, u := range users {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), u)
				}
				return nil
			},
		},
	)

	return cmd
}

func newWipeCmd(h *holder) *cobra.Command {
	var all, yes bool

	cmd := &cobra.Command{
		Use:   "wipe [user-id]",
		Short: "Forget one user, or every stored turn with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if len(args) > 0 {
					return errors.New("--all does not take a user id")
				}
				if !yes {
					return errors.New("refusing to wipe all history without --yes")
				}
				n, err := h.app.Admin.WipeAll(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wiped %d turns\n", n)
				return nil
			}

			if len(args) == 0 {
				return errors.New("user id required (or --all)")
			}
			n, err := h.app.Admin.WipeUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wiped %d turns for %s\n", n, args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Wipe every user's history")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm --all")

	return cmd
}

func newCountCmd(h *holder) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count users with stored history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := h.app.Admin.CountUsers(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "users: %d\n", n)
			return nil
		},
	}
}

func newTranscriptCmd(h *holder) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "transcript <user-id>",
		Short: "Print a user's recent turns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			turns, err := h.app.Admin.Transcript(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(turns) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No Data.")
				return nil
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), admin.FormatTranscript(turns))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", config.MaxHistoryLimit, "Maximum turns to print")

	return cmd
}

func newPurgeCmd(h *holder) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete turns older than HISTORY_RETENTION",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := h.app.Admin.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Purged %d turns\n", n)
			return nil
		},
	}
}

func newDropTablesCmd(h *holder) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "drop-tables",
		Short: "Drop the history and flag tables for TABLE_PREFIX",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to drop tables without --yes")
			}
			if err := h.app.Stores.DropTables(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dropped tables (prefix: %q)\n", h.app.Config.TablePrefix)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm dropping the tables")

	return cmd
}
