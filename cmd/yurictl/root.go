package main

import (
	"context"

	"github.com/spf13/cobra"

	"yuri/internal/app"
)

// wireFunc builds the application; tests swap in a preconfigured one.
type wireFunc func(ctx context.Context, name string) (*app.App, error)

// holder carries the wired app from PersistentPreRunE to the subcommands.
type holder struct {
	app *app.App
}

func newRootCmd(wire wireFunc) *cobra.Command {
	h := &holder{}

	rootCmd := &cobra.Command{
		Use:           "yurictl",
		Short:         "yurictl: operate the yuri reply service",
		Long:          "yurictl manages remembered users (grudges, history wipes, transcripts), runs the retention purge, and sends one-off prompts through the reply pipeline.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wire(cmd.Context(), "yurictl")
			if err != nil {
				return err
			}
			h.app = a
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if h.app != nil {
				h.app.Close()
			}
		},
	}

	rootCmd.AddCommand(
		newGrudgeCmd(h),
		newWipeCmd(h),
		newCountCmd(h),
		newTranscriptCmd(h),
		newPurgeCmd(h),
		newDropTablesCmd(h),
		newAskCmd(h),
		newBackendsCmd(h),
	)

	return rootCmd
}
