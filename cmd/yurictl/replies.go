package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"yuri/internal/domain/models"
	"yuri/internal/domain/services"
)

func newAskCmd(h *holder) *cobra.Command {
	var (
		userID   string
		imageURL string
		audioURL string
	)

	cmd := &cobra.Command{
		Use:   "ask [text...]",
		Short: "Send one message through the reply pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := h.app.Replies.Respond(cmd.Context(), &services.ReplyRequest{
				UserID:   userID,
				Text:     strings.Join(args, " "),
				ImageURL: imageURL,
				AudioURL: audioURL,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, result.DisplayText)
			if result.HasMedia() {
				_, _ = fmt.Fprintf(out, "media: %s\n", result.MediaReference)
			}
			_, _ = fmt.Fprintf(out, "backend: %s\n", result.Backend)
			if result.Degraded {
				_, _ = fmt.Fprintln(out, "degraded: true")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "cli", "User ID the message is attributed to")
	cmd.Flags().StringVar(&imageURL, "image", "", "Image URL to attach")
	cmd.Flags().StringVar(&audioURL, "audio", "", "Voice note URL to attach")

	return cmd
}

func newBackendsCmd(h *holder) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "Show the primary waterfall and secondary pool built from this environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := h.app.Admin.ProviderStatus()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "BACKEND\tELIGIBLE\tFAILURES\tCOOLDOWN UNTIL")
			for _, b := range status.Primary {
				_, _ = fmt.Fprintf(tw, "%s\t%t\t%d\t%s\n", b.Name, b.Eligible, b.ConsecutiveFailures, cooldown(b))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "secondary credentials: %d\n", status.Secondary.Size)
			return nil
		},
	}
}

func cooldown(b models.BackendStatus) string {
	if b.CooldownUntil == nil {
		return "-"
	}
	return b.CooldownUntil.UTC().Format(time.RFC3339)
}
