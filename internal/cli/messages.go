package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wolfman30/office-portal/internal/messaging"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		rf      rangeFlags
		to      string
		booking string
		body    string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Text a patient",
		Long: `Send one text message and print the refreshed thread.

Address it with --to, or with --booking to use that booking's phone number
and tie the message to it. --booking must be in the fetched range, which is
the default range unless --range says otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if booking != "" {
				if err := a.load(ctx, &rf); err != nil {
					return err
				}
				if to == "" {
					phone, ok := a.engine.Board.RecipientFor(booking)
					if !ok {
						return fmt.Errorf("booking %s has no usable phone number in the fetched range", booking)
					}
					to = phone
				}
			} else if err := a.authorize(ctx); err != nil {
				return err
			}
			if to == "" {
				return errors.New("--to or --booking is required")
			}

			thread, err := a.engine.Messages.Send(ctx, to, body, booking)
			if errors.Is(err, messaging.ErrThreadReload) {
				fmt.Fprintf(cmd.OutOrStdout(), "Message sent to %s; thread could not be reloaded\n", thread.To)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Message sent to %s\n", thread.To)
			renderThread(cmd.OutOrStdout(), thread)
			return nil
		},
	}
	rf.bindQuick(cmd)
	cmd.Flags().StringVar(&to, "to", "", "Phone number in any common format")
	cmd.Flags().StringVar(&booking, "booking", "", "Confirmation id the message relates to")
	cmd.Flags().StringVarP(&body, "body", "m", "", "Message text")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newThreadCmd(a *app) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "thread",
		Short: "Show the message history for a number",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.authorize(ctx); err != nil {
				return err
			}
			thread, err := a.engine.Messages.ListThread(ctx, to)
			if err != nil {
				return err
			}
			renderThread(cmd.OutOrStdout(), thread)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Phone number in any common format")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
