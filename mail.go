package main

import (
	"github.com/spf13/cobra"
)

func newMailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Send mail as the signed-in user",
	}

	cmd.AddCommand(newMailSendCmd())

	return cmd
}

func newMailSendCmd() *cobra.Command {
	var (
		bodyFile string
		noSave   bool
	)

	cmd := &cobra.Command{
		Use:   "send <recipient> <subject> [body]",
		Short: "Send a plain-text email",
		Long: `Send a plain-text email to a single recipient.

The body is taken from the third argument, or read from --body-file when
given. The sender is always the signed-in user.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMailSend(cmd, args, bodyFile, !noSave)
		},
	}

	cmd.Flags().StringVar(&bodyFile, "body-file", "", "read the message body from a file, or - for stdin")
	cmd.Flags().BoolVar(&noSave, "no-save-to-sent", false, "do not save the message to Sent Items")

	return cmd
}

func runMailSend(cmd *cobra.Command, args []string, bodyFile string, saveToSent bool) error {
	logger := buildLogger()

	body := ""
	if len(args) == 3 {
		body = args[2]
	}

	if bodyFile != "" {
		data, err := readInput(bodyFile)
		if err != nil {
			return err
		}

		body = string(data)
	}

	client, err := newWorkbookClient(cmd.Context(), logger)
	if err != nil {
		return err
	}

	if err := client.SendMail(cmd.Context(), args[0], args[1], body, saveToSent); err != nil {
		return err
	}

	statusf("Mail sent to %s\n", args[0])

	return nil
}
