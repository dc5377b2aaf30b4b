package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/swarmhive/swarmhive/internal/mailbox"
	"github.com/swarmhive/swarmhive/internal/types"
)

func init() {
	rootCmd.AddCommand(mailCmd)
	mailCmd.AddCommand(mailSendCmd, mailInboxCmd, mailReadCmd, mailAckCmd)

	mailSendCmd.Flags().StringSlice("to", nil, "Recipient agent names, or \"*\" to broadcast")
	mailSendCmd.Flags().String("subject", "", "Subject line")
	mailSendCmd.Flags().String("thread", "", "Thread id, to group a conversation")
	mailSendCmd.Flags().String("importance", string(types.ImportanceNormal), "low|normal|high|urgent")
	mailSendCmd.Flags().Bool("ack-required", false, "Require an explicit ack from every recipient")

	mailInboxCmd.Flags().String("agent", "", "Inbox owner (default: --actor)")
	mailInboxCmd.Flags().Bool("unread", false, "Only unread messages")
	mailInboxCmd.Flags().Int("limit", 0, "Max rows")
	mailInboxCmd.Flags().Bool("bodies", false, "Include message bodies")

	mailReadCmd.Flags().String("agent", "", "Reading agent (default: --actor)")
	mailAckCmd.Flags().String("agent", "", "Acking agent (default: --actor)")
}

var mailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Send and read agent-to-agent messages",
}

var mailSendCmd = &cobra.Command{
	Use:   "send <body>...",
	Short: "Send a message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("mail send")
		to, _ := cmd.Flags().GetStringSlice("to")
		subject, _ := cmd.Flags().GetString("subject")
		thread, _ := cmd.Flags().GetString("thread")
		importance, _ := cmd.Flags().GetString("importance")
		ackRequired, _ := cmd.Flags().GetBool("ack-required")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		messageID, err := s.Mailbox.Send(ctx, mailbox.SendInput{
			ProjectKey: projectKey, From: actor, To: to, Subject: subject,
			Body: strings.Join(args, " "), ThreadID: thread,
			Importance: types.Importance(importance), AckRequired: ackRequired,
		})
		if err != nil {
			return err
		}
		printResult(map[string]string{"message_id": messageID}, func() { fmt.Println(messageID) })
		return nil
	},
}

var mailInboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List an agent's inbox",
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, _ := cmd.Flags().GetString("agent")
		if agent == "" {
			agent = actor
		}
		unread, _ := cmd.Flags().GetBool("unread")
		limit, _ := cmd.Flags().GetInt("limit")
		bodies, _ := cmd.Flags().GetBool("bodies")

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		messages, err := s.Mailbox.Inbox(ctx, projectKey, agent, mailbox.InboxOptions{
			Limit: limit, UnreadOnly: unread, IncludeBodies: bodies,
		})
		if err != nil {
			return err
		}
		printResult(messages, func() {
			for _, m := range messages {
				status := "read"
				if m.ReadAt == nil {
					status = "unread"
				}
				fmt.Printf("%s  [%s] from %s: %s\n", m.MessageID, renderStatus(status), m.FromAgent, m.Subject)
				if bodies && m.Body != "" {
					fmt.Printf("    %s\n", m.Body)
				}
			}
		})
		return nil
	},
}

var mailReadCmd = &cobra.Command{
	Use:   "read <message-id>",
	Short: "Mark a message read and print its body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, _ := cmd.Flags().GetString("agent")
		if agent == "" {
			agent = actor
		}
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		body, err := s.Mailbox.Read(ctx, projectKey, args[0], agent)
		if err != nil {
			return err
		}
		printResult(body, func() {
			fmt.Printf("from %s: %s\n\n%s\n", body.FromAgent, body.Subject, body.Body)
		})
		return nil
	},
}

var mailAckCmd = &cobra.Command{
	Use:   "ack <message-id>",
	Short: "Acknowledge a message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("mail ack")
		agent, _ := cmd.Flags().GetString("agent")
		if agent == "" {
			agent = actor
		}
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		if err := s.Mailbox.Ack(ctx, projectKey, args[0], agent); err != nil {
			return err
		}
		fmt.Printf("acked %s\n", args[0])
		return nil
	},
}
