package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/reservation"
)

func init() {
	rootCmd.AddCommand(reserveCmd)
	reserveCmd.AddCommand(reserveAddCmd, reserveReleaseCmd, reserveListCmd)

	reserveAddCmd.Flags().String("agent", "", "Claiming agent (default: --actor)")
	reserveAddCmd.Flags().Bool("exclusive", true, "Exclusive lease (false = shared/read lease)")
	reserveAddCmd.Flags().String("reason", "", "Reason recorded on the reservation")
	reserveAddCmd.Flags().String("ttl", "", "Lease length: a Go duration (\"10m\") or a natural-language expiry (\"in 30 minutes\"); empty uses the configured default")

	reserveReleaseCmd.Flags().String("agent", "", "Releasing agent (default: --actor)")
	reserveReleaseCmd.Flags().Bool("all", false, "Release every reservation held by this agent")
}

var reserveCmd = &cobra.Command{
	Use:   "reserve",
	Short: "Claim, release, and inspect file-path reservations",
}

var reserveAddCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Reserve one or more paths, all-or-nothing",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("reserve add")
		agent, _ := cmd.Flags().GetString("agent")
		if agent == "" {
			agent = actor
		}
		exclusive, _ := cmd.Flags().GetBool("exclusive")
		reason, _ := cmd.Flags().GetString("reason")
		ttlRaw, _ := cmd.Flags().GetString("ttl")
		ttl, err := parseTTLSeconds(ttlRaw)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		result, err := s.Reservations.Reserve(ctx, reservation.ReserveInput{
			ProjectKey: projectKey, Agent: agent, Paths: args, Exclusive: exclusive,
			Reason: reason, TTLSeconds: ttl,
		})
		if err != nil {
			return err
		}
		printResult(result, func() {
			if len(result.Conflicts) > 0 {
				fmt.Println(renderStatus("conflict"))
				for _, c := range result.Conflicts {
					fmt.Printf("  %s held by %s until %s\n", c.Path, c.Holder, c.ExpiresAt.Format("15:04:05"))
				}
				return
			}
			for _, p := range result.Granted {
				fmt.Printf("%s  %s\n", renderStatus("granted"), p)
			}
		})
		if len(result.Conflicts) > 0 {
			holders := make([]string, len(result.Conflicts))
			for i, c := range result.Conflicts {
				holders[i] = c.Holder
			}
			return errs.Conflict("hivectl.reserve.add", "one or more paths are reserved by another agent", args, holders)
		}
		return nil
	},
}

var reserveReleaseCmd = &cobra.Command{
	Use:   "release <path>",
	Short: "Release a single reservation held by --agent, or all of it with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("reserve release")
		agent, _ := cmd.Flags().GetString("agent")
		if agent == "" {
			agent = actor
		}
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) != 1 {
			return errs.New("hivectl.reserve.release", errs.ErrValidation, "a path is required unless --all is set")
		}

		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		in := reservation.ReleaseInput{ProjectKey: projectKey, Agent: agent}
		if !all {
			in.Paths = args
		}
		if err := s.Reservations.Release(ctx, in); err != nil {
			return err
		}
		if all {
			fmt.Printf("released all reservations held by %s\n", agent)
		} else {
			fmt.Printf("released %s\n", args[0])
		}
		return nil
	},
}

var reserveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active reservations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		active, err := s.Reservations.ActiveFor(ctx, projectKey)
		if err != nil {
			return err
		}
		printResult(active, func() {
			for _, r := range active {
				kind := "shared"
				if r.Exclusive {
					kind = "exclusive"
				}
				fmt.Printf("%s  %s  %s  expires %s\n", r.AgentName, kind, r.PathPattern, r.ExpiresAt.Format("15:04:05"))
			}
		})
		return nil
	},
}
