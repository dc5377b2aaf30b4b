package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swarmhive/swarmhive/internal/lock"
)

func init() {
	rootCmd.AddCommand(lockCmd)
	lockCmd.AddCommand(lockAcquireCmd, lockReleaseCmd, lockRenewCmd, lockGetCmd)

	lockAcquireCmd.Flags().String("holder", "", "Claimant (default: --actor)")
	lockAcquireCmd.Flags().String("ttl", "", "Lease length: a Go duration or a natural-language expiry")

	lockReleaseCmd.Flags().String("holder", "", "Current holder (default: --actor)")

	lockRenewCmd.Flags().String("holder", "", "Current holder (default: --actor)")
	lockRenewCmd.Flags().String("ttl", "", "New lease length")
}

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Claim, release, and renew the distributed mutex rows used for admin serialization",
}

var lockAcquireCmd = &cobra.Command{
	Use:   "acquire <resource>",
	Short: "Acquire resource's lock, retrying with backoff while it is held",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("lock acquire")
		holder, _ := cmd.Flags().GetString("holder")
		if holder == "" {
			holder = actor
		}
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

		result, err := s.Lock.Acquire(ctx, lock.AcquireInput{Resource: args[0], Holder: holder, TTLSeconds: ttl})
		if err != nil {
			return err
		}
		printResult(result, func() { fmt.Printf("%s  seq=%d\n", renderStatus("granted"), result.Seq) })
		return nil
	},
}

var lockReleaseCmd = &cobra.Command{
	Use:   "release <resource>",
	Short: "Release resource's lock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("lock release")
		holder, _ := cmd.Flags().GetString("holder")
		if holder == "" {
			holder = actor
		}
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		if err := s.Lock.Release(ctx, args[0], holder); err != nil {
			return err
		}
		fmt.Println("released", args[0])
		return nil
	},
}

var lockRenewCmd = &cobra.Command{
	Use:   "renew <resource>",
	Short: "Extend the current holder's lease",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireWrite("lock renew")
		holder, _ := cmd.Flags().GetString("holder")
		if holder == "" {
			holder = actor
		}
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

		if err := s.Lock.Renew(ctx, args[0], holder, ttl); err != nil {
			return err
		}
		fmt.Println("renewed", args[0])
		return nil
	},
}

var lockGetCmd = &cobra.Command{
	Use:   "get <resource>",
	Short: "Show a lock's current holder and fence token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		lk, err := s.Lock.Get(ctx, args[0])
		if err != nil {
			return err
		}
		printResult(lk, func() {
			fmt.Printf("%s  holder=%s  seq=%d  expires=%s\n", lk.Resource, lk.Holder, lk.Seq, lk.ExpiresAt.Format("15:04:05"))
		})
		return nil
	},
}
