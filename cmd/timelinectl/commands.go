package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/d60-Lab/home-timeline/internal/app"
)

type opener func(ctx context.Context) (*app.App, error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "timelinectl",
		Short:         "Maintain cached home timelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "rebuild <account_id>",
			Short: "Rebuild an account's home timeline from the store",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(open, func(ctx context.Context, cmd *cobra.Command, a *app.App, ids []int64) error {
				if err := a.Engine.Rebuilder.Rebuild(ctx, ids[0]); err != nil {
					return err
				}
				cmd.Printf("rebuilt timeline of %d\n", ids[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "regenerate <account_id>",
			Short: "Mark an account as regenerating and rebuild it",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(open, func(ctx context.Context, cmd *cobra.Command, a *app.App, ids []int64) error {
				if _, err := a.Engine.Cache.MarkRegenerating(ctx, ids[0], a.Config.Timeline.RegenerationTTL); err != nil {
					return err
				}
				if err := a.Engine.Rebuilder.Rebuild(ctx, ids[0]); err != nil {
					return err
				}
				cmd.Printf("regenerated timeline of %d\n", ids[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "merge <from_account_id> <into_account_id>",
			Short: "Merge recent posts of one account into another's timeline",
			Args:  cobra.ExactArgs(2),
			RunE: withApp(open, func(ctx context.Context, cmd *cobra.Command, a *app.App, ids []int64) error {
				n, err := a.Engine.Relations.Merge(ctx, ids[0], ids[1])
				if err != nil {
					return err
				}
				cmd.Printf("merged %d entries\n", n)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "unmerge <from_account_id> <into_account_id>",
			Short: "Remove one account's posts from another's timeline",
			Args:  cobra.ExactArgs(2),
			RunE: withApp(open, func(ctx context.Context, cmd *cobra.Command, a *app.App, ids []int64) error {
				n, err := a.Engine.Relations.Unmerge(ctx, ids[0], ids[1])
				if err != nil {
					return err
				}
				cmd.Printf("removed %d posts\n", n)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "purge <account_id> <target_account_id>",
			Short: "Drop every entry authored by target from account's timeline",
			Args:  cobra.ExactArgs(2),
			RunE: withApp(open, func(ctx context.Context, cmd *cobra.Command, a *app.App, ids []int64) error {
				n, err := a.Engine.Relations.Purge(ctx, ids[0], ids[1])
				if err != nil {
					return err
				}
				cmd.Printf("purged %d entries\n", n)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "cleanup",
			Short: "Delete timelines of accounts that have not signed in recently",
			Args:  cobra.NoArgs,
			RunE: withApp(open, func(ctx context.Context, cmd *cobra.Command, a *app.App, _ []int64) error {
				n, err := a.Engine.Cleaner.Run(ctx)
				if err != nil {
					return err
				}
				cmd.Printf("deleted %d timelines\n", n)
				return nil
			}),
		},
	)
	return root
}

func withApp(open opener, run func(ctx context.Context, cmd *cobra.Command, a *app.App, ids []int64) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ids := make([]int64, len(args))
		for i, raw := range args {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid account id %q", raw)
			}
			ids[i] = id
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := open(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()
		return run(ctx, cmd, a, ids)
	}
}
