package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
	"github.com/lytDeveloper/Lyt-sub003/pkg/preference"
	"github.com/lytDeveloper/Lyt-sub003/pkg/telemetry"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
	cfg        Config
	now        func() time.Time
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{now: time.Now}

	root := &cobra.Command{
		Use:           "lyt",
		Short:         "Browse the Lyt explore feed and manage likes, follows, hides and blocks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			if opts.verbose || cfg.Verbose {
				slog.SetDefault(telemetry.NewLogger(cmd.ErrOrStderr(), "local"))
			} else {
				slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn})))
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath(), "path to config.yaml")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logs on stderr")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newExploreCmd(opts),
		newToggleCmd(opts, "like <project|collaboration|partner> <id>", "Like or unlike an item", preference.KindLike, "liked", "unliked"),
		newToggleCmd(opts, "hide <project|collaboration|partner> <id>", "Hide or unhide an item from your feed", preference.KindHide, "hidden", "visible again"),
		newUserToggleCmd(opts, "follow <user-id>", "Follow or unfollow a user", preference.KindFollow, "following", "unfollowed"),
		newUserToggleCmd(opts, "block <user-id>", "Block or unblock a user", preference.KindBlock, "blocked", "unblocked"),
		newStatusCmd(opts),
		newSyncCmd(opts),
	)
	return root
}

// withApp ouvre l'app pour la durée d'une commande et la referme proprement.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, opts.cfg)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return errors.Join(runErr, a.close(flushCtx))
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a session token issued by the identity service",
		RunE: func(cmd *cobra.Command, args []string) error {
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("--token is required")
			}
			sess, err := NewSession(token, opts.now())
			if err != nil {
				return err
			}
			if err := SaveSession(opts.cfg.sessionPath(), sess); err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				a.hydrate(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", sess.UserID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "JWT access token")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session and the local preference cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.prefs.Clear(ctx)
			})
			if err != nil && !errors.Is(err, ErrNoSession) {
				return err
			}
			if err := DeleteSession(opts.cfg.sessionPath()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newExploreCmd(opts *rootOptions) *cobra.Command {
	var (
		entity   string
		category string
		statuses []string
		query    string
		pages    int
	)
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "List projects, collaborations or partners from the explore feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := explore.EntityType(entity)
			if !t.Valid() {
				return fmt.Errorf("unknown type %q", entity)
			}
			f := explore.Filter{Category: category, SearchQuery: query}
			for _, s := range statuses {
				f.Statuses = append(f.Statuses, explore.Status(s))
			}
			if len(f.Statuses) == 0 && t != explore.TypePartner {
				f.Statuses = explore.DefaultStatuses
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				a.hydrate(ctx)
				agg := a.newAggregator(f, t)
				defer agg.Close()

				for i := 0; i < pages && agg.ShouldLoadMore(); i++ {
					if _, err := agg.LoadMore(ctx); err != nil {
						return err
					}
				}
				return printItems(cmd, agg.Items(), agg.Status().HasMore)
			})
		},
	}
	cmd.Flags().StringVarP(&entity, "type", "t", string(explore.TypeProject), "project, collaboration or partner")
	cmd.Flags().StringVar(&category, "category", "", "category filter")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "status allow-list (default open,in_progress)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "search query")
	cmd.Flags().IntVarP(&pages, "pages", "n", 1, "number of pages to load")
	return cmd
}

func printItems(cmd *cobra.Command, items []explore.FeedItem, hasMore bool) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tID\tTITLE\tSTATUS\tCREATED")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", it.Type, it.ID, it.Title, it.Status, it.CreatedAt.Format(time.DateOnly))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if hasMore {
		fmt.Fprintln(cmd.OutOrStdout(), "(more available, use --pages)")
	}
	return nil
}

func newToggleCmd(opts *rootOptions, use, short string, kind preference.Kind, on, off string) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggle(cmd, opts, kind, preference.TargetType(args[0]), args[1], reason, on, off)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "optional reason sent with the create")
	return cmd
}

func newUserToggleCmd(opts *rootOptions, use, short string, kind preference.Kind, on, off string) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggle(cmd, opts, kind, preference.TargetUser, args[0], reason, on, off)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "optional reason sent with the create")
	return cmd
}

func toggle(cmd *cobra.Command, opts *rootOptions, kind preference.Kind, tt preference.TargetType, id, reason, on, off string) error {
	return withApp(cmd, opts, func(ctx context.Context, a *app) error {
		a.hydrate(ctx)
		member, err := a.prefs.Toggle(ctx, kind, tt, id, nil, preference.WithReason(strings.TrimSpace(reason)))
		if err != nil {
			return err
		}
		state := off
		if member {
			state = on
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", tt, id, state)
		return nil
	})
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session and local preference counts (no network)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "user: %s\n", a.session.UserID)
				fmt.Fprintf(out, "feed: %s\ninteractions: %s\n", a.cfg.FeedURL, a.cfg.InteractionURL)
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, p := range preference.Pairs() {
					fmt.Fprintf(w, "%s\t%d\n", p, len(a.prefs.Members(p.Kind, p.TargetType)))
				}
				return w.Flush()
			})
		},
	}
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Flush pending writes and reload preferences from the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				r := preference.NewReconciler(a.prefs, 0, 0)
				if err := r.Reconcile(ctx); err != nil {
					return fmt.Errorf("sync: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "preferences synced")
				return nil
			})
		},
	}
}
